package model

import (
	"fmt"
	"time"
)

// 事件状态。流水写入与事件落盘在同一把锁序列内完成，
// 发送由后台任务异步推进
type OutboxStatus int32

const (
	OutboxStatusPending OutboxStatus = iota
	OutboxStatusSent
	OutboxStatusFailed
)

const (
	outboxTopicLen   = 32
	outboxKeyLen     = 32
	outboxPayloadLen = 256
)

// OutboxEventSize 事件记录的磁盘宽度
const OutboxEventSize = 4 + outboxTopicLen + outboxKeyLen + outboxPayloadLen + 4 + 4 + 8

// OutboxEvent 资金变动事件，先随操作落盘，再由 OutboxSender 发送到 Kafka
type OutboxEvent struct {
	ID         int32
	Topic      string
	Key        string
	Payload    string
	Status     OutboxStatus
	RetryCount int32
	CreatedAt  time.Time
}

func (e *OutboxEvent) MarshalRecord() []byte {
	b := make([]byte, OutboxEventSize)
	enc.PutUint32(b[0:4], uint32(e.ID))
	putString(b[4:36], e.Topic)
	putString(b[36:68], e.Key)
	putString(b[68:324], e.Payload)
	enc.PutUint32(b[324:328], uint32(e.Status))
	enc.PutUint32(b[328:332], uint32(e.RetryCount))
	putTime(b[332:340], e.CreatedAt)
	return b
}

func UnmarshalOutboxEvent(b []byte) (*OutboxEvent, error) {
	if len(b) != OutboxEventSize {
		return nil, fmt.Errorf("事件记录长度错误: %d", len(b))
	}
	return &OutboxEvent{
		ID:         int32(enc.Uint32(b[0:4])),
		Topic:      getString(b[4:36]),
		Key:        getString(b[36:68]),
		Payload:    getString(b[68:324]),
		Status:     OutboxStatus(enc.Uint32(b[324:328])),
		RetryCount: int32(enc.Uint32(b[328:332])),
		CreatedAt:  getTime(b[332:340]),
	}, nil
}
