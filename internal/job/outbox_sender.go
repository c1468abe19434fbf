package job

import (
	"context"
	"log"
	"time"

	"banksystem/internal/config"
	"banksystem/internal/infrastructure/mq"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

// OutboxSender 轮询事件表，把 Pending 事件发往 Kafka。
// Kafka 未启用时事件直接标记 Sent，不阻塞资金流程
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(outboxRepo *repository.OutboxRepository, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo: outboxRepo,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		interval:   time.Second,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	log.Println("[OutboxSender] 事件发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[OutboxSender] 收到停止信号，任务退出")
			return
		case <-s.stopCh:
			log.Println("[OutboxSender] 任务停止")
			return
		case <-ticker.C:
			s.processPendingEvents()
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingEvents() {
	events, indexes, err := s.outboxRepo.GetPending(s.batchSize)
	if err != nil {
		log.Printf("[OutboxSender] 查询事件失败: %v", err)
		return
	}

	for i := range events {
		s.sendEvent(&events[i], indexes[i])
	}
}

func (s *OutboxSender) sendEvent(e *model.OutboxEvent, index int) {
	var err error
	if mq.Enabled() {
		err = mq.SendMessage(e.Topic, e.Key, e.Payload)
	}

	if err == nil {
		if updateErr := s.outboxRepo.UpdateStatusAt(index, e, model.OutboxStatusSent); updateErr != nil {
			log.Printf("[OutboxSender] 更新事件状态失败: id=%d, err=%v", e.ID, updateErr)
		} else {
			log.Printf("[OutboxSender] 事件发送成功: id=%d, topic=%s, key=%s", e.ID, e.Topic, e.Key)
		}
		return
	}

	log.Printf("[OutboxSender] 事件发送失败: id=%d, err=%v", e.ID, err)

	if err := s.outboxRepo.IncrementRetryAt(index, e); err != nil {
		log.Printf("[OutboxSender] 增加重试次数失败: id=%d, err=%v", e.ID, err)
		return
	}

	if int(e.RetryCount) >= s.cfg.Business.MaxRetryCount {
		if err := s.outboxRepo.UpdateStatusAt(index, e, model.OutboxStatusFailed); err != nil {
			log.Printf("[OutboxSender] 标记事件失败状态失败: id=%d, err=%v", e.ID, err)
		} else {
			log.Printf("[OutboxSender] 事件超过最大重试次数，标记为失败: id=%d", e.ID)
		}
	}
}
