package model

import (
	"fmt"
	"time"
)

// FeedbackRecordSize 反馈记录的磁盘宽度
const FeedbackRecordSize = 4 + 4 + 8 + MaxFeedbackLen + reservedLen

// Feedback 客户反馈，只追加
type Feedback struct {
	FeedbackID int32
	CustID     int32
	Timestamp  time.Time
	Message    string
}

func (f *Feedback) MarshalRecord() []byte {
	b := make([]byte, FeedbackRecordSize)
	enc.PutUint32(b[0:4], uint32(f.FeedbackID))
	enc.PutUint32(b[4:8], uint32(f.CustID))
	putTime(b[8:16], f.Timestamp)
	putString(b[16:116], f.Message)
	return b
}

func UnmarshalFeedback(b []byte) (*Feedback, error) {
	if len(b) != FeedbackRecordSize {
		return nil, fmt.Errorf("反馈记录长度错误: %d", len(b))
	}
	return &Feedback{
		FeedbackID: int32(enc.Uint32(b[0:4])),
		CustID:     int32(enc.Uint32(b[4:8])),
		Timestamp:  getTime(b[8:16]),
		Message:    getString(b[16:116]),
	}, nil
}
