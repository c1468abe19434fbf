package model

import (
	"fmt"
	"time"
)

// SessionRecordSize 会话记录的磁盘宽度
const SessionRecordSize = 4 + 8 + 4 + reservedLen

// Session 登录会话，同一用户同时最多一条 Active 记录
type Session struct {
	UserID    int32
	LoginTime time.Time
	Active    bool
}

func (s *Session) MarshalRecord() []byte {
	b := make([]byte, SessionRecordSize)
	enc.PutUint32(b[0:4], uint32(s.UserID))
	putTime(b[4:12], s.LoginTime)
	putBool(b[12:16], s.Active)
	return b
}

func UnmarshalSession(b []byte) (*Session, error) {
	if len(b) != SessionRecordSize {
		return nil, fmt.Errorf("会话记录长度错误: %d", len(b))
	}
	return &Session{
		UserID:    int32(enc.Uint32(b[0:4])),
		LoginTime: getTime(b[4:12]),
		Active:    getBool(b[12:16]),
	}, nil
}
