package model

import (
	"fmt"
	"time"
)

// TransactionRecordSize 流水记录的磁盘宽度
const TransactionRecordSize = 4 + 4 + 8 + MaxDescriptionLen + 8 + 8 + reservedLen

// TransactionRecord 账户流水。只追加，不修改，不删除；
// 单账户内的顺序就是文件中的追加顺序
type TransactionRecord struct {
	TransactionID int32
	AccountID     int32
	Timestamp     time.Time
	Description   string
	Amount        float64 // 正数入账，负数出账
	NewBalance    float64
}

func (t *TransactionRecord) MarshalRecord() []byte {
	b := make([]byte, TransactionRecordSize)
	enc.PutUint32(b[0:4], uint32(t.TransactionID))
	enc.PutUint32(b[4:8], uint32(t.AccountID))
	putTime(b[8:16], t.Timestamp)
	putString(b[16:116], t.Description)
	putFloat(b[116:124], t.Amount)
	putFloat(b[124:132], t.NewBalance)
	return b
}

func UnmarshalTransaction(b []byte) (*TransactionRecord, error) {
	if len(b) != TransactionRecordSize {
		return nil, fmt.Errorf("流水记录长度错误: %d", len(b))
	}
	return &TransactionRecord{
		TransactionID: int32(enc.Uint32(b[0:4])),
		AccountID:     int32(enc.Uint32(b[4:8])),
		Timestamp:     getTime(b[8:16]),
		Description:   getString(b[16:116]),
		Amount:        getFloat(b[116:124]),
		NewBalance:    getFloat(b[124:132]),
	}, nil
}
