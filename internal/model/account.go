package model

import "fmt"

// AccountRecordSize 账户记录的磁盘宽度
const AccountRecordSize = 4 + 4 + 8 + 4 + reservedLen

// Account 账户记录，余额只允许在持有排他锁的读改写周期内变动
type Account struct {
	AccountID        int32
	UserID           int32
	Balance          float64
	TransactionCount int32
}

func (a *Account) MarshalRecord() []byte {
	b := make([]byte, AccountRecordSize)
	enc.PutUint32(b[0:4], uint32(a.AccountID))
	enc.PutUint32(b[4:8], uint32(a.UserID))
	putFloat(b[8:16], a.Balance)
	enc.PutUint32(b[16:20], uint32(a.TransactionCount))
	return b
}

func UnmarshalAccount(b []byte) (*Account, error) {
	if len(b) != AccountRecordSize {
		return nil, fmt.Errorf("账户记录长度错误: %d", len(b))
	}
	return &Account{
		AccountID:        int32(enc.Uint32(b[0:4])),
		UserID:           int32(enc.Uint32(b[4:8])),
		Balance:          getFloat(b[8:16]),
		TransactionCount: int32(enc.Uint32(b[16:20])),
	}, nil
}
