package model

import (
	"fmt"
	"time"
)

// LoanStatus 贷款状态，New 只能迁移到 Approved 或 Rejected 一次
type LoanStatus int32

const (
	LoanNew LoanStatus = iota
	LoanApproved
	LoanRejected
)

func (s LoanStatus) String() string {
	switch s {
	case LoanNew:
		return "NEW"
	case LoanApproved:
		return "APPROVED"
	case LoanRejected:
		return "REJECTED"
	}
	return "UNKNOWN"
}

// LoanRecordSize 贷款记录的磁盘宽度
const LoanRecordSize = 4 + 4 + 8 + 4 + 4 + 8 + 8 + reservedLen

type Loan struct {
	LoanID             int32
	CustID             int32
	Amount             float64
	Status             LoanStatus
	AssignedEmployeeID int32 // 0 表示未分配
	ApplicationDate    time.Time
	DecisionDate       time.Time // 仅在状态迁移时写入
}

func (l *Loan) MarshalRecord() []byte {
	b := make([]byte, LoanRecordSize)
	enc.PutUint32(b[0:4], uint32(l.LoanID))
	enc.PutUint32(b[4:8], uint32(l.CustID))
	putFloat(b[8:16], l.Amount)
	enc.PutUint32(b[16:20], uint32(l.Status))
	enc.PutUint32(b[20:24], uint32(l.AssignedEmployeeID))
	putTime(b[24:32], l.ApplicationDate)
	putTime(b[32:40], l.DecisionDate)
	return b
}

func UnmarshalLoan(b []byte) (*Loan, error) {
	if len(b) != LoanRecordSize {
		return nil, fmt.Errorf("贷款记录长度错误: %d", len(b))
	}
	return &Loan{
		LoanID:             int32(enc.Uint32(b[0:4])),
		CustID:             int32(enc.Uint32(b[4:8])),
		Amount:             getFloat(b[8:16]),
		Status:             LoanStatus(enc.Uint32(b[16:20])),
		AssignedEmployeeID: int32(enc.Uint32(b[20:24])),
		ApplicationDate:    getTime(b[24:32]),
		DecisionDate:       getTime(b[32:40]),
	}, nil
}
