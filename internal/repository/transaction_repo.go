package repository

import (
	"time"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

// TransactionRepository 流水账。只追加；单账户历史顺序即追加顺序
type TransactionRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewTransactionRepository(st *store.Store, locks *lock.Manager) *TransactionRepository {
	return &TransactionRepository{st: st, locks: locks}
}

func (r *TransactionRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// AppendLocked 分配全局流水 ID 并追加一条流水，要求持有排他锁
func (r *TransactionRepository) AppendLocked(accountID int32, description string, amount, newBalance float64) (*model.TransactionRecord, error) {
	id, err := r.st.AllocateID()
	if err != nil {
		return nil, err
	}
	t := &model.TransactionRecord{
		TransactionID: id,
		AccountID:     accountID,
		Timestamp:     time.Now(),
		Description:   description,
		Amount:        amount,
		NewBalance:    newBalance,
	}
	if err := r.st.Append(t.MarshalRecord()); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TransactionRepository) ListByAccountLocked(accountID int32) ([]model.TransactionRecord, error) {
	var out []model.TransactionRecord
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		t, err := model.UnmarshalTransaction(rec)
		if err != nil {
			return false, err
		}
		if t.AccountID == accountID {
			out = append(out, *t)
		}
		return true, nil
	})
	return out, err
}

// ListByAccount 自带共享锁的历史查询
func (r *TransactionRepository) ListByAccount(accountID int32) ([]model.TransactionRecord, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return r.ListByAccountLocked(accountID)
}
