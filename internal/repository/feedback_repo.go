package repository

import (
	"time"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

// FeedbackRepository 客户反馈，只追加
type FeedbackRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewFeedbackRepository(st *store.Store, locks *lock.Manager) *FeedbackRepository {
	return &FeedbackRepository{st: st, locks: locks}
}

func (r *FeedbackRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// Create 自带排他锁的追加
func (r *FeedbackRepository) Create(custID int32, message string) (*model.Feedback, error) {
	h, err := r.Lock(lock.Exclusive)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	id, err := r.st.AllocateID()
	if err != nil {
		return nil, err
	}
	f := &model.Feedback{
		FeedbackID: id,
		CustID:     custID,
		Timestamp:  time.Now(),
		Message:    message,
	}
	if err := r.st.Append(f.MarshalRecord()); err != nil {
		return nil, err
	}
	return f, nil
}

// List 自带共享锁的全量列表
func (r *FeedbackRepository) List() ([]model.Feedback, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	var out []model.Feedback
	err = r.st.Scan(func(_ int, rec []byte) (bool, error) {
		f, err := model.UnmarshalFeedback(rec)
		if err != nil {
			return false, err
		}
		out = append(out, *f)
		return true, nil
	})
	return out, err
}
