package repository

import (
	"time"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

// OutboxRepository 事件表。资金变动先在这里落盘（Pending），
// 后台任务负责发送并推进状态
type OutboxRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewOutboxRepository(st *store.Store, locks *lock.Manager) *OutboxRepository {
	return &OutboxRepository{st: st, locks: locks}
}

func (r *OutboxRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// Append 落盘一条 Pending 事件。outbox 在锁序的最末位，
// 持有其它文件锁时调用是安全的
func (r *OutboxRepository) Append(topic, key, payload string) error {
	h, err := r.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	id, err := r.st.AllocateID()
	if err != nil {
		return err
	}
	e := &model.OutboxEvent{
		ID:        id,
		Topic:     topic,
		Key:       key,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}
	return r.st.Append(e.MarshalRecord())
}

// GetPending 取出待发送事件及其槽位
func (r *OutboxRepository) GetPending(limit int) ([]model.OutboxEvent, []int, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, nil, err
	}
	defer h.Release()

	var events []model.OutboxEvent
	var indexes []int
	err = r.st.Scan(func(index int, rec []byte) (bool, error) {
		e, err := model.UnmarshalOutboxEvent(rec)
		if err != nil {
			return false, err
		}
		if e.Status == model.OutboxStatusPending {
			events = append(events, *e)
			indexes = append(indexes, index)
			if limit > 0 && len(events) >= limit {
				return false, nil
			}
		}
		return true, nil
	})
	return events, indexes, err
}

// UpdateStatusAt 原位推进事件状态
func (r *OutboxRepository) UpdateStatusAt(index int, e *model.OutboxEvent, status model.OutboxStatus) error {
	h, err := r.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	e.Status = status
	return r.st.WriteAt(index, e.MarshalRecord())
}

// IncrementRetryAt 发送失败后累加重试计数
func (r *OutboxRepository) IncrementRetryAt(index int, e *model.OutboxEvent) error {
	h, err := r.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	e.RetryCount++
	return r.st.WriteAt(index, e.MarshalRecord())
}
