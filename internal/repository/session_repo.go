package repository

import (
	"time"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

// SessionRepository 登录会话表
type SessionRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewSessionRepository(st *store.Store, locks *lock.Manager) *SessionRepository {
	return &SessionRepository{st: st, locks: locks}
}

func (r *SessionRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// FindActiveLocked 查找某用户的活跃会话，返回记录与槽位
func (r *SessionRepository) FindActiveLocked(userID int32) (*model.Session, int, error) {
	var found *model.Session
	foundIdx := -1
	err := r.st.Scan(func(index int, rec []byte) (bool, error) {
		s, err := model.UnmarshalSession(rec)
		if err != nil {
			return false, err
		}
		if s.UserID == userID && s.Active {
			found = s
			foundIdx = index
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, -1, err
	}
	return found, foundIdx, nil
}

// AppendLocked 追加一条活跃会话
func (r *SessionRepository) AppendLocked(userID int32) error {
	h, err := r.st.ReadHeader()
	if err != nil {
		return err
	}
	h.RecordCount++
	if err := r.st.WriteHeader(h); err != nil {
		return err
	}
	s := &model.Session{UserID: userID, LoginTime: time.Now(), Active: true}
	return r.st.Append(s.MarshalRecord())
}

// DeactivateAtLocked 原位翻转会话标记
func (r *SessionRepository) DeactivateAtLocked(index int, s *model.Session) error {
	s.Active = false
	return r.st.WriteAt(index, s.MarshalRecord())
}

// ListActiveOlderThanLocked 登录时间早于 cutoff 的活跃会话（清理任务用）
func (r *SessionRepository) ListActiveOlderThanLocked(cutoff time.Time) ([]model.Session, []int, error) {
	var sessions []model.Session
	var indexes []int
	err := r.st.Scan(func(index int, rec []byte) (bool, error) {
		s, err := model.UnmarshalSession(rec)
		if err != nil {
			return false, err
		}
		if s.Active && s.LoginTime.Before(cutoff) {
			sessions = append(sessions, *s)
			indexes = append(indexes, index)
		}
		return true, nil
	})
	return sessions, indexes, err
}
