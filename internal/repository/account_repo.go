package repository

import (
	"errors"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

var ErrAccountNotFound = errors.New("账户不存在")

// AccountRepository 账户表。余额改写只能在持有排他锁的
// 读改写周期内进行，否则会丢失更新
type AccountRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewAccountRepository(st *store.Store, locks *lock.Manager) *AccountRepository {
	return &AccountRepository{st: st, locks: locks}
}

func (r *AccountRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// FindByUserIDLocked 按外键线性扫描，首个匹配生效
func (r *AccountRepository) FindByUserIDLocked(userID int32) (*model.Account, error) {
	var found *model.Account
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		a, err := model.UnmarshalAccount(rec)
		if err != nil {
			return false, err
		}
		if a.UserID == userID {
			found = a
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrAccountNotFound
	}
	return found, nil
}

func (r *AccountRepository) CreateLocked(a *model.Account) error {
	id, err := r.st.AllocateID()
	if err != nil {
		return err
	}
	a.AccountID = id
	return r.st.Append(a.MarshalRecord())
}

func (r *AccountRepository) UpdateLocked(a *model.Account) error {
	return r.st.WriteAt(int(a.AccountID)-1, a.MarshalRecord())
}
