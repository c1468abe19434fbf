package repository

import (
	"errors"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

var (
	ErrUserNotFound  = errors.New("用户不存在")
	ErrUsernameTaken = errors.New("用户名已存在")
)

// UserRepository 用户表。带 Locked 后缀的方法要求调用方已持有对应的文件锁，
// 查找一律返回记录的独立副本
type UserRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewUserRepository(st *store.Store, locks *lock.Manager) *UserRepository {
	return &UserRepository{st: st, locks: locks}
}

// Lock 获取用户文件锁
func (r *UserRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

func (r *UserRepository) FindByIDLocked(id int32) (*model.User, error) {
	var found *model.User
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		u, err := model.UnmarshalUser(rec)
		if err != nil {
			return false, err
		}
		if u.ID == id {
			found = u
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrUserNotFound
	}
	return found, nil
}

func (r *UserRepository) FindByUsernameLocked(username string) (*model.User, error) {
	var found *model.User
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		u, err := model.UnmarshalUser(rec)
		if err != nil {
			return false, err
		}
		if u.Username == username {
			found = u
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrUserNotFound
	}
	return found, nil
}

// FindByUsername 自带共享锁的查找
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return r.FindByUsernameLocked(username)
}

// CreateLocked 从文件头取 ID、改写文件头、追加记录。
// 整个序列必须在排他锁内，用户名唯一性由调用方在同一锁内先行校验
func (r *UserRepository) CreateLocked(u *model.User) error {
	id, err := r.st.AllocateID()
	if err != nil {
		return err
	}
	u.ID = id
	return r.st.Append(u.MarshalRecord())
}

// UpdateLocked 原位改写，要求仍持有查找时的排他锁
func (r *UserRepository) UpdateLocked(u *model.User) error {
	return r.st.WriteAt(int(u.ID)-1, u.MarshalRecord())
}

func (r *UserRepository) ListLocked() ([]model.User, error) {
	var users []model.User
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		u, err := model.UnmarshalUser(rec)
		if err != nil {
			return false, err
		}
		users = append(users, *u)
		return true, nil
	})
	return users, err
}

// List 自带共享锁的全量列表
func (r *UserRepository) List() ([]model.User, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return r.ListLocked()
}
