package service

import (
	"context"
	"errors"
	"strings"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

var (
	ErrEmptyCredentials      = errors.New("用户名和密码不能为空")
	ErrCustomerNotFound      = errors.New("客户不存在")
	ErrCannotDeactivateSelf  = errors.New("不能停用自己")
	ErrCannotDeactivateAdmin = errors.New("不能停用管理员")
	ErrUserAlreadyActive     = errors.New("用户已是激活状态")
	ErrNegativeBalance       = errors.New("初始余额不能为负")
)

// UserService 用户管理：开户、编辑、停用/启用、员工与经理创建
type UserService struct {
	users    *repository.UserRepository
	accounts *repository.AccountRepository
	verifier CredentialVerifier
}

func NewUserService(users *repository.UserRepository, accounts *repository.AccountRepository, verifier CredentialVerifier) *UserService {
	return &UserService{users: users, accounts: accounts, verifier: verifier}
}

// AddCustomer 新建客户及其账户。用户与账户是两个锁作用域，
// 锁序 users < accounts
func (s *UserService) AddCustomer(ctx context.Context, username, password string, initialBalance float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if initialBalance < 0 {
		return ErrNegativeBalance
	}
	u, err := s.createUser(username, password, model.RoleCustomer)
	if err != nil {
		return err
	}

	ah, err := s.accounts.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer ah.Release()
	return s.accounts.CreateLocked(&model.Account{UserID: u.ID, Balance: initialBalance})
}

// AddEmployee 新建员工
func (s *UserService) AddEmployee(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.createUser(username, password, model.RoleEmployee)
	return err
}

// AddManager 新建经理
func (s *UserService) AddManager(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.createUser(username, password, model.RoleManager)
	return err
}

func (s *UserService) createUser(username, password string, role model.Role) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}
	stored, err := s.verifier.Hash(password)
	if err != nil {
		return nil, err
	}

	h, err := s.users.Lock(lock.Exclusive)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	// 唯一性校验与创建在同一把排他锁内
	if _, err := s.users.FindByUsernameLocked(username); err == nil {
		return nil, repository.ErrUsernameTaken
	}
	u := &model.User{Username: username, Password: stored, Role: role, Active: true}
	if err := s.users.CreateLocked(u); err != nil {
		return nil, err
	}
	return u, nil
}

// EditRequest 编辑客户的交互结果。KeepXxx 表示客户端回复了 "."
type EditRequest struct {
	KeepUsername bool
	Username     string
	KeepPassword bool
	Password     string
	Active       bool
}

// EditCustomer 逐字段交互式编辑。exchange 回调驱动与客户端的问答，
// 排他锁横跨整个交互（与原系统一致，由连接读超时兜底）
func (s *UserService) EditCustomer(ctx context.Context, username string, exchange func(current *model.User) (*EditRequest, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := s.users.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	u, err := s.users.FindByUsernameLocked(username)
	if err != nil || u.Role != model.RoleCustomer {
		return ErrCustomerNotFound
	}

	req, err := exchange(u)
	if err != nil {
		return err
	}

	if !req.KeepUsername {
		newName := strings.TrimSpace(req.Username)
		if newName == "" {
			return ErrEmptyCredentials
		}
		if _, err := s.users.FindByUsernameLocked(newName); err == nil {
			return repository.ErrUsernameTaken
		}
		u.Username = newName
	}
	if !req.KeepPassword {
		stored, err := s.verifier.Hash(req.Password)
		if err != nil {
			return err
		}
		u.Password = stored
	}
	u.Active = req.Active

	return s.users.UpdateLocked(u)
}

// Deactivate 停用用户。不能停用自己或其他管理员
func (s *UserService) Deactivate(ctx context.Context, adminID int32, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := s.users.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	u, err := s.users.FindByUsernameLocked(username)
	if err != nil {
		return err
	}
	if u.ID == adminID {
		return ErrCannotDeactivateSelf
	}
	if u.Role == model.RoleAdmin {
		return ErrCannotDeactivateAdmin
	}
	u.Active = false
	return s.users.UpdateLocked(u)
}

// Reactivate 重新启用用户
func (s *UserService) Reactivate(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := s.users.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	u, err := s.users.FindByUsernameLocked(username)
	if err != nil {
		return err
	}
	if u.Active {
		return ErrUserAlreadyActive
	}
	u.Active = true
	return s.users.UpdateLocked(u)
}

// FindCustomer 按用户名查找客户
func (s *UserService) FindCustomer(username string) (*model.User, error) {
	u, err := s.users.FindByUsername(username)
	if err != nil || u.Role != model.RoleCustomer {
		return nil, ErrCustomerNotFound
	}
	return u, nil
}

// List 全量用户列表
func (s *UserService) List() ([]model.User, error) {
	return s.users.List()
}
