package service

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

var (
	ErrAuthFailed    = errors.New("用户名或密码错误")
	ErrRoleMismatch  = errors.New("角色不匹配")
	ErrSessionActive = errors.New("会话已存在")
)

// CredentialVerifier 凭证比对方式。原系统按明文原样比对，
// 这里保留为可配置项而不是擅自改成哈希
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Verify(stored, presented string) bool
}

type plainVerifier struct{}

func (plainVerifier) Hash(password string) (string, error) { return password, nil }
func (plainVerifier) Verify(stored, presented string) bool { return stored == presented }

type bcryptVerifier struct{}

func (bcryptVerifier) Hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

func (bcryptVerifier) Verify(stored, presented string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(presented)) == nil
}

// NewVerifier 根据配置选择比对方式，默认 plain
func NewVerifier(scheme string) CredentialVerifier {
	if scheme == "bcrypt" {
		return bcryptVerifier{}
	}
	return plainVerifier{}
}

// AuthService 登录认证与会话管理
type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	verifier CredentialVerifier
}

func NewAuthService(users *repository.UserRepository, sessions *repository.SessionRepository, verifier CredentialVerifier) *AuthService {
	return &AuthService{users: users, sessions: sessions, verifier: verifier}
}

// Login 校验凭证并回写最后登录时间。客户端声明的角色必须与记录一致
func (s *AuthService) Login(username, password string, claimedRole model.Role) (*model.User, error) {
	h, err := s.users.Lock(lock.Exclusive)
	if err != nil {
		return nil, err
	}
	defer h.Release()

	u, err := s.users.FindByUsernameLocked(username)
	if err != nil {
		return nil, ErrAuthFailed
	}
	if !u.Active || !s.verifier.Verify(u.Password, password) {
		return nil, ErrAuthFailed
	}
	if u.Role != claimedRole {
		return nil, ErrRoleMismatch
	}

	u.LastLogin = time.Now()
	if err := s.users.UpdateLocked(u); err != nil {
		return nil, err
	}
	return u, nil
}

// StartSession 同一用户同时只允许一个活跃会话
func (s *AuthService) StartSession(userID int32) error {
	h, err := s.sessions.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	existing, _, err := s.sessions.FindActiveLocked(userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrSessionActive
	}
	return s.sessions.AppendLocked(userID)
}

// EndSession 翻转活跃会话标记，没有活跃会话时静默返回
func (s *AuthService) EndSession(userID int32) error {
	h, err := s.sessions.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	sess, index, err := s.sessions.FindActiveLocked(userID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	return s.sessions.DeactivateAtLocked(index, sess)
}
