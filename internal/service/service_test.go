package service

import (
	"context"
	"path/filepath"
	"testing"

	"banksystem/internal/config"
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

// testEnv 一套临时目录上的完整仓库与服务
type testEnv struct {
	cfg *config.Config

	users        *repository.UserRepository
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	loans        *repository.LoanRepository
	sessions     *repository.SessionRepository
	feedback     *repository.FeedbackRepository
	outbox       *repository.OutboxRepository

	auth        *AuthService
	engine      *TransactionService
	userSvc     *UserService
	accountSvc  *AccountService
	loanSvc     *LoanService
	feedbackSvc *FeedbackService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithScheme(t, "plain")
}

func newTestEnvWithScheme(t *testing.T, scheme string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	locks := lock.NewManager()

	open := func(name string, size int) *store.Store {
		st, err := store.Open(filepath.Join(dir, name), size)
		if err != nil {
			t.Fatalf("打开 %s 失败: %v", name, err)
		}
		return st
	}

	cfg := &config.Config{}
	cfg.Kafka.Topic = "bank-events"
	cfg.Business.MaxRetryCount = 3

	e := &testEnv{cfg: cfg}
	e.users = repository.NewUserRepository(open("users.dat", model.UserRecordSize), locks)
	e.accounts = repository.NewAccountRepository(open("accounts.dat", model.AccountRecordSize), locks)
	e.transactions = repository.NewTransactionRepository(open("transactions.dat", model.TransactionRecordSize), locks)
	e.loans = repository.NewLoanRepository(open("loans.dat", model.LoanRecordSize), locks)
	e.sessions = repository.NewSessionRepository(open("sessions.dat", model.SessionRecordSize), locks)
	e.feedback = repository.NewFeedbackRepository(open("feedback.dat", model.FeedbackRecordSize), locks)
	e.outbox = repository.NewOutboxRepository(open("outbox.dat", model.OutboxEventSize), locks)

	verifier := NewVerifier(scheme)
	e.auth = NewAuthService(e.users, e.sessions, verifier)
	e.engine = NewTransactionService(cfg, e.users, e.accounts, e.transactions, e.outbox)
	e.userSvc = NewUserService(e.users, e.accounts, verifier)
	e.accountSvc = NewAccountService(e.accounts, e.transactions)
	e.loanSvc = NewLoanService(e.users, e.loans, e.engine)
	e.feedbackSvc = NewFeedbackService(e.feedback)
	return e
}

func (e *testEnv) addCustomer(t *testing.T, username, password string, balance float64) *model.User {
	t.Helper()
	if err := e.userSvc.AddCustomer(context.Background(), username, password, balance); err != nil {
		t.Fatalf("创建客户 %s 失败: %v", username, err)
	}
	u, err := e.users.FindByUsername(username)
	if err != nil {
		t.Fatalf("查找客户 %s 失败: %v", username, err)
	}
	return u
}

func (e *testEnv) addEmployee(t *testing.T, username string) *model.User {
	t.Helper()
	if err := e.userSvc.AddEmployee(context.Background(), username, "pw"); err != nil {
		t.Fatalf("创建员工失败: %v", err)
	}
	u, err := e.users.FindByUsername(username)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) addManager(t *testing.T, username string) *model.User {
	t.Helper()
	if err := e.userSvc.AddManager(context.Background(), username, "pw"); err != nil {
		t.Fatalf("创建经理失败: %v", err)
	}
	u, err := e.users.FindByUsername(username)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func (e *testEnv) balance(t *testing.T, userID int32) float64 {
	t.Helper()
	b, err := e.accountSvc.Balance(userID)
	if err != nil {
		t.Fatalf("查询余额失败: %v", err)
	}
	return b
}

func (e *testEnv) account(t *testing.T, userID int32) *model.Account {
	t.Helper()
	h, err := e.accounts.Lock(lock.Shared)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	a, err := e.accounts.FindByUserIDLocked(userID)
	if err != nil {
		t.Fatalf("查找账户失败: %v", err)
	}
	return a
}

func (e *testEnv) loan(t *testing.T, loanID int32) *model.Loan {
	t.Helper()
	h, err := e.loans.Lock(lock.Shared)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()
	l, _, err := e.loans.FindByIDLocked(loanID)
	if err != nil {
		t.Fatalf("查找贷款失败: %v", err)
	}
	return l
}
