package service

import (
	"context"
	"errors"
	"testing"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

func TestAddCustomerCreatesUserAndAccount(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 250)

	if alice.Role != model.RoleCustomer || !alice.Active {
		t.Fatalf("新客户 = %+v", alice)
	}
	acct := e.account(t, alice.ID)
	if acct.Balance != 250 {
		t.Fatalf("初始余额 = %.2f, 期望 250.00", acct.Balance)
	}
}

func TestAddCustomerRejectsDuplicateUsername(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "pw", 0)

	err := e.userSvc.AddCustomer(context.Background(), "alice", "pw2", 0)
	if !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("err = %v, 期望 ErrUsernameTaken", err)
	}
}

func TestAddCustomerValidation(t *testing.T) {
	e := newTestEnv(t)

	if err := e.userSvc.AddCustomer(context.Background(), "", "pw", 0); !errors.Is(err, ErrEmptyCredentials) {
		t.Fatalf("空用户名 err = %v", err)
	}
	if err := e.userSvc.AddCustomer(context.Background(), "alice", "", 0); !errors.Is(err, ErrEmptyCredentials) {
		t.Fatalf("空密码 err = %v", err)
	}
	if err := e.userSvc.AddCustomer(context.Background(), "alice", "pw", -5); !errors.Is(err, ErrNegativeBalance) {
		t.Fatalf("负余额 err = %v", err)
	}
}

func TestEditCustomerFieldByField(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "pw", 0)

	// 保留用户名、改密码、停用
	err := e.userSvc.EditCustomer(context.Background(), "alice", func(current *model.User) (*EditRequest, error) {
		if current.Username != "alice" {
			t.Fatalf("回调收到的当前记录 = %+v", current)
		}
		return &EditRequest{
			KeepUsername: true,
			Password:     "newpw",
			Active:       false,
		}, nil
	})
	if err != nil {
		t.Fatalf("EditCustomer: %v", err)
	}

	u, err := e.users.FindByUsername("alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.Password != "newpw" {
		t.Fatalf("密码未更新: %s", u.Password)
	}
	if u.Active {
		t.Fatal("active 未更新")
	}
}

func TestEditCustomerRenameChecksUniqueness(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "pw", 0)
	e.addCustomer(t, "bob", "pw", 0)

	err := e.userSvc.EditCustomer(context.Background(), "alice", func(*model.User) (*EditRequest, error) {
		return &EditRequest{Username: "bob", KeepPassword: true, Active: true}, nil
	})
	if !errors.Is(err, repository.ErrUsernameTaken) {
		t.Fatalf("改名撞车 err = %v, 期望 ErrUsernameTaken", err)
	}
}

func TestEditCustomerOnlyTargetsCustomers(t *testing.T) {
	e := newTestEnv(t)
	e.addEmployee(t, "emp")

	err := e.userSvc.EditCustomer(context.Background(), "emp", func(*model.User) (*EditRequest, error) {
		return &EditRequest{KeepUsername: true, KeepPassword: true, Active: true}, nil
	})
	if !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("编辑员工 err = %v, 期望 ErrCustomerNotFound", err)
	}
}

func TestDeactivateRules(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)

	// 管理员自建（跳过服务层，直接种一条记录）
	admin := seedAdmin(t, e)
	other := seedAdminNamed(t, e, "root2")

	if err := e.userSvc.Deactivate(context.Background(), admin.ID, admin.Username); !errors.Is(err, ErrCannotDeactivateSelf) {
		t.Fatalf("自停用 err = %v", err)
	}
	if err := e.userSvc.Deactivate(context.Background(), admin.ID, other.Username); !errors.Is(err, ErrCannotDeactivateAdmin) {
		t.Fatalf("停用管理员 err = %v", err)
	}
	if err := e.userSvc.Deactivate(context.Background(), admin.ID, "nobody"); !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("停用不存在用户 err = %v", err)
	}

	if err := e.userSvc.Deactivate(context.Background(), admin.ID, "alice"); err != nil {
		t.Fatalf("停用客户失败: %v", err)
	}
	u, _ := e.users.FindByUsername("alice")
	if u.Active {
		t.Fatal("客户未被停用")
	}
	_ = alice
}

func TestReactivate(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "pw", 0)
	admin := seedAdmin(t, e)

	if err := e.userSvc.Reactivate(context.Background(), "alice"); !errors.Is(err, ErrUserAlreadyActive) {
		t.Fatalf("启用活跃用户 err = %v, 期望 ErrUserAlreadyActive", err)
	}

	e.userSvc.Deactivate(context.Background(), admin.ID, "alice")
	if err := e.userSvc.Reactivate(context.Background(), "alice"); err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	u, _ := e.users.FindByUsername("alice")
	if !u.Active {
		t.Fatal("用户未被启用")
	}
}

func seedAdmin(t *testing.T, e *testEnv) *model.User {
	return seedAdminNamed(t, e, "root")
}

func seedAdminNamed(t *testing.T, e *testEnv, username string) *model.User {
	t.Helper()
	h, err := e.users.Lock(lock.Exclusive)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	u := &model.User{Username: username, Password: "pw", Role: model.RoleAdmin, Active: true}
	if err := e.users.CreateLocked(u); err != nil {
		t.Fatalf("种管理员记录失败: %v", err)
	}
	return u
}
