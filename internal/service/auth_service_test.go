package service

import (
	"context"
	"errors"
	"testing"

	"banksystem/internal/model"
)

func TestLoginSuccess(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "secret", 0)

	u, err := e.auth.Login("alice", "secret", model.RoleCustomer)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Username != "alice" {
		t.Fatalf("返回用户 = %s", u.Username)
	}
	if u.LastLogin.IsZero() {
		t.Fatal("登录成功后 LastLogin 未回写")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "secret", 0)

	if _, err := e.auth.Login("alice", "wrong", model.RoleCustomer); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, 期望 ErrAuthFailed", err)
	}
	if _, err := e.auth.Login("nobody", "secret", model.RoleCustomer); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("未知用户 err = %v, 期望 ErrAuthFailed", err)
	}
}

func TestLoginRoleMismatch(t *testing.T) {
	e := newTestEnv(t)
	e.addCustomer(t, "alice", "secret", 0)

	if _, err := e.auth.Login("alice", "secret", model.RoleManager); !errors.Is(err, ErrRoleMismatch) {
		t.Fatalf("err = %v, 期望 ErrRoleMismatch", err)
	}
}

func TestLoginInactiveUser(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "secret", 0)
	admin := e.addManager(t, "boss") // 任意非 alice 的操作者
	if err := e.userSvc.Deactivate(context.Background(), admin.ID, "alice"); err != nil {
		t.Fatal(err)
	}

	if _, err := e.auth.Login("alice", "secret", model.RoleCustomer); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("停用用户登录 err = %v, 期望 ErrAuthFailed", err)
	}
	_ = alice
}

func TestStartSessionRejectsSecondActiveSession(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "secret", 0)

	if err := e.auth.StartSession(alice.ID); err != nil {
		t.Fatalf("首次 StartSession: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := e.auth.StartSession(alice.ID); !errors.Is(err, ErrSessionActive) {
			t.Fatalf("第 %d 次重复 StartSession err = %v, 期望 ErrSessionActive", i+2, err)
		}
	}

	if err := e.auth.EndSession(alice.ID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if err := e.auth.StartSession(alice.ID); err != nil {
		t.Fatalf("会话结束后重新登录失败: %v", err)
	}
}

func TestEndSessionWithoutActiveSessionIsNoop(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "secret", 0)

	if err := e.auth.EndSession(alice.ID); err != nil {
		t.Fatalf("无会话时 EndSession 应为空操作: %v", err)
	}
}

func TestBcryptScheme(t *testing.T) {
	e := newTestEnvWithScheme(t, "bcrypt")
	e.addCustomer(t, "alice", "secret", 0)

	// 落盘的是哈希而不是明文
	u, err := e.users.FindByUsername("alice")
	if err != nil {
		t.Fatal(err)
	}
	if u.Password == "secret" {
		t.Fatal("bcrypt 模式下密码仍是明文")
	}

	if _, err := e.auth.Login("alice", "secret", model.RoleCustomer); err != nil {
		t.Fatalf("bcrypt 登录失败: %v", err)
	}
	if _, err := e.auth.Login("alice", "wrong", model.RoleCustomer); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("错误密码 err = %v, 期望 ErrAuthFailed", err)
	}
}
