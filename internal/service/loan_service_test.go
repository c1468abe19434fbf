package service

import (
	"context"
	"errors"
	"testing"

	"banksystem/internal/model"
)

func TestLoanApplyCreatesNewLoan(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)

	l, err := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if l.Status != model.LoanNew {
		t.Fatalf("新贷款状态 = %s, 期望 NEW", l.Status)
	}
	if l.ApplicationDate.IsZero() {
		t.Fatal("申请日期未填")
	}
	if _, err := e.loanSvc.Apply(context.Background(), alice.ID, -1); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("负金额 err = %v, 期望 ErrInvalidAmount", err)
	}
}

func TestLoanAssignAndListAssigned(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	emp := e.addEmployee(t, "emp")
	mgr := e.addManager(t, "mgr")

	l, err := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, emp.ID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	assigned, err := e.loanSvc.ListAssigned(emp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(assigned) != 1 || assigned[0].LoanID != l.LoanID {
		t.Fatalf("员工名下贷款 = %+v, 期望一条 LoanID=%d", assigned, l.LoanID)
	}
}

func TestLoanAssignRequiresManager(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	emp := e.addEmployee(t, "emp")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)

	// 员工自己不能分配
	if err := e.loanSvc.Assign(context.Background(), emp.ID, l.LoanID, emp.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, 期望 ErrPermissionDenied", err)
	}
}

func TestLoanAssignRejectsInvalidEmployee(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	mgr := e.addManager(t, "mgr")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)

	if err := e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, alice.ID); !errors.Is(err, ErrInvalidEmployee) {
		t.Fatalf("把贷款分配给客户 err = %v, 期望 ErrInvalidEmployee", err)
	}
	if err := e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, 9999); !errors.Is(err, ErrInvalidEmployee) {
		t.Fatalf("不存在的员工 err = %v, 期望 ErrInvalidEmployee", err)
	}
}

func TestLoanApproveCreditsAccount(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	emp := e.addEmployee(t, "emp")
	mgr := e.addManager(t, "mgr")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	if err := e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, emp.ID); err != nil {
		t.Fatal(err)
	}

	if err := e.loanSvc.Decide(context.Background(), emp.ID, l.LoanID, true); err != nil {
		t.Fatalf("Decide(approve): %v", err)
	}

	got := e.loan(t, l.LoanID)
	if got.Status != model.LoanApproved {
		t.Fatalf("状态 = %s, 期望 APPROVED", got.Status)
	}
	if got.DecisionDate.IsZero() {
		t.Fatal("决定日期未填")
	}
	if b := e.balance(t, alice.ID); b != 500 {
		t.Fatalf("放款后余额 = %.2f, 期望 500.00", b)
	}

	records, _ := e.transactions.ListByAccount(e.account(t, alice.ID).AccountID)
	if len(records) != 1 || records[0].Amount != 500 {
		t.Fatalf("放款流水 = %+v, 期望一条 +500.00", records)
	}
}

func TestLoanRejectLeavesBalanceUntouched(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 100)
	emp := e.addEmployee(t, "emp")
	mgr := e.addManager(t, "mgr")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, emp.ID)

	if err := e.loanSvc.Decide(context.Background(), emp.ID, l.LoanID, false); err != nil {
		t.Fatalf("Decide(reject): %v", err)
	}

	got := e.loan(t, l.LoanID)
	if got.Status != model.LoanRejected {
		t.Fatalf("状态 = %s, 期望 REJECTED", got.Status)
	}
	if got.DecisionDate.IsZero() {
		t.Fatal("决定日期未填")
	}
	if b := e.balance(t, alice.ID); b != 100 {
		t.Fatalf("拒绝后余额被改动: %.2f", b)
	}
}

func TestLoanRedecideFails(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	emp := e.addEmployee(t, "emp")
	mgr := e.addManager(t, "mgr")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, emp.ID)
	if err := e.loanSvc.Decide(context.Background(), emp.ID, l.LoanID, true); err != nil {
		t.Fatal(err)
	}

	if err := e.loanSvc.Decide(context.Background(), emp.ID, l.LoanID, false); !errors.Is(err, ErrLoanNotPending) {
		t.Fatalf("重复审批 err = %v, 期望 ErrLoanNotPending", err)
	}
	// 重复审批不得再次放款
	if b := e.balance(t, alice.ID); b != 500 {
		t.Fatalf("重复审批改变了余额: %.2f", b)
	}
}

func TestLoanDecideByWrongEmployee(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)
	emp := e.addEmployee(t, "emp")
	other := e.addEmployee(t, "other")
	mgr := e.addManager(t, "mgr")

	l, _ := e.loanSvc.Apply(context.Background(), alice.ID, 500)
	e.loanSvc.Assign(context.Background(), mgr.ID, l.LoanID, emp.ID)

	if err := e.loanSvc.Decide(context.Background(), other.ID, l.LoanID, true); !errors.Is(err, ErrLoanNotPending) {
		t.Fatalf("他人贷款 err = %v, 期望 ErrLoanNotPending", err)
	}
	// 未分配的贷款同样不可审批
	l2, _ := e.loanSvc.Apply(context.Background(), alice.ID, 100)
	if err := e.loanSvc.Decide(context.Background(), emp.ID, l2.LoanID, true); !errors.Is(err, ErrLoanNotPending) {
		t.Fatalf("未分配贷款 err = %v, 期望 ErrLoanNotPending", err)
	}
}
