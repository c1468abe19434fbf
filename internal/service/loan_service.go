package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

var (
	ErrLoanNotPending   = errors.New("贷款不存在、已处理或未分配给你")
	ErrInvalidEmployee  = errors.New("员工不存在或未激活")
	ErrPermissionDenied = errors.New("没有权限")
)

// LoanService 贷款申请、分配与审批。
// 审批放款复用资金引擎，锁序 loans < accounts < transactions
type LoanService struct {
	users  *repository.UserRepository
	loans  *repository.LoanRepository
	engine *TransactionService
}

func NewLoanService(users *repository.UserRepository, loans *repository.LoanRepository, engine *TransactionService) *LoanService {
	return &LoanService{users: users, loans: loans, engine: engine}
}

// Apply 客户提交贷款申请
func (s *LoanService) Apply(ctx context.Context, custID int32, amount float64) (*model.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	h, err := s.loans.Lock(lock.Exclusive)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return s.loans.CreateLocked(custID, amount)
}

// ListAssigned 员工名下待决定的贷款
func (s *LoanService) ListAssigned(employeeID int32) ([]model.Loan, error) {
	return s.loans.ListAssignedPending(employeeID)
}

// Assign 经理把待处理贷款分配给员工
func (s *LoanService) Assign(ctx context.Context, managerID, loanID, employeeID int32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	uh, err := s.users.Lock(lock.Shared)
	if err != nil {
		return err
	}
	mgr, err := s.users.FindByIDLocked(managerID)
	if err != nil || mgr.Role != model.RoleManager {
		uh.Release()
		return ErrPermissionDenied
	}
	emp, err := s.users.FindByIDLocked(employeeID)
	if err != nil || emp.Role != model.RoleEmployee || !emp.Active {
		uh.Release()
		return ErrInvalidEmployee
	}
	uh.Release()

	lh, err := s.loans.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer lh.Release()

	l, index, err := s.loans.FindByIDLocked(loanID)
	if err != nil || l.Status != model.LoanNew {
		return ErrLoanNotPending
	}
	l.AssignedEmployeeID = employeeID
	return s.loans.UpdateAtLocked(index, l)
}

// Decide 员工审批名下贷款。批准先放款后改写贷款状态：
// 放款失败贷款保持 New 可重试；贷款改写失败则补偿回收放款
func (s *LoanService) Decide(ctx context.Context, employeeID, loanID int32, approve bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h, err := s.loans.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer h.Release()

	l, index, err := s.loans.FindByIDLocked(loanID)
	if err != nil || l.Status != model.LoanNew || l.AssignedEmployeeID != employeeID {
		return ErrLoanNotPending
	}

	if !approve {
		l.Status = model.LoanRejected
		l.DecisionDate = time.Now()
		return s.loans.UpdateAtLocked(index, l)
	}

	if _, err := s.engine.Deposit(ctx, l.CustID, l.Amount); err != nil {
		return fmt.Errorf("放款失败: %w", err)
	}
	l.Status = model.LoanApproved
	l.DecisionDate = time.Now()
	if err := s.loans.UpdateAtLocked(index, l); err != nil {
		// 状态改写失败，回收已放款项
		if _, werr := s.engine.Withdraw(ctx, l.CustID, l.Amount); werr != nil {
			logrus.WithError(werr).WithField("loan_id", loanID).
				Error("放款回收失败，贷款状态与账户不一致")
		}
		return err
	}
	return nil
}
