package repository

import (
	"errors"
	"time"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

var ErrLoanNotFound = errors.New("贷款不存在")

type LoanRepository struct {
	st    *store.Store
	locks *lock.Manager
}

func NewLoanRepository(st *store.Store, locks *lock.Manager) *LoanRepository {
	return &LoanRepository{st: st, locks: locks}
}

func (r *LoanRepository) Lock(mode lock.Mode) (*lock.Handle, error) {
	return r.locks.Acquire(r.st.Path(), mode)
}

// CreateLocked 新建贷款申请，状态 New、未分配
func (r *LoanRepository) CreateLocked(custID int32, amount float64) (*model.Loan, error) {
	id, err := r.st.AllocateID()
	if err != nil {
		return nil, err
	}
	l := &model.Loan{
		LoanID:          id,
		CustID:          custID,
		Amount:          amount,
		Status:          model.LoanNew,
		ApplicationDate: time.Now(),
	}
	if err := r.st.Append(l.MarshalRecord()); err != nil {
		return nil, err
	}
	return l, nil
}

// FindByIDLocked 返回贷款及其槽位，槽位用于后续原位改写
func (r *LoanRepository) FindByIDLocked(loanID int32) (*model.Loan, int, error) {
	var found *model.Loan
	foundIdx := -1
	err := r.st.Scan(func(index int, rec []byte) (bool, error) {
		l, err := model.UnmarshalLoan(rec)
		if err != nil {
			return false, err
		}
		if l.LoanID == loanID {
			found = l
			foundIdx = index
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, -1, err
	}
	if found == nil {
		return nil, -1, ErrLoanNotFound
	}
	return found, foundIdx, nil
}

// UpdateAtLocked 原位改写，要求仍持有查找时的排他锁
func (r *LoanRepository) UpdateAtLocked(index int, l *model.Loan) error {
	return r.st.WriteAt(index, l.MarshalRecord())
}

// ListAssignedPendingLocked 某员工名下待决定的贷款
func (r *LoanRepository) ListAssignedPendingLocked(employeeID int32) ([]model.Loan, error) {
	var out []model.Loan
	err := r.st.Scan(func(_ int, rec []byte) (bool, error) {
		l, err := model.UnmarshalLoan(rec)
		if err != nil {
			return false, err
		}
		if l.AssignedEmployeeID == employeeID && l.Status == model.LoanNew {
			out = append(out, *l)
		}
		return true, nil
	})
	return out, err
}

// ListAssignedPending 自带共享锁的待办列表
func (r *LoanRepository) ListAssignedPending(employeeID int32) ([]model.Loan, error) {
	h, err := r.Lock(lock.Shared)
	if err != nil {
		return nil, err
	}
	defer h.Release()
	return r.ListAssignedPendingLocked(employeeID)
}
