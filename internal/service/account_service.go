package service

import (
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

// AccountService 余额与历史查询
type AccountService struct {
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
}

func NewAccountService(accounts *repository.AccountRepository, transactions *repository.TransactionRepository) *AccountService {
	return &AccountService{accounts: accounts, transactions: transactions}
}

// Balance 查询余额
func (s *AccountService) Balance(userID int32) (float64, error) {
	h, err := s.accounts.Lock(lock.Shared)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	acct, err := s.accounts.FindByUserIDLocked(userID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

// History 按扫描顺序返回某用户账户的全部流水
func (s *AccountService) History(userID int32) (int32, []model.TransactionRecord, error) {
	h, err := s.accounts.Lock(lock.Shared)
	if err != nil {
		return 0, nil, err
	}
	acct, err := s.accounts.FindByUserIDLocked(userID)
	h.Release()
	if err != nil {
		return 0, nil, err
	}

	records, err := s.transactions.ListByAccount(acct.AccountID)
	if err != nil {
		return 0, nil, err
	}
	return acct.AccountID, records, nil
}
