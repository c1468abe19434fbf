package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"banksystem/internal/config"
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/model"
	"banksystem/internal/repository"
	"banksystem/pkg/idgen"
)

var (
	ErrInvalidAmount        = errors.New("金额必须大于0")
	ErrInsufficientFunds    = errors.New("余额不足")
	ErrInvalidRecipient     = errors.New("收款人不存在或未激活")
	ErrSelfTransfer         = errors.New("不能转账给自己")
	ErrTransactionLogFailed = errors.New("流水写入失败，余额已回滚")
	ErrTransferAborted      = errors.New("转账失败，已回滚")
)

// TransactionService 资金变动引擎。
// 每次变动 = 账户原位改写 + 流水追加 + 事件落盘，
// 锁序固定为 accounts < transactions < outbox；
// 流水写入失败时在仍持有账户锁的前提下做补偿回写
type TransactionService struct {
	cfg          *config.Config
	users        *repository.UserRepository
	accounts     *repository.AccountRepository
	transactions *repository.TransactionRepository
	outbox       *repository.OutboxRepository
}

func NewTransactionService(cfg *config.Config, users *repository.UserRepository,
	accounts *repository.AccountRepository, transactions *repository.TransactionRepository,
	outbox *repository.OutboxRepository) *TransactionService {
	return &TransactionService{
		cfg:          cfg,
		users:        users,
		accounts:     accounts,
		transactions: transactions,
		outbox:       outbox,
	}
}

// Deposit 存款，返回新余额
func (s *TransactionService) Deposit(ctx context.Context, userID int32, amount float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	h, err := s.accounts.Lock(lock.Exclusive)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	acct, err := s.accounts.FindByUserIDLocked(userID)
	if err != nil {
		return 0, err
	}
	return s.applyLocked(acct, amount, fmt.Sprintf("Deposit %.2f", amount))
}

// Withdraw 取款，余额不足时不产生任何写入
func (s *TransactionService) Withdraw(ctx context.Context, userID int32, amount float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	h, err := s.accounts.Lock(lock.Exclusive)
	if err != nil {
		return 0, err
	}
	defer h.Release()

	acct, err := s.accounts.FindByUserIDLocked(userID)
	if err != nil {
		return 0, err
	}
	if acct.Balance < amount {
		return 0, ErrInsufficientFunds
	}
	return s.applyLocked(acct, -amount, fmt.Sprintf("Withdrawal %.2f", amount))
}

// Transfer 转账。借记与贷记在同一把账户排他锁内完成，
// 任何并发读写都看不到资金离开发送方而未到达接收方的中间状态
func (s *TransactionService) Transfer(ctx context.Context, senderID int32, recipientUsername string, amount float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount <= 0 {
		return ErrInvalidAmount
	}

	// 收款人校验（users 锁在锁序首位）
	uh, err := s.users.Lock(lock.Shared)
	if err != nil {
		return err
	}
	sender, err := s.users.FindByIDLocked(senderID)
	if err != nil {
		uh.Release()
		return err
	}
	recipient, err := s.users.FindByUsernameLocked(recipientUsername)
	if err != nil || recipient.Role != model.RoleCustomer || !recipient.Active {
		uh.Release()
		return ErrInvalidRecipient
	}
	if recipient.ID == senderID {
		uh.Release()
		return ErrSelfTransfer
	}
	uh.Release()

	ah, err := s.accounts.Lock(lock.Exclusive)
	if err != nil {
		return err
	}
	defer ah.Release()

	senderAcct, err := s.accounts.FindByUserIDLocked(senderID)
	if err != nil {
		return err
	}
	recipientAcct, err := s.accounts.FindByUserIDLocked(recipient.ID)
	if err != nil {
		return err
	}
	if senderAcct.Balance < amount {
		return ErrInsufficientFunds
	}

	senderOld, recipientOld := *senderAcct, *recipientAcct

	senderAcct.Balance -= amount
	senderAcct.TransactionCount++
	if err := s.accounts.UpdateLocked(senderAcct); err != nil {
		return ErrTransferAborted
	}

	recipientAcct.Balance += amount
	recipientAcct.TransactionCount++
	if err := s.accounts.UpdateLocked(recipientAcct); err != nil {
		s.restoreLocked(&senderOld)
		return ErrTransferAborted
	}

	th, err := s.transactions.Lock(lock.Exclusive)
	if err != nil {
		s.restoreLocked(&senderOld)
		s.restoreLocked(&recipientOld)
		return ErrTransferAborted
	}
	defer th.Release()

	_, err = s.transactions.AppendLocked(senderAcct.AccountID,
		fmt.Sprintf("Transfer to %s %.2f", recipient.Username, amount), -amount, senderAcct.Balance)
	if err == nil {
		_, err = s.transactions.AppendLocked(recipientAcct.AccountID,
			fmt.Sprintf("Transfer from %s %.2f", sender.Username, amount), amount, recipientAcct.Balance)
	}
	if err != nil {
		s.restoreLocked(&senderOld)
		s.restoreLocked(&recipientOld)
		return ErrTransferAborted
	}

	s.publishEvent(senderAcct.AccountID, -amount, senderAcct.Balance,
		fmt.Sprintf("transfer %s -> %s", sender.Username, recipient.Username))
	return nil
}

// applyLocked 在已持有账户排他锁的前提下记账并写流水。
// amount 带符号：正数入账，负数出账
func (s *TransactionService) applyLocked(acct *model.Account, amount float64, description string) (float64, error) {
	old := *acct

	acct.Balance += amount
	acct.TransactionCount++
	if err := s.accounts.UpdateLocked(acct); err != nil {
		return 0, err
	}

	th, err := s.transactions.Lock(lock.Exclusive)
	if err != nil {
		s.restoreLocked(&old)
		return 0, ErrTransactionLogFailed
	}
	defer th.Release()

	if _, err := s.transactions.AppendLocked(acct.AccountID, description, amount, acct.Balance); err != nil {
		s.restoreLocked(&old)
		return 0, ErrTransactionLogFailed
	}

	s.publishEvent(acct.AccountID, amount, acct.Balance, description)
	return acct.Balance, nil
}

// restoreLocked 补偿回写。尽力而为：失败只能记日志
func (s *TransactionService) restoreLocked(old *model.Account) {
	if err := s.accounts.UpdateLocked(old); err != nil {
		logrus.WithError(err).WithField("account_id", old.AccountID).
			Error("补偿回写失败，账户可能不一致")
	}
}

// publishEvent 落盘一条事件，由 OutboxSender 异步发送。
// 事件失败不影响资金操作本身
func (s *TransactionService) publishEvent(accountID int32, amount, newBalance float64, description string) {
	payload := fmt.Sprintf(`{"account_id":%d,"amount":%.2f,"new_balance":%.2f,"description":"%s"}`,
		accountID, amount, newBalance, description)
	if err := s.outbox.Append(s.cfg.Kafka.Topic, idgen.GenerateEventKey(), payload); err != nil {
		logrus.WithError(err).Warn("事件落盘失败")
	}
}
