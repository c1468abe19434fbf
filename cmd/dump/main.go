package main

import (
	"flag"
	"fmt"
	"path/filepath"

	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
)

// 数据文件巡检工具。共享锁下读取全部记录文件并打印，
// 与在线服务走同一套 flock，可以在服务运行期间安全执行
func main() {
	dataDir := flag.String("data", "data", "数据文件目录")
	flag.Parse()

	fmt.Println()
	fmt.Println("========================================")
	fmt.Println("     BANKING SYSTEM DATABASE DUMP")
	fmt.Println("========================================")
	fmt.Println()

	locks := lock.NewManager()

	dumpFile(locks, *dataDir, "users.dat", "USERS", model.UserRecordSize, func(rec []byte) (string, error) {
		u, err := model.UnmarshalUser(rec)
		if err != nil {
			return "", err
		}
		lastLogin := "Never"
		if !u.LastLogin.IsZero() {
			lastLogin = u.LastLogin.Format("2006-01-02 15:04")
		}
		return fmt.Sprintf("  [ID:%-3d] %-15s | Role: %-8s | Active: %s | Last Login: %s",
			u.ID, u.Username, u.Role.String(), yesNo(u.Active), lastLogin), nil
	})

	dumpFile(locks, *dataDir, "accounts.dat", "ACCOUNTS", model.AccountRecordSize, func(rec []byte) (string, error) {
		a, err := model.UnmarshalAccount(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [AccID:%-3d] UserID:%-3d | Balance: $%.2f | Tx Count: %d",
			a.AccountID, a.UserID, a.Balance, a.TransactionCount), nil
	})

	dumpFile(locks, *dataDir, "transactions.dat", "TRANSACTIONS", model.TransactionRecordSize, func(rec []byte) (string, error) {
		t, err := model.UnmarshalTransaction(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [TxID:%-3d] AccID:%-3d | %.2f | %s | %s",
			t.TransactionID, t.AccountID, t.Amount, t.Description,
			t.Timestamp.Format("2006-01-02 15:04")), nil
	})

	dumpFile(locks, *dataDir, "loans.dat", "LOANS", model.LoanRecordSize, func(rec []byte) (string, error) {
		l, err := model.UnmarshalLoan(rec)
		if err != nil {
			return "", err
		}
		decided := "N/A"
		if !l.DecisionDate.IsZero() {
			decided = l.DecisionDate.Format("2006-01-02")
		}
		return fmt.Sprintf("  [LoanID:%-3d] Cust:%-3d | $%.2f | Status: %-8s | Applied: %s | Decided: %s | Emp: %d",
			l.LoanID, l.CustID, l.Amount, l.Status.String(),
			l.ApplicationDate.Format("2006-01-02"), decided, l.AssignedEmployeeID), nil
	})

	dumpFile(locks, *dataDir, "feedback.dat", "FEEDBACK", model.FeedbackRecordSize, func(rec []byte) (string, error) {
		f, err := model.UnmarshalFeedback(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [FBID:%-3d] Cust:%-3d | %s | %s",
			f.FeedbackID, f.CustID, f.Timestamp.Format("2006-01-02 15:04"), f.Message), nil
	})

	dumpFile(locks, *dataDir, "sessions.dat", "SESSIONS", model.SessionRecordSize, func(rec []byte) (string, error) {
		s, err := model.UnmarshalSession(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [UserID:%-3d] Login: %s | Active: %s",
			s.UserID, s.LoginTime.Format("2006-01-02 15:04"), yesNo(s.Active)), nil
	})

	dumpFile(locks, *dataDir, "outbox.dat", "OUTBOX", model.OutboxEventSize, func(rec []byte) (string, error) {
		e, err := model.UnmarshalOutboxEvent(rec)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("  [EvtID:%-3d] Topic:%s | Key:%s | Status:%d | Retry:%d",
			e.ID, e.Topic, e.Key, e.Status, e.RetryCount), nil
	})

	fmt.Println("Dump complete.")
	fmt.Println()
}

func dumpFile(locks *lock.Manager, dataDir, filename, title string, recordSize int,
	format func(rec []byte) (string, error)) {
	path := filepath.Join(dataDir, filename)

	st, err := store.Open(path, recordSize)
	if err != nil {
		fmt.Printf("Warning: Could not open %s (missing or empty)\n\n", path)
		return
	}

	h, err := locks.Acquire(path, lock.Shared)
	if err != nil {
		fmt.Printf("Warning: Could not lock %s\n\n", path)
		return
	}
	defer h.Release()

	fmt.Printf("=== %s ===\n", title)

	count := 0
	err = st.Scan(func(_ int, rec []byte) (bool, error) {
		line, err := format(rec)
		if err != nil {
			return false, err
		}
		fmt.Println(line)
		count++
		return true, nil
	})
	if err != nil {
		fmt.Printf("  (scan error: %v)\n", err)
	}
	if count == 0 {
		fmt.Println("  (no records)")
	}
	fmt.Println()
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
