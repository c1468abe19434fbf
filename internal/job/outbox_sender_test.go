package job

import (
	"path/filepath"
	"testing"

	"banksystem/internal/config"
	"banksystem/internal/infrastructure/lock"
	"banksystem/internal/infrastructure/store"
	"banksystem/internal/model"
	"banksystem/internal/repository"
)

func newOutboxRepo(t *testing.T) *repository.OutboxRepository {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "outbox.dat"), model.OutboxEventSize)
	if err != nil {
		t.Fatal(err)
	}
	return repository.NewOutboxRepository(st, lock.NewManager())
}

// Kafka 未启用时事件直接标记 Sent，不能卡在 Pending
func TestOutboxSenderMarksSentWhenKafkaDisabled(t *testing.T) {
	repo := newOutboxRepo(t)
	cfg := &config.Config{}
	cfg.Business.MaxRetryCount = 3

	if err := repo.Append("bank-events", "k1", `{"amount":1}`); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append("bank-events", "k2", `{"amount":2}`); err != nil {
		t.Fatal(err)
	}

	sender := NewOutboxSender(repo, cfg)
	sender.processPendingEvents()

	pending, _, err := repo.GetPending(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("处理后仍有 %d 条 Pending 事件", len(pending))
	}
}
