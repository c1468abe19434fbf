package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"banksystem/internal/model"
)

func TestFeedbackAddAndList(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)

	if err := e.feedbackSvc.Add(context.Background(), alice.ID, "  great service  "); err != nil {
		t.Fatalf("Add: %v", err)
	}

	items, err := e.feedbackSvc.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("反馈条数 = %d, 期望 1", len(items))
	}
	if items[0].Message != "great service" {
		t.Fatalf("消息未去除首尾空白: %q", items[0].Message)
	}
	if items[0].CustID != alice.ID {
		t.Fatalf("CustID = %d", items[0].CustID)
	}
}

func TestFeedbackRejectsEmptyMessage(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)

	if err := e.feedbackSvc.Add(context.Background(), alice.ID, "   "); !errors.Is(err, ErrEmptyFeedback) {
		t.Fatalf("err = %v, 期望 ErrEmptyFeedback", err)
	}
}

func TestFeedbackTruncatesLongMessage(t *testing.T) {
	e := newTestEnv(t)
	alice := e.addCustomer(t, "alice", "pw", 0)

	long := strings.Repeat("x", model.MaxFeedbackLen*2)
	if err := e.feedbackSvc.Add(context.Background(), alice.ID, long); err != nil {
		t.Fatal(err)
	}

	items, _ := e.feedbackSvc.List()
	if len(items[0].Message) != model.MaxFeedbackLen-1 {
		t.Fatalf("消息长度 = %d, 期望 %d", len(items[0].Message), model.MaxFeedbackLen-1)
	}
}
