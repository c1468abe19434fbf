package service

import (
	"context"
	"errors"
	"strings"

	"banksystem/internal/model"
	"banksystem/internal/repository"
)

var ErrEmptyFeedback = errors.New("反馈内容不能为空")

// FeedbackService 客户反馈
type FeedbackService struct {
	feedback *repository.FeedbackRepository
}

func NewFeedbackService(feedback *repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedback: feedback}
}

// Add 提交反馈，超长内容按记录宽度截断
func (s *FeedbackService) Add(ctx context.Context, custID int32, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyFeedback
	}
	if len(message) >= model.MaxFeedbackLen {
		message = message[:model.MaxFeedbackLen-1]
	}
	_, err := s.feedback.Create(custID, message)
	return err
}

// List 全量反馈
func (s *FeedbackService) List() ([]model.Feedback, error) {
	return s.feedback.List()
}
