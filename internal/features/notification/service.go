package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type NotificationService interface {
	Notify(ctx context.Context, userID, title, message string) error
	NotifyFromPayload(ctx context.Context, payload map[string]interface{}) error
	ListNotifications(ctx context.Context, userID string, limit int64) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type NotificationServiceImpl struct {
	Repo   NotificationRepository
	Logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, userID, title, message string) error {
	if userID == "" {
		return fmt.Errorf("user_id is required for notification")
	}
	if title == "" {
		return fmt.Errorf("notification title is required")
	}

	err := s.Repo.Create(ctx, &Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
	})
	if err != nil {
		s.Logger.Error("failed to create notification", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.Logger.Info("notification created", zap.String("user_id", userID), zap.String("title", title))
	return nil
}

// NotifyFromPayload dispatches a notify instruction emitted by the engines.
func (s *NotificationServiceImpl) NotifyFromPayload(ctx context.Context, payload map[string]interface{}) error {
	userID, _ := payload["user_id"].(string)
	title, _ := payload["title"].(string)
	message, _ := payload["message"].(string)
	if title == "" {
		title = "Submission update"
	}
	return s.Notify(ctx, userID, title, message)
}

func (s *NotificationServiceImpl) ListNotifications(ctx context.Context, userID string, limit int64) ([]Notification, error) {
	return s.Repo.ListByUser(ctx, userID, limit)
}

func (s *NotificationServiceImpl) MarkRead(ctx context.Context, id string) error {
	return s.Repo.MarkRead(ctx, id)
}
