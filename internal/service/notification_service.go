package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/lesson-scheduler-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}

type eventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

// NotificationService stores user notifications and broadcasts them once committed.
type NotificationService struct {
	repo      notificationRepository
	publisher eventPublisher
	logger    *zap.Logger
}

// NewNotificationService constructs the service. publisher may be nil.
func NewNotificationService(repo notificationRepository, publisher eventPublisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, publisher: publisher, logger: logger}
}

// Record writes a notification on exec. Broadcasting is left to the caller after commit.
func (s *NotificationService) Record(ctx context.Context, exec sqlx.ExtContext, userID, message string) (*models.Notification, error) {
	n := &models.Notification{UserID: userID, Message: message}
	if err := s.repo.Create(ctx, exec, n); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notification")
	}
	return n, nil
}

// Broadcast publishes committed notifications. Failures are logged only.
func (s *NotificationService) Broadcast(ctx context.Context, notifications ...*models.Notification) {
	if s.publisher == nil {
		return
	}
	for _, n := range notifications {
		if n == nil {
			continue
		}
		event := models.NotificationEvent{TargetUserID: n.UserID, Message: n.Message}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("notification broadcast failed", zap.String("user_id", n.UserID), zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
}

// List returns the caller's recent notifications.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, 50)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	return nil
}
