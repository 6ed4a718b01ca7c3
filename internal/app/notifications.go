package app

import (
	"context"
	"log"

	"study-vault/internal/domain"
)

// NotificationService owns the durable inbox and pushes new entries to live sessions.
type NotificationService struct {
	store     Store
	publisher Publisher
}

func NewNotificationService(store Store, publisher Publisher) *NotificationService {
	return &NotificationService{store: store, publisher: publisher}
}

// record persists a notification inside the caller's transaction. The returned value must be
// handed to deliver once the transaction has committed.
func record(ctx context.Context, tx Tx, userID, message string) (domain.Notification, error) {
	n := domain.Notification{
		ID:        newID(),
		UserID:    userID,
		Message:   message,
		CreatedAt: now(),
	}
	if err := tx.CreateNotification(ctx, n); err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// deliver emits n on the real-time channel. Delivery is at-most-once: a failure is logged and
// the durable row remains for polling.
func (s *NotificationService) deliver(ctx context.Context, n domain.Notification) {
	if s == nil || s.publisher == nil {
		return
	}
	event := domain.NotificationEvent{ID: n.ID, Message: n.Message}
	if err := s.publisher.Publish(ctx, n.UserID, event); err != nil {
		log.Printf("notification %s: publish to %s failed: %v", n.ID, n.UserID, err)
	}
}

// List returns the user's inbox, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	var out []domain.Notification
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.ListNotifications(ctx, userID)
		return err
	})
	return out, err
}

// Dismiss deletes one of the user's notifications.
func (s *NotificationService) Dismiss(ctx context.Context, userID, notificationID string) error {
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteNotification(ctx, userID, notificationID)
	})
}
