package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
)

var ErrNotFound = core.NewNotFoundError("notification")

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// ListNotifications returns the user's notifications, newest first.
		ListNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		CountUnread(ctx context.Context, userID int64) (int, error)
		// MarkRead fails with ErrNotFound if the notification does not belong to userID.
		MarkRead(ctx context.Context, userID, id int64) (Notification, error)
		MarkAllRead(ctx context.Context, userID int64) (int, error)
	}

	// Broadcaster pushes stored notifications to live clients.
	Broadcaster interface {
		Broadcast(ctx context.Context, n Notification) error
	}

	// Notifier is what other services need to inform users.
	Notifier interface {
		Notify(ctx context.Context, userID int64, event Event, message string)
		NotifyMany(ctx context.Context, userIDs []int64, event Event, message string)
	}

	Service struct {
		repo        Repository
		broadcaster Broadcaster
		logger      core.Logger
	}
)

var _ Notifier = (*Service)(nil)

func NewService(repo Repository, broadcaster Broadcaster, logger core.Logger) *Service {
	return &Service{repo: repo, broadcaster: broadcaster, logger: logger}
}

// Notify stores a notification for userID and broadcasts it.
// Failures are logged and never reach the caller.
func (svc *Service) Notify(ctx context.Context, userID int64, event Event, message string) {
	// the caller's request may be over before we are done
	ctx = context.WithoutCancel(ctx)

	n, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		EventName: event,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("storing %s notification for user %d: %v", event, userID, err), err)
		return
	}
	if svc.broadcaster == nil {
		return
	}
	if err = svc.broadcaster.Broadcast(ctx, n); err != nil {
		svc.logger.Warn(fmt.Sprintf("broadcasting notification %d: %v", n.ID, err), err)
	}
}

func (svc *Service) NotifyMany(ctx context.Context, userIDs []int64, event Event, message string) {
	seen := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		svc.Notify(ctx, id, event, message)
	}
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	filter.Clean()
	notifs, err := svc.repo.ListNotifications(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []Notification{}
	}
	return notifs, nil
}

func (svc *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *Service) MarkRead(ctx context.Context, userID, id int64) (Notification, error) {
	return svc.repo.MarkRead(ctx, userID, id)
}

// MarkAllRead is idempotent: it returns how many notifications changed.
func (svc *Service) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	return svc.repo.MarkAllRead(ctx, userID)
}
