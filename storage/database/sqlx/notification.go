package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
)

const notificationColumns = `notification_id, user_id, event_name, message, "timestamp", is_read`

type notificationRepository struct {
	db core.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db core.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	var created notification.Notification
	err := repo.db.GetContext(ctx, &created, `INSERT INTO notifications (user_id, event_name, message, "timestamp", is_read)
		VALUES ($1, $2, $3, $4, FALSE) RETURNING `+notificationColumns,
		n.UserID, n.EventName, n.Message, n.Timestamp.UTC())
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return created, nil
}

func (repo *notificationRepository) ListNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	q := "SELECT " + notificationColumns + " FROM notifications WHERE user_id = $1"
	if filter.UnreadOnly {
		q += " AND NOT is_read"
	}
	q += " ORDER BY \"timestamp\" DESC, notification_id DESC LIMIT $2"

	notifs := make([]notification.Notification, 0)
	if err := repo.db.SelectContext(ctx, &notifs, q, filter.UserID, filter.Limit); err != nil {
		return nil, errors.Wrap(err, "listing notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read", userID)
	if err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, userID, id int64) (notification.Notification, error) {
	var n notification.Notification
	err := repo.db.GetContext(ctx, &n, `UPDATE notifications SET is_read = TRUE
		WHERE notification_id = $1 AND user_id = $2 RETURNING `+notificationColumns, id, userID)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "marking notification read")
	}
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	res, err := repo.db.ExecContext(ctx, "UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read", userID)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return int(n), nil
}
