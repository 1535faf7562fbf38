package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
	inmemdb "github.com/trezcool/fyp/storage/database/inmem"
)

type recorder struct {
	mu   sync.Mutex
	sent []notification.Notification
	err  error
}

func (r *recorder) Broadcast(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func newService(b notification.Broadcaster) *notification.Service {
	repo := inmemdb.NewNotificationRepository(inmemdb.NewDB())
	return notification.NewService(repo, b, core.NopLogger{})
}

func TestService_Notify(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	svc := newService(rec)

	svc.Notify(ctx, 1, notification.EventProposalSubmitted, "New proposal.")
	require.Len(t, rec.sent, 1)
	assert.NotZero(t, rec.sent[0].ID)
	assert.Equal(t, int64(1), rec.sent[0].UserID)
	assert.False(t, rec.sent[0].IsRead)

	// broadcast failures do not lose the stored notification
	rec.err = errors.New("redis down")
	svc.Notify(ctx, 1, notification.EventProposalDecision, "Decided.")
	notifs, err := svc.List(ctx, notification.QueryFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, notification.EventProposalDecision, notifs[0].EventName, "newest first")

	// cancelled requests still notify
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	svc.Notify(cctx, 2, notification.EventFeedbackReceived, "Feedback.")
	n, err := svc.UnreadCount(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestService_NotifyMany(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)

	svc.NotifyMany(ctx, []int64{1, 2, 1, 3}, notification.EventProjectSelected, "Selected.")
	for _, id := range []int64{1, 2, 3} {
		n, err := svc.UnreadCount(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "user %d", id)
	}
}

func TestService_List(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	for i := 0; i < 5; i++ {
		svc.Notify(ctx, 1, notification.EventProgressReminder, "Reminder.")
	}
	svc.Notify(ctx, 2, notification.EventProgressReminder, "Reminder.")

	tests := []struct {
		name   string
		filter notification.QueryFilter
		want   int
	}{
		{"all", notification.QueryFilter{UserID: 1}, 5},
		{"limited", notification.QueryFilter{UserID: 1, Limit: 2}, 2},
		{"other user", notification.QueryFilter{UserID: 2}, 1},
		{"nobody", notification.QueryFilter{UserID: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifs, err := svc.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.NotNil(t, notifs)
			assert.Len(t, notifs, tt.want)
		})
	}
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	svc := newService(nil)
	svc.Notify(ctx, 1, notification.EventProgressReminder, "Reminder.")
	svc.Notify(ctx, 1, notification.EventProgressReminder, "Reminder.")
	notifs, err := svc.List(ctx, notification.QueryFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, notifs, 2)

	_, err = svc.MarkRead(ctx, 2, notifs[0].ID)
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err), "users only read their own notifications")

	n, err := svc.MarkRead(ctx, 1, notifs[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	unread, err := svc.List(ctx, notification.QueryFilter{UserID: 1, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, notifs[1].ID, unread[0].ID)

	changed, err := svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = svc.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, changed)

	count, err := svc.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQueryFilter_Clean(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{0, notification.DefaultLimit},
		{-3, notification.DefaultLimit},
		{10, 10},
		{1000, notification.MaxLimit},
	}
	for _, tt := range tests {
		qf := notification.QueryFilter{Limit: tt.limit}
		qf.Clean()
		assert.Equal(t, tt.want, qf.Limit)
	}
}
