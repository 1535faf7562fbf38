package realtimesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/notification"
)

// Event is what live clients receive for each stored notification.
type Event struct {
	UserID       int64                     `json:"user_id"`
	Notification notification.Notification `json:"notification"`
}

// RedisBroadcaster publishes stored notifications on a redis channel,
// for websocket/SSE gateways to forward to connected users.
type RedisBroadcaster struct {
	rdb     *goredis.Client
	channel string
}

var _ notification.Broadcaster = (*RedisBroadcaster)(nil)

func NewRedisBroadcaster(conf *core.Config) (*RedisBroadcaster, error) {
	if conf.Redis.Addr == "" {
		return nil, errors.New("missing redis address")
	}
	channel := conf.Redis.Channel
	if channel == "" {
		channel = "notifications"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        conf.Redis.Addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return &RedisBroadcaster{rdb: rdb, channel: channel}, nil
}

func payload(n notification.Notification) ([]byte, error) {
	return json.Marshal(Event{UserID: n.UserID, Notification: n})
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, n notification.Notification) error {
	raw, err := payload(n)
	if err != nil {
		return errors.Wrap(err, "encoding notification")
	}
	if err = b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return errors.Wrap(err, "publishing notification")
	}
	return nil
}

func (b *RedisBroadcaster) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
