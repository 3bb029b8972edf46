package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"onion-watch/src/helpers"
	"onion-watch/src/logger"
	"onion-watch/src/models"

	"github.com/redis/go-redis/v9"
)

// -----------------------------------------------------------------------------
// RedisBus fans control messages out to every server instance.
// Publish writes to a Redis channel; Run delivers what arrives on that
// channel to the local connections, including this instance's own messages.
// -----------------------------------------------------------------------------

type RedisBus struct {
	rdb     *redis.Client
	channel string
	target  Broadcaster
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisBus(addr string, db int, channel string, target Broadcaster, log *logger.Logger) *RedisBus {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: "",
		DB:       db,
		Protocol: 2,
	})
	return &RedisBus{rdb: rdb, channel: channel, target: target, logger: log}
}

// -----------------------------------------------------------------------------

// Connect pings Redis with retries
func (b *RedisBus) Connect(ctx context.Context) error {
	return helpers.RetryWithBackoff(ctx, b.logger, "redis ping", 3, 500*time.Millisecond, func() error {
		return b.rdb.Ping(ctx).Err()
	})
}

// -----------------------------------------------------------------------------

// Publish returns the number of server instances subscribed to the channel
func (b *RedisBus) Publish(ctx context.Context, msg models.MTrafficControl) (int, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("encode control message: %w", err)
	}

	receivers, err := b.rdb.Publish(ctx, b.channel, payload).Result()
	if err != nil {
		return 0, helpers.NewTransportError("redis publish failed", err)
	}
	return int(receivers), nil
}

// -----------------------------------------------------------------------------

// Run subscribes and forwards messages until ctx is cancelled
func (b *RedisBus) Run(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed.
	if _, err := pubsub.Receive(ctx); err != nil {
		return helpers.NewTransportError("redis subscribe failed", err)
	}
	ch := pubsub.Channel()

	b.logger.Info("Subscribed to %s", b.channel)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.deliver(msg.Payload)
		}
	}
}

// -----------------------------------------------------------------------------

// deliver decodes one payload and broadcasts it locally
func (b *RedisBus) deliver(payload string) int {
	var msg models.MTrafficControl
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.logger.Error("Error decoding control payload: %v", err)
		return 0
	}
	if msg.Type != models.MsgTrafficControl {
		b.logger.Warning("Ignoring relay message of type %q", msg.Type)
		return 0
	}

	n := b.target.Broadcast(msg)
	b.logger.Debug("Relayed control '%s' to %d connection(s)", msg.Action, n)
	return n
}

// -----------------------------------------------------------------------------

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
