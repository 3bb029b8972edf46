package relay

import (
	"context"

	"onion-watch/src/logger"
	"onion-watch/src/models"
)

// -----------------------------------------------------------------------------

// Broadcaster delivers a payload to every open local connection
type Broadcaster interface {
	Broadcast(payload interface{}) int
}

// -----------------------------------------------------------------------------
// LocalBus delivers control messages straight to this process' connections.
// -----------------------------------------------------------------------------

type LocalBus struct {
	target Broadcaster
	logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewLocalBus(target Broadcaster, log *logger.Logger) *LocalBus {
	return &LocalBus{target: target, logger: log}
}

// -----------------------------------------------------------------------------

func (b *LocalBus) Publish(ctx context.Context, msg models.MTrafficControl) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := b.target.Broadcast(msg)
	b.logger.Debug("Control '%s' delivered to %d connection(s)", msg.Action, n)
	return n, nil
}
