package interfaces

import (
	"context"

	"onion-watch/src/models"
)

// -----------------------------------------------------------------------------
// IControlBus delivers TRAFFIC_CONTROL messages to connected clients.
// -----------------------------------------------------------------------------

type IControlBus interface {
	// Publish hands msg to every open connection reachable by this bus.
	// The count is local connections for an in-process bus and subscribed
	// server instances for a fan-out bus.
	Publish(ctx context.Context, msg models.MTrafficControl) (int, error)
}
