package interfaces

// -----------------------------------------------------------------------------
// IConnection is a live client handle held by the connection registry.
// -----------------------------------------------------------------------------

type IConnection interface {
	// ID returns the opaque identifier, unique per socket
	ID() string

	// IsOpen reports whether the transport still accepts writes
	IsOpen() bool

	// Send queues one JSON message; it fails instead of panicking once closed
	Send(payload interface{}) error
}
