package interfaces

// -----------------------------------------------------------------------------
// IDataExchanger defines the HTTP/WebSocket surface that pushes data to clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast sends payload to every open connection and returns how many got it
	Broadcast(payload interface{}) int

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
