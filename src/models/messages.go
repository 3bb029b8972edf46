package models

// -----------------------------------------------------------------------------
// Message Types
// -----------------------------------------------------------------------------

const (
	// server -> client
	MsgInitialData      = "INITIAL_DATA"
	MsgLiveUpdate       = "LIVE_UPDATE"
	MsgHistoryData      = "HISTORY_DATA"
	MsgTrafficControl   = "TRAFFIC_CONTROL"
	MsgMonitoringStatus = "MONITORING_STATUS"
	MsgAuthResult       = "AUTH_RESULT"
	MsgSubscriptionAck  = "SUBSCRIPTION_ACK"

	// client -> server
	MsgAuth             = "auth"
	MsgSubscribe        = "subscribe"
	MsgUnsubscribe      = "unsubscribe"
	MsgGetHistory       = "GET_HISTORY"
	MsgPauseMonitoring  = "PAUSE_MONITORING"
	MsgResumeMonitoring = "RESUME_MONITORING"
)

// -----------------------------------------------------------------------------
// Server -> Client
// -----------------------------------------------------------------------------

type MInitialData struct {
	Type           string           `json:"type"`
	TrafficData    MTrafficSnapshot `json:"trafficData"`
	TrafficHistory []MHistoryPoint  `json:"trafficHistory"`
}

type MLiveUpdate struct {
	Type        string           `json:"type"`
	TrafficData MTrafficSnapshot `json:"trafficData"`
	Timestamp   string           `json:"timestamp"` // RFC3339Nano
}

type MHistoryData struct {
	Type           string          `json:"type"`
	TrafficHistory []MHistoryPoint `json:"trafficHistory"`
}

type MTrafficControl struct {
	Type      string      `json:"type"`
	Action    string      `json:"action"`
	Value     interface{} `json:"value"`
	Timestamp string      `json:"timestamp"`
}

type MMonitoringStatus struct {
	Type   string `json:"type"`
	Paused bool   `json:"paused"`
}

type MAuthResult struct {
	Type          string `json:"type"`
	Authenticated bool   `json:"authenticated"`
	Subject       string `json:"subject,omitempty"`
	Error         string `json:"error,omitempty"`
}

type MSubscriptionAck struct {
	Type       string `json:"type"`
	Channel    string `json:"channel"`
	Subscribed bool   `json:"subscribed"`
}

// -----------------------------------------------------------------------------
// Client -> Server
// -----------------------------------------------------------------------------

// MClientCommand is the union of every inbound message shape; only Type is required.
type MClientCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Token   string `json:"token,omitempty"`
}

// MControlRequest is the body of POST /api/traffic/control.
type MControlRequest struct {
	Action string      `json:"action" binding:"required"`
	Value  interface{} `json:"value"`
}

// MControlResponse echoes the outcome of a control request.
type MControlResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
}
