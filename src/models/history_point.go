package models

// MHistoryPoint is one coarse sample of the trailing-hour timeseries.
type MHistoryPoint struct {
	Time        string `json:"time"` // "15:04"
	Traffic     int    `json:"traffic"`
	Connections int    `json:"connections"`
	Threats     int    `json:"threats"`
}
