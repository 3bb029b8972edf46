package models

import "time"

// MTrafficSnapshot is one generated sample of synthetic network/threat metrics.
// It is never mutated after the generator returns it.
type MTrafficSnapshot struct {
	ID                string           `json:"id"`
	Timestamp         time.Time        `json:"timestamp"`
	TotalRequests     int              `json:"totalRequests"`
	ActiveConnections int              `json:"activeConnections"`
	Bandwidth         float64          `json:"bandwidth"`    // GB/s
	PacketLoss        float64          `json:"packetLoss"`   // percent
	ResponseTime      int              `json:"responseTime"` // ms
	ThreatsBlocked    int              `json:"threatsBlocked"`
	EncryptedTraffic  float64          `json:"encryptedTraffic"` // percent
	Protocols         []MProtocolShare `json:"protocols"`
	TopCountries      []MTopTalker     `json:"topCountries"`
	Threats           []MThreat        `json:"threats"`
	DeviceTypes       map[string]int   `json:"deviceTypes"`
}

// MProtocolShare is one slice of the protocol distribution.
type MProtocolShare struct {
	Name       string `json:"name"`
	Percentage int    `json:"percentage"`
	Color      string `json:"color"`
}

// MTopTalker is a country ranked by traffic volume.
type MTopTalker struct {
	Country     string  `json:"country"`
	Traffic     float64 `json:"traffic"` // GB
	Connections int     `json:"connections"`
}

// MThreat is a single detected threat record.
type MThreat struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Severity   string    `json:"severity"`
	Source     string    `json:"source"`
	DetectedAt time.Time `json:"timestamp"`
}
