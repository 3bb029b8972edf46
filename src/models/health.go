package models

// MHealth is served by GET /api/health.
type MHealth struct {
	Status            string  `json:"status"`
	UptimeSeconds     float64 `json:"uptime"`
	ActiveConnections int     `json:"connections"`
	HistoryLength     int     `json:"historyLength"`
	MemoryRSSMB       float64 `json:"memoryRssMb"`
	CPUPercent        float64 `json:"cpuPercent"`
	Timestamp         string  `json:"timestamp"`
}
