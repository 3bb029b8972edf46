package server

import (
	"fmt"
	"net/http"
	"strconv"

	"onion-watch/src/helpers"
	"onion-watch/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultThreatCount = 10
	maxThreatCount     = 100
)

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

// getCurrentTraffic generates a snapshot and records it in the history
func (s *Server) getCurrentTraffic(c *gin.Context) {
	c.JSON(http.StatusOK, s.CurrentSnapshot())
}

// -----------------------------------------------------------------------------

func (s *Server) getTrafficHistory(c *gin.Context) {
	limit := s.history.Capacity()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}

	data := s.history.Latest(limit)
	c.JSON(http.StatusOK, gin.H{
		"history":  data,
		"count":    len(data),
		"capacity": s.history.Capacity(),
	})
}

// -----------------------------------------------------------------------------

func (s *Server) getThreats(c *gin.Context) {
	count := defaultThreatCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid count %q", raw)})
			return
		}
		count = min(n, maxThreatCount)
	}
	c.JSON(http.StatusOK, s.source.Threats(count))
}

// -----------------------------------------------------------------------------

func (s *Server) getCountries(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Countries())
}

// -----------------------------------------------------------------------------

func (s *Server) getProtocols(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Protocols())
}

// -----------------------------------------------------------------------------

func (s *Server) getHealth(c *gin.Context) {
	health := s.Status()

	if stats, err := helpers.GetProcessStats(); err == nil {
		health.MemoryRSSMB = stats.RSSMB
		health.CPUPercent = stats.CPUPercent
	} else {
		s.Logger.Debug("Process stats unavailable: %v", err)
	}

	c.JSON(http.StatusOK, health)
}

// -----------------------------------------------------------------------------

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pushIntervalMs":        s.Config.Push.IntervalMs,
		"historyCapacity":       s.history.Capacity(),
		"recordIntervalSeconds": s.Config.History.RecordIntervalSeconds,
		"storage":               s.Config.Storage.DBType,
		"relay":                 s.Config.Relay.Enabled,
	})
}

// -----------------------------------------------------------------------------

// postTrafficControl broadcasts TRAFFIC_CONTROL through the control bus
func (s *Server) postTrafficControl(c *gin.Context) {
	var req models.MControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.MControlResponse{
			Success: false,
			Message: fmt.Sprintf("invalid control request: %v", err),
		})
		return
	}

	recipients, err := s.SendControl(c.Request.Context(), req)
	if err != nil {
		s.Logger.Error("Control action %q failed: %v", req.Action, err)
		c.JSON(http.StatusBadGateway, models.MControlResponse{
			Success: false,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.MControlResponse{
		Success:    true,
		Message:    fmt.Sprintf("Control action '%s' applied", req.Action),
		Recipients: recipients,
	})
}
