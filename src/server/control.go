package server

import (
	"context"
	"fmt"
	"time"

	"onion-watch/src/helpers"
	"onion-watch/src/models"
)

// -----------------------------------------------------------------------------

// SendControl publishes a TRAFFIC_CONTROL message and returns the recipient count
func (s *Server) SendControl(ctx context.Context, req models.MControlRequest) (int, error) {
	if req.Action == "" {
		return 0, helpers.NewProtocolError("control action is required", nil)
	}

	msg := models.MTrafficControl{
		Type:      models.MsgTrafficControl,
		Action:    req.Action,
		Value:     req.Value,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	recipients, err := s.bus.Publish(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", req.Action, err)
	}

	s.metrics.controlBroadcasts.Inc()
	s.Logger.Info("Control action '%s' sent to %d recipient(s)", req.Action, recipients)
	return recipients, nil
}

// -----------------------------------------------------------------------------

// Status summarises the process for the health endpoint and the control service
func (s *Server) Status() models.MHealth {
	return models.MHealth{
		Status:            "ok",
		UptimeSeconds:     time.Since(s.startedAt).Seconds(),
		ActiveConnections: s.registry.Size(),
		HistoryLength:     s.history.Len(),
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
	}
}

// -----------------------------------------------------------------------------

// CurrentSnapshot generates and records a snapshot
func (s *Server) CurrentSnapshot() models.MTrafficSnapshot {
	snapshot := s.source.Snapshot()
	s.history.Push(snapshot)
	return snapshot
}
