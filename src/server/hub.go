package server

import (
	"encoding/json"
	"net/http"

	"onion-watch/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)
	client.scheduler = NewPushScheduler(client, s.source, s.interval, s.Logger.Named("push"))

	s.registry.Register(client.id, client)
	s.metrics.activeConnections.Set(float64(s.registry.Size()))
	s.Logger.Info("Client %s connected from %s (%d active)", client.id, c.ClientIP(), s.registry.Size())

	go client.writePump()
	client.scheduler.Start()
	go client.readPump()
}

// -----------------------------------------------------------------------------

// teardown stops the timer, unregisters and closes the send queue.
// The timer goroutine has exited before the handle leaves the registry.
func (s *Server) teardown(c *Client) {
	c.teardownOnce.Do(func() {
		if c.scheduler != nil {
			c.scheduler.Stop()
		}
		s.registry.Unregister(c.id)
		c.markClosed()
		s.metrics.activeConnections.Set(float64(s.registry.Size()))
	})
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage processes one inbound frame.
// Nothing here closes the connection: bad input is logged and dropped.
func (s *Server) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.metrics.malformedMessages.Inc()
		s.Logger.Warning("Dropping malformed message from %s: %v", client.id, err)
		return
	}

	switch cmd.Type {
	case models.MsgGetHistory:
		s.reply(client, models.MHistoryData{
			Type:           models.MsgHistoryData,
			TrafficHistory: s.source.History(),
		})

	case models.MsgPauseMonitoring:
		client.scheduler.Pause()
		s.reply(client, models.MMonitoringStatus{Type: models.MsgMonitoringStatus, Paused: true})

	case models.MsgResumeMonitoring:
		client.scheduler.Resume()
		s.reply(client, models.MMonitoringStatus{Type: models.MsgMonitoringStatus, Paused: false})

	case models.MsgAuth:
		s.reply(client, s.authenticate(cmd.Token))

	case models.MsgSubscribe, models.MsgUnsubscribe:
		if cmd.Channel == "" {
			s.Logger.Warning("Client %s sent %s without a channel", client.id, cmd.Type)
			break
		}
		subscribed := cmd.Type == models.MsgSubscribe
		if subscribed {
			client.subscribe(cmd.Channel)
		} else {
			client.unsubscribe(cmd.Channel)
		}
		s.reply(client, models.MSubscriptionAck{
			Type:       models.MsgSubscriptionAck,
			Channel:    cmd.Channel,
			Subscribed: subscribed,
		})

	default:
		s.metrics.inboundMessages.WithLabelValues("unknown").Inc()
		s.Logger.Info("Ignoring unknown message type %q from %s", cmd.Type, client.id)
		return
	}

	s.metrics.inboundMessages.WithLabelValues(cmd.Type).Inc()
}

// -----------------------------------------------------------------------------

func (s *Server) authenticate(token string) models.MAuthResult {
	result := models.MAuthResult{Type: models.MsgAuthResult}
	if s.auth == nil {
		return result
	}

	subject, ok, err := s.auth.Verify(token)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Authenticated = ok
	result.Subject = subject
	return result
}

// -----------------------------------------------------------------------------

func (s *Server) reply(client *Client, payload interface{}) {
	if err := client.Send(payload); err != nil {
		s.Logger.Debug("Reply to %s dropped: %v", client.id, err)
	}
}
