package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"onion-watch/src/config"
	"onion-watch/src/generator"
	"onion-watch/src/interfaces"
	"onion-watch/src/logger"
	"onion-watch/src/models"
	"onion-watch/src/relay"
	"onion-watch/src/storage"

	"github.com/gin-gonic/gin"
)

// -----------------------------------------------------------------------------

// Authenticator checks the token sent with an auth message
type Authenticator interface {
	Verify(token string) (subject string, authenticated bool, err error)
}

// DataSource feeds both the websocket pushes and the REST lists
type DataSource interface {
	SnapshotSource
	Threats(n int) []models.MThreat
	Countries() []models.MTopTalker
	Protocols() []models.MProtocolShare
}

// Dependencies are the collaborators built by the composition root
type Dependencies struct {
	Registry *Registry
	Source   DataSource
	History  *storage.SnapshotHistory
	Bus      interfaces.IControlBus
	Auth     Authenticator
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

var _ interfaces.IDataExchanger = (*Server)(nil)

type Server struct {
	Config *config.Config
	Logger *logger.Logger
	engine *gin.Engine
	http   *http.Server

	registry *Registry
	source   DataSource
	history  *storage.SnapshotHistory
	bus      interfaces.IControlBus
	auth     Authenticator
	metrics  *Metrics

	interval  time.Duration
	startedAt time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *config.Config, log *logger.Logger, deps Dependencies) *Server {
	// Set Gin mode
	if cfg.LogLevel != "DEBUG" && gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:    cfg,
		Logger:    log,
		engine:    gin.New(),
		registry:  deps.Registry,
		source:    deps.Source,
		history:   deps.History,
		bus:       deps.Bus,
		auth:      deps.Auth,
		interval:  time.Duration(cfg.Push.IntervalMs) * time.Millisecond,
		startedAt: time.Now(),
	}
	if s.registry == nil {
		s.registry = NewRegistry(log.Named("registry"))
	}
	if s.source == nil {
		s.source = generator.NewGenerator()
	}
	if s.history == nil {
		s.history = storage.NewSnapshotHistory(cfg.History.Capacity, nil, log.Named("history"))
	}
	if s.bus == nil {
		s.bus = relay.NewLocalBus(s.registry, log.Named("relay"))
	}
	s.metrics = NewMetrics(func() float64 { return float64(s.history.Len()) })

	s.engine.Use(gin.Recovery(), accessLog(log))

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// setup web routes
	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/traffic/current", s.getCurrentTraffic)
		api.GET("/traffic/history", s.getTrafficHistory)
		api.POST("/traffic/control", s.postTrafficControl)
		api.GET("/threats", s.getThreats)
		api.GET("/countries", s.getCountries)
		api.GET("/protocols", s.getProtocols)
		api.GET("/health", s.getHealth)
		api.GET("/config", s.getConfig)
	}

	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------

// accessLog writes one debug line per request through the component logger
func accessLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Handler exposes the router (tests, embedding)
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------

// Registry returns the injected connection registry
func (s *Server) Registry() *Registry {
	return s.registry
}

// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called
func (s *Server) Start() error {
	addr := s.Config.Addr()
	s.Logger.Info("Starting server on %s", addr)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop shuts the listener down and closes every websocket
func (s *Server) Stop() error {
	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.http.Shutdown(ctx)
	}

	// Hijacked connections are not closed by Shutdown
	for _, conn := range s.registry.Connections() {
		if closer, ok := conn.(interface{ Close() error }); ok {
			closer.Close()
		}
	}

	s.Logger.Info("Server stopped")
	return err
}

// -----------------------------------------------------------------------------

// Broadcast sends payload to every open connection
func (s *Server) Broadcast(payload interface{}) int {
	return s.registry.Broadcast(payload)
}
