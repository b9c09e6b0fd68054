package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/irhvac-core/internal/auth"
	"github.com/nerrad567/irhvac-core/internal/history"
	"github.com/nerrad567/irhvac-core/internal/hvac"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/logging"
	"github.com/nerrad567/irhvac-core/internal/observer"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// StateHistory reads recorded state changes. Optional.
type StateHistory interface {
	GetHistory(ctx context.Context, deviceID string, limit int) ([]history.StateEntry, error)
}

// CommandLog reads the command audit log. Optional.
type CommandLog interface {
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// Metrics receives web glue counters. Optional.
type Metrics interface {
	InvalidJSON(source string)
	ObserverRefused(pool string)
}

// Connectivity reports whether an upstream link is up.
type Connectivity interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger
	Engine *hvac.Engine

	// Observers is the pool WebSocket clients attach to.
	Observers *observer.Pool
	// Site returns the live configuration for /api/config.
	Site func() *config.Config

	History        StateHistory
	Commands       CommandLog
	Metrics        Metrics
	MetricsHandler http.Handler
	MQTT           Connectivity
	DB             *sql.DB
	LineObservers  func() int
	Version        string
}

// Server is the HTTP server for the web glue.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	engine    *hvac.Engine
	observers *observer.Pool
	site      func() *config.Config
	verifier  *auth.Verifier

	history        StateHistory
	commands       CommandLog
	metrics        Metrics
	metricsHandler http.Handler
	mqtt           Connectivity
	db             *sql.DB
	lineObservers  func() int
	version        string
	startTime      time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Observers == nil {
		return nil, fmt.Errorf("observer pool is required")
	}
	verifier, err := auth.NewVerifier(deps.Config.Auth)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:            deps.Config,
		wsCfg:          deps.WS,
		logger:         deps.Logger,
		engine:         deps.Engine,
		observers:      deps.Observers,
		site:           deps.Site,
		verifier:       verifier,
		history:        deps.History,
		commands:       deps.Commands,
		metrics:        deps.Metrics,
		metricsHandler: deps.MetricsHandler,
		mqtt:           deps.MQTT,
		db:             deps.DB,
		lineObservers:  deps.LineObservers,
		version:        deps.Version,
		startTime:      time.Now(),
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The listener is bound before Start returns, so Addr is valid afterwards.
func (s *Server) Start(ctx context.Context) error {
	srvCtx, cancel := context.WithCancel(ctx)

	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		cancel()
		return fmt.Errorf("listening for http: %w", err)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
		BaseContext:       func(net.Listener) context.Context { return srvCtx },
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("API server starting", "address", ln.Addr().String(), "auth", s.verifier.Enabled())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close gracefully shuts down the API server and disconnects every
// WebSocket observer.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if cancel != nil {
		cancel()
	}
	s.observers.Close()

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}

// Handler returns the fully wired router. Used by tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}
