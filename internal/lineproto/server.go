package lineproto

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/nerrad567/irhvac-core/internal/hvac"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/logging"
	"github.com/nerrad567/irhvac-core/internal/observer"
)

// PoolName names the line observer pool in metrics and logs.
const PoolName = "line"

// readBufferSize is the size of each connection read.
const readBufferSize = 512

// Metrics receives protocol-level counters. Optional.
type Metrics interface {
	InvalidJSON(source string)
	ObserverRefused(pool string)
}

// Deps holds the dependencies of the line server.
type Deps struct {
	Config  config.LineConfig
	Engine  *hvac.Engine
	Pool    *observer.Pool
	Logger  *logging.Logger
	Metrics Metrics
}

// Server accepts line-protocol connections.
type Server struct {
	cfg      config.LineConfig
	engine   *hvac.Engine
	pool     *observer.Pool
	logger   *logging.Logger
	metrics  Metrics
	listener net.Listener
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a line server. It does not listen until Start.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if deps.Pool == nil {
		return nil, fmt.Errorf("observer pool is required")
	}
	return &Server{
		cfg:     deps.Config,
		engine:  deps.Engine,
		pool:    deps.Pool,
		logger:  deps.Logger,
		metrics: deps.Metrics,
	}, nil
}

// Start binds the listener and accepts connections in the background.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("line server listen %s: %w", addr, err)
	}
	s.listener = ln

	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.logger.Info("line server listening", "address", ln.Addr().String(), "max_clients", s.pool.Capacity())

	s.wg.Add(1)
	go s.acceptLoop(srvCtx)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, disconnects every observer and waits for the
// connection goroutines to exit.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	err := s.listener.Close()
	s.pool.Close()
	s.wg.Wait()

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing line listener: %w", err)
	}
	return nil
}

// HealthCheck reports whether the listener is up.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("line health check: %w", ctx.Err())
	default:
	}
	if s.listener == nil {
		return fmt.Errorf("line server not started")
	}
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("line accept failed", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, conn)
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	var (
		sess      *observer.Session
		attachErr error
	)
	err := s.engine.Do(ctx, func(p *hvac.Processor) {
		sess, attachErr = s.pool.Attach(conn, p.Snapshot())
	})
	if err == nil {
		err = attachErr
	}
	if err != nil {
		if errors.Is(err, observer.ErrPoolFull) && s.metrics != nil {
			s.metrics.ObserverRefused(PoolName)
		}
		s.logger.Info("line connection refused", "remote", conn.RemoteAddr().String(), "error", err)
		conn.Close() //nolint:errcheck // refused connection
		return
	}
	defer s.pool.Detach(sess)

	s.logger.Info("line client connected",
		"remote", conn.RemoteAddr().String(),
		"slot", sess.Slot,
		"session_id", sess.ID,
	)

	var splitter Splitter
	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			stop := false
			splitter.Feed(buf[:n], func(line []byte) {
				if !stop && !s.handleLine(ctx, sess, line) {
					stop = true
				}
			})
			if stop {
				return
			}
		}
		if err != nil {
			s.logger.Debug("line client disconnected", "slot", sess.Slot, "session_id", sess.ID, "error", err)
			return
		}
	}
}

// handleLine decodes and executes one line, queueing the reply on the
// originating session. It returns false once the control loop is gone.
func (s *Server) handleLine(ctx context.Context, sess *observer.Session, line []byte) bool {
	cmd, err := hvac.Decode(line)
	if err != nil {
		if s.metrics != nil {
			s.metrics.InvalidJSON(hvac.SourceLine)
		}
		sess.SendJSON(hvac.ErrorReply(hvac.CodeInvalidJSON))
		return true
	}

	reply, err := s.engine.Execute(ctx, cmd, hvac.LineOrigin(sess.Slot))
	if err != nil {
		return false
	}
	sess.SendJSON(reply)
	return true
}
