package observer

import (
	"encoding/json"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// Pool errors.
var (
	ErrPoolFull   = errors.New("observer: all slots in use")
	ErrPoolClosed = errors.New("observer: pool closed")
)

const (
	// DefaultCapacity is the number of concurrent line observers.
	DefaultCapacity = 4

	// DefaultQueueSize is the per-session outbound queue depth.
	DefaultQueueSize = 64
)

// Conn is the write side of an observer connection.
type Conn interface {
	io.Writer
	io.Closer
}

// Logger is the logging interface used by the pool.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Options configures a Pool.
type Options struct {
	// Name labels the pool in logs ("line", "websocket").
	Name      string
	Capacity  int
	QueueSize int

	// Terminator is appended to every message, "\n" for line sessions.
	Terminator []byte
	Logger     Logger

	// OnDrop, if set, is called whenever a message is dropped for a full queue.
	OnDrop func(slot int)
}

// Pool is a fixed set of observer slots.
type Pool struct {
	opts   Options
	mu     sync.Mutex
	slots  []*Session
	closed bool
}

// NewPool returns an empty pool.
func NewPool(opts Options) *Pool {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Pool{
		opts:  opts,
		slots: make([]*Session, opts.Capacity),
	}
}

// Attach assigns conn to the first slot that is empty or holds a dead
// session, then queues snapshot to the new session only. The snapshot
// messages are queued ahead of anything broadcast later.
func (p *Pool) Attach(conn Conn, snapshot []hvac.StateMessage) (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	slot := -1
	for i, s := range p.slots {
		if s == nil || !s.Alive() {
			slot = i
			break
		}
	}
	if slot < 0 {
		p.opts.Logger.Info("observer refused", "pool", p.opts.Name, "reason", "pool full")
		return nil, ErrPoolFull
	}
	if stale := p.slots[slot]; stale != nil {
		stale.Close()
	}

	queue := p.opts.QueueSize
	if queue < len(snapshot)+1 {
		queue = len(snapshot) + 1
	}
	s := newSession(slot, conn, queue, p.opts.Terminator)
	for _, msg := range snapshot {
		s.SendJSON(msg)
	}
	p.slots[slot] = s
	go s.writeLoop()

	p.opts.Logger.Info("observer attached",
		"pool", p.opts.Name,
		"slot", slot,
		"session_id", s.ID,
		"snapshot", len(snapshot),
	)
	return s, nil
}

// Detach closes s and frees its slot.
func (p *Pool) Detach(s *Session) {
	s.Close()

	p.mu.Lock()
	defer p.mu.Unlock()
	if s.Slot >= 0 && s.Slot < len(p.slots) && p.slots[s.Slot] == s {
		p.slots[s.Slot] = nil
	}
	p.opts.Logger.Info("observer detached", "pool", p.opts.Name, "slot", s.Slot, "session_id", s.ID)
}

// Broadcast implements hvac.Broadcaster. The message is encoded once and
// queued on every live slot except exclude.
func (p *Pool) Broadcast(msg hvac.StateMessage, exclude int) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sent := 0
	for i, s := range p.slots {
		if i == exclude || s == nil || !s.Alive() {
			continue
		}
		if s.Send(data) {
			sent++
		} else if p.opts.OnDrop != nil {
			p.opts.OnDrop(i)
		}
	}
	if sent > 0 {
		p.opts.Logger.Debug("state broadcast", "pool", p.opts.Name, "device_id", msg.ID, "recipients", sent)
	}
}

// Live returns the number of live sessions.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, s := range p.slots {
		if s != nil && s.Alive() {
			n++
		}
	}
	return n
}

// Capacity returns the number of slots.
func (p *Pool) Capacity() int {
	return len(p.slots)
}

// Close closes every session and refuses further attaches.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for i, s := range p.slots {
		if s != nil {
			s.Close()
			p.slots[i] = nil
		}
	}
}

// Session is one attached observer.
type Session struct {
	ID   string
	Slot int

	conn       Conn
	queue      chan []byte
	terminator []byte
	alive      atomic.Bool
	done       chan struct{}
	closeOnce  sync.Once
}

func newSession(slot int, conn Conn, queue int, terminator []byte) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		Slot:       slot,
		conn:       conn,
		queue:      make(chan []byte, queue),
		terminator: terminator,
		done:       make(chan struct{}),
	}
	s.alive.Store(true)
	return s
}

// Alive reports whether the session can still be written to.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// Done is closed once the session is closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Send queues data without blocking. It returns false if the session is
// dead or its queue is full.
func (s *Session) Send(data []byte) bool {
	if !s.Alive() {
		return false
	}
	select {
	case s.queue <- data:
		return true
	default:
		return false
	}
}

// SendJSON encodes v and queues it.
func (s *Session) SendJSON(v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return s.Send(data)
}

// Close marks the session dead and closes its connection. Safe to call
// more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.alive.Store(false)
		close(s.done)
		s.conn.Close() //nolint:errcheck // best-effort close of a departing observer
	})
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.queue:
			if len(s.terminator) > 0 {
				data = append(data[:len(data):len(data)], s.terminator...)
			}
			if _, err := s.conn.Write(data); err != nil {
				s.Close()
				return
			}
		}
	}
}
