package hvac

import (
	"context"
	"sync/atomic"
	"time"
)

// StateChange is a committed, material device state change.
type StateChange struct {
	Message StateMessage
	Source  string
	At      time.Time
}

// CommandRecord is the outcome of one executed command.
type CommandRecord struct {
	Command  string
	DeviceID string
	Source   string
	OK       bool
	Error    ErrorCode
	Duration time.Duration
	At       time.Time
}

// StateSink consumes state changes off the control loop.
type StateSink interface {
	HandleState(ctx context.Context, change StateChange)
}

// CommandSink consumes command outcomes off the control loop.
type CommandSink interface {
	HandleCommand(ctx context.Context, rec CommandRecord)
}

// DefaultDispatchQueue is the event queue depth used when none is given.
const DefaultDispatchQueue = 256

type event struct {
	state   *StateChange
	command *CommandRecord
}

// Dispatcher implements Events by queueing events for sinks that run on
// their own goroutine. A full queue drops the event.
type Dispatcher struct {
	queue    chan event
	states   []StateSink
	commands []CommandSink
	logger   Logger
	dropped  atomic.Uint64
}

// NewDispatcher returns a Dispatcher with the given queue depth.
func NewDispatcher(size int, logger Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultDispatchQueue
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{queue: make(chan event, size), logger: logger}
}

// AddStateSink registers a state sink. Call before Run.
func (d *Dispatcher) AddStateSink(s StateSink) {
	d.states = append(d.states, s)
}

// AddCommandSink registers a command sink. Call before Run.
func (d *Dispatcher) AddCommandSink(s CommandSink) {
	d.commands = append(d.commands, s)
}

// StateChanged implements Events.
func (d *Dispatcher) StateChanged(c StateChange) {
	if len(d.states) == 0 {
		return
	}
	d.enqueue(event{state: &c})
}

// CommandDone implements Events.
func (d *Dispatcher) CommandDone(r CommandRecord) {
	if len(d.commands) == 0 {
		return
	}
	d.enqueue(event{command: &r})
}

// Dropped returns the number of events discarded because the queue was full.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

func (d *Dispatcher) enqueue(e event) {
	select {
	case d.queue <- e:
	default:
		if n := d.dropped.Add(1); n == 1 || n%100 == 0 {
			d.logger.Warn("event queue full, dropping", "dropped_total", n)
		}
	}
}

// Run delivers queued events until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-d.queue:
			d.deliver(ctx, e)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e event) {
	switch {
	case e.state != nil:
		for _, s := range d.states {
			s.HandleState(ctx, *e.state)
		}
	case e.command != nil:
		for _, s := range d.commands {
			s.HandleCommand(ctx, *e.command)
		}
	}
}
