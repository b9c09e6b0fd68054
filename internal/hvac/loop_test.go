package hvac

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLoopSerialisesWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := NewLoop()
	go loop.Run(ctx) //nolint:errcheck

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := loop.Do(ctx, func() { counter++ }); err != nil {
				t.Errorf("Do() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Errorf("counter = %d, want 50", counter)
	}
}

func TestLoopStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	loop := NewLoop()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx) //nolint:errcheck
		close(done)
	}()
	cancel()
	<-done

	err := loop.Do(context.Background(), func() {})
	if !errors.Is(err, ErrLoopStopped) {
		t.Errorf("Do() after stop error = %v, want ErrLoopStopped", err)
	}
}

func TestEngine(t *testing.T) {
	rig := newTestRig(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	engine := NewEngine(NewLoop(), rig.proc)
	go engine.Run(ctx) //nolint:errcheck

	reply, err := engine.Execute(ctx, Send{ID: TextValue("lounge"), Mode: TextValue("dry")}, WebOrigin)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !reply.OK || reply.Mode != ModeDry {
		t.Errorf("reply = %+v", reply)
	}

	states, err := engine.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(states) != 3 || states[0].Mode != ModeDry {
		t.Errorf("Snapshot() = %+v", states)
	}

	var devices int
	if err := engine.Do(ctx, func(p *Processor) { devices = p.Registry().Len() }); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if devices != 3 {
		t.Errorf("devices = %d, want 3", devices)
	}
}

type stateCollector struct {
	mu  sync.Mutex
	got []StateChange
	ch  chan struct{}
}

func (c *stateCollector) HandleState(_ context.Context, s StateChange) {
	c.mu.Lock()
	c.got = append(c.got, s)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func TestDispatcher(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDispatcher(4, nil)
	c := &stateCollector{ch: make(chan struct{}, 4)}
	d.AddStateSink(c)
	go d.Run(ctx) //nolint:errcheck

	d.StateChanged(StateChange{Message: StateMessage{ID: "lounge"}, Source: SourceWeb})
	d.CommandDone(CommandRecord{Command: "list"})

	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("state sink not called")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.got) != 1 || c.got[0].Message.ID != "lounge" {
		t.Errorf("delivered = %+v", c.got)
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(1, nil)
	d.AddStateSink(&stateCollector{ch: make(chan struct{}, 1)})

	d.StateChanged(StateChange{})
	d.StateChanged(StateChange{})

	if got := d.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}
}
