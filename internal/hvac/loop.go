package hvac

import "context"

// Loop runs submitted closures one at a time on a single goroutine.
type Loop struct {
	work    chan func()
	stopped chan struct{}
}

// NewLoop returns a Loop that does nothing until Run is called.
func NewLoop() *Loop {
	return &Loop{
		work:    make(chan func()),
		stopped: make(chan struct{}),
	}
}

// Run executes work until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.work:
			fn()
		}
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}

	select {
	case l.work <- wrapped:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}
