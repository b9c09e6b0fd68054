package hvac

import "context"

// Engine couples a Processor with the Loop that owns it. Every method is
// safe for concurrent use; the work itself runs on the loop.
type Engine struct {
	loop *Loop
	proc *Processor
}

// NewEngine returns an Engine running proc on loop.
func NewEngine(loop *Loop, proc *Processor) *Engine {
	return &Engine{loop: loop, proc: proc}
}

// Run runs the loop until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	return e.loop.Run(ctx)
}

// Execute runs cmd on the loop and returns its reply.
func (e *Engine) Execute(ctx context.Context, cmd Command, origin Origin) (Reply, error) {
	var reply Reply
	err := e.loop.Do(ctx, func() {
		reply = e.proc.Execute(cmd, origin)
	})
	return reply, err
}

// Snapshot returns every device state, initialising any not yet referenced.
func (e *Engine) Snapshot(ctx context.Context) ([]StateMessage, error) {
	var states []StateMessage
	err := e.loop.Do(ctx, func() {
		states = e.proc.Snapshot()
	})
	return states, err
}

// Do runs fn with exclusive access to the processor.
func (e *Engine) Do(ctx context.Context, fn func(*Processor)) error {
	return e.loop.Do(ctx, func() { fn(e.proc) })
}
