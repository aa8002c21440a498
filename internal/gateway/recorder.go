package gateway

import (
	"context"
	"sync"
)

// Recorder is a Runner for tests. It records every command it receives and
// delegates to Handler for the response; with no Handler every command
// succeeds with an empty Result.
type Recorder struct {
	mu      sync.Mutex
	calls   []Command
	Handler func(cmd Command) (Result, error)
}

// Run implements Runner.
func (r *Recorder) Run(_ context.Context, cmd Command) (Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	if r.Handler != nil {
		return r.Handler(cmd)
	}
	return Result{Class: ClassNone}, nil
}

// Calls returns a copy of the recorded commands in invocation order.
func (r *Recorder) Calls() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.calls))
	copy(out, r.calls)
	return out
}

// CallCount returns how many commands were issued.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
