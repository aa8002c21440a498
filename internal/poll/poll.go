// Package poll provides a fixed-interval polling primitive used by every
// health gate in the bootstrap sequence.
//
// Polling is fixed-interval rather than exponential: the systems being
// observed (API server admission, controller reconciliation) settle in
// seconds to low minutes, and a fixed interval bounded by a hard timeout is
// simpler to reason about and test.
package poll

import (
	"context"
	"time"
)

// Probe is a side-effect-free predicate evaluated repeatedly until it is
// satisfied or the timeout expires. It returns whether the condition holds
// and a human-readable observation of the current state. A returned error is
// recorded as the observation and polling continues; probes must be safe to
// call any number of times.
type Probe func(ctx context.Context) (satisfied bool, observation string, err error)

// Result describes the outcome of a polling loop. A timeout is not an error:
// Satisfied is false and LastObservation carries the final state seen, so the
// caller can decide whether that is fatal.
type Result struct {
	Satisfied       bool
	LastObservation string
	Elapsed         time.Duration
}

// Until evaluates the probe immediately and then at the given interval until
// it is satisfied, the timeout expires, or the context is cancelled.
// Cancellation stops the loop at the next interval boundary.
func Until(ctx context.Context, probe Probe, timeout, interval time.Duration) Result {
	start := time.Now()
	deadline := start.Add(timeout)

	var last string
	for {
		satisfied, observation, err := probe(ctx)
		if err != nil {
			observation = err.Error()
		}
		if observation != "" {
			last = observation
		}
		if satisfied {
			return Result{Satisfied: true, LastObservation: last, Elapsed: time.Since(start)}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Result{Satisfied: false, LastObservation: last, Elapsed: time.Since(start)}
		}

		wait := interval
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			if last == "" {
				last = ctx.Err().Error()
			}
			return Result{Satisfied: false, LastObservation: last, Elapsed: time.Since(start)}
		case <-time.After(wait):
		}
	}
}
