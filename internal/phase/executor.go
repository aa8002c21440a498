package phase

import (
	"context"
	"fmt"
	"time"

	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/ledger"
	"github.com/zerotouch/ztboot/internal/poll"
	"github.com/zerotouch/ztboot/internal/retry"
)

// Executor runs one phase at a time: precondition check, action,
// postcondition gate, ledger update. It is the only writer of the ledger.
type Executor struct {
	Ledger   *ledger.Ledger
	Observer Observer

	// DefaultRetries and DefaultRetryDelay apply to phases that leave their
	// own retry bounds unset.
	DefaultRetries    int
	DefaultRetryDelay time.Duration
}

// Execute runs the phase against the session mode and returns its result.
// Side effects happen only in the action step; skipped phases touch nothing.
func (e *Executor) Execute(ctx context.Context, spec Spec, mode config.Mode) Result {
	start := time.Now()

	if !spec.AppliesTo(mode) {
		return Result{
			Phase:      spec.Name,
			Ordinal:    spec.Ordinal,
			Outcome:    Skipped,
			Diagnostic: fmt.Sprintf("not applicable in %s mode", mode),
		}
	}

	e.Observer.Event(Event{Type: EventPhaseStarted, Phase: spec.Name, Message: "starting"})

	if spec.Precondition != nil {
		present, err := spec.Precondition(ctx)
		if err != nil {
			// Cannot tell whether the effect is present; run the action and
			// let the gate decide.
			e.Observer.Printf("[%s] precondition check inconclusive: %v", spec.Name, err)
		} else if present {
			e.Observer.Event(Event{Type: EventPhaseSkipped, Phase: spec.Name, Message: "effect already present"})
			return Result{
				Phase:      spec.Name,
				Ordinal:    spec.Ordinal,
				Outcome:    Skipped,
				Duration:   time.Since(start),
				Diagnostic: "already done",
			}
		}
	}

	if spec.Action != nil {
		attempts := spec.Retries
		if attempts <= 0 {
			attempts = e.DefaultRetries
		}
		delay := spec.RetryDelay
		if delay <= 0 {
			delay = e.DefaultRetryDelay
		}

		err := retry.Do(ctx, func() error { return spec.Action(ctx) },
			retry.WithAttempts(attempts),
			retry.WithDelay(delay),
		)
		if err != nil {
			e.Observer.Event(Event{Type: EventPhaseFailed, Phase: spec.Name, Message: err.Error()})
			return Result{
				Phase:      spec.Name,
				Ordinal:    spec.Ordinal,
				Outcome:    Failed,
				Duration:   time.Since(start),
				Diagnostic: err.Error(),
			}
		}
	}

	if spec.Gate != nil {
		res := poll.Until(ctx, spec.Gate.Probe, spec.Gate.Timeout, spec.Gate.Interval)
		e.Observer.Event(Event{
			Type:    EventGateObservation,
			Phase:   spec.Name,
			Message: res.LastObservation,
			Fields:  map[string]string{"elapsed": res.Elapsed.Round(time.Millisecond).String()},
		})
		if !res.Satisfied {
			diag := fmt.Sprintf("%s not satisfied within %s: %s",
				spec.Gate.Description, spec.Gate.Timeout, res.LastObservation)
			e.Observer.Event(Event{Type: EventPhaseFailed, Phase: spec.Name, Message: diag})
			return Result{
				Phase:      spec.Name,
				Ordinal:    spec.Ordinal,
				Outcome:    Failed,
				Duration:   time.Since(start),
				Diagnostic: diag,
			}
		}
	}

	if spec.Credentials != nil {
		for _, record := range spec.Credentials(ctx) {
			e.Ledger.Append(record)
		}
	}

	elapsed := time.Since(start)
	e.Observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   spec.Name,
		Message: fmt.Sprintf("completed in %v", elapsed.Round(time.Millisecond)),
	})

	return Result{
		Phase:    spec.Name,
		Ordinal:  spec.Ordinal,
		Outcome:  Success,
		Duration: elapsed,
	}
}
