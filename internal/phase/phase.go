// Package phase defines the bootstrap phase table entries and the executor
// that runs them.
//
// A phase is one named, ordered step with a precondition (idempotency
// check), a side-effecting action, and a health gate. The executor keeps
// side effects strictly scoped to the action: preconditions and gates are
// read-only, which is what makes re-running the orchestrator after a partial
// failure safe.
package phase

import (
	"context"
	"time"

	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/ledger"
	"github.com/zerotouch/ztboot/internal/poll"
)

// FailurePolicy decides how the orchestrator reacts to a failed phase.
type FailurePolicy int

const (
	// Abort halts the whole run. Used by infrastructure phases whose effects
	// later phases build on.
	Abort FailurePolicy = iota
	// WarnAndContinue logs the failure and proceeds. Reserved for
	// best-effort verification phases whose failure does not prevent the
	// platform from being usable.
	WarnAndContinue
)

// Outcome is the result category of one executed phase.
type Outcome string

const (
	Success Outcome = "success"
	Skipped Outcome = "skipped"
	Failed  Outcome = "failed"
	Warned  Outcome = "warned"
)

// Gate is a bounded polling check that a side effect has taken observable
// effect. The probe must be side-effect-free; it is evaluated repeatedly.
type Gate struct {
	Description string
	Probe       poll.Probe
	Timeout     time.Duration
	Interval    time.Duration
}

// Spec is the static definition of one bootstrap step. Ordinal defines the
// total execution order; no two phases share an ordinal.
type Spec struct {
	Name    string
	Ordinal int
	Modes   []config.Mode
	Policy  FailurePolicy

	// Precondition reports whether the phase's effect is already present in
	// the cluster, in which case the action is skipped entirely.
	Precondition func(ctx context.Context) (bool, error)

	// Action performs the phase's side effect. Transient failures are
	// retried; fatal ones surface immediately.
	Action func(ctx context.Context) error

	// Gate verifies the action took effect. Nil means trivially satisfied.
	Gate *Gate

	// Credentials returns the operator-relevant secrets this phase produced,
	// appended to the ledger on success.
	Credentials func(ctx context.Context) []ledger.Record

	// Retries and RetryDelay bound the action retry loop for transient
	// failures. Zero values fall back to the executor defaults.
	Retries    int
	RetryDelay time.Duration
}

// AppliesTo reports whether the phase runs in the given mode.
func (s *Spec) AppliesTo(mode config.Mode) bool {
	for _, m := range s.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// Result records one executed phase. Immutable once appended to the session
// history.
type Result struct {
	Phase      string
	Ordinal    int
	Outcome    Outcome
	Duration   time.Duration
	Diagnostic string
}
