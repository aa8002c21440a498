package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/k8s"
	"github.com/zerotouch/ztboot/internal/kind"
	"github.com/zerotouch/ztboot/internal/phase"
	"github.com/zerotouch/ztboot/internal/talos"
)

// AbortError reports the phase at which the run stopped. Already-issued
// credentials are flushed before it is returned.
type AbortError struct {
	Phase      string
	Ordinal    int
	Diagnostic string
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("bootstrap aborted at phase %s (ordinal %d): %s", e.Phase, e.Ordinal, e.Diagnostic)
}

// ErrInterrupted is returned when the run was cancelled by the operator or
// a CI timeout rather than failing on its own.
var ErrInterrupted = errors.New("bootstrap interrupted")

// Orchestrator drives the phase table over one session.
type Orchestrator struct {
	Session  *Session
	Deps     Deps
	Observer phase.Observer

	talosClient   *talos.Client
	kindClient    *kind.Client
	gen           *talos.Generator
	clusterClient k8s.Interface
}

// New wires an orchestrator for the session.
func New(session *Session, deps Deps, observer phase.Observer) *Orchestrator {
	return &Orchestrator{Session: session, Deps: deps, Observer: observer}
}

func (o *Orchestrator) talos() *talos.Client {
	if o.talosClient == nil {
		o.talosClient = &talos.Client{
			Runner:      o.Deps.Runner,
			Talosconfig: o.Session.TalosconfigPath,
			Timeout:     o.Session.Timeouts.Command,
		}
	}
	return o.talosClient
}

func (o *Orchestrator) kind() *kind.Client {
	if o.kindClient == nil {
		o.kindClient = &kind.Client{
			Runner:  o.Deps.Runner,
			Timeout: o.Session.Timeouts.PreviewCluster,
		}
	}
	return o.kindClient
}

func (o *Orchestrator) generator() *talos.Generator {
	return o.gen
}

// cluster returns the memoized cluster client, built once the kubeconfig is
// available.
func (o *Orchestrator) cluster() (k8s.Interface, error) {
	if o.clusterClient != nil {
		return o.clusterClient, nil
	}
	if len(o.Session.Kubeconfig) == 0 {
		return nil, errors.New("kubeconfig not yet available")
	}
	client, err := o.Deps.NewCluster(o.Session.Kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build cluster client: %w", err)
	}
	o.clusterClient = client
	return client, nil
}

// prepare performs the production-mode secret material setup: load or create
// the secrets bundle and write the authenticated client config. Reusing the
// bundle is what makes re-applied machine configs byte-identical.
func (o *Orchestrator) prepare() error {
	s := o.Session
	if s.Options.Mode != config.ModeProduction {
		return nil
	}

	gen, err := talos.NewGenerator(s.Options.ClusterName, s.Endpoint(), s.Options.SecretsFile)
	if err != nil {
		return err
	}
	o.gen = gen

	clientConfig, err := gen.ClientConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.TalosconfigPath, clientConfig, 0o600); err != nil {
		return fmt.Errorf("failed to write talosconfig: %w", err)
	}
	return nil
}

// Run resolves the phase list and executes it in ascending ordinal order.
// The ledger is flushed on every exit path, including abort and
// cancellation, so already-issued secrets are never lost.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	s := o.Session

	defer func() {
		if flushErr := o.flushLedger(); flushErr != nil {
			o.Observer.Printf("failed to flush credentials ledger: %v", flushErr)
			if err == nil {
				err = flushErr
			}
		}
	}()

	if err := o.prepare(); err != nil {
		return err
	}

	executor := &phase.Executor{
		Ledger:            s.Ledger,
		Observer:          o.Observer,
		DefaultRetries:    s.Timeouts.RetryAttempts,
		DefaultRetryDelay: s.Timeouts.RetryDelay,
	}

	phases := o.Phases()
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].Ordinal < phases[j].Ordinal })

	for _, spec := range phases {
		if ctx.Err() != nil {
			return fmt.Errorf("%w before phase %s: %v", ErrInterrupted, spec.Name, ctx.Err())
		}

		result := executor.Execute(ctx, spec, s.Options.Mode)

		if result.Outcome == phase.Failed && ctx.Err() != nil {
			s.History = append(s.History, result)
			return fmt.Errorf("%w during phase %s", ErrInterrupted, spec.Name)
		}

		if result.Outcome == phase.Failed && spec.Policy == phase.WarnAndContinue {
			result.Outcome = phase.Warned
			o.Observer.Event(phase.Event{
				Type:    phase.EventPhaseWarned,
				Phase:   spec.Name,
				Message: "continuing despite failure: " + result.Diagnostic,
			})
		}

		s.History = append(s.History, result)

		if result.Outcome == phase.Failed {
			return &AbortError{Phase: result.Phase, Ordinal: result.Ordinal, Diagnostic: result.Diagnostic}
		}
	}

	return nil
}

// flushLedger persists accumulated credentials. Nothing to flush is not an
// error; a dry run never reaches here with records. The flush runs under its
// own bound so a hung filesystem cannot keep an aborted run alive forever.
func (o *Orchestrator) flushLedger() error {
	if o.Session.Ledger.Len() == 0 {
		return nil
	}
	return flushWithin(o.Session.Timeouts.LedgerFlush, func() error {
		return o.Session.Ledger.Flush(o.Session.Options.LedgerFile)
	})
}

func flushWithin(timeout time.Duration, flush func() error) error {
	done := make(chan error, 1)
	go func() { done <- flush() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("credentials ledger flush did not complete within %s", timeout)
	}
}
