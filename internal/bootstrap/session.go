// Package bootstrap composes the mode resolver, the phase table and the
// orchestrator that drives a cluster from bare machines (or nothing at all,
// in preview mode) to a GitOps-managed platform.
package bootstrap

import (
	"fmt"
	"path/filepath"

	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/ledger"
	"github.com/zerotouch/ztboot/internal/phase"
)

// Session is the root aggregate for one bootstrap run. It is created once
// per invocation, owned by the orchestrator and passed by reference to every
// phase; phases never run concurrently, so there is a single writer at any
// time.
type Session struct {
	Options  *config.Options
	Timeouts *config.Timeouts
	Env      *config.Credentials

	Ledger  *ledger.Ledger
	History []phase.Result

	// Kubeconfig is populated by the fetch-kubeconfig (production) or
	// create-preview-cluster (preview) phase and consumed by every later
	// phase that talks to the cluster.
	Kubeconfig []byte

	// TalosconfigPath is where the authenticated client config is written
	// for production runs.
	TalosconfigPath string

	// AdminPassword is the generated GitOps controller admin password,
	// held until the ledger records it.
	AdminPassword string
}

// KubeconfigPath is where the fetched kubeconfig is persisted so re-runs
// and the operator can reuse it.
func (s *Session) KubeconfigPath() string {
	return s.Options.ClusterName + "-kubeconfig"
}

// Resolve validates the options and seeds a session. It performs no side
// effects: production mode missing its server or credential fails here,
// before the command gateway is ever invoked.
func Resolve(opts *config.Options) (*Session, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	session := &Session{
		Options:  opts,
		Timeouts: config.LoadTimeouts(),
		Env:      config.LoadEnvCredentials(),
		Ledger:   ledger.New(),
	}

	if opts.Mode == config.ModeProduction {
		session.TalosconfigPath = filepath.Join(filepath.Dir(opts.SecretsFile), "talosconfig")
	}

	return session, nil
}

// Endpoint returns the Kubernetes API endpoint for config generation.
func (s *Session) Endpoint() string {
	return fmt.Sprintf("https://%s:6443", s.Options.Server)
}
