package bootstrap

import (
	"github.com/zerotouch/ztboot/internal/gateway"
	"github.com/zerotouch/ztboot/internal/helm"
	"github.com/zerotouch/ztboot/internal/k8s"
	"github.com/zerotouch/ztboot/internal/secretstore"
)

// Deps are the side-effecting collaborators of the orchestrator. Tests swap
// them for recorders and fakes; production wiring uses DefaultDeps.
type Deps struct {
	// Runner executes external commands (talosctl, kind).
	Runner gateway.Runner

	// Store is the cloud parameter store. May be nil when no cloud
	// credentials are configured; the injection phase then only seeds the
	// in-cluster secret.
	Store secretstore.Store

	// NewCluster builds a cluster client from kubeconfig bytes.
	NewCluster func(kubeconfig []byte) (k8s.Interface, error)

	// RenderChart downloads and renders a chart to manifests.
	RenderChart func(spec helm.ChartSpec, releaseName, namespace string, values helm.Values) ([]byte, error)
}

// DefaultDeps returns the production wiring. The parameter store is left nil
// and attached separately once region and credentials are known.
func DefaultDeps() Deps {
	return Deps{
		Runner:      gateway.Exec{},
		NewCluster:  k8s.NewFromKubeconfig,
		RenderChart: helm.RenderFromSpec,
	}
}
