// Package helm renders Helm charts to plain Kubernetes manifests.
// Charts are downloaded at runtime from their official repositories; the
// rendered output is applied server-side rather than installed as releases,
// so the cluster carries no Helm release state.
package helm

// ChartSpec identifies a chart by repository, name and pinned version.
type ChartSpec struct {
	Repository string
	Name       string
	Version    string
}

// DefaultChartSpecs contains the chart specifications for the components the
// bootstrap installs directly. Everything else arrives later via GitOps.
var DefaultChartSpecs = map[string]ChartSpec{
	"cilium": {
		Repository: "https://helm.cilium.io",
		Name:       "cilium",
		Version:    "1.18.5",
	},
	"argo-cd": {
		Repository: "https://argoproj.github.io/argo-helm",
		Name:       "argo-cd",
		Version:    "9.3.5",
	},
}

// GetChartSpec returns the spec for a named chart, with optional overrides
// for repository and version.
func GetChartSpec(name, repository, version string) ChartSpec {
	spec, ok := DefaultChartSpecs[name]
	if !ok {
		return ChartSpec{}
	}
	if repository != "" {
		spec.Repository = repository
	}
	if version != "" {
		spec.Version = version
	}
	return spec
}
