// Package config holds the bootstrap options resolved from CLI flags and the
// environment, and validates them before any side effect is attempted.
package config

import (
	"fmt"
	"strings"
)

// Mode selects which phases run and which health gates apply.
type Mode string

const (
	// ModeProduction bootstraps a Talos cluster on real servers.
	ModeProduction Mode = "production"
	// ModePreview provisions an ephemeral local kind cluster and runs only
	// the GitOps phases against it.
	ModePreview Mode = "preview"
)

// WorkerNode identifies one worker to join to the cluster.
type WorkerNode struct {
	Name    string
	Address string
}

// Options are the resolved bootstrap inputs. One Options value seeds one
// bootstrap session.
type Options struct {
	Mode           Mode
	Server         string // control plane endpoint (production)
	Password       string // initial node access credential (production)
	WorkerNodes    []WorkerNode
	WorkerPassword string

	ClusterName  string
	PlatformRepo string // Git repository the GitOps controller reconciles from
	LedgerFile   string
	SecretsFile  string // Talos secrets bundle, reused across runs
	DryRun       bool
}

// InvalidArgumentsError reports arguments rejected before any side effect.
// It maps to exit code 2.
type InvalidArgumentsError struct {
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return "invalid arguments: " + e.Reason
}

func invalidf(format string, args ...any) error {
	return &InvalidArgumentsError{Reason: fmt.Sprintf(format, args...)}
}

// Validate fails fast on missing or malformed arguments. It runs before the
// command gateway is ever invoked, so a bad invocation cannot leave partial
// state behind.
func (o *Options) Validate() error {
	switch o.Mode {
	case ModeProduction:
		if o.Server == "" {
			return invalidf("--server is required in production mode")
		}
		if o.Password == "" {
			return invalidf("--password is required in production mode")
		}
		if len(o.WorkerNodes) > 0 && o.WorkerPassword == "" {
			return invalidf("--worker-password is required when --worker-nodes is set")
		}
	case ModePreview:
		// Preview needs neither a server nor credentials.
	default:
		return invalidf("--mode must be %q or %q, got %q", ModeProduction, ModePreview, o.Mode)
	}

	if o.ClusterName == "" {
		return invalidf("--cluster-name must not be empty")
	}
	return nil
}

// ParseWorkerNodes parses the --worker-nodes flag value, a comma-separated
// list of name:address pairs.
func ParseWorkerNodes(raw string) ([]WorkerNode, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var nodes []WorkerNode
	seen := map[string]bool{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addr, ok := strings.Cut(entry, ":")
		if !ok || name == "" || addr == "" {
			return nil, invalidf("worker node %q must be name:address", entry)
		}
		if seen[name] {
			return nil, invalidf("duplicate worker node name %q", name)
		}
		seen[name] = true
		nodes = append(nodes, WorkerNode{Name: name, Address: addr})
	}
	return nodes, nil
}
