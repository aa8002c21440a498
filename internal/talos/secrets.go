// Package talos generates Talos machine configurations and drives talosctl
// for the operations that install the OS and bring up the control plane.
package talos

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/siderolabs/talos/pkg/machinery/config"
	"github.com/siderolabs/talos/pkg/machinery/config/generate"
	"github.com/siderolabs/talos/pkg/machinery/config/generate/secrets"
	"github.com/siderolabs/talos/pkg/machinery/config/machine"
)

const (
	// DefaultTalosVersion pins the machine config version contract.
	DefaultTalosVersion = "v1.12.0"
	// DefaultKubernetesVersion is the Kubernetes version baked into generated
	// machine configs.
	DefaultKubernetesVersion = "1.34.1"
)

// Generator produces machine configurations and the talosconfig for one
// cluster from a persisted secrets bundle. Reusing the bundle across runs is
// what keeps config application idempotent: a re-run generates byte-identical
// credentials.
type Generator struct {
	clusterName       string
	kubernetesVersion string
	talosVersion      string
	endpoint          string
	secretsBundle     *secrets.Bundle
}

// NewGenerator creates a Generator, loading the secrets bundle from
// secretsFile if it exists and creating (and persisting) a fresh one
// otherwise.
func NewGenerator(clusterName, endpoint, secretsFile string) (*Generator, error) {
	vc, err := config.ParseContractFromVersion(DefaultTalosVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version contract: %w", err)
	}

	var sb *secrets.Bundle
	if _, statErr := os.Stat(secretsFile); statErr == nil {
		sb, err = secrets.LoadBundle(secretsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load secrets bundle: %w", err)
		}
		sb.Clock = secrets.NewFixedClock(time.Now())
	} else {
		sb, err = secrets.NewBundle(secrets.NewFixedClock(time.Now()), vc)
		if err != nil {
			return nil, fmt.Errorf("failed to create secrets bundle: %w", err)
		}

		data, err := json.MarshalIndent(sb, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal secrets bundle: %w", err)
		}
		if err := os.WriteFile(secretsFile, data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to write secrets file: %w", err)
		}
	}

	return &Generator{
		clusterName:       clusterName,
		kubernetesVersion: DefaultKubernetesVersion,
		talosVersion:      DefaultTalosVersion,
		endpoint:          endpoint,
		secretsBundle:     sb,
	}, nil
}

func (g *Generator) input(extra ...generate.Option) (*generate.Input, error) {
	vc, err := config.ParseContractFromVersion(g.talosVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to parse version contract: %w", err)
	}

	opts := append([]generate.Option{
		generate.WithVersionContract(vc),
		generate.WithSecretsBundle(g.secretsBundle),
	}, extra...)

	return generate.NewInput(g.clusterName, g.endpoint, g.kubernetesVersion, opts...)
}

// ControlPlaneConfig generates the machine configuration for a control plane
// node.
func (g *Generator) ControlPlaneConfig(san []string) ([]byte, error) {
	input, err := g.input(generate.WithAdditionalSubjectAltNames(san))
	if err != nil {
		return nil, fmt.Errorf("failed to create input: %w", err)
	}

	cfg, err := input.Config(machine.TypeControlPlane)
	if err != nil {
		return nil, fmt.Errorf("failed to generate control plane config: %w", err)
	}

	bytes, err := cfg.Bytes()
	if err != nil {
		return nil, err
	}

	return stripComments(bytes), nil
}

// WorkerConfig generates the machine configuration for a worker node.
func (g *Generator) WorkerConfig() ([]byte, error) {
	input, err := g.input()
	if err != nil {
		return nil, fmt.Errorf("failed to create input: %w", err)
	}

	cfg, err := input.Config(machine.TypeWorker)
	if err != nil {
		return nil, fmt.Errorf("failed to generate worker config: %w", err)
	}

	bytes, err := cfg.Bytes()
	if err != nil {
		return nil, err
	}

	return stripComments(bytes), nil
}

// ClientConfig returns the talosconfig for the cluster.
func (g *Generator) ClientConfig() ([]byte, error) {
	input, err := g.input()
	if err != nil {
		return nil, err
	}

	clientCfg, err := input.Talosconfig()
	if err != nil {
		return nil, err
	}

	return clientCfg.Bytes()
}

func stripComments(data []byte) []byte {
	lines := strings.Split(string(data), "\n")
	var result []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		result = append(result, line)
	}
	return []byte(strings.Join(result, "\n"))
}
