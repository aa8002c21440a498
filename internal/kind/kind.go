// Package kind manages the ephemeral local cluster used in preview mode,
// driving the kind CLI through the command gateway.
package kind

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zerotouch/ztboot/internal/gateway"
)

// Client wraps the kind CLI.
type Client struct {
	Runner  gateway.Runner
	Timeout time.Duration
}

// Exists reports whether a kind cluster with the given name is present.
func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	res, err := c.Runner.Run(ctx, gateway.Command{
		Name:    "kind",
		Args:    []string{"get", "clusters"},
		Timeout: c.Timeout,
	})
	if err != nil {
		return false, fmt.Errorf("failed to list kind clusters: %w", err)
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// Create creates the preview cluster. kind waits for the control plane
// itself via --wait; the node Ready gate afterwards covers the rest.
func (c *Client) Create(ctx context.Context, name string) error {
	_, err := c.Runner.Run(ctx, gateway.Command{
		Name:    "kind",
		Args:    []string{"create", "cluster", "--name", name, "--wait", "60s"},
		Timeout: c.Timeout,
		TransientPatterns: []string{
			"docker daemon",
			"Cannot connect to the Docker daemon",
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create kind cluster %s: %w", name, err)
	}
	return nil
}

// Kubeconfig returns the kubeconfig for the preview cluster.
func (c *Client) Kubeconfig(ctx context.Context, name string) ([]byte, error) {
	res, err := c.Runner.Run(ctx, gateway.Command{
		Name:    "kind",
		Args:    []string{"get", "kubeconfig", "--name", name},
		Timeout: c.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig for kind cluster %s: %w", name, err)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return nil, fmt.Errorf("kind returned an empty kubeconfig for %s", name)
	}
	return []byte(res.Stdout), nil
}
