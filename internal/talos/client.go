package talos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zerotouch/ztboot/internal/gateway"
)

// Client drives talosctl through the command gateway. All mutating
// operations go through the gateway so they can be audited and, in tests,
// recorded.
type Client struct {
	Runner      gateway.Runner
	Talosconfig string // path to the talosconfig written by the generator
	Timeout     time.Duration
}

// bootstrapTransient matches talosctl stderr while the node is still coming
// up after config apply.
var bootstrapTransient = []string{
	"etcd is waiting",
	"service is not healthy",
	"deadline exceeded",
	"transport: Error while dialing",
}

func (c *Client) run(ctx context.Context, args []string, stdin []byte, transient []string) (gateway.Result, error) {
	return c.Runner.Run(ctx, gateway.Command{
		Name:              "talosctl",
		Args:              args,
		Stdin:             stdin,
		Timeout:           c.Timeout,
		TransientPatterns: transient,
	})
}

// ApplyConfig applies a machine configuration to a node. The first apply on a
// factory-fresh node runs in insecure (maintenance) mode; once the config is
// applied the node only speaks authenticated Talos API.
func (c *Client) ApplyConfig(ctx context.Context, node string, machineConfig []byte, insecure bool) error {
	tmpfile, err := os.CreateTemp("", "machineconfig-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp machine config: %w", err)
	}
	// Best-effort cleanup; failure to remove temp file is non-critical
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write(machineConfig); err != nil {
		_ = tmpfile.Close()
		return fmt.Errorf("failed to write machine config: %w", err)
	}
	if err := tmpfile.Close(); err != nil {
		return fmt.Errorf("failed to close machine config: %w", err)
	}

	args := []string{"apply-config", "--nodes", node, "--file", tmpfile.Name()}
	if insecure {
		args = append(args, "--insecure")
	} else {
		args = append(args, "--talosconfig", c.Talosconfig, "--endpoints", node)
	}

	if _, err := c.run(ctx, args, nil, bootstrapTransient); err != nil {
		return fmt.Errorf("apply-config on %s failed: %w", node, err)
	}
	return nil
}

// ConfigApplied reports whether a node already carries an applied machine
// configuration: the authenticated client can read it back. A read failure
// only means "not observable yet", so it is not an error.
func (c *Client) ConfigApplied(ctx context.Context, node string) bool {
	args := []string{"--talosconfig", c.Talosconfig, "--nodes", node, "--endpoints", node, "get", "machineconfig"}
	_, err := c.run(ctx, args, nil, nil)
	return err == nil
}

// BootstrapEtcd initializes etcd on the first control plane node. Calling it
// a second time fails, so callers should check EtcdHealthy first.
func (c *Client) BootstrapEtcd(ctx context.Context, node string) error {
	args := []string{"--talosconfig", c.Talosconfig, "--nodes", node, "--endpoints", node, "bootstrap"}
	if _, err := c.run(ctx, args, nil, bootstrapTransient); err != nil {
		return fmt.Errorf("etcd bootstrap on %s failed: %w", node, err)
	}
	return nil
}

// EtcdHealthy reports whether etcd on the node is up and serving.
func (c *Client) EtcdHealthy(ctx context.Context, node string) bool {
	args := []string{"--talosconfig", c.Talosconfig, "--nodes", node, "--endpoints", node, "etcd", "status"}
	res, err := c.run(ctx, args, nil, nil)
	return err == nil && strings.TrimSpace(res.Stdout) != ""
}

// Kubeconfig fetches the cluster kubeconfig from a control plane node.
func (c *Client) Kubeconfig(ctx context.Context, node string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "ztboot-kubeconfig-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	dest := filepath.Join(dir, "kubeconfig")
	args := []string{"--talosconfig", c.Talosconfig, "--nodes", node, "--endpoints", node,
		"kubeconfig", "--force", dest}
	if _, err := c.run(ctx, args, nil, bootstrapTransient); err != nil {
		return nil, fmt.Errorf("kubeconfig fetch from %s failed: %w", node, err)
	}

	data, err := os.ReadFile(dest) // #nosec G304 - path under our own temp dir
	if err != nil {
		return nil, fmt.Errorf("failed to read fetched kubeconfig: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetched kubeconfig from %s is empty", node)
	}
	return data, nil
}

// Reachable reports whether the authenticated Talos API on the node answers.
// Used as the health gate after config apply.
func (c *Client) Reachable(ctx context.Context, node string) (bool, string) {
	args := []string{"--talosconfig", c.Talosconfig, "--nodes", node, "--endpoints", node, "version", "--short"}
	res, err := c.run(ctx, args, nil, nil)
	if err != nil {
		return false, fmt.Sprintf("talos API on %s not answering: %v", node, err)
	}
	return true, fmt.Sprintf("talos API on %s up: %s", node, firstLine(res.Stdout))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
