package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout and retry values.
// These values can be customized via environment variables.
type Timeouts struct {
	MachineConfig  time.Duration // Talos machine config apply per node
	EtcdBootstrap  time.Duration // etcd bootstrap and first control plane start
	APIServer      time.Duration // waiting for the API server to answer /readyz
	NodeReady      time.Duration // waiting for one node to report Ready
	CNIRollout     time.Duration // CNI daemonset rollout
	GitOpsHealthy  time.Duration // GitOps controller deployments available
	PlatformSync   time.Duration // root application Synced/Healthy
	PreviewCluster time.Duration // kind cluster creation
	Command        time.Duration // default per-invocation gateway timeout
	LedgerFlush    time.Duration // secondary bound for the flush on abort/cancel

	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - ZTBOOT_TIMEOUT_MACHINE_CONFIG (default: 5m)
//   - ZTBOOT_TIMEOUT_ETCD_BOOTSTRAP (default: 10m)
//   - ZTBOOT_TIMEOUT_API_SERVER (default: 5m)
//   - ZTBOOT_TIMEOUT_NODE_READY (default: 10m)
//   - ZTBOOT_TIMEOUT_CNI (default: 10m)
//   - ZTBOOT_TIMEOUT_GITOPS (default: 10m)
//   - ZTBOOT_TIMEOUT_PLATFORM_SYNC (default: 15m)
//   - ZTBOOT_TIMEOUT_PREVIEW_CLUSTER (default: 5m)
//   - ZTBOOT_TIMEOUT_COMMAND (default: 2m)
//   - ZTBOOT_POLL_INTERVAL (default: 5s)
//   - ZTBOOT_RETRY_MAX_ATTEMPTS (default: 5)
//   - ZTBOOT_RETRY_DELAY (default: 10s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		MachineConfig:  parseDuration("ZTBOOT_TIMEOUT_MACHINE_CONFIG", 5*time.Minute),
		EtcdBootstrap:  parseDuration("ZTBOOT_TIMEOUT_ETCD_BOOTSTRAP", 10*time.Minute),
		APIServer:      parseDuration("ZTBOOT_TIMEOUT_API_SERVER", 5*time.Minute),
		NodeReady:      parseDuration("ZTBOOT_TIMEOUT_NODE_READY", 10*time.Minute),
		CNIRollout:     parseDuration("ZTBOOT_TIMEOUT_CNI", 10*time.Minute),
		GitOpsHealthy:  parseDuration("ZTBOOT_TIMEOUT_GITOPS", 10*time.Minute),
		PlatformSync:   parseDuration("ZTBOOT_TIMEOUT_PLATFORM_SYNC", 15*time.Minute),
		PreviewCluster: parseDuration("ZTBOOT_TIMEOUT_PREVIEW_CLUSTER", 5*time.Minute),
		Command:        parseDuration("ZTBOOT_TIMEOUT_COMMAND", 2*time.Minute),
		LedgerFlush:    5 * time.Second,
		PollInterval:   parseDuration("ZTBOOT_POLL_INTERVAL", 5*time.Second),
		RetryAttempts:  parseInt("ZTBOOT_RETRY_MAX_ATTEMPTS", 5),
		RetryDelay:     parseDuration("ZTBOOT_RETRY_DELAY", 10*time.Second),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return i
}
