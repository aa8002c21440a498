package commands

import (
	"github.com/spf13/cobra"

	"github.com/zerotouch/ztboot/cmd/ztboot/handlers"
)

// Bootstrap returns the command that drives the full bootstrap run.
//
// The phase sequence in production mode:
//  1. Apply the machine configuration to the control plane node
//  2. Bootstrap etcd and fetch the kubeconfig
//  3. Install the CNI and join workers
//  4. Pre-seed cloud credentials for the secret syncer
//  5. Install the GitOps controller and seed the root application
//  6. Wait for the platform to sync and verify the cluster
//
// Preview mode skips the machine phases and runs the GitOps phases against
// an ephemeral local kind cluster.
//
// Every phase is idempotent: a re-run after a partial failure skips what is
// already done and resumes where the previous run stopped.
func Bootstrap() *cobra.Command {
	var opts handlers.BootstrapOptions

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap a cluster into a GitOps-managed platform",
		Long: `Bootstrap a cluster from bare machines to a GitOps-managed platform.

Production mode applies Talos machine configs to real servers, bootstraps
etcd, installs Cilium, joins workers, pre-seeds secret-store credentials,
installs Argo CD and seeds the root application that reconciles everything
else from the platform repository.

Preview mode provisions an ephemeral local kind cluster and runs only the
GitOps phases against it, for pipeline and platform-repo testing.

Generated credentials (Talos secrets bundle, kubeconfig, Argo CD admin
password, secret-store parameter paths) are written to the credentials
ledger, which is flushed even when the run aborts.

Examples:
  # Production bootstrap of a single control plane
  ztboot bootstrap --mode production --server 203.0.113.10 --password "$NODE_PASSWORD" \
    --cluster-name prod --platform-repo https://git.example.com/platform.git

  # Production with two workers
  ztboot bootstrap --mode production --server 203.0.113.10 --password "$NODE_PASSWORD" \
    --worker-nodes worker-1:203.0.113.11,worker-2:203.0.113.12 --worker-password "$NODE_PASSWORD" \
    --cluster-name prod --platform-repo https://git.example.com/platform.git

  # Ephemeral preview cluster
  ztboot bootstrap --mode preview --cluster-name preview \
    --platform-repo https://git.example.com/platform.git

  # Show the phase plan without side effects
  ztboot bootstrap --mode preview --cluster-name preview --dry-run

Environment variables:
  AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION  secret store access
  ZTBOOT_GIT_USERNAME, ZTBOOT_GIT_TOKEN                 platform repo credential
  ZTBOOT_TIMEOUT_*, ZTBOOT_RETRY_*                      timeout overrides`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Bootstrap(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", "production", "Bootstrap mode: production or preview")
	cmd.Flags().StringVar(&opts.Server, "server", "", "Control plane node address (production)")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Initial node access credential (production)")
	cmd.Flags().StringVar(&opts.WorkerNodes, "worker-nodes", "", "Comma-separated name:address worker list")
	cmd.Flags().StringVar(&opts.WorkerPassword, "worker-password", "", "Worker node access credential")
	cmd.Flags().StringVar(&opts.ClusterName, "cluster-name", "platform", "Cluster name")
	cmd.Flags().StringVar(&opts.PlatformRepo, "platform-repo", "", "Git repository the GitOps controller reconciles from")
	cmd.Flags().StringVar(&opts.LedgerFile, "ledger-file", "bootstrap-credentials.txt", "Credentials ledger output path")
	cmd.Flags().StringVar(&opts.SecretsFile, "secrets-file", "secrets.yaml", "Talos secrets bundle path, reused across runs")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print the phase plan without making changes")

	return cmd
}
