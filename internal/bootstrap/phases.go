package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/gitops"
	"github.com/zerotouch/ztboot/internal/helm"
	"github.com/zerotouch/ztboot/internal/k8s"
	"github.com/zerotouch/ztboot/internal/ledger"
	"github.com/zerotouch/ztboot/internal/phase"
	"github.com/zerotouch/ztboot/internal/retry"
)

const (
	// secretSyncerNamespace is where the GitOps-deployed secret syncer
	// expects its cloud credentials.
	secretSyncerNamespace = "external-secrets"
	cloudCredentialSecret = "cloud-credentials"

	// fieldManager identifies our server-side applies.
	fieldManager = "ztboot"

	// workerJoinConcurrency bounds parallel config applies so the nascent
	// API server is not overwhelmed.
	workerJoinConcurrency = 2
)

var bothModes = []config.Mode{config.ModeProduction, config.ModePreview}
var productionOnly = []config.Mode{config.ModeProduction}
var previewOnly = []config.Mode{config.ModePreview}

// Phases builds the ordered phase table for the session. Ordering is fixed
// at construction: secret injection (60) strictly precedes controller
// install (70), which strictly precedes everything that waits on
// GitOps-reconciled state (80+).
func (o *Orchestrator) Phases() []phase.Spec {
	s := o.Session
	t := s.Timeouts

	phases := []phase.Spec{
		o.applyMachineConfigPhase(),
		o.bootstrapEtcdPhase(),
		o.fetchKubeconfigPhase(),
		o.createPreviewClusterPhase(),
		o.installCNIPhase(),
	}

	if len(s.Options.WorkerNodes) > 0 {
		phases = append(phases, o.joinWorkersPhase())
	}

	healthyProbe := o.clusterProbe(gitops.ControllerHealthy)
	syncedProbe := o.clusterProbe(gitops.RootApplicationSynced)

	phases = append(phases,
		o.injectSecretsPhase(),
		o.installGitOpsControllerPhase(),
		phase.Spec{
			Name:         "wait-gitops-healthy",
			Ordinal:      80,
			Modes:        bothModes,
			Policy:       phase.Abort,
			Precondition: gateSatisfied(healthyProbe),
			Gate: &phase.Gate{
				Description: "gitops controller healthy",
				Probe:       healthyProbe,
				Timeout:     t.GitOpsHealthy,
				Interval:    t.PollInterval,
			},
		},
		o.seedRootApplicationPhase(),
		phase.Spec{
			Name:         "wait-platform-synced",
			Ordinal:      100,
			Modes:        bothModes,
			Policy:       phase.WarnAndContinue,
			Precondition: gateSatisfied(syncedProbe),
			Gate: &phase.Gate{
				Description: "root application synced and healthy",
				Probe:       syncedProbe,
				Timeout:     t.PlatformSync,
				Interval:    t.PollInterval,
			},
		},
		o.verifyClusterPhase(),
	)

	return phases
}

// gateSatisfied adapts a gate probe into a precondition. Wait phases have no
// action of their own, so an already-satisfied gate means there is nothing
// left to do and a re-run reports them Skipped.
func gateSatisfied(probe func(ctx context.Context) (bool, string, error)) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		ok, _, err := probe(ctx)
		return ok, err
	}
}

// clusterProbe adapts a predicate over the cluster client into a poll probe.
// The client is built lazily because the kubeconfig only exists after the
// fetch-kubeconfig or create-preview-cluster phase.
func (o *Orchestrator) clusterProbe(predicate func(context.Context, k8s.Interface) (bool, string, error)) func(ctx context.Context) (bool, string, error) {
	return func(ctx context.Context) (bool, string, error) {
		cluster, err := o.cluster()
		if err != nil {
			return false, "", err
		}
		return predicate(ctx, cluster)
	}
}

func (o *Orchestrator) applyMachineConfigPhase() phase.Spec {
	s := o.Session
	server := s.Options.Server

	return phase.Spec{
		Name:    "apply-machine-config",
		Ordinal: 10,
		Modes:   productionOnly,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			return o.talos().ConfigApplied(ctx, server), nil
		},
		Action: func(ctx context.Context) error {
			cfg, err := o.generator().ControlPlaneConfig([]string{server})
			if err != nil {
				return retry.Fatal(err)
			}
			return o.talos().ApplyConfig(ctx, server, cfg, true)
		},
		Gate: &phase.Gate{
			Description: "node answers the authenticated machine API",
			Probe: func(ctx context.Context) (bool, string, error) {
				ok, observation := o.talos().Reachable(ctx, server)
				return ok, observation, nil
			},
			Timeout:  s.Timeouts.MachineConfig,
			Interval: s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			return []ledger.Record{
				{
					Category:     ledger.CategoryOS,
					Instructions: fmt.Sprintf("Talos secrets bundle for cluster %q; required to regenerate machine configs. Keep it safe.", s.Options.ClusterName),
					Reference:    s.Options.SecretsFile,
					GeneratedAt:  time.Now().UTC(),
				},
				{
					Category:     ledger.CategoryOS,
					Instructions: fmt.Sprintf("Authenticated Talos client config: talosctl --talosconfig %s --endpoints %s", s.TalosconfigPath, server),
					Reference:    s.TalosconfigPath,
					GeneratedAt:  time.Now().UTC(),
				},
				{
					Category:     ledger.CategoryOS,
					Instructions: fmt.Sprintf("Initial access credential for node %s, as provided at invocation.", server),
					Secret:       s.Options.Password,
					GeneratedAt:  time.Now().UTC(),
				},
			}
		},
	}
}

func (o *Orchestrator) bootstrapEtcdPhase() phase.Spec {
	s := o.Session
	server := s.Options.Server

	return phase.Spec{
		Name:    "bootstrap-etcd",
		Ordinal: 20,
		Modes:   productionOnly,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			return o.talos().EtcdHealthy(ctx, server), nil
		},
		Action: func(ctx context.Context) error {
			return o.talos().BootstrapEtcd(ctx, server)
		},
		Gate: &phase.Gate{
			Description: "etcd healthy",
			Probe: func(ctx context.Context) (bool, string, error) {
				if o.talos().EtcdHealthy(ctx, server) {
					return true, "etcd healthy", nil
				}
				return false, "etcd not yet healthy", nil
			},
			Timeout:  s.Timeouts.EtcdBootstrap,
			Interval: s.Timeouts.PollInterval,
		},
	}
}

func (o *Orchestrator) fetchKubeconfigPhase() phase.Spec {
	s := o.Session
	server := s.Options.Server

	return phase.Spec{
		Name:    "fetch-kubeconfig",
		Ordinal: 30,
		Modes:   productionOnly,
		Policy:  phase.Abort,
		Precondition: func(context.Context) (bool, error) {
			// A kubeconfig persisted by a previous run satisfies this phase.
			data, err := os.ReadFile(s.KubeconfigPath())
			if err != nil {
				return false, nil //nolint:nilerr // absent file means not done
			}
			s.Kubeconfig = data
			return true, nil
		},
		Action: func(ctx context.Context) error {
			data, err := o.talos().Kubeconfig(ctx, server)
			if err != nil {
				return err
			}
			s.Kubeconfig = data
			if err := os.WriteFile(s.KubeconfigPath(), data, 0o600); err != nil {
				return retry.Fatal(fmt.Errorf("failed to persist kubeconfig: %w", err))
			}
			return nil
		},
		Gate: &phase.Gate{
			Description: "API server answers /readyz",
			Probe:       o.clusterProbe(apiReady),
			Timeout:     s.Timeouts.APIServer,
			Interval:    s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			return []ledger.Record{{
				Category:     ledger.CategoryKubernetes,
				Instructions: fmt.Sprintf("Cluster admin kubeconfig: export KUBECONFIG=%s", s.KubeconfigPath()),
				Reference:    s.KubeconfigPath(),
				GeneratedAt:  time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) createPreviewClusterPhase() phase.Spec {
	s := o.Session
	name := s.Options.ClusterName

	return phase.Spec{
		Name:    "create-preview-cluster",
		Ordinal: 35,
		Modes:   previewOnly,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			exists, err := o.kind().Exists(ctx, name)
			if err != nil || !exists {
				return false, err
			}
			// Reuse the existing cluster; the later phases still need its
			// kubeconfig.
			data, err := o.kind().Kubeconfig(ctx, name)
			if err != nil {
				return false, err
			}
			s.Kubeconfig = data
			return true, nil
		},
		Action: func(ctx context.Context) error {
			if err := o.kind().Create(ctx, name); err != nil {
				return err
			}
			data, err := o.kind().Kubeconfig(ctx, name)
			if err != nil {
				return err
			}
			s.Kubeconfig = data
			return nil
		},
		Gate: &phase.Gate{
			Description: "API server answers /readyz",
			Probe:       o.clusterProbe(apiReady),
			Timeout:     s.Timeouts.PreviewCluster,
			Interval:    s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			return []ledger.Record{{
				Category:     ledger.CategoryKubernetes,
				Instructions: fmt.Sprintf("Ephemeral preview cluster: kind get kubeconfig --name %s", name),
				Reference:    "kind:" + name,
				GeneratedAt:  time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) installCNIPhase() phase.Spec {
	s := o.Session

	return phase.Spec{
		Name:    "install-cni",
		Ordinal: 40,
		Modes:   productionOnly,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			cluster, err := o.cluster()
			if err != nil {
				return false, err
			}
			return cluster.DaemonSetExists(ctx, "kube-system", "cilium")
		},
		Action: func(ctx context.Context) error {
			manifests, err := o.Deps.RenderChart(
				helm.GetChartSpec("cilium", "", ""),
				"cilium", "kube-system",
				gitops.CNIValues(true),
			)
			if err != nil {
				return err
			}
			cluster, err := o.cluster()
			if err != nil {
				return retry.Fatal(err)
			}
			return cluster.ApplyManifests(ctx, manifests, fieldManager)
		},
		Gate: &phase.Gate{
			Description: "CNI rolled out and node Ready",
			Probe: o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
				ready, observation, err := cluster.DaemonSetReady(ctx, "kube-system", "cilium")
				if err != nil || !ready {
					return false, observation, err
				}
				readyNodes, total, err := cluster.NodesReady(ctx)
				if err != nil {
					return false, "", err
				}
				if readyNodes == 0 {
					return false, fmt.Sprintf("0/%d nodes Ready", total), nil
				}
				return true, fmt.Sprintf("CNI ready, %d/%d nodes Ready", readyNodes, total), nil
			}),
			Timeout:  s.Timeouts.CNIRollout,
			Interval: s.Timeouts.PollInterval,
		},
	}
}

func (o *Orchestrator) joinWorkersPhase() phase.Spec {
	s := o.Session
	workers := s.Options.WorkerNodes

	return phase.Spec{
		Name:    "join-workers",
		Ordinal: 50,
		Modes:   productionOnly,
		Policy:  phase.WarnAndContinue,
		Precondition: func(ctx context.Context) (bool, error) {
			cluster, err := o.cluster()
			if err != nil {
				return false, err
			}
			for _, w := range workers {
				ready, _, err := cluster.NodeReady(ctx, w.Name)
				if err != nil || !ready {
					return false, err
				}
			}
			return true, nil
		},
		Action: func(ctx context.Context) error {
			workerCfg, err := o.generator().WorkerConfig()
			if err != nil {
				return retry.Fatal(err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workerJoinConcurrency)
			for _, w := range workers {
				w := w
				g.Go(func() error {
					return o.talos().ApplyConfig(gctx, w.Address, workerCfg, true)
				})
			}
			return g.Wait()
		},
		Gate: &phase.Gate{
			// One node at a time; the gate moves on only once the current
			// worker reports Ready.
			Description: "all workers Ready",
			Probe: o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
				for _, w := range workers {
					ready, observation, err := cluster.NodeReady(ctx, w.Name)
					if err != nil {
						return false, observation, err
					}
					if !ready {
						return false, observation, nil
					}
				}
				return true, fmt.Sprintf("all %d workers Ready", len(workers)), nil
			}),
			Timeout:  s.Timeouts.NodeReady,
			Interval: s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			names := make([]string, len(workers))
			for i, w := range workers {
				names[i] = w.Name
			}
			return []ledger.Record{{
				Category:     ledger.CategoryOS,
				Instructions: fmt.Sprintf("Initial access credential for worker nodes %s, as provided at invocation.", strings.Join(names, ", ")),
				Secret:       s.Options.WorkerPassword,
				GeneratedAt:  time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) injectSecretsPhase() phase.Spec {
	s := o.Session

	accessKeyParam := fmt.Sprintf("/%s/cloud/access-key-id", s.Options.ClusterName)
	secretKeyParam := fmt.Sprintf("/%s/cloud/secret-access-key", s.Options.ClusterName)

	return phase.Spec{
		Name:    "inject-secrets",
		Ordinal: 60,
		Modes:   bothModes,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			cluster, err := o.cluster()
			if err != nil {
				return false, err
			}
			return cluster.SecretExists(ctx, secretSyncerNamespace, cloudCredentialSecret)
		},
		Action: func(ctx context.Context) error {
			if !s.Env.HasCloudKeys() {
				o.Observer.Printf("[inject-secrets] no cloud keys in environment, seeding placeholder secret only")
			} else if o.Deps.Store != nil {
				if err := o.Deps.Store.Put(ctx, accessKeyParam, s.Env.AWSAccessKeyID); err != nil {
					return err
				}
				if err := o.Deps.Store.Put(ctx, secretKeyParam, s.Env.AWSSecretAccessKey); err != nil {
					return err
				}
			}

			cluster, err := o.cluster()
			if err != nil {
				return retry.Fatal(err)
			}
			namespace := fmt.Sprintf("apiVersion: v1\nkind: Namespace\nmetadata:\n  name: %s\n", secretSyncerNamespace)
			if err := cluster.ApplyManifests(ctx, []byte(namespace), fieldManager); err != nil {
				return err
			}
			return cluster.CreateSecret(ctx, cloudCredentialsSecret(s.Env))
		},
		Gate: &phase.Gate{
			Description: "cloud credential secret present",
			Probe: o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
				exists, err := cluster.SecretExists(ctx, secretSyncerNamespace, cloudCredentialSecret)
				if err != nil {
					return false, "", err
				}
				if exists {
					return true, "cloud credential secret present", nil
				}
				return false, "cloud credential secret missing", nil
			}),
			Timeout:  s.Timeouts.Command,
			Interval: s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			if !s.Env.HasCloudKeys() {
				return nil
			}
			return []ledger.Record{{
				Category:     ledger.CategorySecretStore,
				Instructions: "Cloud credentials seeded for the secret syncer.",
				Reference:    accessKeyParam + ", " + secretKeyParam,
				GeneratedAt:  time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) installGitOpsControllerPhase() phase.Spec {
	s := o.Session

	return phase.Spec{
		Name:    "install-gitops-controller",
		Ordinal: 70,
		Modes:   bothModes,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			cluster, err := o.cluster()
			if err != nil {
				return false, err
			}
			return cluster.DeploymentExists(ctx, gitops.Namespace, "argocd-server")
		},
		Action: func(ctx context.Context) error {
			if s.AdminPassword == "" {
				password, err := generatePassword()
				if err != nil {
					return retry.Fatal(err)
				}
				s.AdminPassword = password
			}
			hash, err := gitops.HashAdminPassword(s.AdminPassword)
			if err != nil {
				return retry.Fatal(err)
			}

			manifests, err := o.Deps.RenderChart(
				helm.GetChartSpec("argo-cd", "", ""),
				"argocd", gitops.Namespace,
				gitops.ControllerValues(hash),
			)
			if err != nil {
				return err
			}

			cluster, err := o.cluster()
			if err != nil {
				return retry.Fatal(err)
			}
			if err := cluster.ApplyManifests(ctx, gitops.NamespaceManifest(), fieldManager); err != nil {
				return err
			}
			return cluster.ApplyManifests(ctx, manifests, fieldManager)
		},
		Gate: &phase.Gate{
			Description: "controller deployments created",
			Probe: o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
				exists, err := cluster.DeploymentExists(ctx, gitops.Namespace, "argocd-server")
				if err != nil {
					return false, "", err
				}
				if exists {
					return true, "argocd-server deployment created", nil
				}
				return false, "argocd-server deployment missing", nil
			}),
			Timeout:  s.Timeouts.Command,
			Interval: s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			if s.AdminPassword == "" {
				return nil
			}
			return []ledger.Record{{
				Category: ledger.CategoryGitOps,
				Instructions: "Argo CD admin login. UI: kubectl -n " + gitops.Namespace +
					" port-forward svc/argocd-server 8080:443, then https://localhost:8080 as admin.",
				Secret:      s.AdminPassword,
				GeneratedAt: time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) seedRootApplicationPhase() phase.Spec {
	s := o.Session

	return phase.Spec{
		Name:    "seed-root-application",
		Ordinal: 90,
		Modes:   bothModes,
		Policy:  phase.Abort,
		Precondition: func(ctx context.Context) (bool, error) {
			cluster, err := o.cluster()
			if err != nil {
				return false, err
			}
			return cluster.ApplicationExists(ctx, gitops.Namespace, gitops.RootApplicationName)
		},
		Action: func(ctx context.Context) error {
			cluster, err := o.cluster()
			if err != nil {
				return retry.Fatal(err)
			}

			if s.Env.GitToken != "" {
				secret := gitops.RepoCredentialSecret(s.Options.PlatformRepo, s.Env.GitUsername, s.Env.GitToken)
				if err := cluster.CreateSecret(ctx, secret); err != nil {
					return err
				}
			}

			manifest, err := gitops.RootApplicationManifest(s.Options.PlatformRepo, "", "")
			if err != nil {
				return retry.Fatal(err)
			}
			return cluster.ApplyManifests(ctx, manifest, fieldManager)
		},
		Gate: &phase.Gate{
			Description: "root application registered",
			Probe: o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
				exists, err := cluster.ApplicationExists(ctx, gitops.Namespace, gitops.RootApplicationName)
				if err != nil {
					return false, "", err
				}
				if exists {
					return true, "root application registered", nil
				}
				return false, "root application missing", nil
			}),
			Timeout:  s.Timeouts.Command,
			Interval: s.Timeouts.PollInterval,
		},
		Credentials: func(context.Context) []ledger.Record {
			return []ledger.Record{{
				Category:     ledger.CategoryRepository,
				Instructions: fmt.Sprintf("Platform reconciled from %s by application %s/%s.", s.Options.PlatformRepo, gitops.Namespace, gitops.RootApplicationName),
				Reference:    s.Options.PlatformRepo,
				GeneratedAt:  time.Now().UTC(),
			}}
		},
	}
}

func (o *Orchestrator) verifyClusterPhase() phase.Spec {
	s := o.Session

	probe := o.clusterProbe(func(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
		readyNodes, total, err := cluster.NodesReady(ctx)
		if err != nil {
			return false, "", err
		}
		if readyNodes < total {
			return false, fmt.Sprintf("%d/%d nodes Ready", readyNodes, total), nil
		}
		healthy, observation, err := cluster.PodsHealthy(ctx, gitops.Namespace)
		if err != nil || !healthy {
			return false, observation, err
		}
		return true, fmt.Sprintf("%d/%d nodes Ready, controller pods healthy", readyNodes, total), nil
	})

	return phase.Spec{
		Name:         "verify-cluster",
		Ordinal:      110,
		Modes:        bothModes,
		Policy:       phase.WarnAndContinue,
		Precondition: gateSatisfied(probe),
		Gate: &phase.Gate{
			Description: "cluster verification",
			Probe:       probe,
			Timeout:     s.Timeouts.APIServer,
			Interval:    s.Timeouts.PollInterval,
		},
	}
}

// apiReady adapts the cluster readiness check to the probe shape.
func apiReady(ctx context.Context, cluster k8s.Interface) (bool, string, error) {
	return cluster.APIReady(ctx)
}

// cloudCredentialsSecret builds the secret the syncer mounts. Empty keys
// still produce the secret so the syncer's deployment does not block on a
// missing mount in preview environments.
func cloudCredentialsSecret(env *config.Credentials) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      cloudCredentialSecret,
			Namespace: secretSyncerNamespace,
		},
		StringData: map[string]string{
			"AWS_ACCESS_KEY_ID":     env.AWSAccessKeyID,
			"AWS_SECRET_ACCESS_KEY": env.AWSSecretAccessKey,
			"AWS_REGION":            env.AWSRegion,
		},
	}
}

// generatePassword returns a random hex password for the controller admin
// account.
func generatePassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
