package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"gopkg.in/yaml.v3"

	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/gitops"
)

const accessDataPath = "access-data.yaml"

type serviceAccessInfo struct {
	URL      string `yaml:"url,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type clusterAccessData struct {
	ClusterName string             `yaml:"cluster_name"`
	Mode        string             `yaml:"mode"`
	SavedAt     string             `yaml:"saved_at"`
	TalosConfig string             `yaml:"talos_config,omitempty"`
	Kubeconfig  string             `yaml:"kubeconfig,omitempty"`
	GitOps      *serviceAccessInfo `yaml:"gitops,omitempty"`
}

// persistAccessData writes the machine-readable companion to the text
// ledger. Missing pieces are filled from the cluster where possible.
func persistAccessData(ctx context.Context, session *bootstrap.Session) error {
	data := &clusterAccessData{
		ClusterName: session.Options.ClusterName,
		Mode:        string(session.Options.Mode),
		SavedAt:     time.Now().UTC().Format(time.RFC3339),
		TalosConfig: session.TalosconfigPath,
	}
	if len(session.Kubeconfig) > 0 && session.Options.Mode == config.ModeProduction {
		data.Kubeconfig = session.KubeconfigPath()
	}

	if session.AdminPassword != "" {
		data.GitOps = &serviceAccessInfo{Username: "admin", Password: session.AdminPassword}
	} else if len(session.Kubeconfig) > 0 {
		// A previous run installed the controller; recover its initial
		// admin secret from the cluster.
		if password, err := lookupInitialAdminPassword(ctx, session.Kubeconfig); err == nil && password != "" {
			data.GitOps = &serviceAccessInfo{Username: "admin", Password: password}
		}
	}

	content, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal access data: %w", err)
	}
	if err := os.WriteFile(accessDataPath, content, 0o600); err != nil {
		return fmt.Errorf("failed to write access data: %w", err)
	}
	return nil
}

func lookupInitialAdminPassword(ctx context.Context, kubeconfig []byte) (string, error) {
	restCfg, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return "", fmt.Errorf("failed to parse kubeconfig: %w", err)
	}

	k8sClient, err := client.New(restCfg, client.Options{})
	if err != nil {
		return "", fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	secret := &corev1.Secret{}
	key := client.ObjectKey{Namespace: gitops.Namespace, Name: "argocd-initial-admin-secret"}
	if err := k8sClient.Get(ctx, key, secret); err != nil {
		return "", err
	}
	return string(secret.Data["password"]), nil
}
