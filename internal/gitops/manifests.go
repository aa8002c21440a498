package gitops

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// RootApplicationName is the app-of-apps seeded by bootstrap. Everything else
// on the cluster is reconciled from the platform repository through it.
const RootApplicationName = "platform-root"

// RepoCredentialSecretName holds the VCS credentials Argo CD uses to reach
// the platform repository.
const RepoCredentialSecretName = "platform-repo-creds"

// NamespaceManifest returns the controller namespace manifest.
func NamespaceManifest() []byte {
	return []byte(`apiVersion: v1
kind: Namespace
metadata:
  name: ` + Namespace + `
  labels:
    name: ` + Namespace + `
`)
}

// RootApplicationManifest builds the root Application pointing at the
// platform repository. Automated sync with prune and self-heal hands full
// reconciliation control to the controller.
func RootApplicationManifest(repoURL, revision, path string) ([]byte, error) {
	if repoURL == "" {
		return nil, fmt.Errorf("platform repository URL is required")
	}
	if revision == "" {
		revision = "HEAD"
	}
	if path == "" {
		path = "."
	}

	app := map[string]any{
		"apiVersion": "argoproj.io/v1alpha1",
		"kind":       "Application",
		"metadata": map[string]any{
			"name":      RootApplicationName,
			"namespace": Namespace,
			"finalizers": []string{
				"resources-finalizer.argocd.argoproj.io",
			},
		},
		"spec": map[string]any{
			"project": "default",
			"source": map[string]any{
				"repoURL":        repoURL,
				"targetRevision": revision,
				"path":           path,
			},
			"destination": map[string]any{
				"server":    "https://kubernetes.default.svc",
				"namespace": Namespace,
			},
			"syncPolicy": map[string]any{
				"automated": map[string]any{
					"prune":    true,
					"selfHeal": true,
				},
				"syncOptions": []string{
					"CreateNamespace=true",
					"ServerSideApply=true",
				},
			},
		},
	}

	manifest, err := yaml.Marshal(app)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal root application: %w", err)
	}
	return manifest, nil
}

// RepoCredentialSecret builds the repository credential Secret recognised by
// Argo CD via its secret-type label. Username and token may be empty for
// public repositories, in which case no secret is needed.
func RepoCredentialSecret(repoURL, username, token string) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      RepoCredentialSecretName,
			Namespace: Namespace,
			Labels: map[string]string{
				"argocd.argoproj.io/secret-type": "repository",
			},
		},
		StringData: map[string]string{
			"type":     "git",
			"url":      repoURL,
			"username": username,
			"password": token,
		},
	}
}
