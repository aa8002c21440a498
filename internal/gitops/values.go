// Package gitops installs and seeds the GitOps controller (Argo CD) that takes
// over reconciliation of the platform once bootstrap hands off.
package gitops

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/zerotouch/ztboot/internal/helm"
)

// Namespace is where the GitOps controller lives.
const Namespace = "argocd"

// ControllerComponents lists the deployments that must be available before
// the controller is considered healthy.
var ControllerComponents = []string{
	"argocd-server",
	"argocd-repo-server",
	"argocd-applicationset-controller",
	"argocd-redis",
}

// ControllerValues builds the helm values for the Argo CD chart. When
// adminPasswordHash is non-empty it is seeded into the chart-managed secret
// so the initial random password flow is skipped.
func ControllerValues(adminPasswordHash string) helm.Values {
	values := helm.Values{
		"crds": helm.Values{
			"install": true,
			"keep":    true,
		},
		// The redis secret init job races with server-side apply.
		// See: https://github.com/argoproj/argo-helm/issues/3057
		"redisSecretInit": helm.Values{
			"enabled": false,
		},
		"controller": helm.Values{
			"replicas": 1,
			"resources": helm.Values{
				"requests": helm.Values{
					"cpu":    "100m",
					"memory": "256Mi",
				},
				"limits": helm.Values{
					"memory": "512Mi",
				},
			},
		},
		"server": helm.Values{
			"replicas": 1,
			"resources": helm.Values{
				"requests": helm.Values{
					"cpu":    "50m",
					"memory": "128Mi",
				},
				"limits": helm.Values{
					"memory": "256Mi",
				},
			},
		},
		"repoServer": helm.Values{
			"replicas": 1,
			"resources": helm.Values{
				"requests": helm.Values{
					"cpu":    "50m",
					"memory": "128Mi",
				},
				"limits": helm.Values{
					"memory": "512Mi",
				},
			},
		},
		"redis": helm.Values{
			"enabled": true,
		},
		"redis-ha": helm.Values{
			"enabled": false,
		},
		"dex": helm.Values{
			"enabled": false,
		},
		"applicationSet": helm.Values{
			"enabled": true,
		},
		"notifications": helm.Values{
			"enabled": false,
		},
	}

	if adminPasswordHash != "" {
		values["configs"] = helm.Values{
			"secret": helm.Values{
				"argocdServerAdminPassword":      adminPasswordHash,
				"argocdServerAdminPasswordMtime": time.Now().UTC().Format(time.RFC3339),
			},
		}
	}

	return values
}

// HashAdminPassword bcrypt-hashes the admin password in the form Argo CD
// stores it.
func HashAdminPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash admin password: %w", err)
	}
	return string(hash), nil
}

// CNIValues builds the helm values for the Cilium chart. On Talos the
// kube-apiserver is reached through the KubePrism proxy on localhost.
func CNIValues(kubePrism bool) helm.Values {
	values := helm.Values{
		"ipam": helm.Values{
			"mode": "kubernetes",
		},
		"kubeProxyReplacement": true,
		"securityContext": helm.Values{
			"capabilities": helm.Values{
				"ciliumAgent":      []string{"CHOWN", "KILL", "NET_ADMIN", "NET_RAW", "IPC_LOCK", "SYS_ADMIN", "SYS_RESOURCE", "DAC_OVERRIDE", "FOWNER", "SETGID", "SETUID"},
				"cleanCiliumState": []string{"NET_ADMIN", "SYS_ADMIN", "SYS_RESOURCE"},
			},
		},
		"cgroup": helm.Values{
			"autoMount": helm.Values{
				"enabled": false,
			},
			"hostRoot": "/sys/fs/cgroup",
		},
	}

	if kubePrism {
		values["k8sServiceHost"] = "127.0.0.1"
		values["k8sServicePort"] = "7445"
	}

	return values
}
