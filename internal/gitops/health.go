package gitops

import (
	"context"
	"fmt"

	"github.com/zerotouch/ztboot/internal/k8s"
)

// ControllerHealthy reports whether every controller component deployment is
// available and the application controller pods are healthy.
func ControllerHealthy(ctx context.Context, client k8s.Interface) (bool, string, error) {
	for _, name := range ControllerComponents {
		ready, observation, err := client.DeploymentReady(ctx, Namespace, name)
		if err != nil {
			return false, observation, err
		}
		if !ready {
			return false, observation, nil
		}
	}

	// The application controller runs as a StatefulSet; its pods show up in
	// the namespace pod health check.
	healthy, observation, err := client.PodsHealthy(ctx, Namespace)
	if err != nil || !healthy {
		return false, observation, err
	}

	return true, "gitops controller healthy", nil
}

// RootApplicationSynced reports whether the root Application has reached
// sync status Synced and health status Healthy.
func RootApplicationSynced(ctx context.Context, client k8s.Interface) (bool, string, error) {
	status, err := client.ApplicationStatus(ctx, Namespace, RootApplicationName)
	if err != nil {
		return false, fmt.Sprintf("root application not readable: %v", err), nil
	}

	observation := fmt.Sprintf("application %s sync=%s health=%s", RootApplicationName, status.Sync, status.Health)
	if status.Sync == "Synced" && status.Health == "Healthy" {
		return true, observation, nil
	}
	return false, observation, nil
}
