package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// The readiness checks below are side-effect-free and return a
// human-readable observation alongside the verdict, so health gates can
// surface the current state when they time out.

func (c *client) DeploymentExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) DeploymentReady(ctx context.Context, namespace, name string) (bool, string, error) {
	deploy, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Sprintf("deployment %s/%s not found", namespace, name), nil
	}

	desired := int32(1)
	if deploy.Spec.Replicas != nil {
		desired = *deploy.Spec.Replicas
	}
	available := deploy.Status.AvailableReplicas
	obs := fmt.Sprintf("deployment %s/%s %d/%d available", namespace, name, available, desired)
	return available >= desired && desired > 0, obs, nil
}

func (c *client) DaemonSetExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) DaemonSetReady(ctx context.Context, namespace, name string) (bool, string, error) {
	ds, err := c.clientset.AppsV1().DaemonSets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Sprintf("daemonset %s/%s not found", namespace, name), nil
	}

	desired := ds.Status.DesiredNumberScheduled
	ready := ds.Status.NumberReady
	obs := fmt.Sprintf("daemonset %s/%s %d/%d ready", namespace, name, ready, desired)
	return desired > 0 && ready >= desired, obs, nil
}

func (c *client) NodeReady(ctx context.Context, name string) (bool, string, error) {
	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return false, fmt.Sprintf("node %s not registered", name), nil
	}
	if isNodeReady(node) {
		return true, fmt.Sprintf("node %s Ready", name), nil
	}
	return false, fmt.Sprintf("node %s not Ready", name), nil
}

func (c *client) NodesReady(ctx context.Context) (int, int, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list nodes: %w", err)
	}

	ready := 0
	for i := range nodes.Items {
		if isNodeReady(&nodes.Items[i]) {
			ready++
		}
	}
	return ready, len(nodes.Items), nil
}

func (c *client) PodsHealthy(ctx context.Context, namespace string) (bool, string, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return false, fmt.Sprintf("failed to list pods in %s", namespace), nil
	}

	unhealthy := 0
	var firstBad string
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.Status.Phase == corev1.PodRunning || pod.Status.Phase == corev1.PodSucceeded {
			continue
		}
		unhealthy++
		if firstBad == "" {
			firstBad = fmt.Sprintf("%s (%s)", pod.Name, pod.Status.Phase)
		}
	}

	if unhealthy > 0 {
		return false, fmt.Sprintf("%d unhealthy pods in %s, first: %s", unhealthy, namespace, firstBad), nil
	}
	return true, fmt.Sprintf("all %d pods in %s healthy", len(pods.Items), namespace), nil
}

func isNodeReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}
