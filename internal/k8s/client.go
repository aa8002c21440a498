// Package k8s provides the Kubernetes client used by phase actions,
// preconditions, and health gates.
//
// Queries are side-effect-free and safe for repeated polling; the only
// mutating entry points are ApplyManifests (server-side apply) and
// CreateSecret.
package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/discovery/cached/memory"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/restmapper"
	"k8s.io/client-go/tools/clientcmd"
)

// ApplicationStatus is the observed state of a GitOps Application object.
type ApplicationStatus struct {
	Sync   string
	Health string
}

// Interface is the cluster surface the bootstrap phases consume. Tests
// substitute a Fake.
type Interface interface {
	// ApplyManifests applies multi-document YAML using server-side apply.
	ApplyManifests(ctx context.Context, manifests []byte, fieldManager string) error

	// CreateSecret creates or updates a secret.
	CreateSecret(ctx context.Context, secret *corev1.Secret) error

	// SecretExists reports whether a secret exists.
	SecretExists(ctx context.Context, namespace, name string) (bool, error)

	// GetSecretData retrieves one key from a secret.
	GetSecretData(ctx context.Context, namespace, name, key string) ([]byte, error)

	// APIReady reports whether the API server answers /readyz.
	APIReady(ctx context.Context) (bool, string, error)

	// DeploymentExists reports whether a deployment exists.
	DeploymentExists(ctx context.Context, namespace, name string) (bool, error)

	// DeploymentReady reports whether a deployment has all replicas available.
	DeploymentReady(ctx context.Context, namespace, name string) (bool, string, error)

	// DaemonSetExists reports whether a daemonset exists.
	DaemonSetExists(ctx context.Context, namespace, name string) (bool, error)

	// DaemonSetReady reports whether a daemonset is fully rolled out.
	DaemonSetReady(ctx context.Context, namespace, name string) (bool, string, error)

	// NodeReady reports whether the named node has condition Ready=True.
	NodeReady(ctx context.Context, name string) (bool, string, error)

	// NodesReady returns how many nodes are Ready out of the total.
	NodesReady(ctx context.Context) (ready, total int, err error)

	// PodsHealthy reports whether all pods in a namespace are running or
	// completed.
	PodsHealthy(ctx context.Context, namespace string) (bool, string, error)

	// ApplicationExists reports whether a GitOps Application object exists.
	ApplicationExists(ctx context.Context, namespace, name string) (bool, error)

	// ApplicationStatus returns the sync and health state of an Application.
	ApplicationStatus(ctx context.Context, namespace, name string) (ApplicationStatus, error)
}

// applicationGVR identifies Argo CD Application objects.
var applicationGVR = schema.GroupVersionResource{
	Group:    "argoproj.io",
	Version:  "v1alpha1",
	Resource: "applications",
}

// client implements Interface using k8s.io/client-go.
type client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
	mapper    *restmapper.DeferredDiscoveryRESTMapper
}

// NewFromKubeconfig creates a client from kubeconfig bytes, avoiding the
// need to write the kubeconfig to disk first.
func NewFromKubeconfig(kubeconfig []byte) (Interface, error) {
	restConfig, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST config from kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	discoveryClient, err := discovery.NewDiscoveryClientForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery client: %w", err)
	}
	mapper := restmapper.NewDeferredDiscoveryRESTMapper(memory.NewMemCacheClient(discoveryClient))

	return &client{
		clientset: clientset,
		dynamic:   dynamicClient,
		mapper:    mapper,
	}, nil
}

func (c *client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	secrets := c.clientset.CoreV1().Secrets(secret.Namespace)
	_, err := secrets.Create(ctx, secret, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		_, err = secrets.Update(ctx, secret, metav1.UpdateOptions{})
	}
	if err != nil {
		return fmt.Errorf("failed to create secret %s/%s: %w", secret.Namespace, secret.Name, err)
	}
	return nil
}

func (c *client) SecretExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) GetSecretData(ctx context.Context, namespace, name, key string) ([]byte, error) {
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}

	data, ok := secret.Data[key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in secret %s/%s", key, namespace, name)
	}
	return data, nil
}

func (c *client) APIReady(ctx context.Context) (bool, string, error) {
	body, err := c.clientset.Discovery().RESTClient().Get().AbsPath("/readyz").DoRaw(ctx)
	if err != nil {
		return false, fmt.Sprintf("API server not ready: %v", err), nil
	}
	return true, "API server ready: " + string(body), nil
}

func (c *client) ApplicationExists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := c.dynamic.Resource(applicationGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *client) ApplicationStatus(ctx context.Context, namespace, name string) (ApplicationStatus, error) {
	obj, err := c.dynamic.Resource(applicationGVR).Namespace(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return ApplicationStatus{}, fmt.Errorf("failed to get application %s/%s: %w", namespace, name, err)
	}
	return applicationStatusFrom(obj), nil
}

func applicationStatusFrom(obj *unstructured.Unstructured) ApplicationStatus {
	sync, _, _ := unstructured.NestedString(obj.Object, "status", "sync", "status")
	health, _, _ := unstructured.NestedString(obj.Object, "status", "health", "status")
	return ApplicationStatus{Sync: sync, Health: health}
}
