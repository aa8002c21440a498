package k8s

import (
	"context"
	"fmt"
	"sync"

	corev1 "k8s.io/api/core/v1"
)

// Fake is an in-memory Interface for tests. Mutating calls are recorded so
// tests can assert that idempotent re-runs perform none.
type Fake struct {
	mu sync.Mutex

	// Observable state, set up by tests.
	Secrets        map[string][]byte // "ns/name/key" -> value
	Deployments    map[string]bool   // "ns/name" -> ready
	DaemonSets     map[string]bool   // "ns/name" -> ready
	Nodes          map[string]bool   // name -> ready
	Applications   map[string]ApplicationStatus
	UnhealthyPods  map[string]string // namespace -> observation
	APIServerReady bool

	// Mutation record.
	AppliedManifests []string
	CreatedSecrets   []string

	// ApplyErr, when set, fails ApplyManifests.
	ApplyErr error
}

// NewFake returns a Fake with a ready API server and empty state.
func NewFake() *Fake {
	return &Fake{
		Secrets:        map[string][]byte{},
		Deployments:    map[string]bool{},
		DaemonSets:     map[string]bool{},
		Nodes:          map[string]bool{},
		Applications:   map[string]ApplicationStatus{},
		UnhealthyPods:  map[string]string{},
		APIServerReady: true,
	}
}

// MarkNodeReady registers a node or flips its readiness. Test backends call
// it to mimic kubelet registration and CNI bring-up.
func (f *Fake) MarkNodeReady(name string, ready bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Nodes[name] = ready
}

// MutationCount returns how many mutating calls were made.
func (f *Fake) MutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.AppliedManifests) + len(f.CreatedSecrets)
}

func (f *Fake) ApplyManifests(_ context.Context, manifests []byte, fieldManager string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ApplyErr != nil {
		return f.ApplyErr
	}
	f.AppliedManifests = append(f.AppliedManifests, fieldManager+":"+string(manifests))
	return nil
}

func (f *Fake) CreateSecret(_ context.Context, secret *corev1.Secret) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := secret.Namespace + "/" + secret.Name
	f.CreatedSecrets = append(f.CreatedSecrets, key)
	for k, v := range secret.StringData {
		f.Secrets[key+"/"+k] = []byte(v)
	}
	for k, v := range secret.Data {
		f.Secrets[key+"/"+k] = v
	}
	return nil
}

func (f *Fake) SecretExists(_ context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := namespace + "/" + name + "/"
	for k := range f.Secrets {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) GetSecretData(_ context.Context, namespace, name, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.Secrets[namespace+"/"+name+"/"+key]
	if !ok {
		return nil, fmt.Errorf("key %s not found in secret %s/%s", key, namespace, name)
	}
	return v, nil
}

func (f *Fake) APIReady(context.Context) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.APIServerReady {
		return true, "API server ready", nil
	}
	return false, "API server not ready", nil
}

func (f *Fake) DeploymentExists(_ context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Deployments[namespace+"/"+name]
	return ok, nil
}

func (f *Fake) DeploymentReady(_ context.Context, namespace, name string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ready, ok := f.Deployments[namespace+"/"+name]
	if !ok {
		return false, fmt.Sprintf("deployment %s/%s not found", namespace, name), nil
	}
	if ready {
		return true, fmt.Sprintf("deployment %s/%s available", namespace, name), nil
	}
	return false, fmt.Sprintf("deployment %s/%s 0/1 available", namespace, name), nil
}

func (f *Fake) DaemonSetExists(_ context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.DaemonSets[namespace+"/"+name]
	return ok, nil
}

func (f *Fake) DaemonSetReady(_ context.Context, namespace, name string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ready, ok := f.DaemonSets[namespace+"/"+name]
	if !ok {
		return false, fmt.Sprintf("daemonset %s/%s not found", namespace, name), nil
	}
	if ready {
		return true, fmt.Sprintf("daemonset %s/%s ready", namespace, name), nil
	}
	return false, fmt.Sprintf("daemonset %s/%s rolling out", namespace, name), nil
}

func (f *Fake) NodeReady(_ context.Context, name string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ready, ok := f.Nodes[name]
	if !ok {
		return false, fmt.Sprintf("node %s not registered", name), nil
	}
	if ready {
		return true, fmt.Sprintf("node %s Ready", name), nil
	}
	return false, fmt.Sprintf("node %s not Ready", name), nil
}

func (f *Fake) NodesReady(context.Context) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ready := 0
	for _, r := range f.Nodes {
		if r {
			ready++
		}
	}
	return ready, len(f.Nodes), nil
}

func (f *Fake) PodsHealthy(_ context.Context, namespace string) (bool, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obs, ok := f.UnhealthyPods[namespace]; ok {
		return false, obs, nil
	}
	return true, "all pods healthy", nil
}

func (f *Fake) ApplicationExists(_ context.Context, namespace, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Applications[namespace+"/"+name]
	return ok, nil
}

func (f *Fake) ApplicationStatus(_ context.Context, namespace, name string) (ApplicationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.Applications[namespace+"/"+name]
	if !ok {
		return ApplicationStatus{}, fmt.Errorf("application %s/%s not found", namespace, name)
	}
	return status, nil
}

var _ Interface = (*Fake)(nil)
