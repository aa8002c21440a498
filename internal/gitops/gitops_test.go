package gitops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"sigs.k8s.io/yaml"

	"github.com/zerotouch/ztboot/internal/helm"
	"github.com/zerotouch/ztboot/internal/k8s"
)

func TestControllerValues(t *testing.T) {
	t.Parallel()

	t.Run("without admin password", func(t *testing.T) {
		t.Parallel()
		values := ControllerValues("")
		assert.NotContains(t, values, "configs")

		dex, ok := values["dex"].(helm.Values)
		require.True(t, ok)
		assert.Equal(t, false, dex["enabled"])
	})

	t.Run("with admin password hash", func(t *testing.T) {
		t.Parallel()
		values := ControllerValues("$2a$10$abcdef")
		configs, ok := values["configs"].(helm.Values)
		require.True(t, ok)
		secret, ok := configs["secret"].(helm.Values)
		require.True(t, ok)
		assert.Equal(t, "$2a$10$abcdef", secret["argocdServerAdminPassword"])
		assert.NotEmpty(t, secret["argocdServerAdminPasswordMtime"])
	})
}

func TestHashAdminPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashAdminPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse battery staple")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("wrong")))
}

func TestCNIValues(t *testing.T) {
	t.Parallel()

	withPrism := CNIValues(true)
	assert.Equal(t, "127.0.0.1", withPrism["k8sServiceHost"])
	assert.Equal(t, "7445", withPrism["k8sServicePort"])

	withoutPrism := CNIValues(false)
	assert.NotContains(t, withoutPrism, "k8sServiceHost")

	ipam, ok := withoutPrism["ipam"].(helm.Values)
	require.True(t, ok)
	assert.Equal(t, "kubernetes", ipam["mode"])
}

func TestRootApplicationManifest(t *testing.T) {
	t.Parallel()

	t.Run("requires repo URL", func(t *testing.T) {
		t.Parallel()
		_, err := RootApplicationManifest("", "", "")
		require.Error(t, err)
	})

	t.Run("defaults revision and path", func(t *testing.T) {
		t.Parallel()
		manifest, err := RootApplicationManifest("https://git.example.com/platform.git", "", "")
		require.NoError(t, err)

		var app map[string]any
		require.NoError(t, yaml.Unmarshal(manifest, &app))

		spec := app["spec"].(map[string]any)
		source := spec["source"].(map[string]any)
		assert.Equal(t, "https://git.example.com/platform.git", source["repoURL"])
		assert.Equal(t, "HEAD", source["targetRevision"])
		assert.Equal(t, ".", source["path"])

		metadata := app["metadata"].(map[string]any)
		assert.Equal(t, RootApplicationName, metadata["name"])
		assert.Equal(t, Namespace, metadata["namespace"])
	})
}

func TestRepoCredentialSecret(t *testing.T) {
	t.Parallel()

	secret := RepoCredentialSecret("https://git.example.com/platform.git", "bootstrap", "tok")
	assert.Equal(t, RepoCredentialSecretName, secret.Name)
	assert.Equal(t, Namespace, secret.Namespace)
	assert.Equal(t, "repository", secret.Labels["argocd.argoproj.io/secret-type"])
	assert.Equal(t, "tok", secret.StringData["password"])
}

func TestControllerHealthy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("all components ready", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		for _, name := range ControllerComponents {
			fake.Deployments[Namespace+"/"+name] = true
		}
		healthy, observation, err := ControllerHealthy(ctx, fake)
		require.NoError(t, err)
		assert.True(t, healthy)
		assert.Equal(t, "gitops controller healthy", observation)
	})

	t.Run("one deployment pending", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		for _, name := range ControllerComponents {
			fake.Deployments[Namespace+"/"+name] = true
		}
		fake.Deployments[Namespace+"/argocd-repo-server"] = false

		healthy, observation, err := ControllerHealthy(ctx, fake)
		require.NoError(t, err)
		assert.False(t, healthy)
		assert.Contains(t, observation, "argocd-repo-server")
	})

	t.Run("unhealthy pods block", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		for _, name := range ControllerComponents {
			fake.Deployments[Namespace+"/"+name] = true
		}
		fake.UnhealthyPods[Namespace] = "argocd-application-controller-0 (Pending)"

		healthy, observation, err := ControllerHealthy(ctx, fake)
		require.NoError(t, err)
		assert.False(t, healthy)
		assert.Contains(t, observation, "application-controller")
	})
}

func TestRootApplicationSynced(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing application is observed, not an error", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		synced, observation, err := RootApplicationSynced(ctx, fake)
		require.NoError(t, err)
		assert.False(t, synced)
		assert.Contains(t, observation, "not readable")
	})

	t.Run("synced and healthy", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		fake.Applications[Namespace+"/"+RootApplicationName] = k8s.ApplicationStatus{Sync: "Synced", Health: "Healthy"}
		synced, observation, err := RootApplicationSynced(ctx, fake)
		require.NoError(t, err)
		assert.True(t, synced)
		assert.Contains(t, observation, "sync=Synced")
	})

	t.Run("out of sync", func(t *testing.T) {
		t.Parallel()
		fake := k8s.NewFake()
		fake.Applications[Namespace+"/"+RootApplicationName] = k8s.ApplicationStatus{Sync: "OutOfSync", Health: "Progressing"}
		synced, _, err := RootApplicationSynced(ctx, fake)
		require.NoError(t, err)
		assert.False(t, synced)
	})
}
