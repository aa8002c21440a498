package helm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	t.Parallel()

	t.Run("later maps win", func(t *testing.T) {
		t.Parallel()
		merged := Merge(
			Values{"replicas": 1, "image": "a"},
			Values{"replicas": 3},
		)
		assert.Equal(t, 3, merged["replicas"])
		assert.Equal(t, "a", merged["image"])
	})

	t.Run("nested maps merge recursively", func(t *testing.T) {
		t.Parallel()
		merged := Merge(
			Values{"server": Values{"replicas": 1, "insecure": true}},
			Values{"server": Values{"replicas": 2}},
		)
		server, ok := merged["server"].(Values)
		require.True(t, ok)
		assert.Equal(t, 2, server["replicas"])
		assert.Equal(t, true, server["insecure"])
	})

	t.Run("scalar replaces map", func(t *testing.T) {
		t.Parallel()
		merged := Merge(
			Values{"config": Values{"a": 1}},
			Values{"config": "disabled"},
		)
		assert.Equal(t, "disabled", merged["config"])
	})
}

func TestToMap(t *testing.T) {
	t.Parallel()

	v := Values{
		"outer": Values{
			"inner": map[string]any{"leaf": "x"},
		},
	}
	plain := v.ToMap()

	outer, ok := plain["outer"].(map[string]any)
	require.True(t, ok)
	inner, ok := outer["inner"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "x", inner["leaf"])
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()

	original := Values{
		"ipam": map[string]any{"mode": "kubernetes"},
	}
	data, err := original.ToYAML()
	require.NoError(t, err)

	parsed, err := FromYAML(data)
	require.NoError(t, err)

	ipam, ok := parsed["ipam"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "kubernetes", ipam["mode"])
}

func TestGetChartSpec(t *testing.T) {
	t.Parallel()

	spec := GetChartSpec("cilium", "", "")
	assert.Equal(t, "https://helm.cilium.io", spec.Repository)
	assert.Equal(t, "1.18.5", spec.Version)

	overridden := GetChartSpec("argo-cd", "https://mirror.example.com/argo", "9.9.9")
	assert.Equal(t, "https://mirror.example.com/argo", overridden.Repository)
	assert.Equal(t, "argo-cd", overridden.Name)
	assert.Equal(t, "9.9.9", overridden.Version)

	unknown := GetChartSpec("nonexistent", "", "")
	assert.Empty(t, unknown.Name)
}
