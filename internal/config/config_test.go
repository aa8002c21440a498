package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduction() *Options {
	return &Options{
		Mode:        ModeProduction,
		Server:      "192.168.10.10",
		Password:    "initial-secret",
		ClusterName: "platform",
	}
}

func TestValidate_Production(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, validProduction().Validate())
	})

	t.Run("missing server", func(t *testing.T) {
		t.Parallel()
		o := validProduction()
		o.Server = ""
		err := o.Validate()
		require.Error(t, err)
		var invalid *InvalidArgumentsError
		assert.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), "--server")
	})

	t.Run("missing password", func(t *testing.T) {
		t.Parallel()
		o := validProduction()
		o.Password = ""
		assert.Error(t, o.Validate())
	})

	t.Run("workers without worker password", func(t *testing.T) {
		t.Parallel()
		o := validProduction()
		o.WorkerNodes = []WorkerNode{{Name: "w1", Address: "192.168.10.20"}}
		err := o.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--worker-password")
	})
}

func TestValidate_Preview(t *testing.T) {
	t.Parallel()
	o := &Options{Mode: ModePreview, ClusterName: "preview"}
	assert.NoError(t, o.Validate())
}

func TestValidate_UnknownMode(t *testing.T) {
	t.Parallel()
	o := &Options{Mode: "staging", ClusterName: "x"}
	err := o.Validate()
	require.Error(t, err)
	var invalid *InvalidArgumentsError
	assert.ErrorAs(t, err, &invalid)
}

func TestParseWorkerNodes(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		nodes, err := ParseWorkerNodes("")
		require.NoError(t, err)
		assert.Empty(t, nodes)
	})

	t.Run("multiple entries", func(t *testing.T) {
		t.Parallel()
		nodes, err := ParseWorkerNodes("w1:10.0.0.1, w2:10.0.0.2")
		require.NoError(t, err)
		require.Len(t, nodes, 2)
		assert.Equal(t, WorkerNode{Name: "w1", Address: "10.0.0.1"}, nodes[0])
		assert.Equal(t, WorkerNode{Name: "w2", Address: "10.0.0.2"}, nodes[1])
	})

	t.Run("missing address", func(t *testing.T) {
		t.Parallel()
		_, err := ParseWorkerNodes("w1")
		require.Error(t, err)
		var invalid *InvalidArgumentsError
		assert.ErrorAs(t, err, &invalid)
	})

	t.Run("duplicate names", func(t *testing.T) {
		t.Parallel()
		_, err := ParseWorkerNodes("w1:10.0.0.1,w1:10.0.0.2")
		require.Error(t, err)
	})
}

func TestLoadTimeouts_Defaults(t *testing.T) {
	timeouts := LoadTimeouts()
	assert.Equal(t, 5, timeouts.RetryAttempts)
	assert.Positive(t, timeouts.EtcdBootstrap)
	assert.Positive(t, timeouts.PollInterval)
}

func TestLoadTimeouts_EnvOverride(t *testing.T) {
	t.Setenv("ZTBOOT_TIMEOUT_API_SERVER", "90s")
	t.Setenv("ZTBOOT_RETRY_MAX_ATTEMPTS", "2")
	timeouts := LoadTimeouts()
	assert.Equal(t, "1m30s", timeouts.APIServer.String())
	assert.Equal(t, 2, timeouts.RetryAttempts)
}

func TestLoadTimeouts_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("ZTBOOT_TIMEOUT_API_SERVER", "not-a-duration")
	timeouts := LoadTimeouts()
	assert.Equal(t, "5m0s", timeouts.APIServer.String())
}
