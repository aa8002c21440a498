package handlers

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/ledger"
)

func TestPersistAccessData(t *testing.T) {
	t.Chdir(t.TempDir())

	session := &bootstrap.Session{
		Options: &config.Options{
			Mode:        config.ModePreview,
			ClusterName: "preview",
		},
		Ledger:        ledger.New(),
		AdminPassword: "s3cret",
	}

	require.NoError(t, persistAccessData(context.Background(), session))

	content, err := os.ReadFile(accessDataPath)
	require.NoError(t, err)

	var data clusterAccessData
	require.NoError(t, yaml.Unmarshal(content, &data))
	assert.Equal(t, "preview", data.ClusterName)
	assert.Equal(t, "preview", data.Mode)
	require.NotNil(t, data.GitOps)
	assert.Equal(t, "admin", data.GitOps.Username)
	assert.Equal(t, "s3cret", data.GitOps.Password)
	assert.Empty(t, data.Kubeconfig)

	info, err := os.Stat(accessDataPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
