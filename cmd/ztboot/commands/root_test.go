package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasExpectedSubcommands(t *testing.T) {
	t.Parallel()

	root := Root()

	names := map[string]bool{}
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["bootstrap"])
	assert.True(t, names["version"])
	assert.True(t, names["completion"])
}

func TestBootstrapFlagDefaults(t *testing.T) {
	t.Parallel()

	cmd := Bootstrap()

	tests := []struct {
		flag string
		want string
	}{
		{"mode", "production"},
		{"cluster-name", "platform"},
		{"ledger-file", "bootstrap-credentials.txt"},
		{"secrets-file", "secrets.yaml"},
		{"dry-run", "false"},
	}
	for _, tt := range tests {
		flag := cmd.Flags().Lookup(tt.flag)
		require.NotNil(t, flag, tt.flag)
		assert.Equal(t, tt.want, flag.DefValue, tt.flag)
	}
}
