package handlers

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/ledger"
	"github.com/zerotouch/ztboot/internal/phase"
)

func TestBootstrapRejectsInvalidArguments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		opts BootstrapOptions
	}{
		{
			name: "production without server",
			opts: BootstrapOptions{Mode: "production", ClusterName: "c"},
		},
		{
			name: "unknown mode",
			opts: BootstrapOptions{Mode: "staging", ClusterName: "c"},
		},
		{
			name: "malformed worker list",
			opts: BootstrapOptions{Mode: "production", Server: "10.0.0.1", Password: "p", ClusterName: "c", WorkerNodes: "not-a-pair"},
		},
		{
			name: "empty cluster name",
			opts: BootstrapOptions{Mode: "preview"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Bootstrap(ctx, tt.opts)
			var invalid *config.InvalidArgumentsError
			require.ErrorAs(t, err, &invalid, "must fail before any side effect")
		})
	}
}

func TestBootstrapDryRunHasNoSideEffects(t *testing.T) {
	t.Setenv("AWS_REGION", "")
	t.Setenv("AWS_DEFAULT_REGION", "")
	t.Chdir(t.TempDir())

	err := Bootstrap(context.Background(), BootstrapOptions{
		Mode:         "preview",
		ClusterName:  "preview",
		PlatformRepo: "https://git.example.com/platform.git",
		LedgerFile:   "bootstrap-credentials.txt",
		DryRun:       true,
	})
	require.NoError(t, err)

	// Nothing written: no ledger, no access data.
	assert.NoFileExists(t, "bootstrap-credentials.txt")
	assert.NoFileExists(t, accessDataPath)
}

func TestPolicyName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abort", policyName(phase.Abort))
	assert.Equal(t, "warn-and-continue", policyName(phase.WarnAndContinue))
}

func TestPrintSummaryIncludesCredentialReport(t *testing.T) {
	session := &bootstrap.Session{
		Options: &config.Options{
			Mode:       config.ModePreview,
			LedgerFile: "bootstrap-credentials.txt",
		},
		Ledger: ledger.New(),
		History: []phase.Result{
			{Phase: "install-gitops-controller", Ordinal: 70, Outcome: phase.Success},
		},
	}
	session.Ledger.Append(ledger.Record{
		Category:     ledger.CategoryGitOps,
		Instructions: "Argo CD admin login.",
		Secret:       "s3cret",
	})

	out := captureStdout(t, func() { printSummary(session) })

	// The operator sees the rendered report, not just the file location.
	assert.Contains(t, out, ledger.CategoryGitOps)
	assert.Contains(t, out, "Argo CD admin login.")
	assert.Contains(t, out, "value: s3cret")
	assert.Contains(t, out, "bootstrap-credentials.txt")
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	require.NoError(t, w.Close())

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}
