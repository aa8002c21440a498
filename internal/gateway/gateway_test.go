package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerotouch/ztboot/internal/retry"
)

func TestExec_Success(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, ClassNone, res.Class)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.False(t, res.Started.IsZero())
	assert.False(t, res.Finished.IsZero())
}

func TestExec_FatalByDefault(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'unknown flag: --bogus' >&2; exit 64"},
	})
	require.Error(t, err)
	assert.Equal(t, 64, res.ExitCode)
	assert.Equal(t, ClassFatal, res.Class)
	assert.True(t, retry.IsFatal(err))

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.Stderr, "unknown flag")
}

func TestExec_TransientPattern(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo 'dial tcp 10.0.0.1:6443: connection refused' >&2; exit 1"},
	})
	require.Error(t, err)
	assert.Equal(t, ClassTransient, res.Class)
	assert.False(t, retry.IsFatal(err))
}

func TestExec_PerCallTransientPattern(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name:              "sh",
		Args:              []string{"-c", "echo 'etcd is not ready yet' >&2; exit 1"},
		TransientPatterns: []string{"etcd is not ready"},
	})
	require.Error(t, err)
	assert.Equal(t, ClassTransient, res.Class)
}

func TestExec_TimeoutIsTransient(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name:    "sleep",
		Args:    []string{"10"},
		Timeout: 50 * time.Millisecond,
	})
	require.Error(t, err)
	assert.Equal(t, ClassTransient, res.Class)
	assert.False(t, retry.IsFatal(err))
}

func TestExec_Stdin(t *testing.T) {
	t.Parallel()
	res, err := Exec{}.Run(context.Background(), Command{
		Name:  "cat",
		Stdin: []byte("piped"),
	})
	require.NoError(t, err)
	assert.Equal(t, "piped", res.Stdout)
}

func TestRecorder(t *testing.T) {
	t.Parallel()
	rec := &Recorder{}
	_, err := rec.Run(context.Background(), Command{Name: "talosctl", Args: []string{"bootstrap"}})
	require.NoError(t, err)
	_, err = rec.Run(context.Background(), Command{Name: "kind", Args: []string{"create", "cluster"}})
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "talosctl", calls[0].Name)
	assert.Equal(t, "kind", calls[1].Name)
	assert.Equal(t, 2, rec.CallCount())
}
