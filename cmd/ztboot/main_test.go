package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "invalid arguments",
			err:  &config.InvalidArgumentsError{Reason: "missing --server"},
			want: 2,
		},
		{
			name: "wrapped invalid arguments",
			err:  fmt.Errorf("resolving: %w", &config.InvalidArgumentsError{Reason: "bad mode"}),
			want: 2,
		},
		{
			name: "interrupted",
			err:  fmt.Errorf("%w during phase install-cni", bootstrap.ErrInterrupted),
			want: 130,
		},
		{
			name: "context canceled",
			err:  context.Canceled,
			want: 130,
		},
		{
			name: "aborted phase",
			err:  &bootstrap.AbortError{Phase: "bootstrap-etcd", Ordinal: 20, Diagnostic: "etcd not healthy"},
			want: 1,
		},
		{
			name: "generic error",
			err:  errors.New("boom"),
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
