// Package main is the entry point for the ztboot CLI.
//
// ztboot drives a bare control plane (Talos Linux in production, an
// ephemeral kind cluster in preview) to a GitOps-managed platform: machine
// config, etcd bootstrap, CNI, secret pre-seeding, GitOps controller install
// and root application seeding, with an auditable credentials ledger.
//
// For detailed usage information, run:
//
//	ztboot --help
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zerotouch/ztboot/cmd/ztboot/commands"
	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps failures to distinguishable codes: 2 for arguments rejected
// before any side effect, 130 for operator interrupt, 1 for everything else.
func exitCode(err error) int {
	var invalid *config.InvalidArgumentsError
	if errors.As(err, &invalid) {
		return 2
	}
	if errors.Is(err, bootstrap.ErrInterrupted) || errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
