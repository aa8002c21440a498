// Package handlers implements the command execution logic behind the CLI.
package handlers

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/zerotouch/ztboot/internal/bootstrap"
	"github.com/zerotouch/ztboot/internal/config"
	"github.com/zerotouch/ztboot/internal/phase"
	"github.com/zerotouch/ztboot/internal/secretstore"
)

// BootstrapOptions are the raw flag values of the bootstrap command.
type BootstrapOptions struct {
	Mode           string
	Server         string
	Password       string
	WorkerNodes    string
	WorkerPassword string
	ClusterName    string
	PlatformRepo   string
	LedgerFile     string
	SecretsFile    string
	DryRun         bool
}

// Bootstrap resolves the session, wires the orchestrator and runs it.
func Bootstrap(ctx context.Context, opts BootstrapOptions) error {
	workers, err := config.ParseWorkerNodes(opts.WorkerNodes)
	if err != nil {
		return err
	}

	session, err := bootstrap.Resolve(&config.Options{
		Mode:           config.Mode(opts.Mode),
		Server:         opts.Server,
		Password:       opts.Password,
		WorkerNodes:    workers,
		WorkerPassword: opts.WorkerPassword,
		ClusterName:    opts.ClusterName,
		PlatformRepo:   opts.PlatformRepo,
		LedgerFile:     opts.LedgerFile,
		SecretsFile:    opts.SecretsFile,
		DryRun:         opts.DryRun,
	})
	if err != nil {
		return err
	}

	deps := bootstrap.DefaultDeps()
	if session.Env.AWSRegion != "" {
		store, storeErr := secretstore.NewClient(ctx, session.Env.AWSRegion)
		if storeErr != nil {
			log.Printf("Warning: parameter store unavailable: %v", storeErr)
		} else {
			deps.Store = store
		}
	}

	orchestrator := bootstrap.New(session, deps, phase.NewConsoleObserver())

	if opts.DryRun {
		printPlan(orchestrator)
		return nil
	}

	runErr := orchestrator.Run(ctx)
	printSummary(session)

	if accessErr := persistAccessData(ctx, session); accessErr != nil {
		log.Printf("Warning: failed to write access data: %v", accessErr)
	}

	return runErr
}

// printPlan shows the mode-filtered phase list without side effects.
func printPlan(o *bootstrap.Orchestrator) {
	mode := o.Session.Options.Mode
	phases := o.Phases()
	sort.SliceStable(phases, func(i, j int) bool { return phases[i].Ordinal < phases[j].Ordinal })

	fmt.Printf("Bootstrap plan (%s mode):\n", mode)
	for _, spec := range phases {
		if !spec.AppliesTo(mode) {
			continue
		}
		fmt.Printf("  %3d  %-28s on-failure: %s\n", spec.Ordinal, spec.Name, policyName(spec.Policy))
	}
}

func policyName(policy phase.FailurePolicy) string {
	if policy == phase.WarnAndContinue {
		return "warn-and-continue"
	}
	return "abort"
}

// printSummary outputs the per-phase outcomes and where credentials live.
func printSummary(session *bootstrap.Session) {
	if len(session.History) == 0 {
		return
	}

	fmt.Printf("\nBootstrap summary (%s mode):\n", session.Options.Mode)
	for _, result := range session.History {
		line := fmt.Sprintf("  %3d  %-28s %s  (%s)", result.Ordinal, result.Phase, result.Outcome, result.Duration.Round(10*time.Millisecond))
		if result.Diagnostic != "" && result.Outcome != phase.Success {
			line += "  " + result.Diagnostic
		}
		fmt.Println(line)
	}

	if session.Ledger.Len() > 0 {
		fmt.Printf("\n%s", session.Ledger.Render())
		fmt.Printf("\nCredentials ledger written to %s\n", session.Options.LedgerFile)
	}
	if len(session.Kubeconfig) > 0 && session.Options.Mode == config.ModeProduction {
		fmt.Printf("\nAccess your cluster:\n")
		fmt.Printf("  export KUBECONFIG=%s\n", session.KubeconfigPath())
		fmt.Printf("  kubectl get nodes\n")
	}
}
