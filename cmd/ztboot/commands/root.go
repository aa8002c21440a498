// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the ztboot CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ztboot",
		Short:         "Bootstrap a GitOps-managed Kubernetes platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Bootstrap())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
