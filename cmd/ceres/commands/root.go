package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/modules"
)

// Execute runs the command named by the process arguments.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	d := modules.NewDispatcher(newRootCommand(version, commit, buildDate), Registry(), modules.Options{
		Version: version,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	})
	return d.Execute(ctx, os.Args[1:])
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "ceres",
		Short: "Ceres - operations tool for infrastructure projects and cloud instances",
		Long: `Ceres is an operator's command line tool for infrastructure projects.

Features:
  - Discovers deployable resources (ASPs) in a local projects tree
  - Lists, terminates, stops and starts cloud instances with confirmation guards
  - Runs shell commands on instances over SSH
  - Checks instance operations against Rego policies
  - Named profiles bundle base directories, provider credentials and ssh settings`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}
}
