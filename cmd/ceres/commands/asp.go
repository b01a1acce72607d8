package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/discovery"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/output"
	"github.com/openfroyo/ceres/pkg/telemetry"
)

type aspListModule struct {
	baseDir    string
	outputType string
}

func newAspListModule() *aspListModule {
	return &aspListModule{}
}

func (m *aspListModule) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ansible setup packages",
		Long: `List the deployable resources (ASPs) of all projects below a base directory.

A resource is a directory below <project>/ansible-setup-package/resources that
contains a Makefile, in a project whose resources directory holds a project.cfg.
Hidden directories and paths excluded by .gitignore or .ignore files are skipped.`,
		Example: `  # List resources below the base directory of the active profile
  ceres infrastructure asp list

  # List resources below another directory as JSON
  ceres infrastructure asp list --base-dir ~/projects -o json`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVar(&m.baseDir, "base-dir", "", "base directory to search (default: local_base_dir of the profile)")
	cmd.Flags().StringVarP(&m.outputType, "output", "o", string(output.TypeHuman),
		"output format ("+strings.Join(output.TypeNames(output.Types...), "|")+")")
	_ = cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(output.TypeNames(output.Types...), cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (m *aspListModule) Call(ctx context.Context, inv *modules.Invocation) error {
	outputType, err := output.ParseType(m.outputType)
	if err != nil {
		return err
	}

	baseDir, err := m.resolveBaseDir(inv)
	if err != nil {
		return err
	}

	logger := telemetry.FromContext(ctx)
	logger.WithField("base_dir", baseDir).Debug("Searching for ASPs")

	paths, err := discovery.FindAsps(baseDir)
	if err != nil {
		return err
	}

	asps, err := discovery.AspsFromPaths(baseDir, paths)
	if err != nil {
		return err
	}
	telemetry.MetricsFromContext(ctx).SetAspsDiscovered(len(asps))
	logger.WithField("asps", len(asps)).Debug("Found ASPs")

	return output.Asps(inv.Stdout, outputType, asps)
}

func (m *aspListModule) resolveBaseDir(inv *modules.Invocation) (string, error) {
	if m.baseDir != "" {
		return m.baseDir, nil
	}

	cfg, err := inv.Config()
	if err != nil {
		return "", engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}
	profile, err := cfg.Profile(inv.RunConfig.ActiveProfile)
	if err != nil {
		return "", engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}
	if profile.LocalBaseDir == "" {
		return "", engine.NewError(engine.KindNoLocalBaseDir, "")
	}
	return profile.LocalBaseDir, nil
}
