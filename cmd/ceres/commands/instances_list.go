package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/console"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/output"
	"github.com/openfroyo/ceres/pkg/workflow"
)

type instancesListModule struct {
	deps instanceDeps

	outputType string
}

func newInstancesListModule(deps instanceDeps) *instancesListModule {
	return &instancesListModule{deps: deps}
}

func (m *instancesListModule) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [<instance_id>... | -]",
		Short: "List instances",
		Long: `List instances of the provider configured in the active profile. Without
arguments all instances are listed.

The json output is a list of records with an "instance_id" field and can be
piped into the other instances commands.`,
		Example: `  # Stop every instance listed by the previous command
  ceres instances list -o json | ceres instances stop -`,
	}

	cmd.Flags().StringVarP(&m.outputType, "output", "o", string(output.TypeHuman),
		"output format ("+strings.Join(output.TypeNames(output.Types...), "|")+")")
	_ = cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(output.TypeNames(output.Types...), cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (m *instancesListModule) Call(ctx context.Context, inv *modules.Invocation) error {
	outputType, err := output.ParseType(m.outputType)
	if err != nil {
		return err
	}

	cfg, err := inv.Config()
	if err != nil {
		return engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}

	ids, err := console.ReadInstanceIDs(inv.Args, inv.Stdin)
	if err != nil {
		return engine.Wrap(err, engine.KindFailedToReadInstanceIDs, "")
	}

	instances, err := workflow.List(ctx, cfg, m.deps.newProvider, inv.RunConfig, ids)
	if err != nil {
		return err
	}

	return output.Instances(inv.Stdout, outputType, instances)
}
