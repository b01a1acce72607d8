package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/console"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/output"
	"github.com/openfroyo/ceres/pkg/policy"
	"github.com/openfroyo/ceres/pkg/providers"
	"github.com/openfroyo/ceres/pkg/telemetry"
	"github.com/openfroyo/ceres/pkg/workflow"
)

// yesFlag skips the confirmation of destructive actions.
const yesFlag = "yes-i-really-really-mean-it"

type confirmerFactory func(inv *modules.Invocation) engine.Confirmer

type guardFactory func(ctx context.Context, cfg *config.Config) (workflow.Guard, error)

// instanceDeps are the collaborators of the instances modules.
type instanceDeps struct {
	newProvider  workflow.ProviderFactory
	newConfirmer confirmerFactory
	newGuard     guardFactory
	newDialer    func(insecure bool) workflow.Dialer
}

func defaultInstanceDeps() instanceDeps {
	return instanceDeps{
		newProvider:  providers.New,
		newConfirmer: terminalConfirmer,
		newGuard:     policyGuard,
		newDialer:    workflow.SSHDialer,
	}
}

// terminalConfirmer asks on the controlling terminal when stdin carries the
// instance ids, and reads the answer from stdin otherwise.
func terminalConfirmer(inv *modules.Invocation) engine.Confirmer {
	if f, ok := inv.Stdin.(*os.File); ok && console.ReadsStdin(inv.Args) {
		return console.NewTerminalConfirmer(f, inv.Stderr)
	}
	return console.NewLineConfirmer(inv.Stdin, inv.Stderr)
}

// policyGuard builds the policy engine configured in cfg. Without custom policies
// and with the built-in ones disabled there is no guard.
func policyGuard(ctx context.Context, cfg *config.Config) (workflow.Guard, error) {
	if len(cfg.Policy.Paths) == 0 && cfg.Policy.DisableBuiltin {
		return nil, nil
	}

	logger := telemetry.FromContext(ctx).Zerolog()
	eng, err := policy.NewEngine(ctx, logger, !cfg.Policy.DisableBuiltin)
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToLoadPolicies, "")
	}
	if err := eng.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToLoadPolicies, "")
	}
	return eng, nil
}

// loadConfig returns the configuration and policy guard of an invocation.
func loadConfig(ctx context.Context, inv *modules.Invocation, newGuard guardFactory) (*config.Config, workflow.Guard, error) {
	cfg, err := inv.Config()
	if err != nil {
		return nil, nil, engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}
	guard, err := newGuard(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, guard, nil
}

type instancesModule struct {
	action workflow.Action
	deps   instanceDeps

	dry        bool
	yes        bool
	outputType string
}

func newInstancesModule(action workflow.Action, deps instanceDeps) *instancesModule {
	return &instancesModule{action: action, deps: deps}
}

func (m *instancesModule) Command() *cobra.Command {
	action := string(m.action)
	title := strings.ToUpper(action[:1]) + action[1:]
	cmd := &cobra.Command{
		Use:   action + " <instance_id>... | -",
		Short: title + " instances",
		Long: fmt.Sprintf(`%s instances of the provider configured in the active profile.

Instance ids are given as arguments, or read from stdin when the only argument
is "-". Stdin holds a YAML or JSON list of ids or of records with an
"instance_id" field, or ids separated by whitespace.

With --dry the request is validated by the provider without changing anything.
Configured policies are checked before the provider is called, dry runs included.`, title),
		Example: fmt.Sprintf(`  # Preview the change
  ceres instances %[1]s --dry i-0123456789abcdef0

  # Read ids from a file
  ceres instances %[1]s - < instances.json`, action),
	}

	cmd.Flags().BoolVarP(&m.dry, "dry", "d", false, "validate the request without changing any instance")
	if m.action.Destructive() {
		cmd.Flags().BoolVar(&m.yes, yesFlag, false, "do not ask for confirmation")
		cmd.MarkFlagsMutuallyExclusive("dry", yesFlag)
	}
	cmd.Flags().StringVarP(&m.outputType, "output", "o", string(output.TypeHuman),
		"output format ("+strings.Join(output.TypeNames(output.Types...), "|")+")")
	_ = cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(output.TypeNames(output.TypeHuman, output.TypeJSON), cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

func (m *instancesModule) Call(ctx context.Context, inv *modules.Invocation) error {
	outputType, err := output.ParseType(m.outputType)
	if err != nil {
		return err
	}
	if err := output.Require(outputType, output.TypeHuman, output.TypeJSON); err != nil {
		return err
	}

	cfg, guard, err := loadConfig(ctx, inv, m.deps.newGuard)
	if err != nil {
		return err
	}

	wf := &workflow.Workflow{
		Profiles:    cfg,
		NewProvider: m.deps.newProvider,
		Confirmer:   m.deps.newConfirmer(inv),
		Guard:       guard,
		Stdin:       inv.Stdin,
		Stdout:      inv.Stdout,
	}
	return wf.Run(ctx, inv.RunConfig, workflow.Request{
		Action: m.action,
		Dry:    m.dry,
		Yes:    m.yes,
		Args:   inv.Args,
		Output: outputType,
	})
}
