package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/workflow"
)

type instancesRunModule struct {
	deps instanceDeps

	publicIP bool
	insecure bool
}

func newInstancesRunModule(deps instanceDeps) *instancesRunModule {
	return &instancesRunModule{deps: deps}
}

func (m *instancesRunModule) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <instance_id>... | - -- <command>...",
		Short: "Run a shell command on instances",
		Long: `Run a shell command on instances over SSH, one instance after another.

The ssh user, key, port and jump host come from the active profile. Output
lines are prefixed with the instance id. The first instance that cannot be
reached, or whose command exits with a non-zero status, stops the run.`,
		Example: `  # Check the uptime of two instances
  ceres instances run i-0123456789abcdef0 i-0fedcba9876543210 -- uptime

  # Restart a service on every listed instance
  ceres instances list -o json | ceres instances run - -- sudo systemctl restart nginx`,
		Args: func(cmd *cobra.Command, args []string) error {
			dash := cmd.ArgsLenAtDash()
			if dash < 0 || dash == len(args) {
				return fmt.Errorf("a command is required after --")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&m.publicIP, "public-ip", false, "connect to the public address of the instances")
	cmd.Flags().BoolVar(&m.insecure, "insecure-ignore-host-key", false, "do not verify the host keys of the instances")

	return cmd
}

func (m *instancesRunModule) Call(ctx context.Context, inv *modules.Invocation) error {
	dash := inv.Command.ArgsLenAtDash()
	if dash < 0 {
		dash = len(inv.Args)
	}

	cfg, guard, err := loadConfig(ctx, inv, m.deps.newGuard)
	if err != nil {
		return err
	}

	run := &workflow.RemoteRun{
		Profiles:    cfg,
		NewProvider: m.deps.newProvider,
		Dial:        m.deps.newDialer(m.insecure),
		Guard:       guard,
		Stdin:       inv.Stdin,
		Stdout:      inv.Stdout,
		Stderr:      inv.Stderr,
	}
	return run.Run(ctx, inv.RunConfig, workflow.RemoteRequest{
		Args:     inv.Args[:dash],
		Command:  strings.Join(inv.Args[dash:], " "),
		PublicIP: m.publicIP,
	})
}
