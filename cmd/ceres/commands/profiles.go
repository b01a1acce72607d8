package commands

import (
	"context"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/modules"
	"github.com/openfroyo/ceres/pkg/output"
)

type profilesListModule struct {
	outputType string
}

func newProfilesListModule() *profilesListModule {
	return &profilesListModule{}
}

func (m *profilesListModule) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured profiles",
		Long: `List the profiles of the configuration file. The default profile is marked
with an asterisk. Credentials are never printed.`,
		Args: cobra.NoArgs,
	}

	cmd.Flags().StringVarP(&m.outputType, "output", "o", string(output.TypeHuman),
		"output format ("+strings.Join(output.TypeNames(output.Types...), "|")+")")

	return cmd
}

func (m *profilesListModule) Call(ctx context.Context, inv *modules.Invocation) error {
	outputType, err := output.ParseType(m.outputType)
	if err != nil {
		return err
	}

	cfg, err := inv.Config()
	if err != nil {
		return err
	}

	var defaultName string
	if p, err := cfg.Profile(""); err == nil {
		defaultName = p.Name
	}

	names := cfg.ProfileNames()
	sort.Strings(names)

	summaries := make([]output.ProfileSummary, len(names))
	for i, name := range names {
		p := cfg.Profiles[name]
		summaries[i] = output.ProfileSummary{
			Name:         name,
			Default:      name == defaultName,
			LocalBaseDir: p.LocalBaseDir,
		}
		if p.Provider != nil {
			summaries[i].Provider = p.Provider.Type
			summaries[i].Region = p.Provider.Region
		}
	}

	return output.Profiles(inv.Stdout, outputType, summaries)
}
