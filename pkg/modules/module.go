package modules

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/engine"
)

// Module is a registered command.
type Module interface {
	// Command returns the descriptor of the module: name, help text and flags.
	// It is called exactly once, when the dispatcher is built.
	Command() *cobra.Command

	// Call runs the module.
	Call(ctx context.Context, inv *Invocation) error
}

// Parent is a module with nested modules.
type Parent interface {
	Module
	Subcommands() []Module
}

// Invocation is the input of one module call.
type Invocation struct {
	// Args are the positional arguments left after flag parsing.
	Args []string

	// Command is the parsed descriptor of the called module.
	Command *cobra.Command

	// RunConfig is the read-only context of this invocation.
	RunConfig engine.RunConfig

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	config    *config.Config
	configErr error
}

// Config returns the configuration loaded for this invocation, or the error
// loading it failed with. Modules that do not need the configuration never see
// that error.
func (i *Invocation) Config() (*config.Config, error) {
	return i.config, i.configErr
}

// Group is a module that only dispatches to its nested modules.
type Group struct {
	Name    string
	Short   string
	Long    string
	Modules []Module
}

// Command implements Module.
func (g *Group) Command() *cobra.Command {
	return &cobra.Command{
		Use:   g.Name,
		Short: g.Short,
		Long:  g.Long,
	}
}

// Call is reached only when no nested module matched.
func (g *Group) Call(ctx context.Context, inv *Invocation) error {
	if len(inv.Args) == 0 {
		return engine.NewError(engine.KindNoSubcommandSpecified, g.Name)
	}
	return engine.NewError(engine.KindNoSuchCommand, inv.Args[0])
}

// Subcommands implements Parent.
func (g *Group) Subcommands() []Module {
	return g.Modules
}
