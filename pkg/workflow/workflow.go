package workflow

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/openfroyo/ceres/pkg/config"
	"github.com/openfroyo/ceres/pkg/console"
	"github.com/openfroyo/ceres/pkg/engine"
	"github.com/openfroyo/ceres/pkg/output"
	"github.com/openfroyo/ceres/pkg/policy"
	"github.com/openfroyo/ceres/pkg/telemetry"
)

// Action is an instance lifecycle mutation.
type Action string

const (
	ActionTerminate Action = "terminate"
	ActionStop      Action = "stop"
	ActionStart     Action = "start"
)

// Destructive reports whether the action needs explicit confirmation.
func (a Action) Destructive() bool {
	return a == ActionTerminate || a == ActionStop
}

// ConfirmationAnswer is the answer the operator must type to confirm.
const ConfirmationAnswer = "yes"

// ConfirmationPrompt returns the prompt shown before a destructive action.
func ConfirmationPrompt(a Action) string {
	return fmt.Sprintf("Going to %s instances. Please type '%s' to continue: ", a, ConfirmationAnswer)
}

// ProfileResolver returns a profile by name.
type ProfileResolver interface {
	Profile(name string) (config.Profile, error)
}

// ProviderFactory builds the provider of a profile.
type ProviderFactory func(ctx context.Context, cfg *config.ProviderConfig) (engine.Provider, error)

// Guard vets an operation on instances before it runs.
type Guard interface {
	Check(ctx context.Context, input policy.Input) error
}

// Request describes one mutation.
type Request struct {
	// Action is the mutation to apply.
	Action Action

	// Dry validates the mutation without committing it. No confirmation is asked.
	Dry bool

	// Yes skips the confirmation prompt.
	Yes bool

	// Args are instance ids, or the single argument "-" to read ids from stdin.
	Args []string

	// Output selects the format of the rendered state changes.
	Output output.Type
}

// Workflow resolves a provider from the active profile, gates the mutation,
// executes it once and renders the resulting state changes.
type Workflow struct {
	Profiles    ProfileResolver
	NewProvider ProviderFactory
	Confirmer   engine.Confirmer

	// Guard, if set, is checked once the targets are known, dry runs included.
	Guard Guard

	Stdin  io.Reader
	Stdout io.Writer
}

// Run executes and renders one mutation.
func (w *Workflow) Run(ctx context.Context, rc engine.RunConfig, req Request) error {
	if err := output.Require(req.Output, output.TypeHuman, output.TypeJSON); err != nil {
		return err
	}

	changes, err := w.Execute(ctx, rc, req)
	if err != nil {
		return err
	}

	telemetry.FromContext(ctx).Debug("Outputting instance state changes")
	return output.StateChanges(w.Stdout, req.Output, changes)
}

// Execute resolves, gates and executes one mutation and returns the state changes.
func (w *Workflow) Execute(ctx context.Context, rc engine.RunConfig, req Request) ([]engine.StateChange, error) {
	logger := telemetry.FromContext(ctx).NewComponentLogger("workflow").
		WithField("action", string(req.Action))

	profile, provider, err := Resolve(ctx, w.Profiles, w.NewProvider, rc.ActiveProfile)
	if err != nil {
		return nil, err
	}

	if err := w.gate(ctx, req, logger); err != nil {
		return nil, err
	}

	ids, err := console.ReadInstanceIDs(req.Args, w.Stdin)
	if err != nil {
		return nil, engine.Wrap(err, engine.KindFailedToReadInstanceIDs, "")
	}

	if err := check(ctx, w.Guard, rc, profile, string(req.Action), req.Dry, ids); err != nil {
		return nil, err
	}

	logger.WithField("instances", len(ids)).WithField("dry", req.Dry).Info("Changing instance state")
	return w.execute(ctx, provider, req, ids)
}

// Resolve looks up the named profile and builds its provider.
func Resolve(ctx context.Context, profiles ProfileResolver, newProvider ProviderFactory, name string) (config.Profile, engine.Provider, error) {
	profile, err := profiles.Profile(name)
	if err != nil {
		return config.Profile{}, nil, engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}
	if profile.Provider == nil {
		return config.Profile{}, nil, engine.NewError(engine.KindConfigMissingInProfile, "provider")
	}

	provider, err := newProvider(ctx, profile.Provider)
	if err != nil {
		return config.Profile{}, nil, engine.Wrap(err, engine.KindFailedToLoadProfile, "")
	}
	return profile, provider, nil
}

// check runs guard, if any, for an operation on ids.
func check(ctx context.Context, guard Guard, rc engine.RunConfig, profile config.Profile, action string, dry bool, ids []string) error {
	if guard == nil {
		return nil
	}
	return guard.Check(ctx, policy.Input{
		Action:       action,
		Dry:          dry,
		Profile:      profile.Name,
		Provider:     profile.Provider.Type,
		Region:       profile.Provider.Region,
		InstanceIDs:  ids,
		InvocationID: rc.InvocationID,
	})
}

func (w *Workflow) gate(ctx context.Context, req Request, logger *telemetry.Logger) error {
	switch {
	case req.Dry:
		logger.Warn("Running in dry mode -- no changes will be executed.")
		return nil
	case req.Yes || !req.Action.Destructive():
		return nil
	}

	ok, err := w.Confirmer.Confirm(ConfirmationPrompt(req.Action), ConfirmationAnswer)
	if err != nil {
		return engine.Wrap(err, engine.KindConfirmationAborted, string(req.Action))
	}
	if !ok {
		return engine.NewError(engine.KindConfirmationAborted, string(req.Action))
	}
	return nil
}

func (w *Workflow) execute(ctx context.Context, p engine.Provider, req Request, ids []string) ([]engine.StateChange, error) {
	ctx, span := telemetry.StartSpan(ctx, "provider."+string(req.Action),
		telemetry.AttrProviderName.String(p.Name()),
		attribute.Bool("dry", req.Dry),
		attribute.Int("instances", len(ids)),
	)
	defer span.End()

	metrics := telemetry.MetricsFromContext(ctx)
	start := time.Now()

	var (
		changes []engine.StateChange
		err     error
	)
	switch req.Action {
	case ActionTerminate:
		changes, err = p.TerminateInstances(ctx, req.Dry, ids)
	case ActionStop:
		changes, err = p.StopInstances(ctx, req.Dry, ids)
	case ActionStart:
		changes, err = p.StartInstances(ctx, req.Dry, ids)
	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}

	metrics.RecordProviderCall(p.Name(), string(req.Action), time.Since(start))
	if err != nil {
		metrics.RecordProviderError(p.Name(), string(req.Action))
		telemetry.RecordError(span, err)
		return nil, engine.Wrap(err, engine.KindProviderFailed, string(req.Action))
	}

	telemetry.RecordSuccess(span)
	return changes, nil
}
