package engine

import "context"

// Provider is the cloud vendor capability boundary for instance lifecycle mutations.
// Implementations must treat every call as a single unit: they return either the full
// list of state changes or an error.
type Provider interface {
	// Name returns the provider variant, e.g. "aws".
	Name() string

	// TerminateInstances terminates the given instances. When dry is set the request
	// is validated but no change is committed.
	TerminateInstances(ctx context.Context, dry bool, ids []string) ([]StateChange, error)

	// StopInstances stops the given instances.
	StopInstances(ctx context.Context, dry bool, ids []string) ([]StateChange, error)

	// StartInstances starts the given instances.
	StartInstances(ctx context.Context, dry bool, ids []string) ([]StateChange, error)

	// DescribeInstances returns the given instances, or all instances when ids is empty.
	DescribeInstances(ctx context.Context, ids []string) ([]Instance, error)
}

// Confirmer asks the operator to confirm an irreversible action.
type Confirmer interface {
	// Confirm shows prompt and reports whether the operator answered exactly expected.
	Confirm(prompt, expected string) (bool, error)
}
