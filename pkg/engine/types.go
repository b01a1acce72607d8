package engine

import "github.com/google/uuid"

// DefaultProfile is the profile name that resolves to the configured default profile.
const DefaultProfile = "default"

// RunConfig is the read-only context of one invocation.
type RunConfig struct {
	// ActiveProfile is the profile selected on the command line.
	ActiveProfile string

	// InvocationID identifies this invocation in logs and traces.
	InvocationID string
}

// NewRunConfig creates the run configuration for one invocation.
// An empty profile selects DefaultProfile.
func NewRunConfig(profile string) RunConfig {
	if profile == "" {
		profile = DefaultProfile
	}
	return RunConfig{
		ActiveProfile: profile,
		InvocationID:  uuid.NewString(),
	}
}

// Asp is a deployable resource unit of a project.
type Asp struct {
	Project  string `json:"project"`
	Resource string `json:"resource"`
}

// StateChange is the transition of one instance caused by a mutation.
type StateChange struct {
	InstanceID    string `json:"instance_id"`
	PreviousState string `json:"previous_state"`
	CurrentState  string `json:"current_state"`
}

// Instance describes one instance of a provider.
type Instance struct {
	InstanceID   string            `json:"instance_id"`
	Name         string            `json:"name,omitempty"`
	State        string            `json:"state"`
	InstanceType string            `json:"instance_type,omitempty"`
	PrivateIP    string            `json:"private_ip,omitempty"`
	PublicIP     string            `json:"public_ip,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// Address returns the IP address used to reach the instance.
func (i Instance) Address(public bool) string {
	if public {
		return i.PublicIP
	}
	return i.PrivateIP
}
