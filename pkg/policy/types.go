package policy

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityInfo is for informational messages.
	SeverityInfo Severity = "info"

	// SeverityWarning is for warnings that should be reviewed.
	SeverityWarning Severity = "warning"

	// SeverityError is for errors that should block operations.
	SeverityError Severity = "error"

	// SeverityCritical is for critical violations that must be addressed immediately.
	SeverityCritical Severity = "critical"
)

// Blocks reports whether a violation of this severity denies the operation.
func (s Severity) Blocks() bool {
	return s == SeverityError || s == SeverityCritical
}

// Policy represents a policy rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code. The policy reports violations through
	// a "deny" set in its package.
	Rego string `json:"rego"`

	// Severity is the default severity for violations that do not carry one.
	Severity Severity `json:"severity"`

	// Source is the file the policy was loaded from. Empty for built-in policies.
	Source string `json:"source,omitempty"`
}

// Input is the document policies are evaluated against, available as "input" in Rego.
type Input struct {
	// Action is the mutation, e.g. "terminate".
	Action string `json:"action"`

	// Dry is true when the mutation is only validated.
	Dry bool `json:"dry"`

	// Profile is the name of the active profile.
	Profile string `json:"profile"`

	// Provider is the provider variant of the profile, e.g. "aws".
	Provider string `json:"provider"`

	// Region is the provider region of the profile.
	Region string `json:"region"`

	// InstanceIDs are the targets of the mutation.
	InstanceIDs []string `json:"instance_ids"`

	// InvocationID identifies the ceres run.
	InvocationID string `json:"invocation_id"`
}

// Violation represents a single policy violation.
type Violation struct {
	// Policy is the name of the policy that was violated.
	Policy string `json:"policy"`

	// Instance is the instance the violation refers to, if any.
	Instance string `json:"instance,omitempty"`

	// Message is a human-readable violation message.
	Message string `json:"message"`

	// Severity is the violation severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of evaluating all policies against one input.
type Result struct {
	// Allowed is false if any violation blocks the operation.
	Allowed bool `json:"allowed"`

	// Violations are all violations, blocking or not.
	Violations []Violation `json:"violations,omitempty"`
}

// Denials returns the violations that block the operation.
func (r *Result) Denials() []Violation {
	var denials []Violation
	for _, v := range r.Violations {
		if v.Severity.Blocks() {
			denials = append(denials, v)
		}
	}
	return denials
}
