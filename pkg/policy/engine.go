package policy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"

	"github.com/openfroyo/ceres/pkg/engine"
)

// Engine compiles Rego policies and evaluates them against mutation inputs.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*compiledPolicy
	logger   zerolog.Logger
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy *Policy
	query  rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine, with the built-in policies unless
// builtin is false.
func NewEngine(ctx context.Context, logger zerolog.Logger, builtin bool) (*Engine, error) {
	e := &Engine{
		policies: make(map[string]*compiledPolicy),
		logger:   logger.With().Str("component", "policy-engine").Logger(),
	}

	if !builtin {
		return e, nil
	}

	builtins := GetBuiltinPolicies()
	for i := range builtins {
		if err := e.Add(ctx, builtins[i]); err != nil {
			return nil, fmt.Errorf("failed to compile built-in policy %s: %w", builtins[i].Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(builtins)).
		Msg("Built-in policies loaded")

	return e, nil
}

// Add compiles policy and adds it to the engine. Policy names are unique.
func (e *Engine) Add(ctx context.Context, policy Policy) error {
	if e.has(policy.Name) {
		return fmt.Errorf("policy %s already exists", policy.Name)
	}

	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return fmt.Errorf("failed to parse policy: %w", err)
	}

	query, err := rego.New(
		rego.ParsedModule(module),
		rego.Query(module.Package.Path.String()+".deny"),
	).PrepareForEval(ctx)
	if err != nil {
		return fmt.Errorf("failed to prepare query: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.policies[policy.Name]; ok {
		return fmt.Errorf("policy %s already exists", policy.Name)
	}
	e.policies[policy.Name] = &compiledPolicy{policy: &policy, query: query}

	e.logger.Debug().
		Str("policy", policy.Name).
		Msg("Policy compiled successfully")

	return nil
}

func (e *Engine) has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.policies[name]
	return ok
}

// LoadPolicies loads and compiles the policy files found at paths.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	policies, err := NewLoader(e.logger).LoadFromPaths(ctx, paths)
	if err != nil {
		return err
	}

	for i := range policies {
		if err := e.Add(ctx, policies[i]); err != nil {
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(policies)).
		Msg("Policies loaded")

	return nil
}

// Evaluate evaluates every policy against input, in policy name order.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	if input.InstanceIDs == nil {
		input.InstanceIDs = []string{}
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	result := &Result{Allowed: true}
	for _, name := range e.names() {
		cp := e.policies[name]

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			return nil, fmt.Errorf("policy %s evaluation failed: %w", name, err)
		}
		result.Violations = append(result.Violations, violations...)
	}

	for _, v := range result.Violations {
		if v.Severity.Blocks() {
			result.Allowed = false
			break
		}
	}

	e.logger.Debug().
		Str("action", input.Action).
		Int("violations", len(result.Violations)).
		Bool("allowed", result.Allowed).
		Msg("Policy evaluation completed")

	return result, nil
}

// Check evaluates input and fails with a policy denial if a blocking violation
// is found. Non-blocking violations are logged as warnings.
func (e *Engine) Check(ctx context.Context, input Input) error {
	result, err := e.Evaluate(ctx, input)
	if err != nil {
		return err
	}

	for _, v := range result.Violations {
		if !v.Severity.Blocks() {
			e.logger.Warn().
				Str("policy", v.Policy).
				Str("instance", v.Instance).
				Msg(v.Message)
		}
	}

	if result.Allowed {
		return nil
	}

	denials := result.Denials()
	messages := make([]string, 0, len(denials))
	for _, d := range denials {
		messages = append(messages, d.Message)
	}
	return engine.NewError(engine.KindPolicyDenied, strings.Join(messages, "; "))
}

// evaluatePolicy evaluates a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input Input) ([]Violation, error) {
	results, err := cp.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, err
	}

	var violations []Violation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		// Sets are returned as slices.
		denySet, ok := result.Expressions[0].Value.([]interface{})
		if !ok {
			continue
		}
		for _, d := range denySet {
			violations = append(violations, createViolation(cp.policy, d))
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Message < violations[j].Message
	})
	return violations, nil
}

// createViolation creates a Violation from a deny set member, either a message
// string or an object with "message", "severity" and "instance" keys.
func createViolation(policy *Policy, result interface{}) Violation {
	violation := Violation{
		Policy:   policy.Name,
		Severity: policy.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(sev)
		}
		if inst, ok := v["instance"].(string); ok {
			violation.Instance = inst
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

// ListPolicies returns all loaded policies in name order.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := e.names()
	policies := make([]Policy, 0, len(names))
	for _, name := range names {
		policies = append(policies, *e.policies[name].policy)
	}
	return policies
}

func (e *Engine) names() []string {
	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
