package policy

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/ceres/pkg/engine"
)

const productionPolicy = `package ceres.production

deny contains msg if {
	input.profile == "production"
	input.action == "terminate"
	not input.dry
	msg := "terminating production instances is not allowed"
}
`

func newTestEngine(t *testing.T, builtin bool) *Engine {
	t.Helper()

	logger := zerolog.New(nil).Level(zerolog.Disabled)
	eng, err := NewEngine(context.Background(), logger, builtin)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return eng
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("i-%04d", i)
	}
	return out
}

func TestNewEngine(t *testing.T) {
	eng := newTestEngine(t, true)

	policies := eng.ListPolicies()
	expected := []string{"bulk-mutation", "duplicate-targets"}
	if len(policies) != len(expected) {
		t.Fatalf("Expected %d built-in policies, got %d", len(expected), len(policies))
	}
	for i, name := range expected {
		if policies[i].Name != name {
			t.Errorf("Expected policy %d to be %s, got %s", i, name, policies[i].Name)
		}
	}

	if got := newTestEngine(t, false).ListPolicies(); len(got) != 0 {
		t.Errorf("Expected no policies without built-ins, got %d", len(got))
	}
}

func TestEvaluate_BuiltinPolicies(t *testing.T) {
	eng := newTestEngine(t, true)

	tests := []struct {
		name           string
		input          Input
		wantViolations []string
	}{
		{
			name:  "few instances",
			input: Input{Action: "terminate", InstanceIDs: ids(3)},
		},
		{
			name:  "threshold is not bulk",
			input: Input{Action: "terminate", InstanceIDs: ids(BulkMutationThreshold)},
		},
		{
			name:           "bulk mutation",
			input:          Input{Action: "stop", InstanceIDs: ids(11)},
			wantViolations: []string{"going to stop 11 instances - please review carefully"},
		},
		{
			name:  "bulk dry run",
			input: Input{Action: "stop", Dry: true, InstanceIDs: ids(11)},
		},
		{
			name:           "duplicate targets",
			input:          Input{Action: "start", InstanceIDs: []string{"i-1", "i-2", "i-1", "i-1"}},
			wantViolations: []string{"instance i-1 is listed more than once"},
		},
		{
			name:  "no targets",
			input: Input{Action: "terminate"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := eng.Evaluate(context.Background(), tt.input)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if !result.Allowed {
				t.Error("Built-in policies must never deny")
			}

			if len(result.Violations) != len(tt.wantViolations) {
				t.Fatalf("Expected %d violations, got %d: %+v", len(tt.wantViolations), len(result.Violations), result.Violations)
			}
			for i, want := range tt.wantViolations {
				v := result.Violations[i]
				if v.Message != want {
					t.Errorf("Expected message %q, got %q", want, v.Message)
				}
				if v.Severity != SeverityWarning {
					t.Errorf("Expected severity warning, got %s", v.Severity)
				}
			}
		})
	}
}

func TestEvaluate_ViolationInstance(t *testing.T) {
	eng := newTestEngine(t, true)

	result, err := eng.Evaluate(context.Background(), Input{Action: "start", InstanceIDs: []string{"i-9", "i-9"}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(result.Violations) != 1 {
		t.Fatalf("Expected 1 violation, got %d", len(result.Violations))
	}
	if got := result.Violations[0]; got.Instance != "i-9" || got.Policy != "duplicate-targets" {
		t.Errorf("Unexpected violation: %+v", got)
	}
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, true)
	if err := eng.Add(ctx, Policy{Name: "production", Rego: productionPolicy, Severity: SeverityError}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	tests := []struct {
		name   string
		input  Input
		denied bool
	}{
		{
			name:   "production terminate",
			input:  Input{Action: "terminate", Profile: "production", InstanceIDs: ids(1)},
			denied: true,
		},
		{
			name:  "production terminate dry",
			input: Input{Action: "terminate", Dry: true, Profile: "production", InstanceIDs: ids(1)},
		},
		{
			name:  "production stop",
			input: Input{Action: "stop", Profile: "production", InstanceIDs: ids(1)},
		},
		{
			name:  "staging terminate",
			input: Input{Action: "terminate", Profile: "staging", InstanceIDs: ids(1)},
		},
		{
			name:  "warnings only",
			input: Input{Action: "terminate", Profile: "staging", InstanceIDs: ids(20)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.Check(ctx, tt.input)
			if !tt.denied {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}

			if !engine.IsKind(err, engine.KindPolicyDenied) {
				t.Fatalf("Expected policy denial, got %v", err)
			}
			if !strings.Contains(err.Error(), "terminating production instances is not allowed") {
				t.Errorf("Expected denial message in error, got %q", err.Error())
			}
		})
	}
}

func TestCheck_ObjectViolationSeverity(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, false)

	rego := `package ceres.tagged

deny contains {"message": "soft", "severity": "info"} if {
	input.action == "stop"
}

deny contains {"message": "hard", "instance": id} if {
	input.action == "terminate"
	some id in input.instance_ids
}
`
	if err := eng.Add(ctx, Policy{Name: "tagged", Rego: rego, Severity: SeverityCritical}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if err := eng.Check(ctx, Input{Action: "stop"}); err != nil {
		t.Errorf("Expected info violation to pass, got %v", err)
	}

	result, err := eng.Evaluate(ctx, Input{Action: "terminate", InstanceIDs: []string{"i-1"}})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if result.Allowed {
		t.Fatal("Expected terminate to be denied")
	}
	denials := result.Denials()
	if len(denials) != 1 || denials[0].Severity != SeverityCritical || denials[0].Instance != "i-1" {
		t.Errorf("Unexpected denials: %+v", denials)
	}
}

func TestAdd_InvalidRego(t *testing.T) {
	eng := newTestEngine(t, false)

	err := eng.Add(context.Background(), Policy{Name: "broken", Rego: "package broken\n\ndeny contains"})
	if err == nil {
		t.Fatal("Expected parse error, got nil")
	}
	if len(eng.ListPolicies()) != 0 {
		t.Error("Broken policy must not be added")
	}
}

func TestAdd_DuplicateName(t *testing.T) {
	ctx := context.Background()
	eng := newTestEngine(t, false)

	if err := eng.Add(ctx, Policy{Name: "production", Rego: productionPolicy, Severity: SeverityError}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	err := eng.Add(ctx, Policy{Name: "production", Rego: "package other\n\ndeny contains \"no\" if { false }\n"})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("Expected duplicate error, got %v", err)
	}

	if err := eng.Check(ctx, Input{Action: "terminate", Profile: "production", InstanceIDs: ids(1)}); err == nil {
		t.Error("Expected first policy to stay in place")
	}
}

func TestEvaluate_NoPolicies(t *testing.T) {
	eng := newTestEngine(t, false)

	result, err := eng.Evaluate(context.Background(), Input{Action: "terminate", InstanceIDs: ids(50)})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed || len(result.Violations) != 0 {
		t.Errorf("Expected empty allowed result, got %+v", result)
	}
}
