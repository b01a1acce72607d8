// Package policy guards instance mutations with Open Policy Agent (OPA) policies.
//
// Every policy is a Rego module whose package defines a "deny" set. Before an
// instance mutation runs, each policy is evaluated against an Input describing
// the mutation (action, dry flag, profile, provider, region and target ids).
// Members of the deny set are violations; a violation with severity "error" or
// "critical" denies the mutation, lower severities are logged as warnings.
//
// # Usage
//
//	eng, err := policy.NewEngine(ctx, logger, true)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"/etc/ceres/policies"}); err != nil {
//	    return err
//	}
//	err = eng.Check(ctx, policy.Input{
//	    Action:      "terminate",
//	    Profile:     "production",
//	    InstanceIDs: []string{"i-0123456789abcdef0"},
//	})
//
// # Custom Policies
//
// Custom policies are loaded from .rego files, or from .json files holding a
// Policy document. Violations default to severity "error":
//
//	package ceres.production
//
//	deny contains msg if {
//	    input.profile == "production"
//	    input.action == "terminate"
//	    not input.dry
//	    msg := "terminating production instances is not allowed"
//	}
//
// A violation may also be an object with "message", "severity" and "instance" keys.
//
// # Built-in Policies
//
//  1. bulk-mutation - warns when more than 10 instances are mutated at once
//  2. duplicate-targets - warns when an instance id is listed twice
package policy
