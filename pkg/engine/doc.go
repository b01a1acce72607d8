// Package engine holds the domain types shared by every ceres module.
//
// # Overview
//
// A ceres invocation runs exactly one module. The module resolves the active
// profile, then either discovers deployable resource units (Asp) below a local
// base directory or mutates remote instance state through a Provider:
//
//  1. Resolve - load the active profile and its provider
//  2. Gate - dry run, explicit confirmation, or pre-confirmed
//  3. Guard - check the targets against the configured policies
//  4. Execute - call the provider once; no retries
//  5. Render - hand the resulting StateChange list to an output renderer
//
// Instances are described by the Provider as Instance values, which also carry
// the addresses used to run remote commands on them.
//
// # Errors
//
// All failures are *Error values tagged with an ErrorKind. Every component
// boundary adds one layer around the cause it received, so the full chain can be
// shown to the operator with Chain:
//
//	if err := run(); err != nil {
//	    for i, line := range engine.Chain(err) {
//	        ...
//	    }
//	}
//
// Use IsKind to test for a kind anywhere in the chain.
package engine
