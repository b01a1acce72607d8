// Package modules defines the module contract of the ceres command line and the
// dispatcher that routes an invocation to exactly one registered module.
//
// A module is a cobra descriptor plus a single Call entry point. Modules that
// group nested commands implement Parent; the dispatcher recurses into them with
// the same contract. Every module level an error crosses adds one ModuleFailed
// layer, so the full cause chain reaches the operator.
//
// Basic usage:
//
//	d := modules.NewDispatcher(root, registry, modules.Options{
//		Stdin:  os.Stdin,
//		Stdout: os.Stdout,
//		Stderr: os.Stderr,
//	})
//	if err := d.Execute(ctx, os.Args[1:]); err != nil {
//		// print engine.Chain(err)
//	}
package modules
