// Package workflow implements guarded operations on instances.
//
// One mutation runs through these steps:
//
//	Resolve -> Gate -> Targets -> Guard -> Execute -> Render
//
// Gate has three modes. A dry run goes straight on and only warns. A
// pre-confirmed run goes straight on. Otherwise the operator must type the
// confirmation answer; any other answer, or failing to read one, stops the
// workflow before the provider is called. Once the targets are read, the
// optional policy guard may deny the operation. The provider is called at most
// once.
//
// RemoteRun runs a shell command on instances over SSH, one instance at a time,
// stopping at the first failure.
package workflow
