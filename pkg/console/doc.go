// Package console handles operator input: confirmation prompts and instance id
// lists read from stdin.
package console
