// Package output renders command results as human readable tables, JSON, or
// plain tab separated lines.
package output
