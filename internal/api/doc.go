// Package api implements the application service behind the HTTP surface.
// It enforces permissions, translates between wire types and domain types,
// and wraps stage transitions in a save-then-compensate protocol: the new
// status is committed before the stage runs and rolled back if the run
// fails.
package api
