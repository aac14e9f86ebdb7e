// Package orchestrator routes ideas to their per-stage analysis services.
// It owns the stage registry, constructs each service lazily exactly once,
// and normalizes processing failures into outcome values so callers can
// distinguish "the stage ran and failed" from "the request was invalid".
package orchestrator
