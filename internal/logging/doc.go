// Package logging builds slog loggers with muse's standard field conventions
// and provides console and JSON handlers plus context-derived attributes.
package logging
