// Package daemon hosts the long-running muse process: it enforces
// single-instance execution with a file lock, owns the idea store, and
// serves the HTTP API the CLI talks to.
package daemon
