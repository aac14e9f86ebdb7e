// Package client is the HTTP client the CLI uses to talk to a running
// muse daemon.
package client
