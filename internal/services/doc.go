// Package services provides shared error classification and request context
// helpers used across muse components.
package services
