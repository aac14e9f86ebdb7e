// Package notifications delivers push notifications for idea lifecycle
// events over ntfy. When no topic is configured the service degrades to a
// noop so callers never have to branch on configuration.
package notifications
