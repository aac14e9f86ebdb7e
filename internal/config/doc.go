// Package config loads, validates, and defaults muse's TOML configuration.
package config
