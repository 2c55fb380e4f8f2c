// Package config loads, parses, and validates the application's settings
// from environment variables and an optional config file. Every tunable of
// the task lifecycle and reconciliation policy is declared here so the
// engine packages stay free of hard-coded limits.
package config
