// Package logger configures the application's structured JSON logging on
// top of log/slog, with the level taken from configuration.
package logger
