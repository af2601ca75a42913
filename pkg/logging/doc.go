// Package logging provides structured logging utilities for the addon container.
//
// # Overview
//
// This package wraps the standard library slog package with defaults shared
// by the container daemon and CLI: JSON records on stderr, module and version
// attributes on every record, LOG_LEVEL driven verbosity and source locations
// for debug records.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: per-tick reconciliation detail, with source location
//   - INFO: addon transitions (default)
//   - WARN/WARNING: waitlisted addons, incompatible API versions
//   - ERROR: load and runtime failures
//
// # Usage
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("addond", version)
//	    slog.Info("addon started", "addon", id.Coordinates())
//	}
//
// Explicit level:
//
//	logging.SetDefaultStructuredLoggerWithLevel("addond", version, "debug")
//
// # Output Format
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "addon started",
//	    "module": "addond",
//	    "version": "v1.0.0",
//	    "addon": "core:1.0.0"
//	}
package logging
