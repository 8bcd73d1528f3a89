// Package logging provides subsystem-tagged structured logging for the
// orchestrator, built on log/slog.
//
// Every entry carries a subsystem attribute so output from the executor, the
// readiness supervisor, the configuration resolver and the server lifecycle
// can be told apart and filtered.
//
// # Usage
//
//	logging.Init(logging.LevelDebug, logging.FormatText, os.Stderr)
//
//	logging.Info("Executor", "started %s (pid %d)", name, pid)
//	logging.Debug("Readiness", "attempt %d/%d: %s not present", n, max, marker)
//	logging.Error("Config", err, "failed to load %s", location)
//
// Until Init is called, messages at Info and above go to stderr as text.
//
// # Levels
//
//   - Debug: per-line process output, individual poll attempts
//   - Info: process start/exit, state transitions
//   - Warn: recoverable conditions (fsnotify unavailable, kill failures)
//   - Error: failures surfaced to callers
//
// The package is safe for concurrent use.
package logging
