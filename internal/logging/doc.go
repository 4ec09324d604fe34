// Package logging provides the leveled logger shared by the genstudio server
// and the genctl command.
//
// Levels, lowest first:
//   - DEBUG: job transitions, encode attempts, vips chatter
//   - INFO: startup banner, enqueue and settlement of jobs
//   - WARN: recoverable problems (registry misses, skipped batch files)
//   - ERROR: failures surfaced to users
//
// The level is read once from DEBUG or LOG_LEVEL and can be overridden with
// SetLevel.
package logging
