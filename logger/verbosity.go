package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityDefault = 0 // No flags: cycle summaries, warnings, errors
	VerbosityDebug   = 1 // -v: + per-listing decisions, sink calls
	VerbosityTrace   = 2 // -vv: + payload bodies
)

// VerbosityToLevel maps verbosity flags (-v, -vv) to zap log levels.
//
// The daemon is expected to report every cycle, so the default is InfoLevel
// rather than WarnLevel.
func VerbosityToLevel(verbosity int) zapcore.Level {
	if verbosity <= VerbosityDefault {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel
}

// ShouldLogPayloads reports whether full sink payloads belong in debug output
func ShouldLogPayloads(verbosity int) bool {
	return verbosity >= VerbosityTrace
}
