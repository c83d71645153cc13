// Package sym defines the glyphs jobpulse prefixes to CLI output and attaches
// to log lines as the "symbol" field. They are stable across commands, logs
// and documentation.
package sym

// Lifecycle glyphs for listings and notifications.
const (
	Opened = "✦" // listing transitioned into active and visible
	Closed = "✕" // listing transitioned out of active or visible
	Sink   = "⟶" // outbound notification call
	Source = "⨳" // snapshot acquisition from a repository
)

// System infrastructure glyphs.
const (
	AM         = "≡" // configuration
	Pulse      = "꩜" // scheduled cycles, queue pacing
	PulseOpen  = "✿" // daemon startup
	PulseClose = "❀" // graceful shutdown
	DB         = "⊔" // persistence layer
)

// CommandDescriptions provides one-line help for the glyph-prefixed commands.
var CommandDescriptions = map[string]string{
	"run":     Pulse + " Watch repositories on a schedule",
	"check":   Source + " Run a single comparison cycle now",
	"alerts":  Sink + " Inspect delivered notification history",
	"am":      AM + " Show effective configuration",
	"version": "Show build information",
}
