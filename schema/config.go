package schema

import "time"

// Defaults for terminal geometry and protocol timing. The config layer
// seeds its defaults from these so library and CLI users agree.
const (
	DefaultRows = 20
	DefaultCols = 50

	DefaultEngineBinary = "ht"

	DefaultScrollbackMaxLines = 2000

	DefaultSnapshotTimeout  = 5 * time.Second
	DefaultHandshakeTimeout = 2 * time.Second
	DefaultTerminateGrace   = 5 * time.Second
	DefaultExitWait         = 5 * time.Second
	DefaultKeyDelimiter     = ","
)

// DefaultSubscribe is the event set requested from the engine at spawn.
func DefaultSubscribe() []string {
	return []string{"init", "snapshot", "output", "resize", "pid"}
}
