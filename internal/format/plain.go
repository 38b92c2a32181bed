package format

import (
	"fmt"

	"pkt.systems/htx/schema"
)

// PlainRenderer formats snapshots and session events as plain text
// lines for terminal output.
type PlainRenderer struct{}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatSnapshot converts a snapshot into printable lines. Trailing
// whitespace is stripped so padded terminal rows print cleanly.
func (p *PlainRenderer) FormatSnapshot(snap schema.Snapshot) []string {
	return snap.TrimmedLines()
}

// FormatEvent converts a session event into user-facing lines. Most
// events render to nothing; output is shown via snapshots, not the
// raw stream.
func (p *PlainRenderer) FormatEvent(event schema.Event) []string {
	switch event.Type {
	case schema.EventExited:
		return []string{fmt.Sprintf("target exited with code %d", event.ExitCode())}
	case schema.EventError:
		if event.Message != "" {
			return []string{fmt.Sprintf("error: %s", event.Message)}
		}
		return []string{"error: unknown"}
	case schema.EventResize:
		if event.Data != nil {
			return []string{fmt.Sprintf("terminal resized to %dx%d", event.Data.Cols, event.Data.Rows)}
		}
		return nil
	default:
		return nil
	}
}
