package schema

import "strings"

// Snapshot is an immutable capture of the virtual terminal display.
// Text is the rendered character grid; Seq is the literal escape
// sequence bytes the engine recorded for the same moment. Styled
// renderings are produced by external consumers from these two fields.
type Snapshot struct {
	Text string
	Seq  string
	Rows int
	Cols int
}

// Lines returns the grid as individual rows.
func (s Snapshot) Lines() []string {
	if s.Text == "" {
		return nil
	}
	return strings.Split(s.Text, "\n")
}

// TrimmedLines returns the grid rows with trailing whitespace removed.
func (s Snapshot) TrimmedLines() []string {
	lines := s.Lines()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return out
}
