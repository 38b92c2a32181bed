package htmock

import (
	"strings"
	"sync"
)

// screen is a deliberately simple terminal model: text appends to the
// current line, newlines open a new one, and rendering pads the last
// rows lines to the full column width. Escape sequences are stripped
// rather than interpreted; the mock exists to exercise the protocol,
// not to emulate a terminal.
type screen struct {
	mu    sync.Mutex
	rows  int
	cols  int
	lines []string
	seq   strings.Builder
}

func newScreen(rows, cols int) *screen {
	return &screen{rows: rows, cols: cols, lines: []string{""}}
}

// Feed appends target output to the grid and the raw sequence log.
func (s *screen) Feed(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq.WriteString(text)
	s.append(stripEscapes(text))
}

// Echo appends locally-echoed keystrokes to the grid only.
func (s *screen) Echo(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.append(text)
}

func (s *screen) append(text string) {
	for _, r := range text {
		switch r {
		case '\n':
			s.lines = append(s.lines, "")
		case '\r':
		default:
			last := len(s.lines) - 1
			if len(s.lines[last]) < s.cols {
				s.lines[last] += string(r)
			}
		}
	}
	if len(s.lines) > s.rows {
		s.lines = s.lines[len(s.lines)-s.rows:]
	}
}

// Resize changes the grid dimensions, re-clipping existing content.
func (s *screen) Resize(rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows, s.cols = rows, cols
	if len(s.lines) > rows {
		s.lines = s.lines[len(s.lines)-rows:]
	}
	for i, line := range s.lines {
		if len(line) > cols {
			s.lines[i] = line[:cols]
		}
	}
}

// Render returns the padded rows x cols grid and the raw sequence log.
func (s *screen) Render() (text, seq string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]string, s.rows)
	for i := range rows {
		var line string
		if i < len(s.lines) {
			line = s.lines[i]
		}
		if len(line) < s.cols {
			line += strings.Repeat(" ", s.cols-len(line))
		}
		rows[i] = line
	}
	return strings.Join(rows, "\n"), s.seq.String()
}

// Size returns the current dimensions.
func (s *screen) Size() (rows, cols int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows, s.cols
}

// stripEscapes drops CSI and OSC sequences so plain text lands on the
// grid. Coverage is minimal on purpose.
func stripEscapes(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		c := text[i]
		if c != 0x1b {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(text) {
			break
		}
		switch text[i] {
		case '[':
			i++
			for i < len(text) && (text[i] < 0x40 || text[i] > 0x7e) {
				i++
			}
			if i < len(text) {
				i++
			}
		case ']':
			i++
			for i < len(text) && text[i] != 0x07 {
				i++
			}
			if i < len(text) {
				i++
			}
		default:
			i++
		}
	}
	return b.String()
}
