package core

import (
	"strings"
	"sync"

	"pkt.systems/htx/schema"
)

// scrollback accumulates raw output captured from the target command.
// Output events carry arbitrary byte chunks, not whole lines, so the
// buffer keeps a partial tail line open until a newline completes it.
type scrollback struct {
	mu       sync.Mutex
	lines    []string
	partial  string
	maxLines int
}

func newScrollback(maxLines int) *scrollback {
	if maxLines <= 0 {
		maxLines = schema.DefaultScrollbackMaxLines
	}
	return &scrollback{maxLines: maxLines}
}

// Write appends one output chunk, splitting it into lines.
func (s *scrollback) Write(chunk string) {
	if chunk == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partial += chunk
	for {
		i := strings.IndexByte(s.partial, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(s.partial[:i], "\r")
		s.partial = s.partial[i+1:]
		s.lines = append(s.lines, line)
	}
	if len(s.lines) > s.maxLines {
		trim := len(s.lines) - s.maxLines
		s.lines = append([]string(nil), s.lines[trim:]...)
	}
}

// Lines returns the completed lines, oldest first. The open partial
// line, if any, is included last.
func (s *scrollback) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.lines)+1)
	out = append(out, s.lines...)
	if s.partial != "" {
		out = append(out, s.partial)
	}
	return out
}

// Len returns the number of completed lines held.
func (s *scrollback) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}
