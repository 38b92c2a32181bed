package core

import (
	"fmt"
	"reflect"
	"testing"
)

func TestScrollbackSplitsChunksIntoLines(t *testing.T) {
	s := newScrollback(0)
	s.Write("first li")
	s.Write("ne\r\nsecond line\npart")
	want := []string{"first line", "second line", "part"}
	if got := s.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	if s.Len() != 2 {
		t.Fatalf("completed lines = %d", s.Len())
	}
	s.Write("ial\n")
	if s.Len() != 3 {
		t.Fatalf("completed lines = %d", s.Len())
	}
	if got := s.Lines()[2]; got != "partial" {
		t.Fatalf("third line = %q", got)
	}
}

func TestScrollbackTrimsToMaxLines(t *testing.T) {
	s := newScrollback(3)
	for i := 0; i < 10; i++ {
		s.Write(fmt.Sprintf("line %d\n", i))
	}
	want := []string{"line 7", "line 8", "line 9"}
	if got := s.Lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
}

func TestScrollbackEmptyChunk(t *testing.T) {
	s := newScrollback(0)
	s.Write("")
	if got := s.Lines(); len(got) != 0 {
		t.Fatalf("lines = %v", got)
	}
}
