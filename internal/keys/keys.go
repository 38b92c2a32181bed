// Package keys turns human-written key expressions into protocol tokens.
package keys

import (
	"strings"

	"pkt.systems/htx/schema"
)

// Encode splits input on delim and resolves each segment: a segment
// that matches a named key (case-sensitive) becomes one named token,
// anything else becomes one literal token per rune. Segments are
// trimmed of surrounding whitespace so "hello, Enter" names the Enter
// key; empty segments, including those produced by consecutive
// delimiters, are dropped. An empty delim falls back to the default.
func Encode(input, delim string) []schema.KeyToken {
	if delim == "" {
		delim = schema.DefaultKeyDelimiter
	}
	if input == "" {
		return nil
	}
	var out []schema.KeyToken
	for _, segment := range strings.Split(input, delim) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if name, ok := schema.LookupKey(segment); ok {
			out = append(out, schema.NamedKey(name))
			continue
		}
		for _, r := range segment {
			out = append(out, schema.LiteralKey(r))
		}
	}
	return out
}

// EncodeNames resolves a list of already-named keys, used by callers
// that hold key constants rather than raw text.
func EncodeNames(names []schema.KeyName) []schema.KeyToken {
	if len(names) == 0 {
		return nil
	}
	out := make([]schema.KeyToken, 0, len(names))
	for _, name := range names {
		out = append(out, schema.NamedKey(name))
	}
	return out
}
