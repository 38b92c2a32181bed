package main

import (
	"testing"
)

func TestArgv0Alias(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{name: "ht-mock", base: "ht-mock", want: "ht-mock"},
		{name: "htx-ht-mock", base: "htx-ht-mock", want: "ht-mock"},
		{name: "htx", base: "htx", want: ""},
	}
	for _, tc := range tests {
		if got := argv0Alias(tc.base); got != tc.want {
			t.Fatalf("%s: argv0Alias(%q) = %q, want %q", tc.name, tc.base, got, tc.want)
		}
	}
}

func TestApplyArgv0Alias(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{name: "empty", args: nil, want: nil},
		{name: "no-alias", args: []string{"htx", "run"}, want: []string{"htx", "run"}},
		{name: "ht-mock", args: []string{"ht-mock", "--size", "50x20", "cat"}, want: []string{"ht-mock", "ht-mock", "--size", "50x20", "cat"}},
	}
	for _, tc := range tests {
		got := applyArgv0Alias(tc.args)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: applyArgv0Alias length = %d, want %d", tc.name, len(got), len(tc.want))
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: applyArgv0Alias[%d] = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestIsHtMockInvocation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want bool
	}{
		{name: "ht-mock", args: []string{"htx", "ht-mock"}, want: true},
		{name: "run", args: []string{"htx", "run"}, want: false},
		{name: "empty", args: nil, want: false},
	}
	for _, tc := range tests {
		if got := isHtMockInvocation(tc.args); got != tc.want {
			t.Fatalf("%s: isHtMockInvocation(%v) = %v, want %v", tc.name, tc.args, got, tc.want)
		}
	}
}

func TestRootHasRun(t *testing.T) {
	root := newRootCmd()
	found := false
	for _, cmd := range root.Commands() {
		if cmd.Name() == "run" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected root command to include run")
	}
}

func TestRootHasHtMock(t *testing.T) {
	root := newRootCmd()
	found := false
	for _, cmd := range root.Commands() {
		if cmd.Name() == "ht-mock" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected root command to include ht-mock")
	}
}

func TestRootHasVersion(t *testing.T) {
	root := newRootCmd()
	found := false
	for _, cmd := range root.Commands() {
		if cmd.Name() == "version" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected root command to include version")
	}
}

func TestRootHasDoctor(t *testing.T) {
	root := newRootCmd()
	found := false
	for _, cmd := range root.Commands() {
		if cmd.Name() == "doctor" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected root command to include doctor")
	}
}
