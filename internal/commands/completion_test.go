// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func values(completions []Completion) []string {
	out := make([]string, len(completions))
	for i, c := range completions {
		out[i] = c.Value
	}
	return out
}

func TestCompleter_CommandNames(t *testing.T) {
	completer := NewCompleter(NewRegistry())

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"unique prefix", "/at", []string{"/attach"}},
		{"upload", "/up", []string{"/upload"}},
		{"case insensitive", "/EXP", []string{"/export"}},
		{"no match", "/xyz", nil},
		{"plain text", "hello", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := values(completer.Complete(tc.input, len(tc.input)))
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("Complete(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestCompleter_AllCommandsForSlash(t *testing.T) {
	reg := NewRegistry()
	got := NewCompleter(reg).Complete("/", 1)

	names := 0
	for _, c := range got {
		if reg.Get(c.Value) == nil {
			t.Errorf("completion %q is not a command", c.Value)
		}
		if !strings.Contains(c.Display, "->") {
			names++
		}
	}
	if names != len(reg.All()) {
		t.Errorf("got %d command names, want %d", names, len(reg.All()))
	}
}

func TestCompleter_AliasRanksBelowName(t *testing.T) {
	got := NewCompleter(NewRegistry()).Complete("/e", 2)
	if len(got) < 2 || got[0].Value != "/export" {
		t.Fatalf("expected /export first, got %v", values(got))
	}
	if got[1].Value != "/exit" || got[1].Display != "/exit -> /quit" {
		t.Errorf("alias completion = %+v", got[1])
	}
}

func TestCompleter_CursorPosition(t *testing.T) {
	got := NewCompleter(NewRegistry()).Complete("/upload later", 3)
	if strings.Join(values(got), ",") != "/upload" {
		t.Errorf("completion should use text before cursor, got %v", values(got))
	}
}

func TestCompleter_EnumArgument(t *testing.T) {
	completer := NewCompleter(NewRegistry())

	if got := values(completer.Complete("/export ", 8)); strings.Join(got, ",") != "md,json" {
		t.Errorf("formats = %v", got)
	}
	if got := values(completer.Complete("/export j", 9)); strings.Join(got, ",") != "json" {
		t.Errorf("json prefix = %v", got)
	}
	if got := completer.Complete("/upload ", 8); got != nil {
		t.Errorf("/upload takes no arguments, got %v", values(got))
	}
	if got := completer.Complete("/export md ", 11); got != nil {
		t.Errorf("/export takes one argument, got %v", values(got))
	}
}

func TestCompleter_FilesFn(t *testing.T) {
	completer := NewCompleter(NewRegistry())
	var asked []string
	completer.FilesFn = func(prefix string) []string {
		asked = append(asked, prefix)
		return []string{"notes.pdf", "notes.txt", "syllabus.docx"}
	}

	got := values(completer.Complete("/attach a.pdf no", 16))
	if strings.Join(got, ",") != "notes.pdf,notes.txt" {
		t.Errorf("variadic file completion = %v", got)
	}
	if len(asked) != 1 || asked[0] != "no" {
		t.Errorf("FilesFn prefix = %v", asked)
	}
}

func TestCompleter_DirectoryListing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "biology.pdf"), make([]byte, 2048), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".hidden.pdf"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "bio notes"), 0o700); err != nil {
		t.Fatal(err)
	}

	prefix := dir + string(os.PathSeparator)
	got := NewCompleter(NewRegistry()).Complete("/attach "+prefix+"bi", len("/attach "+prefix+"bi"))
	if len(got) != 2 {
		t.Fatalf("expected 2 completions, got %+v", got)
	}

	// Directories rank first.
	if got[0].Value != prefix+"bio notes"+string(os.PathSeparator) || got[0].Description != "directory" {
		t.Errorf("first completion = %+v", got[0])
	}
	if got[1].Value != prefix+"biology.pdf" || got[1].Description != "2.0 kB" {
		t.Errorf("second completion = %+v", got[1])
	}

	all := NewCompleter(NewRegistry()).Complete("/attach "+prefix, len("/attach "+prefix))
	for _, c := range all {
		if strings.HasPrefix(c.Display, ".") {
			t.Errorf("hidden file listed: %q", c.Display)
		}
	}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		values []string
		want   string
		ok     bool
	}{
		{"single command", "/at", []string{"/attach"}, "/attach ", true},
		{"single argument", "/export j", []string{"json"}, "/export json ", true},
		{"new token", "/export ", []string{"md"}, "/export md ", true},
		{"quotes spaces", "/attach my", []string{"my notes.pdf"}, `/attach "my notes.pdf" `, true},
		{"directory keeps going", "/attach do", []string{"docs/"}, "/attach docs/", true},
		{"common prefix", "/attach no", []string{"notes.pdf", "notes.txt"}, "/attach notes.", true},
		{"no progress", "/attach notes.", []string{"notes.pdf", "notes.txt"}, "/attach notes.", false},
		{"replaces quoted token", `/attach "my n`, []string{"my notes.pdf"}, `/attach "my notes.pdf" `, true},
		{"nothing to apply", "/x", nil, "/x", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			completions := make([]Completion, len(tc.values))
			for i, v := range tc.values {
				completions[i] = Completion{Value: v}
			}
			got, ok := Apply(tc.input, completions)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Apply(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"abc"}, "abc"},
		{[]string{"notes.pdf", "notes.txt"}, "notes."},
		{[]string{"alpha", "beta"}, ""},
		{[]string{"café", "cafe"}, "caf"},
		{[]string{"naïve", "naïf"}, "naï"},
		{[]string{"日本", "日朝"}, "日"},
	}

	for _, tc := range tests {
		if got := CommonPrefix(tc.in); got != tc.want {
			t.Errorf("CommonPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
