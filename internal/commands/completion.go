// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// maxFileCompletions limits directory listings.
const maxFileCompletions = 20

// Completion is one candidate for the token being typed.
type Completion struct {
	Value       string
	Display     string
	Description string
	Score       int
}

// =============================================================================
// COMPLETER
// =============================================================================

// Completer handles tab completion for commands and arguments.
type Completer struct {
	registry *Registry

	// FilesFn overrides directory listing for file arguments.
	FilesFn func(prefix string) []string
}

// NewCompleter creates a new completer with the given registry.
func NewCompleter(registry *Registry) *Completer {
	return &Completer{registry: registry}
}

// Complete returns completions for the given input at the cursor position.
// Input that is not a command has no completions.
func (c *Completer) Complete(input string, cursorPos int) []Completion {
	if cursorPos >= 0 && cursorPos < len(input) {
		input = input[:cursorPos]
	}
	input = strings.TrimLeftFunc(input, unicode.IsSpace)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	parts := splitCommandLine(input)
	newToken := endsWithSpace(input)

	// Still typing the command name?
	if len(parts) == 1 && !newToken {
		return c.completeCommands(parts[0])
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}

	argIndex := len(parts) - 2
	partial := parts[len(parts)-1]
	if newToken {
		argIndex++
		partial = ""
	}
	return c.completeArg(cmd, argIndex, partial)
}

// completeCommands returns completions for command names.
func (c *Completer) completeCommands(partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)

	for _, cmd := range c.registry.All() {
		if cmd.Hidden {
			continue
		}
		if strings.HasPrefix(strings.ToLower(cmd.Name), partial) {
			completions = append(completions, Completion{
				Value:       cmd.Name,
				Display:     cmd.Name,
				Description: cmd.Description,
				Score:       calculateScore(cmd.Name, partial),
			})
		}
		for _, alias := range cmd.Aliases {
			if strings.HasPrefix(strings.ToLower(alias), partial) {
				completions = append(completions, Completion{
					Value:       alias,
					Display:     alias + " -> " + cmd.Name,
					Description: cmd.Description,
					Score:       calculateScore(alias, partial) - 10,
				})
			}
		}
	}

	sortCompletions(completions)
	return completions
}

// =============================================================================
// ARGUMENT COMPLETION
// =============================================================================

func (c *Completer) completeArg(cmd *Command, argIndex int, partial string) []Completion {
	if argIndex < 0 || len(cmd.Args) == 0 {
		return nil
	}
	if argIndex >= len(cmd.Args) {
		last := cmd.Args[len(cmd.Args)-1]
		if !last.Variadic {
			return nil
		}
		argIndex = len(cmd.Args) - 1
	}

	arg := cmd.Args[argIndex]
	switch arg.Type {
	case ArgTypeFile:
		return c.completeFiles(partial)
	case ArgTypeEnum:
		return completeFromList(arg.Values, partial)
	default:
		return nil
	}
}

func (c *Completer) completeFiles(partial string) []Completion {
	if c.FilesFn != nil {
		return completeFromList(c.FilesFn(partial), partial)
	}
	return defaultFileCompletion(partial)
}

// defaultFileCompletion lists the directory partial points into.
// Directories sort first and end in a path separator.
func defaultFileCompletion(partial string) []Completion {
	dir, prefix := filepath.Split(partial)
	listDir := dir
	if listDir == "" {
		listDir = "."
	}

	entries, err := os.ReadDir(listDir)
	if err != nil {
		return nil
	}

	lowerPrefix := strings.ToLower(prefix)
	var completions []Completion
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		// Skip hidden files unless the prefix asks for them
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		value := dir + name
		score := calculateScore(name, lowerPrefix)
		desc := "directory"
		if entry.IsDir() {
			value += string(os.PathSeparator)
			score += 5
		} else if info, err := entry.Info(); err == nil {
			desc = humanize.Bytes(uint64(info.Size()))
		}

		completions = append(completions, Completion{
			Value:       value,
			Display:     name,
			Description: desc,
			Score:       score,
		})
	}

	sortCompletions(completions)
	if len(completions) > maxFileCompletions {
		completions = completions[:maxFileCompletions]
	}
	return completions
}

func completeFromList(values []string, partial string) []Completion {
	var completions []Completion
	partial = strings.ToLower(partial)
	for _, value := range values {
		if strings.HasPrefix(strings.ToLower(value), partial) {
			completions = append(completions, Completion{
				Value:   value,
				Display: value,
				Score:   calculateScore(value, partial),
			})
		}
	}
	sortCompletions(completions)
	return completions
}

// =============================================================================
// APPLYING COMPLETIONS
// =============================================================================

// Apply replaces the token being typed at the end of input. A single
// completion is inserted whole, followed by a space unless it names a
// directory. Several completions insert their longest common prefix.
// ok is false when input would not change.
func Apply(input string, completions []Completion) (string, bool) {
	if len(completions) == 0 {
		return input, false
	}

	start, current := len(input), ""
	if !endsWithSpace(input) {
		if toks := tokenize(input); len(toks) > 0 {
			last := toks[len(toks)-1]
			start, current = last.start, last.text
		}
	}

	var replacement string
	if len(completions) == 1 {
		value := completions[0].Value
		replacement = quote(value)
		if !strings.HasSuffix(value, string(os.PathSeparator)) {
			replacement += " "
		}
	} else {
		values := make([]string, len(completions))
		for i, c := range completions {
			values[i] = c.Value
		}
		prefix := CommonPrefix(values)
		if len(prefix) <= len(current) {
			return input, false
		}
		replacement = quote(prefix)
	}

	out := input[:start] + replacement
	return out, out != input
}

// CommonPrefix returns the longest prefix shared by all values.
func CommonPrefix(values []string) string {
	if len(values) == 0 {
		return ""
	}
	prefix := values[0]
	for _, v := range values[1:] {
		for !strings.HasPrefix(v, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	for !utf8.ValidString(prefix) {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

// quote wraps values containing spaces in double quotes.
func quote(s string) string {
	if strings.ContainsFunc(s, unicode.IsSpace) {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

func endsWithSpace(s string) bool {
	return s != "" && unicode.IsSpace(rune(s[len(s)-1]))
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// calculateScore calculates a match score for completion ranking.
// Higher score = better match.
func calculateScore(value, partial string) int {
	value = strings.ToLower(value)
	partial = strings.ToLower(partial)

	score := 100
	if value == partial {
		return score + 100
	}
	if strings.HasPrefix(value, partial) {
		score += 50
		// Shorter completions rank higher
		score += 20 - len(value)
	}
	score -= len(value) / 2
	return score
}

// sortCompletions sorts completions by score (descending), then alphabetically.
func sortCompletions(completions []Completion) {
	sort.Slice(completions, func(i, j int) bool {
		if completions[i].Score != completions[j].Score {
			return completions[i].Score > completions[j].Score
		}
		return completions[i].Value < completions[j].Value
	})
}
