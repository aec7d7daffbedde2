// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strconv"
	"strings"
	"unicode"
)

// =============================================================================
// PARSE RESULT
// =============================================================================

// ParseResult contains the result of parsing composer input.
type ParseResult struct {
	// IsCommand is true if the input starts with /
	IsCommand bool

	// Command is the matched command (nil if not found)
	Command *Command

	// CommandName is the raw command name (e.g., "/attach")
	CommandName string

	// Args are the parsed arguments, with quotes removed
	Args []string

	// RawInput is the original input string
	RawInput string
}

// =============================================================================
// PARSER
// =============================================================================

// Parser handles parsing of slash commands and their arguments.
type Parser struct {
	registry *Registry
}

// NewParser creates a new parser with the given registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Registry returns the registry commands are looked up in.
func (p *Parser) Registry() *Registry {
	return p.registry
}

// Parse parses composer input. IsCommand is false when the input does not
// start with /.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	result := ParseResult{RawInput: input}
	if !strings.HasPrefix(input, "/") {
		return result
	}
	result.IsCommand = true

	parts := splitCommandLine(input)
	if len(parts) == 0 {
		return result
	}
	result.CommandName = parts[0]
	if len(parts) > 1 {
		result.Args = parts[1:]
	}
	result.Command = p.registry.Get(result.CommandName)
	return result
}

// ParseArgs parses a raw argument string into individual arguments.
// Handles quoted strings with spaces.
func ParseArgs(input string) []string {
	return splitCommandLine(input)
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

// token is one argument and the byte offset it starts at.
type token struct {
	text  string
	start int
}

// splitCommandLine splits a command line into tokens, respecting quotes.
// Supports both single and double quotes for arguments with spaces.
func splitCommandLine(input string) []string {
	toks := tokenize(input)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

func tokenize(input string) []token {
	var tokens []token
	var current strings.Builder
	var single, dbl bool
	start := -1
	begin := func(i int) {
		if start < 0 {
			start = i
		}
	}

	for i := 0; i < len(input); i++ {
		c := input[i]
		switch {
		case c == '\'' && !dbl:
			begin(i)
			single = !single

		case c == '"' && !single:
			begin(i)
			dbl = !dbl

		case c == '\\' && i+1 < len(input) && (single || dbl):
			begin(i)
			next := input[i+1]
			if next == '"' || next == '\'' || next == '\\' {
				current.WriteByte(next)
				i++
			} else {
				current.WriteByte(c)
			}

		case unicode.IsSpace(rune(c)) && !single && !dbl:
			if start >= 0 {
				tokens = append(tokens, token{text: current.String(), start: start})
				current.Reset()
				start = -1
			}

		default:
			begin(i)
			current.WriteByte(c)
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: current.String(), start: start})
	}
	return tokens
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// IsCommand returns true if the input appears to be a command.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimSpace(input), "/")
}

// ExtractCommandName extracts just the command name from input.
// e.g., "/attach notes.pdf" -> "/attach"
func ExtractCommandName(input string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ""
	}
	end := strings.IndexFunc(input, unicode.IsSpace)
	if end == -1 {
		return input
	}
	return input[:end]
}

// ValidateArgs validates arguments against a command's argument definitions.
func ValidateArgs(cmd *Command, args []string) error {
	if cmd == nil {
		return nil
	}

	variadic := len(cmd.Args) > 0 && cmd.Args[len(cmd.Args)-1].Variadic
	if !variadic && len(args) > len(cmd.Args) {
		return &ValidationError{
			Command: cmd.Name,
			Message: "unexpected argument",
			Got:     args[len(cmd.Args)],
		}
	}

	for i, argDef := range cmd.Args {
		if i >= len(args) {
			if argDef.Required {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      argDef.Name,
					Message:  "required argument missing",
					Expected: argDef.Description,
				}
			}
			continue
		}

		switch argDef.Type {
		case ArgTypeEnum:
			if !containsFold(argDef.Values, args[i]) {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      argDef.Name,
					Message:  "invalid value",
					Got:      args[i],
					Expected: strings.Join(argDef.Values, ", "),
				}
			}
		case ArgTypeIndex:
			if n, err := strconv.Atoi(args[i]); err != nil || n < 1 {
				return &ValidationError{
					Command:  cmd.Name,
					Arg:      argDef.Name,
					Message:  "invalid number",
					Got:      args[i],
					Expected: "a number from 1",
				}
			}
		}
	}
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// =============================================================================
// VALIDATION ERROR
// =============================================================================

// ValidationError represents an argument validation error.
type ValidationError struct {
	Command  string
	Arg      string
	Message  string
	Got      string
	Expected string
}

func (e *ValidationError) Error() string {
	msg := e.Command + ": " + e.Message
	if e.Arg != "" {
		msg += " for argument '" + e.Arg + "'"
	}
	if e.Got != "" {
		msg += " (got: " + e.Got + ")"
	}
	if e.Expected != "" {
		msg += "; expected: " + e.Expected
	}
	return msg
}
