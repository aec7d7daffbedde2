// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// args.go - Argument parsing shared by all studyhall subcommands.

package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// ARG PARSER
// =============================================================================

// ArgParser splits subcommand arguments into flags and positionals.
// It understands:
//   - --flag value and --flag=value
//   - -f value
//   - --flag with no value (boolean)
//   - -- ends flag parsing; everything after is positional
//
// Flags listed in boolNames never consume the next argument, so
// "ask --no-citations abc question" keeps abc positional.
type ArgParser struct {
	flags      map[string]string
	boolFlags  map[string]bool
	positional []string
}

// boolNames are flags that never take a value.
var boolNames = map[string]bool{
	"confirm":      true,
	"no-citations": true,
	"stdout":       true,
	"no-delete":    true,
	"empty":        true,
	"json":         true,
}

// NewArgParser parses raw subcommand arguments.
//
//	p := NewArgParser([]string{"list", "--page", "2"})
//	p.Subcommand()            // "list"
//	p.FlagIntOrDefault("page", 1) // 2
func NewArgParser(raw []string) *ArgParser {
	p := &ArgParser{
		flags:     make(map[string]string),
		boolFlags: make(map[string]bool),
	}

	for i := 0; i < len(raw); i++ {
		arg := raw[i]

		if arg == "--" {
			p.positional = append(p.positional, raw[i+1:]...)
			break
		}
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			p.positional = append(p.positional, arg)
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if key, value, ok := strings.Cut(name, "="); ok {
			if value == "true" || value == "false" {
				p.boolFlags[key] = value == "true"
			} else {
				p.flags[key] = value
			}
			continue
		}

		if !boolNames[name] && i+1 < len(raw) && !strings.HasPrefix(raw[i+1], "-") {
			p.flags[name] = raw[i+1]
			i++
			continue
		}
		p.boolFlags[name] = true
	}
	return p
}

// Subcommand returns the first positional argument, or "".
func (p *ArgParser) Subcommand() string {
	return p.Positional(0)
}

// Flag returns the value of a string flag, or "".
func (p *ArgParser) Flag(name string) string {
	return p.flags[strings.TrimLeft(name, "-")]
}

// FlagOrDefault returns the flag value or defaultValue when unset.
func (p *ArgParser) FlagOrDefault(name, defaultValue string) string {
	if v := p.Flag(name); v != "" {
		return v
	}
	return defaultValue
}

// FlagIntOrDefault returns the flag as an int, or defaultValue when the
// flag is unset.
func (p *ArgParser) FlagIntOrDefault(name string, defaultValue int) (int, error) {
	v := p.Flag(name)
	if v == "" {
		return defaultValue, nil
	}
	return ParseIntWithValidation(v, "--"+strings.TrimLeft(name, "-"))
}

// BoolFlag reports whether a boolean flag was given.
func (p *ArgParser) BoolFlag(name string) bool {
	return p.boolFlags[strings.TrimLeft(name, "-")]
}

// Positional returns the positional argument at index, or "".
func (p *ArgParser) Positional(index int) string {
	if index < 0 || index >= len(p.positional) {
		return ""
	}
	return p.positional[index]
}

// PositionalFrom returns the positional arguments from index on.
func (p *ArgParser) PositionalFrom(index int) []string {
	if index < 0 || index >= len(p.positional) {
		return nil
	}
	return p.positional[index:]
}

// PositionalCount returns the number of positional arguments.
func (p *ArgParser) PositionalCount() int {
	return len(p.positional)
}

// =============================================================================
// HELPERS
// =============================================================================

// ParseIntWithValidation parses a positive integer.
func ParseIntWithValidation(s string, fieldName string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%s is required", fieldName)
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0, NewValidationError(fieldName, s, "must be a whole number")
	}
	if val <= 0 {
		return 0, NewValidationError(fieldName, s, "must be positive")
	}
	return val, nil
}
