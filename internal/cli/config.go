// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for studyhall.
//
// Command: config [subcommand]
//
// Subcommands:
//   show (default)      Display the effective configuration
//   get <key>           Print one value (dot notation)
//   set <key> <value>   Change a value and save config.toml
//   keys                List every key
//   path                Show the config file location
//
// Examples:
//   studyhall config set api.base_url https://study.example/api
//   studyhall config set upload.single_file true
//   studyhall config get ui.theme
package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jeranaias/studyhall/internal/config"
)

// secretKeys are masked in show and get output.
var secretKeys = map[string]bool{
	"auth.token": true,
}

// RunConfig executes the config command. It needs no network or token.
func RunConfig(cfg *config.Config, p *ArgParser, jsonMode bool, out io.Writer) error {
	switch sub := p.Subcommand(); sub {
	case "", "show":
		return configShow(cfg, jsonMode, out)
	case "get":
		key := p.Positional(1)
		if key == "" {
			return ErrMissingArgument("config get", "<key>")
		}
		value, err := cfg.Get(key)
		if err != nil {
			return NewValidationError("key", key, err.Error())
		}
		display := maskIfSecret(key, fmt.Sprint(value))
		if jsonMode {
			return NewJSONResponse("config get", map[string]interface{}{"key": key, "value": display}).Print(out)
		}
		fmt.Fprintln(out, display)
		return nil
	case "set":
		key, value := p.Positional(1), strings.Join(p.PositionalFrom(2), " ")
		if key == "" || p.PositionalCount() < 3 {
			return ErrMissingArgument("config set", "<key> <value>")
		}
		return configSet(key, value, jsonMode, out)
	case "keys":
		keys := config.GetAllKeys()
		if jsonMode {
			return NewJSONResponse("config keys", keys).Print(out)
		}
		fmt.Fprintln(out, strings.Join(keys, "\n"))
		return nil
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		if jsonMode {
			return NewJSONResponse("config path", map[string]string{"path": path}).Print(out)
		}
		fmt.Fprintln(out, path)
		return nil
	default:
		return NewValidationError("subcommand", sub, "expected show, get, set, keys or path")
	}
}

func configShow(cfg *config.Config, jsonMode bool, out io.Writer) error {
	values := make(map[string]string)
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		values[key] = maskIfSecret(key, formatValue(v))
	}

	if jsonMode {
		return NewJSONResponse("config show", values).Print(out)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(out, TitleStyle.Render("studyhall configuration"))
	section := ""
	for _, key := range keys {
		sec, name, _ := strings.Cut(key, ".")
		if sec != section {
			section = sec
			fmt.Fprintln(out)
			fmt.Fprintln(out, "["+sec+"]")
		}
		value := values[key]
		if value == "" {
			value = DimStyle.Render("(unset)")
		}
		fmt.Fprintf(out, "  %s %s\n", LabelStyle.Width(22).Render(name), value)
	}
	return nil
}

func configSet(key, value string, jsonMode bool, out io.Writer) error {
	updated, err := config.LoadFile()
	if err != nil {
		return err
	}
	if err := updated.Set(key, value); err != nil {
		return NewValidationError("key", key, err.Error())
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := config.Save(updated); err != nil {
		return err
	}

	shown := maskIfSecret(key, value)
	if jsonMode {
		return NewJSONResponse("config set", map[string]string{"key": key, "value": shown}).Print(out)
	}
	fmt.Fprintf(out, "%s %s = %s\n", SuccessStyle.Render("Saved"), key, shown)
	return nil
}

func formatValue(v interface{}) string {
	if list, ok := v.([]string); ok {
		return strings.Join(list, ",")
	}
	return fmt.Sprint(v)
}

// maskIfSecret keeps the first four characters of secret values.
func maskIfSecret(key, value string) string {
	if !secretKeys[key] || value == "" {
		return value
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", 8)
}
