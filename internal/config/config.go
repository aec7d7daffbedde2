// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for studyhall.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"

	"github.com/jeranaias/studyhall/internal/util"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STUDYHALL_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete studyhall configuration.
type Config struct {
	API     APIConfig     `toml:"api" json:"api"`
	Auth    AuthConfig    `toml:"auth" json:"auth"`
	Upload  UploadConfig  `toml:"upload" json:"upload"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// APIConfig configures the backend client.
type APIConfig struct {
	// BaseURL is the backend root, e.g. https://study.example/api
	BaseURL string `toml:"base_url" json:"base_url" env:"API_URL"`
	// TimeoutSecs bounds each non-upload request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"API_TIMEOUT_SECS"`
	// MaxRetries is the number of attempts for idempotent requests.
	MaxRetries int `toml:"max_retries" json:"max_retries" env:"API_MAX_RETRIES"`
	// RequestsPerSecond limits outgoing requests (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second" env:"API_RPS"`
	// Burst is the rate limiter burst size.
	Burst int `toml:"burst" json:"burst" env:"API_BURST"`
}

// Timeout returns TimeoutSecs as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// AuthConfig locates the bearer token. TokenFile wins over Token.
type AuthConfig struct {
	Token     string `toml:"token" json:"token" env:"TOKEN"`
	TokenFile string `toml:"token_file" json:"token_file" env:"TOKEN_FILE"`
}

// UploadConfig contains attachment validation rules.
type UploadConfig struct {
	MaxSizeMB     int      `toml:"max_size_mb" json:"max_size_mb" env:"UPLOAD_MAX_SIZE_MB"`
	SingleFile    bool     `toml:"single_file" json:"single_file" env:"UPLOAD_SINGLE_FILE"`
	AcceptedTypes []string `toml:"accepted_types" json:"accepted_types" env:"UPLOAD_ACCEPTED_TYPES" envSeparator:","`
}

// MaxSizeBytes returns MaxSizeMB in bytes.
func (c UploadConfig) MaxSizeBytes() int64 {
	return int64(c.MaxSizeMB) * 1024 * 1024
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	// Path is the SQLite file (empty = ~/.studyhall/state.db)
	Path string `toml:"path" json:"path" env:"STATE_PATH"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Theme is "dark" or "light"
	Theme         string `toml:"theme" json:"theme" env:"THEME"`
	Compact       bool   `toml:"compact" json:"compact" env:"COMPACT"`
	ShowCitations bool   `toml:"show_citations" json:"show_citations" env:"SHOW_CITATIONS"`
}

// LogConfig configures the log file. The TUI never logs to the terminal.
type LogConfig struct {
	// File is the log path (empty = ~/.studyhall/logs/studyhall.log)
	File  string `toml:"file" json:"file" env:"LOG_FILE"`
	Level string `toml:"level" json:"level" env:"LOG_LEVEL"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a new Config with default values.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:8787/api",
			TimeoutSecs:       30,
			MaxRetries:        3,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		Upload: UploadConfig{
			MaxSizeMB: 50,
			AcceptedTypes: []string{
				"application/pdf",
				"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
				"application/msword",
				"text/plain",
			},
		},
		UI: UIConfig{
			Theme:         "dark",
			ShowCitations: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the studyhall configuration directory path.
// STUDYHALL_HOME overrides the default ~/.studyhall.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".studyhall"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DefaultLogFile returns ~/.studyhall/logs/studyhall.log.
func DefaultLogFile() string {
	dir, err := ConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "logs", "studyhall.log")
}

// ensureSecurePermissions tightens config files to 0600; they may hold a token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// dotEnvFiles are loaded into the environment before overrides are applied.
// Variables already set in the environment win.
var dotEnvFiles = []string{".env"}

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				loaded = true
			}
		}
	}

	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil {
			if _, statErr := os.Stat(jsonPath); statErr == nil {
				if err := LoadJSON(cfg, jsonPath); err != nil {
					loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
					cfg = Default()
				}
			}
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}

	// Defaults are usable even when a file was unreadable.
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads the default config file without environment overrides,
// so that edits can be saved without persisting values that came from the
// environment.
func LoadFile() (*Config, error) {
	cfg := Default()
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return cfg, LoadTOML(cfg, tomlPath)
		}
	}
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return cfg, LoadJSON(cfg, jsonPath)
		}
	}
	return cfg, nil
}

// finish applies .env files, environment overrides, defaults and validation.
func (c *Config) finish() error {
	loadDotEnv()
	if err := c.ApplyEnvOverrides(); err != nil {
		return fmt.Errorf("invalid environment override: %w", err)
	}
	fillDefaults(c)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func loadDotEnv() {
	var present []string
	for _, f := range dotEnvFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return
	}
	if err := godotenv.Load(present...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", strings.Join(present, ", "), err)
	}
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaults.API.BaseURL
	}
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")
	if cfg.API.TimeoutSecs == 0 {
		cfg.API.TimeoutSecs = defaults.API.TimeoutSecs
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = defaults.API.MaxRetries
	}

	// Upload
	if cfg.Upload.MaxSizeMB == 0 {
		cfg.Upload.MaxSizeMB = defaults.Upload.MaxSizeMB
	}
	if len(cfg.Upload.AcceptedTypes) == 0 {
		cfg.Upload.AcceptedTypes = defaults.Upload.AcceptedTypes
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# studyhall configuration file\n")
	buf.WriteString("# Generated by studyhall - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors listing
// every invalid field.
func (c *Config) Validate() error {
	var errs ValidateErrors

	collect := func(section string, err error) {
		var fieldErrs validation.Errors
		if errors.As(err, &fieldErrs) {
			for field, ferr := range fieldErrs {
				errs = append(errs, ValidationError{Field: section + "." + field, Message: ferr.Error()})
			}
			return
		}
		if err != nil {
			errs = append(errs, ValidationError{Field: section, Message: err.Error()})
		}
	}

	collect("api", validation.ValidateStruct(&c.API,
		validation.Field(&c.API.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.API.TimeoutSecs, validation.Min(1), validation.Max(600)),
		validation.Field(&c.API.MaxRetries, validation.Min(1), validation.Max(10)),
		validation.Field(&c.API.RequestsPerSecond, validation.Min(0.0)),
		validation.Field(&c.API.Burst, validation.Min(0)),
	))
	collect("upload", validation.ValidateStruct(&c.Upload,
		validation.Field(&c.Upload.MaxSizeMB, validation.Min(1), validation.Max(50)),
		validation.Field(&c.Upload.AcceptedTypes, validation.Required, validation.Each(validation.Required)),
	))
	collect("ui", validation.ValidateStruct(&c.UI,
		validation.Field(&c.UI.Theme, validation.In("dark", "light")),
	))
	collect("log", validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
	))

	if len(errs) == 0 {
		return nil
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
	return errs
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return errors.New("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	if u.Host == "" {
		return errors.New("must include a host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies STUDYHALL_* environment variables to the config.
//
// Supported environment variables:
//   - STUDYHALL_API_URL, STUDYHALL_API_TIMEOUT_SECS, STUDYHALL_API_MAX_RETRIES
//   - STUDYHALL_API_RPS, STUDYHALL_API_BURST
//   - STUDYHALL_TOKEN, STUDYHALL_TOKEN_FILE
//   - STUDYHALL_UPLOAD_MAX_SIZE_MB, STUDYHALL_UPLOAD_SINGLE_FILE
//   - STUDYHALL_UPLOAD_ACCEPTED_TYPES (comma separated)
//   - STUDYHALL_STATE_PATH, STUDYHALL_THEME, STUDYHALL_COMPACT
//   - STUDYHALL_SHOW_CITATIONS, STUDYHALL_LOG_FILE, STUDYHALL_LOG_LEVEL
func (c *Config) ApplyEnvOverrides() error {
	return env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix})
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "api.base_url").
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(part[:1]))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(strVal, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, section.Tag.Get("toml")+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Upload.AcceptedTypes = append([]string(nil), c.Upload.AcceptedTypes...)
	return &clone
}

// String returns a string representation of the config for debugging.
// The token is redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Auth.Token != "" {
		safe.Auth.Token = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
