// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for studyhall commands.
//
// Commands always return errors; main decides how to show them.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/auth"
	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ValidationError reports a bad argument value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// UsageError reports a command invoked without what it needs.
type UsageError struct {
	Command string
	Usage   string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: studyhall %s %s", e.Command, e.Usage)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument creates a UsageError for command.
func ErrMissingArgument(command, usage string) error {
	return &UsageError{Command: command, Usage: usage}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in the human or JSON format.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		_ = resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(w, DimStyle.Render(hint))
	}
}

func errorType(err error) string {
	var verr *ValidationError
	var uerr *UsageError
	switch {
	case errors.As(err, &verr), errors.As(err, &uerr):
		return "usage_error"
	case errors.Is(err, auth.ErrAuthMissing), errors.Is(err, api.ErrUnauthorized):
		return "auth_error"
	case errors.Is(err, api.ErrNotFound):
		return "not_found_error"
	case errors.Is(err, api.ErrNotSupported):
		return "not_supported_error"
	default:
		return "generic_error"
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, auth.ErrAuthMissing):
		return "Set STUDYHALL_TOKEN, or auth.token_file in the config."
	case errors.Is(err, api.ErrUnauthorized):
		return "The backend rejected the token. Sign in again and update it."
	case errors.Is(err, api.ErrNotSupported):
		return "This backend does not support that operation."
	}
	return ""
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var verr *ValidationError
	var uerr *UsageError
	var cerr config.ValidateErrors
	var netErr net.Error

	switch {
	case errors.As(err, &verr), errors.As(err, &uerr):
		return ExitUsageError
	case errors.As(err, &cerr):
		return ExitConfigError
	case errors.Is(err, auth.ErrAuthMissing), errors.Is(err, api.ErrUnauthorized):
		return ExitAuthError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case chat.IsRetryable(err), errors.As(err, &netErr), errors.Is(err, api.ErrServer):
		return ExitNetworkError
	}
	return ExitGeneralError
}
