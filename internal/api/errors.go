// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error variables for common backend failures.
var (
	// ErrUnauthorized indicates the backend rejected the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the addressed resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotSupported indicates the backend does not implement the operation.
	ErrNotSupported = errors.New("operation not supported by server")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string

	// structured is true when the body was a JSON error document, which
	// tells a missing resource apart from a missing route.
	structured bool
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, msg)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, msg)
}

// Unwrap maps the status code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrUnauthorized
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.Status == http.StatusMethodNotAllowed || e.Status == http.StatusNotImplemented:
		return ErrNotSupported
	case e.Status >= 500:
		return ErrServer
	}
	return nil
}

// Retryable reports whether the request may succeed if repeated.
func (e *APIError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests ||
		(e.Status >= 500 && e.Status != http.StatusNotImplemented)
}

// errorBody covers the error shapes the backend is known to emit:
// {"error": "..."}, {"error": {"code": "...", "message": "..."}},
// {"message": "..."} and {"detail": "..."}.
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
}

// handleErrorResponse converts an HTTP error response to an *APIError.
func handleErrorResponse(status int, body []byte, requestID string) error {
	apiErr := &APIError{Status: status, RequestID: requestID}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		apiErr.structured = true
		switch {
		case len(eb.Error) > 0 && eb.Error[0] == '"':
			_ = json.Unmarshal(eb.Error, &apiErr.Message)
		case len(eb.Error) > 0 && eb.Error[0] == '{':
			var nested struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			}
			if json.Unmarshal(eb.Error, &nested) == nil {
				apiErr.Code, apiErr.Message = nested.Code, nested.Message
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = firstNonEmpty(eb.Message, eb.Detail)
		}
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	var te *transportError
	return errors.As(err, &te)
}

// transportError marks failures that happened before a response arrived.
type transportError struct {
	err error
}

func (e *transportError) Error() string { return "request failed: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
