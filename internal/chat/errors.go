// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyMessage is returned when the text to send is blank.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrSendInFlight is returned when a send for the same session is
	// still waiting for its reply.
	ErrSendInFlight = errors.New("a message is already being sent")

	// ErrNoSession is returned when an operation needs a session and none
	// is selected.
	ErrNoSession = errors.New("no session selected")

	// ErrUploadInProgress is returned by UploadAll while a batch is running.
	// Callers treat it as a no-op.
	ErrUploadInProgress = errors.New("upload already in progress")
)

// FetchError is a failed read of sessions or messages. Accumulated data is
// kept and the read may be retried.
type FetchError struct {
	Op   string
	Page int
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (page %d): %v", e.Op, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// CreateError is a failed session creation.
type CreateError struct {
	Op  string
	Err error
}

func (e *CreateError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *CreateError) Unwrap() error { return e.Err }

// DeleteError is a failed session deletion.
type DeleteError struct {
	Op  string
	ID  string
	Err error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// SendError is a failed send. The optimistic message has been retracted.
type SendError struct {
	Op        string
	SessionID string
	Err       error
}

func (e *SendError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *SendError) Unwrap() error { return e.Err }

// Rejection names a file that failed local validation.
type Rejection struct {
	Name   string
	Reason string
}

func (r Rejection) Error() string { return r.Name + ": " + r.Reason }

// UploadFailed records one file of a batch that the backend did not accept.
type UploadFailed struct {
	Name string
	Err  error
}

func (u UploadFailed) Error() string { return "upload " + u.Name + ": " + u.Err.Error() }

func (u UploadFailed) Unwrap() error { return u.Err }

// IsRetryable reports whether err came from a read the user can retry.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
