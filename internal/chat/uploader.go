// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

// Upload limits.
const (
	// DefaultMaxUploadSize is the largest file accepted for upload.
	DefaultMaxUploadSize int64 = 50 * 1024 * 1024
)

// DefaultAcceptedTypes lists the MIME types accepted for upload.
var DefaultAcceptedTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/msword",
	"text/plain",
}

// UploadAPI is the part of the backend the Uploader talks to.
type UploadAPI interface {
	UploadFile(ctx context.Context, req api.UploadRequest) (*model.Document, error)
}

// Candidate is a local file selected for upload. Candidates are never
// modified after creation.
type Candidate struct {
	Name          string
	Size          int64
	SizeFormatted string
	MimeType      string
	// Path is the local path, when the candidate came from disk.
	Path string
	// Open returns the file contents. It is called once per upload attempt.
	Open func() (io.ReadCloser, error)
}

// UploaderConfig sets validation rules.
type UploaderConfig struct {
	MaxSize       int64
	SingleFile    bool
	AcceptedTypes []string
}

// UploadSummary reports the outcome of one UploadAll batch.
type UploadSummary struct {
	Attempted int
	Succeeded int
	Documents []model.Document
	Failed    []UploadFailed
}

// Uploader validates, queues and uploads attachments for a session.
type Uploader struct {
	api UploadAPI
	cfg UploaderConfig

	mu        sync.Mutex
	queue     []Candidate
	uploading bool
	current   string
	progress  int

	// OnProgress receives the file being uploaded and its 0..100 progress.
	// It is called with ("", 0) when a batch completes.
	OnProgress func(name string, percent int)

	// OnUploaded is called for every file the backend accepted.
	OnUploaded func(sessionID string, doc model.Document)
}

// NewUploader creates an uploader. Zero config fields take defaults.
func NewUploader(client UploadAPI, cfg UploaderConfig) *Uploader {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxUploadSize
	}
	if len(cfg.AcceptedTypes) == 0 {
		cfg.AcceptedTypes = DefaultAcceptedTypes
	}
	return &Uploader{api: client, cfg: cfg}
}

// SelectFiles validates files and queues the accepted ones. In single-file
// mode the last accepted file replaces the queue. Rejected files are
// returned for display; selection itself never fails.
func (u *Uploader) SelectFiles(files []Candidate) []Rejection {
	var rejected []Rejection
	var accepted []Candidate

	u.mu.Lock()
	defer u.mu.Unlock()

	for _, f := range files {
		if u.uploading {
			rejected = append(rejected, Rejection{Name: f.Name, Reason: "an upload is already in progress"})
			continue
		}
		if reason := u.validate(f); reason != "" {
			rejected = append(rejected, Rejection{Name: f.Name, Reason: reason})
			continue
		}
		if f.SizeFormatted == "" {
			f.SizeFormatted = humanize.Bytes(uint64(f.Size))
		}
		accepted = append(accepted, f)
	}

	switch {
	case len(accepted) == 0:
	case u.cfg.SingleFile:
		u.queue = []Candidate{accepted[len(accepted)-1]}
	default:
		u.queue = append(u.queue, accepted...)
	}
	return rejected
}

func (u *Uploader) validate(f Candidate) string {
	if f.Open == nil {
		return "file cannot be read"
	}
	if !u.accepts(f.MimeType) {
		return fmt.Sprintf("unsupported file type %q", f.MimeType)
	}
	if f.Size > u.cfg.MaxSize {
		return fmt.Sprintf("file is %s, the limit is %s",
			humanize.Bytes(uint64(f.Size)), humanize.Bytes(uint64(u.cfg.MaxSize)))
	}
	return ""
}

func (u *Uploader) accepts(mimeType string) bool {
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	for _, t := range u.cfg.AcceptedTypes {
		if strings.EqualFold(t, base) {
			return true
		}
	}
	return false
}

// RemoveFile drops the queued file at index. It does nothing while a batch
// is uploading or when index is out of range.
func (u *Uploader) RemoveFile(index int) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.uploading || index < 0 || index >= len(u.queue) {
		return false
	}
	u.queue = append(u.queue[:index:index], u.queue[index+1:]...)
	return true
}

// UploadAll uploads the queue to sessionID one file at a time. A failing
// file does not stop the batch. When any file succeeded the whole queue is
// cleared; when none did it is kept for another attempt.
func (u *Uploader) UploadAll(ctx context.Context, sessionID string) (UploadSummary, error) {
	if sessionID == "" {
		return UploadSummary{}, ErrNoSession
	}

	u.mu.Lock()
	if u.uploading {
		u.mu.Unlock()
		return UploadSummary{}, ErrUploadInProgress
	}
	if len(u.queue) == 0 {
		u.mu.Unlock()
		return UploadSummary{}, nil
	}
	u.uploading = true
	batch := make([]Candidate, len(u.queue))
	copy(batch, u.queue)
	u.mu.Unlock()

	var summary UploadSummary
	for _, file := range batch {
		if err := ctx.Err(); err != nil {
			summary.Failed = append(summary.Failed, UploadFailed{Name: file.Name, Err: err})
			continue
		}

		summary.Attempted++
		doc, err := u.uploadOne(ctx, sessionID, file)
		if err != nil {
			summary.Failed = append(summary.Failed, UploadFailed{Name: file.Name, Err: err})
			continue
		}

		summary.Succeeded++
		summary.Documents = append(summary.Documents, *doc)
		if u.OnUploaded != nil {
			u.OnUploaded(sessionID, *doc)
		}
	}

	u.mu.Lock()
	if summary.Succeeded > 0 {
		u.queue = nil
	}
	u.uploading = false
	u.current = ""
	u.progress = 0
	u.mu.Unlock()

	u.report("", 0)
	return summary, nil
}

func (u *Uploader) uploadOne(ctx context.Context, sessionID string, file Candidate) (*model.Document, error) {
	u.setProgress(file.Name, 0)

	body, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer body.Close()

	return u.api.UploadFile(ctx, api.UploadRequest{
		Name:     file.Name,
		MimeType: file.MimeType,
		Size:     file.Size,
		Body:     body,
		ChatID:   sessionID,
		Progress: func(pct int) { u.setProgress(file.Name, pct) },
	})
}

func (u *Uploader) setProgress(name string, pct int) {
	u.mu.Lock()
	u.current, u.progress = name, pct
	u.mu.Unlock()
	u.report(name, pct)
}

func (u *Uploader) report(name string, pct int) {
	if u.OnProgress != nil {
		u.OnProgress(name, pct)
	}
}

// Pending returns a copy of the queue.
func (u *Uploader) Pending() []Candidate {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Candidate, len(u.queue))
	copy(out, u.queue)
	return out
}

// Uploading reports whether a batch is running.
func (u *Uploader) Uploading() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.uploading
}

// Progress returns the file being uploaded and its progress.
func (u *Uploader) Progress() (string, int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.current, u.progress
}
