// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

const mb = 1024 * 1024

func memCandidate(name, mimeType string, size int64) Candidate {
	return Candidate{
		Name:     name,
		Size:     size,
		MimeType: mimeType,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("content of " + name)), nil
		},
	}
}

func TestUploader_SelectFilesRejectsOversize(t *testing.T) {
	u := NewUploader(newFakeAPI(), UploaderConfig{})

	rejected := u.SelectFiles([]Candidate{
		memCandidate("a.pdf", "application/pdf", 2*mb),
		memCandidate("b.txt", "text/plain; charset=utf-8", 10),
		memCandidate("huge.pdf", "application/pdf", 51*mb),
	})

	pending := u.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a.pdf", pending[0].Name)
	assert.Equal(t, "2.1 MB", pending[0].SizeFormatted)
	assert.Equal(t, "b.txt", pending[1].Name)

	require.Len(t, rejected, 1)
	assert.Equal(t, "huge.pdf", rejected[0].Name)
	assert.Contains(t, rejected[0].Error(), "huge.pdf")
}

func TestUploader_SelectFilesRejectsType(t *testing.T) {
	u := NewUploader(newFakeAPI(), UploaderConfig{})

	rejected := u.SelectFiles([]Candidate{
		memCandidate("photo.png", "image/png", 10),
		memCandidate("paper.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", 10),
		memCandidate("old.doc", "application/msword", 10),
	})

	require.Len(t, rejected, 1)
	assert.Equal(t, "photo.png", rejected[0].Name)
	assert.Contains(t, rejected[0].Reason, "image/png")
	assert.Len(t, u.Pending(), 2)
}

func TestUploader_SingleFileReplacesQueue(t *testing.T) {
	u := NewUploader(newFakeAPI(), UploaderConfig{SingleFile: true})

	u.SelectFiles([]Candidate{memCandidate("a.pdf", "application/pdf", 1)})
	u.SelectFiles([]Candidate{
		memCandidate("b.pdf", "application/pdf", 1),
		memCandidate("c.pdf", "application/pdf", 1),
	})

	pending := u.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "c.pdf", pending[0].Name)
}

func TestUploader_RemoveFile(t *testing.T) {
	u := NewUploader(newFakeAPI(), UploaderConfig{})
	u.SelectFiles([]Candidate{
		memCandidate("a.pdf", "application/pdf", 1),
		memCandidate("b.pdf", "application/pdf", 1),
		memCandidate("c.pdf", "application/pdf", 1),
	})

	assert.False(t, u.RemoveFile(-1))
	assert.False(t, u.RemoveFile(3))
	assert.True(t, u.RemoveFile(1))

	pending := u.Pending()
	require.Len(t, pending, 2)
	assert.Equal(t, "a.pdf", pending[0].Name)
	assert.Equal(t, "c.pdf", pending[1].Name)
}

func TestUploader_SequentialBatchIsolatesFailures(t *testing.T) {
	fake := newFakeAPI()
	var (
		mu        sync.Mutex
		attempted []string
		inFlight  int
	)
	fake.upload = func(_ context.Context, req api.UploadRequest) (*model.Document, error) {
		mu.Lock()
		inFlight++
		attempted = append(attempted, req.Name)
		concurrent := inFlight
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()

		assert.Equal(t, 1, concurrent)
		assert.Equal(t, "s1", req.ChatID)
		req.Progress(50)
		if req.Name == "b.pdf" {
			return nil, errBackend
		}
		return &model.Document{Title: req.Name, MimeType: req.MimeType}, nil
	}

	u := NewUploader(fake, UploaderConfig{})
	var uploaded []string
	u.OnUploaded = func(sessionID string, doc model.Document) {
		assert.Equal(t, "s1", sessionID)
		uploaded = append(uploaded, doc.Title)
	}
	var progress []int
	u.OnProgress = func(_ string, pct int) { progress = append(progress, pct) }

	u.SelectFiles([]Candidate{
		memCandidate("a.pdf", "application/pdf", 1),
		memCandidate("b.pdf", "application/pdf", 1),
		memCandidate("c.pdf", "application/pdf", 1),
	})

	summary, err := u.UploadAll(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 3, fake.count("upload"))
	assert.Equal(t, []string{"a.pdf", "b.pdf", "c.pdf"}, attempted)
	assert.Equal(t, []string{"a.pdf", "c.pdf"}, uploaded)
	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, "b.pdf", summary.Failed[0].Name)
	assert.ErrorIs(t, summary.Failed[0], errBackend)

	// Any success clears the whole queue, including the failed file.
	assert.Empty(t, u.Pending())
	assert.False(t, u.Uploading())
	_, pct := u.Progress()
	assert.Zero(t, pct)
	assert.Equal(t, 0, progress[len(progress)-1])
}

func TestUploader_AllFailedKeepsQueue(t *testing.T) {
	fake := newFakeAPI()
	u := NewUploader(fake, UploaderConfig{})
	u.SelectFiles([]Candidate{
		memCandidate("a.pdf", "application/pdf", 1),
		memCandidate("b.pdf", "application/pdf", 1),
	})

	summary, err := u.UploadAll(context.Background(), "s1")
	require.NoError(t, err)

	assert.Zero(t, summary.Succeeded)
	assert.Len(t, summary.Failed, 2)
	assert.Len(t, u.Pending(), 2)
}

func TestUploader_OpenFailureIsPerFile(t *testing.T) {
	fake := newFakeAPI()
	fake.upload = func(_ context.Context, req api.UploadRequest) (*model.Document, error) {
		return &model.Document{Title: req.Name}, nil
	}
	broken := memCandidate("gone.pdf", "application/pdf", 1)
	broken.Open = func() (io.ReadCloser, error) { return nil, os.ErrNotExist }

	u := NewUploader(fake, UploaderConfig{})
	u.SelectFiles([]Candidate{broken, memCandidate("ok.pdf", "application/pdf", 1)})

	summary, err := u.UploadAll(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Failed, 1)
	assert.True(t, errors.Is(summary.Failed[0], os.ErrNotExist))
	assert.Equal(t, 1, fake.count("upload"))
}

func TestUploader_GuardsConcurrentBatch(t *testing.T) {
	fake := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	fake.upload = func(_ context.Context, req api.UploadRequest) (*model.Document, error) {
		close(started)
		<-release
		return &model.Document{Title: req.Name}, nil
	}
	u := NewUploader(fake, UploaderConfig{})
	u.SelectFiles([]Candidate{memCandidate("a.pdf", "application/pdf", 1)})

	done := make(chan error)
	go func() {
		_, err := u.UploadAll(context.Background(), "s1")
		done <- err
	}()
	<-started

	assert.True(t, u.Uploading())
	_, err := u.UploadAll(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrUploadInProgress)
	assert.False(t, u.RemoveFile(0))
	rejected := u.SelectFiles([]Candidate{memCandidate("b.pdf", "application/pdf", 1)})
	assert.Len(t, rejected, 1)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fake.count("upload"))
}

func TestUploader_EmptyQueueAndNoSession(t *testing.T) {
	u := NewUploader(newFakeAPI(), UploaderConfig{})

	summary, err := u.UploadAll(context.Background(), "s1")
	require.NoError(t, err)
	assert.Zero(t, summary.Attempted)

	_, err = u.UploadAll(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCandidateFromPath(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "café.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello world"), 0600))

	pdf := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), 0600))

	c, err := CandidateFromPath(txt)
	require.NoError(t, err)
	assert.Equal(t, "café.txt", c.Name)
	assert.Equal(t, "text/plain", c.MimeType)
	assert.Equal(t, int64(11), c.Size)
	assert.Equal(t, "11 B", c.SizeFormatted)

	rc, err := c.Open()
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "hello world", string(data))

	c, err = CandidateFromPath(pdf)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", c.MimeType)

	_, err = CandidateFromPath(filepath.Join(dir, "missing.pdf"))
	assert.Error(t, err)

	_, err = CandidateFromPath(dir)
	assert.Error(t, err)
}
