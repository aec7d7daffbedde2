// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileProvider reads the token an external sign-in helper writes to disk
// and re-reads it whenever the file changes.
type FileProvider struct {
	path string
	now  func() time.Time

	mu      sync.RWMutex
	token   string
	loadErr error

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileProvider creates a provider for the token file at path.
// Call Start before use.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path, now: time.Now, done: make(chan struct{})}
}

// Start loads the token and begins watching the file's directory.
// The directory is watched rather than the file so that editors and
// helpers replacing the file by rename are still observed.
func (p *FileProvider) Start() error {
	p.reload()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create token watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch token directory: %w", err)
	}
	p.watcher = watcher

	p.wg.Add(1)
	go p.processEvents()
	return nil
}

// Token implements TokenProvider.
func (p *FileProvider) Token(ctx context.Context) (string, error) {
	p.mu.RLock()
	token, loadErr := p.token, p.loadErr
	p.mu.RUnlock()

	if loadErr != nil {
		return "", loadErr
	}
	return validate(token, p.now())
}

// Close stops the watcher.
func (p *FileProvider) Close() error {
	if p.watcher == nil {
		return nil
	}
	close(p.done)
	err := p.watcher.Close()
	p.wg.Wait()
	p.watcher = nil
	return err
}

func (p *FileProvider) processEvents() {
	defer p.wg.Done()
	target := filepath.Clean(p.path)

	for {
		select {
		case <-p.done:
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				p.reload()
			}

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("token watcher error", "path", p.path, "error", err)
		}
	}
}

func (p *FileProvider) reload() {
	data, err := os.ReadFile(p.path)

	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case errors.Is(err, os.ErrNotExist):
		p.token, p.loadErr = "", ErrAuthMissing
	case err != nil:
		p.token, p.loadErr = "", fmt.Errorf("%w: read token file: %v", ErrAuthMissing, err)
	default:
		p.token, p.loadErr = strings.TrimSpace(string(data)), nil
		slog.Debug("token reloaded", "path", p.path)
	}
}
