// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/export"
	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/storage"
)

// =============================================================================
// EVENT BRIDGE
// =============================================================================

// eventBuffer bounds the callbacks queued between two Update calls.
const eventBuffer = 256

// bridge carries callbacks from the chat components into the program.
// Callbacks may fire inside Update itself, so emit never blocks.
type bridge struct {
	events chan tea.Msg
}

func newBridge() *bridge {
	return &bridge{events: make(chan tea.Msg, eventBuffer)}
}

func (b *bridge) emit(msg tea.Msg) {
	select {
	case b.events <- msg:
	default:
		slog.Warn("ui event dropped", "type", fmt.Sprintf("%T", msg))
	}
}

// listen waits for the next event. It is re-armed after every event.
func (b *bridge) listen() tea.Cmd {
	return func() tea.Msg {
		return <-b.events
	}
}

// =============================================================================
// COMPONENT EVENTS
// =============================================================================

// threadChangedMsg reports a mutation of the displayed messages.
type threadChangedMsg struct {
	change chat.Change
}

// selectionChangedMsg reports a new selected session ("" for none).
type selectionChangedMsg struct {
	id string
}

// uploadProgressMsg reports upload progress; an empty name ends the batch.
type uploadProgressMsg struct {
	name    string
	percent int
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

type sessionsLoadedMsg struct {
	page    int
	restore bool
	// lastID is the remembered session, read when restore is set.
	lastID string
	err    error
}

type sessionCreatedMsg struct {
	session model.Session
	err     error
}

type sessionDeletedMsg struct {
	id  string
	err error
}

type messagesLoadedMsg struct {
	sessionID string
	page      int
	err       error
}

type messageSentMsg struct {
	sessionID string
	text      string
	reply     model.Message
	err       error
}

type uploadFinishedMsg struct {
	sessionID string
	summary   chat.UploadSummary
	err       error
}

type exportFinishedMsg struct {
	path      string
	count     int
	truncated bool
	err       error
}

// =============================================================================
// COMMANDS
// =============================================================================

// loadSessions fetches a page of sessions. With restore set it also reads
// the remembered session so it can be selected once the list is in.
func (m Model) loadSessions(page int, restore bool) tea.Cmd {
	ctx, dir, store, baseURL := m.ctx, m.dir, m.store, m.backend.BaseURL()
	return func() tea.Msg {
		msg := sessionsLoadedMsg{page: page, restore: restore}
		msg.err = dir.ListSessions(ctx, page)
		if msg.err == nil && restore && store != nil {
			id, err := store.LastSession(ctx, baseURL)
			if err != nil {
				slog.Warn("could not read last session", "error", err)
			}
			msg.lastID = id
		}
		return msg
	}
}

func (m Model) loadMoreSessions() tea.Cmd {
	ctx, dir := m.ctx, m.dir
	next := dir.Page() + 1
	return func() tea.Msg {
		return sessionsLoadedMsg{page: next, err: dir.LoadMore(ctx)}
	}
}

func (m Model) createSession() tea.Cmd {
	ctx, dir := m.ctx, m.dir
	return func() tea.Msg {
		s, err := dir.CreateSession(ctx)
		return sessionCreatedMsg{session: s, err: err}
	}
}

func (m Model) deleteSession(id string) tea.Cmd {
	ctx, dir := m.ctx, m.dir
	return func() tea.Msg {
		return sessionDeletedMsg{id: id, err: dir.DeleteSession(ctx, id)}
	}
}

func (m Model) loadMessages(sessionID string, page int) tea.Cmd {
	ctx, thread := m.ctx, m.thread
	return func() tea.Msg {
		return messagesLoadedMsg{sessionID: sessionID, page: page, err: thread.LoadMessages(ctx, sessionID, page)}
	}
}

func (m Model) loadOlder() tea.Cmd {
	ctx, thread := m.ctx, m.thread
	sessionID := thread.SessionID()
	return func() tea.Msg {
		return messagesLoadedMsg{sessionID: sessionID, page: -1, err: thread.LoadOlder(ctx)}
	}
}

func (m Model) sendMessage(sessionID, text string) tea.Cmd {
	ctx, thread := m.ctx, m.thread
	return func() tea.Msg {
		reply, err := thread.SendMessage(ctx, sessionID, text)
		return messageSentMsg{sessionID: sessionID, text: text, reply: reply, err: err}
	}
}

// uploadFiles uploads the queue to sessionID and records every outcome in
// the upload history.
func (m Model) uploadFiles(sessionID string) tea.Cmd {
	ctx, uploader, store := m.ctx, m.uploader, m.store
	queued := uploader.Pending()
	return func() tea.Msg {
		summary, err := uploader.UploadAll(ctx, sessionID)
		if err == nil && store != nil {
			recordUploads(ctx, store, sessionID, queued, summary)
		}
		return uploadFinishedMsg{sessionID: sessionID, summary: summary, err: err}
	}
}

func recordUploads(ctx context.Context, store StateStore, sessionID string, queued []chat.Candidate, summary chat.UploadSummary) {
	byName := make(map[string]chat.Candidate, len(queued))
	for _, c := range queued {
		byName[c.Name] = c
	}

	records := make([]storage.UploadRecord, 0, len(summary.Documents)+len(summary.Failed))
	for _, doc := range summary.Documents {
		records = append(records, storage.UploadRecord{
			Filename:  doc.Title,
			SessionID: sessionID,
			MimeType:  doc.MimeType,
			Size:      byName[doc.Title].Size,
			Status:    storage.UploadSucceeded,
			SourceURL: doc.SourceURL,
		})
	}
	for _, f := range summary.Failed {
		c := byName[f.Name]
		records = append(records, storage.UploadRecord{
			Filename:  f.Name,
			SessionID: sessionID,
			MimeType:  c.MimeType,
			Size:      c.Size,
			Status:    storage.UploadFailed,
			Error:     f.Err.Error(),
		})
	}

	for _, rec := range records {
		if _, err := store.RecordUpload(ctx, rec); err != nil {
			slog.Warn("could not record upload", "file", rec.Filename, "error", err)
		}
	}
}

// exportSession writes the full history of sessionID to the export
// directory.
func (m Model) exportSession(sessionID string, exporter export.Exporter) tea.Cmd {
	ctx, backend, dir := m.ctx, m.backend, m.exportDir
	return func() tea.Msg {
		msgs, truncated, err := chat.FullHistory(ctx, backend, sessionID, maxExportPages)
		if err != nil {
			return exportFinishedMsg{err: err}
		}
		transcript := export.NewTranscript(sessionID, msgs, backend.BaseURL())
		path, err := export.WriteFile(transcript, exporter, dir)
		if err != nil {
			return exportFinishedMsg{err: err}
		}
		slog.Info("session exported", "session", sessionID, "path", path, "messages", len(msgs))
		return exportFinishedMsg{path: path, count: len(msgs), truncated: truncated}
	}
}

// rememberSession stores id as the last selected session. The empty id
// forgets it.
func (m Model) rememberSession(id string) tea.Cmd {
	if m.store == nil {
		return nil
	}
	ctx, store, baseURL := m.ctx, m.store, m.backend.BaseURL()
	return func() tea.Msg {
		if err := store.SetLastSession(ctx, baseURL, id); err != nil {
			slog.Warn("could not remember session", "error", err)
		}
		return nil
	}
}
