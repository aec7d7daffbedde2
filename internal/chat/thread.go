// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

// MessageAPI is the part of the backend the Thread talks to.
type MessageAPI interface {
	GetChatMessages(ctx context.Context, chatID string, page int) (*api.MessageList, error)
	Ask(ctx context.Context, chatID, query string) (*api.AskResponse, error)
}

// Invalidator refreshes data derived from the thread, such as the session
// list's last-message previews.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Change describes one mutation of the displayed message list.
type Change struct {
	SessionID string
	// Added counts messages appended at the newest end.
	Added int
	// Prepended counts older messages paged in at the start.
	Prepended int
	// Removed counts retracted messages.
	Removed int
	// Reset is set when the thread was bound to a session.
	Reset bool
}

// =============================================================================
// ENTRIES
// =============================================================================

// entryState tags a message with where it is in its send lifecycle.
type entryState int

const (
	// entryConfirmed is a message the backend knows about.
	entryConfirmed entryState = iota
	// entryPending is an optimistic message awaiting the reply.
	entryPending
)

type entry struct {
	msg   model.Message
	state entryState
	// local is set for messages created on this side: sends, replies and
	// upload notices. They sort after server messages with the same time.
	local bool
}

func entryKey(e entry) string { return e.msg.ID }

// =============================================================================
// THREAD
// =============================================================================

// Thread is the message history of the active session.
type Thread struct {
	api         MessageAPI
	invalidator Invalidator
	now         func() time.Time

	mu        sync.Mutex
	sessionID string
	// epoch is bumped on every activation; responses carrying an older
	// epoch belong to a previous session and are dropped.
	epoch   uint64
	entries []entry
	page    int
	hasMore bool
	sending map[string]bool

	// OnChange is called, outside the lock, after every mutation.
	// Set it before the Thread is shared.
	OnChange func(Change)
}

// NewThread creates a thread backed by client. invalidator may be nil.
func NewThread(client MessageAPI, invalidator Invalidator) *Thread {
	return &Thread{
		api:         client,
		invalidator: invalidator,
		now:         time.Now,
		sending:     make(map[string]bool),
	}
}

// Activate binds the thread to sessionID and clears its messages.
// The empty id leaves the thread unbound.
func (t *Thread) Activate(sessionID string) {
	t.mu.Lock()
	t.epoch++
	t.sessionID = sessionID
	t.entries = nil
	t.page = 0
	t.hasMore = false
	t.mu.Unlock()

	t.notify(Change{SessionID: sessionID, Reset: true})
}

// LoadMessages fetches one newest-first page of sessionID's history and
// shows it oldest first. Page 1 replaces confirmed messages; later pages
// are prepended. Pending sends are kept. Responses for a session that is
// no longer active are dropped.
func (t *Thread) LoadMessages(ctx context.Context, sessionID string, page int) error {
	if page < 1 {
		page = 1
	}

	t.mu.Lock()
	if sessionID == "" || sessionID != t.sessionID {
		t.mu.Unlock()
		return ErrNoSession
	}
	epoch := t.epoch
	t.mu.Unlock()

	list, err := t.api.GetChatMessages(ctx, sessionID, page)
	if err != nil {
		return &FetchError{Op: "load messages", Page: page, Err: err}
	}

	incoming := make([]entry, 0, len(list.Data))
	for _, m := range reversed(list.Data) {
		incoming = append(incoming, entry{msg: m, state: entryConfirmed})
	}

	t.mu.Lock()
	if epoch != t.epoch {
		t.mu.Unlock()
		slog.Debug("discarding messages for inactive session", "session", sessionID, "page", page)
		return nil
	}

	var change Change
	if page == 1 {
		var pending []entry
		for _, e := range t.entries {
			if e.state == entryPending {
				pending = append(pending, e)
			}
		}
		t.entries = accumulate(accumulate(nil, incoming, appendAtEnd, entryKey), pending, appendAtEnd, entryKey)
		change = Change{Added: len(t.entries), Reset: true}
		t.page = 1
	} else {
		before := len(t.entries)
		t.entries = accumulate(t.entries, incoming, prependAtStart, entryKey)
		change = Change{Prepended: len(t.entries) - before}
		t.page = max(t.page, page)
	}
	sortEntries(t.entries)
	t.hasMore = list.Pagination.Page < list.Pagination.TotalPages
	change.SessionID = t.sessionID
	t.mu.Unlock()

	t.notify(change)
	return nil
}

// LoadOlder fetches the next page of history when more is available.
func (t *Thread) LoadOlder(ctx context.Context) error {
	t.mu.Lock()
	if !t.hasMore || t.sessionID == "" {
		t.mu.Unlock()
		return nil
	}
	sessionID, next := t.sessionID, t.page+1
	t.mu.Unlock()

	return t.LoadMessages(ctx, sessionID, next)
}

// SendMessage sends text to sessionID's assistant. The user message is
// shown immediately; on success the reply is appended after it, on failure
// the user message is retracted and a *SendError returned.
func (t *Thread) SendMessage(ctx context.Context, sessionID, text string) (model.Message, error) {
	query := strings.TrimSpace(text)
	if query == "" {
		return model.Message{}, ErrEmptyMessage
	}
	if sessionID == "" {
		return model.Message{}, ErrNoSession
	}

	t.mu.Lock()
	if t.sending[sessionID] {
		t.mu.Unlock()
		return model.Message{}, ErrSendInFlight
	}
	t.sending[sessionID] = true
	epoch := t.epoch
	visible := sessionID == t.sessionID
	stamp := t.localStamp
	if !visible {
		stamp = t.now
	}
	pending := model.NewPendingUserMessage(query, stamp())
	if visible {
		t.entries = append(t.entries, entry{msg: pending, state: entryPending, local: true})
	}
	t.mu.Unlock()

	if visible {
		t.notify(Change{SessionID: sessionID, Added: 1})
	}

	resp, err := t.api.Ask(ctx, sessionID, query)

	t.mu.Lock()
	delete(t.sending, sessionID)
	current := epoch == t.epoch

	if err != nil {
		removed := 0
		if current && t.removeEntry(pending.ID) {
			removed = 1
		}
		t.mu.Unlock()
		if removed > 0 {
			t.notify(Change{SessionID: sessionID, Removed: removed})
		}
		return model.Message{}, &SendError{Op: "send message", SessionID: sessionID, Err: err}
	}

	stamp = t.localStamp
	if !current {
		stamp = t.now
	}
	reply := model.Message{
		ID:        "reply-" + uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   resp.Response,
		CreatedAt: maxTime(stamp(), pending.CreatedAt),
	}
	if refs := resp.References(); len(refs) > 0 {
		reply.Metadata = &model.Metadata{Citations: refs}
	}

	if current {
		t.confirmEntry(pending.ID)
		t.entries = append(t.entries, entry{msg: reply, state: entryConfirmed, local: true})
	}
	t.mu.Unlock()

	if current {
		t.notify(Change{SessionID: sessionID, Added: 1})
	}
	t.invalidate(ctx)
	return reply, nil
}

// ReceiveUploadedFile records a completed upload as a file message in
// sessionID's history and refreshes the session list.
func (t *Thread) ReceiveUploadedFile(ctx context.Context, sessionID string, doc model.Document) {
	msg := model.NewFileMessage("file-"+uuid.NewString(), doc)

	t.mu.Lock()
	visible := sessionID != "" && sessionID == t.sessionID
	if visible {
		t.entries = append(t.entries, entry{msg: msg, state: entryConfirmed, local: true})
	}
	t.mu.Unlock()

	if visible {
		t.notify(Change{SessionID: sessionID, Added: 1})
	}
	t.invalidate(ctx)
}

func (t *Thread) invalidate(ctx context.Context) {
	if t.invalidator == nil {
		return
	}
	if err := t.invalidator.Invalidate(ctx); err != nil {
		slog.Warn("session list refresh failed", "error", err)
	}
}

func (t *Thread) notify(c Change) {
	if t.OnChange != nil {
		t.OnChange(c)
	}
}

// removeEntry deletes the entry with id. Callers hold t.mu.
func (t *Thread) removeEntry(id string) bool {
	for i, e := range t.entries {
		if e.msg.ID == id {
			t.entries = append(t.entries[:i:i], t.entries[i+1:]...)
			return true
		}
	}
	return false
}

// confirmEntry marks the entry with id as confirmed. Callers hold t.mu.
func (t *Thread) confirmEntry(id string) {
	for i := range t.entries {
		if t.entries[i].msg.ID == id {
			t.entries[i].state = entryConfirmed
			return
		}
	}
}

// localStamp is the creation time for a new local message: the local clock,
// but never earlier than the newest message shown, so a client clock behind
// the server's does not move the message up the history. Callers hold t.mu.
func (t *Thread) localStamp() time.Time {
	now := t.now()
	if n := len(t.entries); n > 0 {
		now = maxTime(now, t.entries[n-1].msg.CreatedAt)
	}
	return now
}

func maxTime(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

// sortEntries orders entries by creation time. On equal timestamps server
// messages come before local ones, otherwise arrival order is kept.
func sortEntries(entries []entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
			return a.msg.CreatedAt.Before(b.msg.CreatedAt)
		}
		return !a.local && b.local
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Messages returns the displayed messages, oldest first.
func (t *Thread) Messages() []model.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Message, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.msg
	}
	return out
}

// Len returns the number of displayed messages.
func (t *Thread) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// SessionID returns the active session, or "".
func (t *Thread) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// Waiting reports whether the active session has a send awaiting its reply.
func (t *Thread) Waiting() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sending[t.sessionID]
}

// HasOlder reports whether older history can be paged in.
func (t *Thread) HasOlder() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasMore
}

// Pending reports whether the message with id is still awaiting its reply.
func (t *Thread) Pending(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.msg.ID == id {
			return e.state == entryPending
		}
	}
	return false
}

// FullHistory pages through every message of sessionID and returns them
// oldest first. Paging stops after maxPages; truncated reports whether
// older history was left behind.
func FullHistory(ctx context.Context, client MessageAPI, sessionID string, maxPages int) (msgs []model.Message, truncated bool, err error) {
	thread := NewThread(client, nil)
	thread.Activate(sessionID)
	if err := thread.LoadMessages(ctx, sessionID, 1); err != nil {
		return nil, false, err
	}
	for page := 1; thread.HasOlder(); page++ {
		if maxPages > 0 && page >= maxPages {
			return thread.Messages(), true, nil
		}
		if err := thread.LoadOlder(ctx); err != nil {
			return nil, false, err
		}
	}
	return thread.Messages(), false, nil
}
