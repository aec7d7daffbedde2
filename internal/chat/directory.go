// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

// SessionAPI is the part of the backend the Directory talks to.
type SessionAPI interface {
	ListChats(ctx context.Context, page int) (*api.ChatList, error)
	CreateChat(ctx context.Context) (*model.Session, error)
	DeleteChat(ctx context.Context, id string) error
}

// Directory is the accumulated list of the user's sessions and the current
// selection. It is the only owner of the selection; observers learn about
// changes through OnSelect.
type Directory struct {
	api SessionAPI

	mu       sync.Mutex
	sessions []model.Session
	page     int
	hasMore  bool
	selected string
	// generation is bumped when a page-1 fetch starts and when a refresh
	// lands, so that pages started before them are discarded.
	generation uint64

	// changes logs creates and deletes made while fetches are in flight.
	// A page that arrives later has them applied again.
	changes   []localChange
	changeSeq uint64
	fetching  int

	// OnSelect is called, outside the lock, after the selection changes.
	// Set it before the Directory is shared.
	OnSelect func(id string)
}

// NewDirectory creates an empty directory backed by client.
func NewDirectory(client SessionAPI) *Directory {
	return &Directory{api: client}
}

func sessionKey(s model.Session) string { return s.ID }

// localChange is one create or delete recorded in the change log.
type localChange struct {
	seq     uint64
	created *model.Session
	deleted string
}

// beginFetch registers a fetch and returns the generation and change
// sequence it started at. Callers hold d.mu.
func (d *Directory) beginFetch(pageOne bool) (gen, since uint64) {
	if pageOne {
		d.generation++
	}
	d.fetching++
	return d.generation, d.changeSeq
}

// endFetch drops the change log once no fetch needs it. Callers hold d.mu.
func (d *Directory) endFetch() {
	d.fetching--
	if d.fetching == 0 {
		d.changes = nil
	}
}

// record logs c when a fetch is in flight. Callers hold d.mu.
func (d *Directory) record(c localChange) {
	d.changeSeq++
	if d.fetching == 0 {
		return
	}
	c.seq = d.changeSeq
	d.changes = append(d.changes, c)
}

// replay applies the changes made after since to a freshly fetched list.
// With creates unset only deletions are applied. Callers hold d.mu.
func (d *Directory) replay(list []model.Session, since uint64, creates bool) []model.Session {
	for _, c := range d.changes {
		if c.seq <= since {
			continue
		}
		switch {
		case c.created != nil && creates:
			list = accumulate(list, []model.Session{*c.created}, prependAtStart, sessionKey)
		case c.deleted != "":
			list = withoutSession(list, c.deleted)
		}
	}
	return list
}

func withoutSession(list []model.Session, id string) []model.Session {
	kept := make([]model.Session, 0, len(list))
	for _, s := range list {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return kept
}

// ListSessions fetches one page. Page 1 replaces the list; later pages are
// appended, skipping ids already present. On failure the list is untouched.
func (d *Directory) ListSessions(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}

	d.mu.Lock()
	gen, since := d.beginFetch(page == 1)
	d.mu.Unlock()

	list, err := d.api.ListChats(ctx, page)

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.endFetch()

	if err != nil {
		return &FetchError{Op: "list sessions", Page: page, Err: err}
	}
	if gen != d.generation {
		slog.Debug("discarding superseded session page", "page", page)
		return nil
	}

	if page == 1 {
		d.sessions = d.replay(accumulate(nil, list.Chats, appendAtEnd, sessionKey), since, true)
	} else {
		d.sessions = accumulate(d.sessions, d.replay(list.Chats, since, false), appendAtEnd, sessionKey)
	}
	d.page = page
	d.hasMore = list.HasMore
	return nil
}

// LoadMore fetches the next page when the last fetch reported more.
func (d *Directory) LoadMore(ctx context.Context) error {
	d.mu.Lock()
	if !d.hasMore {
		d.mu.Unlock()
		return nil
	}
	next := d.page + 1
	d.mu.Unlock()

	return d.ListSessions(ctx, next)
}

// Invalidate re-fetches pages 1 through the current page into a fresh list
// and swaps it in, refreshing last-message previews. A failed refresh keeps
// the existing list and leaves fetches in flight alone. A refresh that
// lands supersedes every fetch started before it.
func (d *Directory) Invalidate(ctx context.Context) error {
	d.mu.Lock()
	gen, since := d.beginFetch(false)
	pages := max(d.page, 1)
	d.mu.Unlock()

	var (
		fresh    []model.Session
		hasMore  bool
		last     int
		fetchErr error
	)
	for p := 1; p <= pages; p++ {
		list, err := d.api.ListChats(ctx, p)
		if err != nil {
			fetchErr = &FetchError{Op: "refresh sessions", Page: p, Err: err}
			break
		}
		fresh = accumulate(fresh, list.Chats, appendAtEnd, sessionKey)
		hasMore, last = list.HasMore, p
		if !hasMore {
			break
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.endFetch()
	if fetchErr != nil {
		return fetchErr
	}
	if gen != d.generation {
		slog.Debug("discarding superseded session refresh")
		return nil
	}
	// Pages still in flight predate the refresh.
	d.generation++
	d.sessions = d.replay(fresh, since, true)
	d.page = last
	d.hasMore = hasMore
	return nil
}

// CreateSession creates a session, puts it at the top of the list and
// selects it.
func (d *Directory) CreateSession(ctx context.Context) (model.Session, error) {
	created, err := d.api.CreateChat(ctx)
	if err != nil {
		return model.Session{}, &CreateError{Op: "create session", Err: err}
	}

	d.mu.Lock()
	d.sessions = accumulate(d.sessions, []model.Session{*created}, prependAtStart, sessionKey)
	d.record(localChange{created: created})
	changed := d.selected != created.ID
	d.selected = created.ID
	d.mu.Unlock()

	if changed {
		d.notifySelect(created.ID)
	}
	return *created, nil
}

// DeleteSession deletes a session. When it was selected, the first
// remaining session is selected, or nothing when none remain.
func (d *Directory) DeleteSession(ctx context.Context, id string) error {
	if err := d.api.DeleteChat(ctx, id); err != nil {
		return &DeleteError{Op: "delete session", ID: id, Err: err}
	}

	d.mu.Lock()
	kept := withoutSession(d.sessions, id)
	d.sessions = kept
	d.record(localChange{deleted: id})

	changed := false
	if d.selected == id {
		d.selected = ""
		if len(kept) > 0 {
			d.selected = kept[0].ID
		}
		changed = true
	}
	selected := d.selected
	d.mu.Unlock()

	if changed {
		d.notifySelect(selected)
	}
	return nil
}

// Select makes id the current session. The empty id clears the selection.
func (d *Directory) Select(id string) {
	d.mu.Lock()
	if d.selected == id {
		d.mu.Unlock()
		return
	}
	d.selected = id
	d.mu.Unlock()

	d.notifySelect(id)
}

func (d *Directory) notifySelect(id string) {
	if d.OnSelect != nil {
		d.OnSelect(id)
	}
}

// Selected returns the selected session id, or "" for none.
func (d *Directory) Selected() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Sessions returns a copy of the accumulated list.
func (d *Directory) Sessions() []model.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]model.Session, len(d.sessions))
	copy(out, d.sessions)
	return out
}

// Contains reports whether id is in the accumulated list.
func (d *Directory) Contains(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.sessions {
		if s.ID == id {
			return true
		}
	}
	return false
}

// HasMore reports whether the backend has further pages.
func (d *Directory) HasMore() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasMore
}

// Page returns the last page accumulated, 0 before the first fetch.
func (d *Directory) Page() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}
