// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

var errBackend = errors.New("backend unavailable")

// fakeAPI is a scripted backend. Unset hooks fail with errBackend.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	listChats   func(ctx context.Context, page int) (*api.ChatList, error)
	createChat  func(ctx context.Context) (*model.Session, error)
	deleteChat  func(ctx context.Context, id string) error
	getMessages func(ctx context.Context, id string, page int) (*api.MessageList, error)
	ask         func(ctx context.Context, id, query string) (*api.AskResponse, error)
	upload      func(ctx context.Context, req api.UploadRequest) (*model.Document, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: make(map[string]int)}
}

func (f *fakeAPI) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) ListChats(ctx context.Context, page int) (*api.ChatList, error) {
	f.record("list")
	if f.listChats == nil {
		return nil, errBackend
	}
	return f.listChats(ctx, page)
}

func (f *fakeAPI) CreateChat(ctx context.Context) (*model.Session, error) {
	f.record("create")
	if f.createChat == nil {
		return nil, errBackend
	}
	return f.createChat(ctx)
}

func (f *fakeAPI) DeleteChat(ctx context.Context, id string) error {
	f.record("delete")
	if f.deleteChat == nil {
		return errBackend
	}
	return f.deleteChat(ctx, id)
}

func (f *fakeAPI) GetChatMessages(ctx context.Context, id string, page int) (*api.MessageList, error) {
	f.record("messages")
	if f.getMessages == nil {
		return nil, errBackend
	}
	return f.getMessages(ctx, id, page)
}

func (f *fakeAPI) Ask(ctx context.Context, id, query string) (*api.AskResponse, error) {
	f.record("ask")
	if f.ask == nil {
		return nil, errBackend
	}
	return f.ask(ctx, id, query)
}

func (f *fakeAPI) UploadFile(ctx context.Context, req api.UploadRequest) (*model.Document, error) {
	f.record("upload")
	if f.upload == nil {
		return nil, errBackend
	}
	return f.upload(ctx, req)
}

// countingInvalidator records Invalidate calls.
type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func session(id string, minutes int) model.Session {
	return model.Session{ID: id, CreatedAt: t0.Add(time.Duration(minutes) * time.Minute)}
}

func message(id string, role model.Role, content string, minutes int) model.Message {
	return model.Message{
		ID:        id,
		Role:      role,
		Content:   content,
		CreatedAt: t0.Add(time.Duration(minutes) * time.Minute),
	}
}

// pagedChats serves pages from a fixed slice of pages.
func pagedChats(pages ...[]model.Session) func(context.Context, int) (*api.ChatList, error) {
	return func(_ context.Context, page int) (*api.ChatList, error) {
		if page < 1 || page > len(pages) {
			return &api.ChatList{Page: page}, nil
		}
		return &api.ChatList{Chats: pages[page-1], Page: page, HasMore: page < len(pages)}, nil
	}
}

// pagedMessages serves newest-first message pages.
func pagedMessages(pages ...[]model.Message) func(context.Context, string, int) (*api.MessageList, error) {
	return func(_ context.Context, _ string, page int) (*api.MessageList, error) {
		list := &api.MessageList{Pagination: api.Pagination{Page: page, TotalPages: len(pages)}}
		if page >= 1 && page <= len(pages) {
			list.Data = pages[page-1]
		}
		return list, nil
	}
}

func ids[T interface{ model.Session | model.Message }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := any(item).(type) {
		case model.Session:
			out = append(out, v.ID)
		case model.Message:
			out = append(out, v.ID)
		}
	}
	return out
}
