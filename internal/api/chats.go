// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jeranaias/studyhall/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatList is one page of GET /chats.
type ChatList struct {
	Chats   []model.Session `json:"chats"`
	Page    int             `json:"page"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}

// AsPage converts the list to a model.Page.
func (l *ChatList) AsPage() model.Page[model.Session] {
	return model.Page[model.Session]{
		Items:   l.Chats,
		Page:    l.Page,
		Total:   l.Total,
		HasMore: l.HasMore,
	}
}

// Pagination describes the position of a message page.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// MessageList is one page of GET /chats/{id}/messages, newest first.
type MessageList struct {
	Data       []model.Message `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// AsPage converts the list to a model.Page. Items keep the wire order.
func (l *MessageList) AsPage() model.Page[model.Message] {
	return model.Page[model.Message]{
		Items:      l.Data,
		Page:       l.Pagination.Page,
		Total:      l.Pagination.Total,
		TotalPages: l.Pagination.TotalPages,
		HasMore:    l.Pagination.Page < l.Pagination.TotalPages,
	}
}

// AskRequest is the body of POST /chats/{id}/ask.
type AskRequest struct {
	Query string `json:"query"`
}

// AskResponse is the assistant reply. Older backends name the citation
// list "citations" instead of "sources"; both are accepted.
type AskResponse struct {
	Response  string           `json:"response"`
	Sources   []model.Citation `json:"sources,omitempty"`
	Citations []model.Citation `json:"citations,omitempty"`
}

// References returns the reply's citations from whichever field carried them.
func (r *AskResponse) References() []model.Citation {
	if len(r.Sources) > 0 {
		return r.Sources
	}
	return r.Citations
}

// =============================================================================
// CHAT ENDPOINTS
// =============================================================================

// ListChats fetches one page of the caller's chats, newest first.
func (c *Client) ListChats(ctx context.Context, page int) (*ChatList, error) {
	if page < 1 {
		page = 1
	}
	var out ChatList
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/chats?page=" + strconv.Itoa(page),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = page
	}
	return &out, nil
}

// CreateChat creates an empty chat.
func (c *Client) CreateChat(ctx context.Context) (*model.Session, error) {
	var out model.Session
	if err := c.do(ctx, request{method: http.MethodPost, path: "/chats", body: struct{}{}}, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, errors.New("create chat: response carried no id")
	}
	return &out, nil
}

// DeleteChat deletes a chat. Backends that do not implement deletion yield
// an error wrapping ErrNotSupported.
func (c *Client) DeleteChat(ctx context.Context, id string) error {
	err := c.do(ctx, request{method: http.MethodDelete, path: "/chats/" + url.PathEscape(id)}, nil)
	if err == nil {
		return nil
	}

	// A plain-text 404 comes from the router, not from the chat handler.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound && !apiErr.structured {
		return fmt.Errorf("%w: %v", ErrNotSupported, err)
	}
	return err
}

// GetChatMessages fetches one page of a chat's messages, newest first.
func (c *Client) GetChatMessages(ctx context.Context, chatID string, page int) (*MessageList, error) {
	if page < 1 {
		page = 1
	}
	var out MessageList
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/chats/" + url.PathEscape(chatID) + "/messages?page=" + strconv.Itoa(page),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Pagination.Page == 0 {
		out.Pagination.Page = page
	}
	return &out, nil
}

// Ask sends a question to the chat's assistant and returns its reply.
func (c *Client) Ask(ctx context.Context, chatID, query string) (*AskResponse, error) {
	var out AskResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/chats/" + url.PathEscape(chatID) + "/ask",
		body:   AskRequest{Query: query},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
