// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

// TestCreateThenSend wires the three components the way the TUI does and
// walks the create-then-send flow from an empty account.
func TestCreateThenSend(t *testing.T) {
	fake := newFakeAPI()
	var created []model.Session
	fake.listChats = func(context.Context, int) (*api.ChatList, error) {
		return &api.ChatList{Chats: created, Page: 1}, nil
	}
	fake.createChat = func(context.Context) (*model.Session, error) {
		s := model.Session{ID: "s1", CreatedAt: t0}
		created = append(created, s)
		return &s, nil
	}
	fake.ask = func(_ context.Context, id, query string) (*api.AskResponse, error) {
		return &api.AskResponse{Response: "hi there"}, nil
	}

	dir := NewDirectory(fake)
	thread := newTestThread(fake, dir)
	dir.OnSelect = thread.Activate
	uploader := NewUploader(fake, UploaderConfig{})
	uploader.OnUploaded = func(sessionID string, doc model.Document) {
		thread.ReceiveUploadedFile(context.Background(), sessionID, doc)
	}

	ctx := context.Background()
	require.NoError(t, dir.ListSessions(ctx, 1))
	assert.Empty(t, dir.Sessions())

	_, err := dir.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids(dir.Sessions()))
	assert.Equal(t, "s1", dir.Selected())
	assert.Equal(t, "s1", thread.SessionID())

	_, err = thread.SendMessage(ctx, "s1", "hello")
	require.NoError(t, err)

	msgs := thread.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "hi there", msgs[1].Content)

	// The send refreshed the directory.
	assert.Equal(t, 2, fake.count("list"))

	fake.upload = func(_ context.Context, req api.UploadRequest) (*model.Document, error) {
		return &model.Document{Title: req.Name, MimeType: req.MimeType}, nil
	}
	uploader.SelectFiles([]Candidate{memCandidate("notes.pdf", "application/pdf", 100)})
	summary, err := uploader.UploadAll(ctx, dir.Selected())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)

	msgs = thread.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, model.RoleFile, msgs[2].Role)
	assert.Equal(t, "Uploaded: notes.pdf", msgs[2].Content)
}
