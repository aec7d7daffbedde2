// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/model"
)

func newTestThread(fake *fakeAPI, inv Invalidator) *Thread {
	th := NewThread(fake, inv)
	clock := t0.Add(24 * time.Hour)
	th.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return th
}

func TestThread_PagesPrependInChronologicalOrder(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages(
		[]model.Message{
			message("m6", model.RoleAssistant, "f", 6),
			message("m5", model.RoleUser, "e", 5),
		},
		[]model.Message{
			message("m4", model.RoleAssistant, "d", 4),
			message("m3", model.RoleUser, "c", 3),
		},
		[]model.Message{
			message("m2", model.RoleAssistant, "b", 2),
			message("m1", model.RoleUser, "a", 1),
		},
	)
	th := newTestThread(fake, nil)
	th.Activate("s1")
	ctx := context.Background()

	require.NoError(t, th.LoadMessages(ctx, "s1", 1))
	assert.Equal(t, []string{"m5", "m6"}, ids(th.Messages()))
	assert.True(t, th.HasOlder())

	require.NoError(t, th.LoadOlder(ctx))
	require.NoError(t, th.LoadOlder(ctx))

	msgs := th.Messages()
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5", "m6"}, ids(msgs))
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
	assert.False(t, th.HasOlder())
}

func TestThread_OutOfOrderPageIsSorted(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages(
		[]model.Message{message("m4", model.RoleAssistant, "d", 4), message("m3", model.RoleUser, "c", 3)},
		// Page 2 repeats m3 and carries a message stamped after everything on page 1.
		[]model.Message{message("late", model.RoleUser, "x", 5), message("m3", model.RoleUser, "c", 3), message("m2", model.RoleAssistant, "b", 2)},
	)
	th := newTestThread(fake, nil)
	th.Activate("s1")

	require.NoError(t, th.LoadMessages(context.Background(), "s1", 1))
	require.NoError(t, th.LoadMessages(context.Background(), "s1", 2))

	assert.Equal(t, []string{"m2", "m3", "m4", "late"}, ids(th.Messages()))
}

func TestThread_FetchErrorKeepsMessages(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages(
		[]model.Message{message("m2", model.RoleAssistant, "b", 2)},
		[]model.Message{message("m1", model.RoleUser, "a", 1)},
	)
	th := newTestThread(fake, nil)
	th.Activate("s1")
	require.NoError(t, th.LoadMessages(context.Background(), "s1", 1))

	fake.getMessages = func(context.Context, string, int) (*api.MessageList, error) { return nil, errBackend }
	err := th.LoadOlder(context.Background())

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, []string{"m2"}, ids(th.Messages()))
	assert.True(t, th.HasOlder())
}

func TestThread_LoadForInactiveSession(t *testing.T) {
	th := newTestThread(newFakeAPI(), nil)
	th.Activate("s1")
	assert.ErrorIs(t, th.LoadMessages(context.Background(), "s2", 1), ErrNoSession)
}

func TestThread_DropsResponseAfterSwitchingSession(t *testing.T) {
	fake := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	fake.getMessages = func(_ context.Context, id string, page int) (*api.MessageList, error) {
		if id == "s1" {
			close(started)
			<-release
		}
		return &api.MessageList{
			Data:       []model.Message{message(id+"-m1", model.RoleUser, "hi", 1)},
			Pagination: api.Pagination{Page: 1, TotalPages: 1},
		}, nil
	}
	th := newTestThread(fake, nil)
	th.Activate("s1")

	done := make(chan error)
	go func() { done <- th.LoadMessages(context.Background(), "s1", 1) }()
	<-started

	th.Activate("s2")
	require.NoError(t, th.LoadMessages(context.Background(), "s2", 1))
	close(release)
	require.NoError(t, <-done)

	assert.Equal(t, "s2", th.SessionID())
	assert.Equal(t, []string{"s2-m1"}, ids(th.Messages()))
}

func TestThread_SendFailureRollsBack(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages([]model.Message{
		message("m2", model.RoleAssistant, "b", 2),
		message("m1", model.RoleUser, "a", 1),
	})
	fake.ask = func(context.Context, string, string) (*api.AskResponse, error) {
		return nil, errBackend
	}
	inv := &countingInvalidator{}
	th := newTestThread(fake, inv)
	th.Activate("s1")
	require.NoError(t, th.LoadMessages(context.Background(), "s1", 1))
	before := th.Messages()

	var changes []Change
	th.OnChange = func(c Change) { changes = append(changes, c) }

	_, err := th.SendMessage(context.Background(), "s1", "hello")

	var se *SendError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "s1", se.SessionID)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, before, th.Messages())
	assert.False(t, th.Waiting())
	assert.Zero(t, inv.count())

	require.Len(t, changes, 2)
	assert.Equal(t, 1, changes[0].Added)
	assert.Equal(t, 1, changes[1].Removed)
}

func TestThread_SendSuccessAppendsReplyWithCitations(t *testing.T) {
	url := "https://docs.example/bio.pdf"
	sources := []model.Citation{
		{DocumentID: "d1", DocumentTitle: "Biology 101", Ordinal: 1, Snippet: "ATP is...", SourceURL: &url},
		{DocumentID: "d2", DocumentTitle: "Lecture 4", Ordinal: 2, Snippet: "Mitochondria..."},
	}
	fake := newFakeAPI()
	fake.ask = func(_ context.Context, id, query string) (*api.AskResponse, error) {
		assert.Equal(t, "s1", id)
		assert.Equal(t, "what is ATP?", query)
		return &api.AskResponse{Response: "R", Sources: sources}, nil
	}
	inv := &countingInvalidator{}
	th := newTestThread(fake, inv)
	th.Activate("s1")

	reply, err := th.SendMessage(context.Background(), "s1", "  what is ATP?  ")
	require.NoError(t, err)

	msgs := th.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, "what is ATP?", msgs[0].Content)
	assert.True(t, msgs[0].IsTemporary())
	assert.False(t, th.Pending(msgs[0].ID))

	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "R", msgs[1].Content)
	assert.Equal(t, sources, msgs[1].Citations())
	assert.Equal(t, reply.ID, msgs[1].ID)
	assert.True(t, msgs[1].CreatedAt.After(msgs[0].CreatedAt))

	assert.Equal(t, 1, inv.count())
}

func TestThread_ReplyStaysLastWhenClientClockIsBehind(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages(
		[]model.Message{
			message("m4", model.RoleAssistant, "d", 4),
			message("m3", model.RoleUser, "c", 3),
		},
		[]model.Message{
			message("m2", model.RoleAssistant, "b", 2),
			message("m1", model.RoleUser, "a", 1),
		},
	)
	fake.ask = func(context.Context, string, string) (*api.AskResponse, error) {
		return &api.AskResponse{Response: "R"}, nil
	}
	th := newTestThread(fake, nil)
	th.now = func() time.Time { return t0.Add(-time.Hour) }
	th.Activate("s1")
	ctx := context.Background()

	require.NoError(t, th.LoadMessages(ctx, "s1", 1))
	reply, err := th.SendMessage(ctx, "s1", "question")
	require.NoError(t, err)
	assert.False(t, reply.CreatedAt.Before(t0.Add(4*time.Minute)))

	require.NoError(t, th.LoadOlder(ctx))

	msgs := th.Messages()
	require.Len(t, msgs, 6)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids(msgs[:4]))
	assert.Equal(t, "question", msgs[4].Content)
	assert.Equal(t, reply.ID, msgs[5].ID)
}

func TestSortEntries_LocalAfterServerOnTie(t *testing.T) {
	at := t0.Add(time.Minute)
	entries := []entry{
		{msg: model.Message{ID: "local", CreatedAt: at}, local: true},
		{msg: model.Message{ID: "server", CreatedAt: at}},
		{msg: model.Message{ID: "older", CreatedAt: t0}, local: true},
	}
	sortEntries(entries)

	var got []string
	for _, e := range entries {
		got = append(got, e.msg.ID)
	}
	assert.Equal(t, []string{"older", "server", "local"}, got)
}

func TestThread_RejectsEmptyMessage(t *testing.T) {
	fake := newFakeAPI()
	th := newTestThread(fake, nil)
	th.Activate("s1")

	_, err := th.SendMessage(context.Background(), "s1", " \n\t ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, th.Len())
	assert.Zero(t, fake.count("ask"))

	_, err = th.SendMessage(context.Background(), "", "hello")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestThread_RejectsConcurrentSend(t *testing.T) {
	fake := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	fake.ask = func(context.Context, string, string) (*api.AskResponse, error) {
		close(started)
		<-release
		return &api.AskResponse{Response: "ok"}, nil
	}
	th := newTestThread(fake, nil)
	th.Activate("s1")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := th.SendMessage(context.Background(), "s1", "first")
		assert.NoError(t, err)
	}()
	<-started

	assert.True(t, th.Waiting())
	_, err := th.SendMessage(context.Background(), "s1", "second")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	wg.Wait()

	assert.False(t, th.Waiting())
	assert.Equal(t, 2, th.Len())
	assert.Equal(t, 1, fake.count("ask"))
}

func TestThread_ReplyForInactiveSessionIsDropped(t *testing.T) {
	fake := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	fake.ask = func(context.Context, string, string) (*api.AskResponse, error) {
		close(started)
		<-release
		return &api.AskResponse{Response: "late"}, nil
	}
	inv := &countingInvalidator{}
	th := newTestThread(fake, inv)
	th.Activate("s1")

	done := make(chan error)
	go func() {
		_, err := th.SendMessage(context.Background(), "s1", "hello")
		done <- err
	}()
	<-started
	th.Activate("s2")
	close(release)
	require.NoError(t, <-done)

	assert.Zero(t, th.Len())
	assert.Equal(t, 1, inv.count())
}

func TestThread_PageOneKeepsPendingSend(t *testing.T) {
	fake := newFakeAPI()
	started := make(chan struct{})
	release := make(chan struct{})
	fake.ask = func(context.Context, string, string) (*api.AskResponse, error) {
		close(started)
		<-release
		return &api.AskResponse{Response: "ok"}, nil
	}
	fake.getMessages = pagedMessages([]model.Message{message("m1", model.RoleUser, "a", 1)})
	th := newTestThread(fake, nil)
	th.Activate("s1")

	done := make(chan error)
	go func() {
		_, err := th.SendMessage(context.Background(), "s1", "hello")
		done <- err
	}()
	<-started

	require.NoError(t, th.LoadMessages(context.Background(), "s1", 1))
	msgs := th.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "m1", msgs[0].ID)
	assert.True(t, th.Pending(msgs[1].ID))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 3, th.Len())
}

func TestThread_ReceiveUploadedFile(t *testing.T) {
	inv := &countingInvalidator{}
	th := newTestThread(newFakeAPI(), inv)
	th.Activate("s1")

	var added int
	th.OnChange = func(c Change) { added += c.Added }

	doc := model.Document{
		Title:     "notes.pdf",
		SourceURL: "https://files.example/notes.pdf",
		MimeType:  "application/pdf",
		CreatedAt: t0,
	}
	th.ReceiveUploadedFile(context.Background(), "s1", doc)
	th.ReceiveUploadedFile(context.Background(), "other", doc)

	msgs := th.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, model.RoleFile, msgs[0].Role)
	assert.Equal(t, "Uploaded: notes.pdf", msgs[0].Content)
	require.NotNil(t, msgs[0].Metadata)
	assert.Equal(t, "notes.pdf", msgs[0].Metadata.Filename)
	assert.Equal(t, doc.SourceURL, msgs[0].Metadata.SourceURL)
	assert.Equal(t, 1, added)
	assert.Equal(t, 2, inv.count())
}

func TestThread_ActivateResets(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages([]model.Message{message("m1", model.RoleUser, "a", 1)})
	th := newTestThread(fake, nil)

	var last Change
	th.OnChange = func(c Change) { last = c }

	th.Activate("s1")
	require.NoError(t, th.LoadMessages(context.Background(), "s1", 1))
	require.Equal(t, 1, th.Len())

	th.Activate("s2")
	assert.Zero(t, th.Len())
	assert.True(t, last.Reset)
	assert.Equal(t, "s2", last.SessionID)
}

func TestFullHistory(t *testing.T) {
	fake := newFakeAPI()
	fake.getMessages = pagedMessages(
		[]model.Message{message("m4", model.RoleAssistant, "d", 4), message("m3", model.RoleUser, "c", 3)},
		[]model.Message{message("m2", model.RoleAssistant, "b", 2), message("m1", model.RoleUser, "a", 1)},
	)

	msgs, truncated, err := FullHistory(context.Background(), fake, "s1", 0)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids(msgs))

	msgs, truncated, err = FullHistory(context.Background(), fake, "s1", 1)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, []string{"m3", "m4"}, ids(msgs))
}
