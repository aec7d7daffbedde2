// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/auth"
	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/config"
	"github.com/jeranaias/studyhall/internal/export"
	"github.com/jeranaias/studyhall/internal/mockapi"
)

// =============================================================================
// ARG PARSER TESTS (args.go)
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"list"},
			wantSub: "list",
		},
		{
			name:    "flag with value",
			args:    []string{"list", "--page", "3"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "3", p.Flag("page"))
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"list", "--page=2"},
			wantSub: "list",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "2", p.Flag("--page"))
			},
		},
		{
			name:    "known boolean flag does not swallow positional",
			args:    []string{"delete", "--confirm", "abc"},
			wantSub: "delete",
			validate: func(t *testing.T, p *ArgParser) {
				assert.True(t, p.BoolFlag("confirm"))
				assert.Equal(t, "abc", p.Positional(1))
			},
		},
		{
			name:    "question words stay positional",
			args:    []string{"s1", "what", "is", "osmosis?"},
			wantSub: "s1",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, 4, p.PositionalCount())
				assert.Equal(t, "what is osmosis?", strings.Join(p.PositionalFrom(1), " "))
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"s1", "--", "--not-a-flag"},
			wantSub: "s1",
			validate: func(t *testing.T, p *ArgParser) {
				assert.Equal(t, "--not-a-flag", p.Positional(1))
			},
		},
		{
			name:    "explicit boolean",
			args:    []string{"--empty=false"},
			wantSub: "",
			validate: func(t *testing.T, p *ArgParser) {
				assert.False(t, p.BoolFlag("empty"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewArgParser(tt.args)
			assert.Equal(t, tt.wantSub, p.Subcommand())
			if tt.validate != nil {
				tt.validate(t, p)
			}
		})
	}
}

func TestArgParser_FlagIntOrDefault(t *testing.T) {
	p := NewArgParser([]string{"--page", "4", "--limit", "x", "--bad=-2"})

	n, err := p.FlagIntOrDefault("page", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = p.FlagIntOrDefault("missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = p.FlagIntOrDefault("limit", 1)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = p.FlagIntOrDefault("bad", 1)
	assert.Error(t, err)
}

// =============================================================================
// PARSE TESTS (cli.go)
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		argv    []string
		want    Command
		check   func(*testing.T, Args)
	}{
		{argv: nil, want: CmdTUI},
		{argv: []string{"--json", "sessions", "list"}, want: CmdSessions, check: func(t *testing.T, a Args) {
			assert.True(t, a.JSON)
			assert.Equal(t, "list", a.Subcommand())
		}},
		{argv: []string{"ask", "s1", "why?", "--api-url", "http://x/api"}, want: CmdAsk, check: func(t *testing.T, a Args) {
			assert.Equal(t, "http://x/api", a.APIURL)
			assert.Equal(t, 2, a.PositionalCount())
		}},
		{argv: []string{"--config=/tmp/c.toml", "upload", "s1", "a.pdf"}, want: CmdUpload, check: func(t *testing.T, a Args) {
			assert.Equal(t, "/tmp/c.toml", a.ConfigPath)
		}},
		{argv: []string{"mock", "--addr", ":9000"}, want: CmdMockServer, check: func(t *testing.T, a Args) {
			assert.Equal(t, ":9000", a.Flag("addr"))
		}},
		{argv: []string{"UPLOADS"}, want: CmdUploads},
		{argv: []string{"--help"}, want: CmdHelp},
		{argv: []string{"sesions"}, want: CmdUnknown, check: func(t *testing.T, a Args) {
			assert.Equal(t, "sesions", a.Unknown)
		}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, " "), func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.want, cmd)
			require.NotNil(t, args.ArgParser)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestSuggestCommand(t *testing.T) {
	assert.Equal(t, "sessions", SuggestCommand("sesions"))
	assert.Equal(t, "upload", SuggestCommand("uplaod"))
	assert.Equal(t, "", SuggestCommand("x"))
	assert.Equal(t, "", SuggestCommand("completely-different"))
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", NewValidationError("--page", "x", "bad"), ExitUsageError},
		{"usage", ErrMissingArgument("ask", "<session>"), ExitUsageError},
		{"auth missing", fmt.Errorf("send: %w", auth.ErrAuthMissing), ExitAuthError},
		{"unauthorized", &api.APIError{Status: 401}, ExitAuthError},
		{"not found", &api.APIError{Status: 404}, ExitNotFoundError},
		{"fetch", &chat.FetchError{Op: "list sessions", Page: 1, Err: errors.New("boom")}, ExitNetworkError},
		{"config", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

// =============================================================================
// COMMAND TESTS AGAINST THE MOCK BACKEND
// =============================================================================

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

func newTestApp(t *testing.T, opts mockapi.Options) (*App, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	opts.Token = "dev"
	ts := httptest.NewServer(mockapi.New(opts).Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.API.BaseURL = ts.URL + "/api"
	cfg.API.RequestsPerSecond = 0
	cfg.Auth.Token = "dev"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "state.db")

	var out, errOut bytes.Buffer
	app, err := NewApp(cfg, Args{JSON: true}, &out, &errOut)
	require.NoError(t, err)
	require.NotNil(t, app.Store)
	t.Cleanup(func() { app.Close() })
	return app, &out
}

func decode(t *testing.T, buf *bytes.Buffer, data interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env), buf.String())
	require.True(t, env.Success, buf.String())
	require.NoError(t, json.Unmarshal(env.Data, data))
	buf.Reset()
}

func TestSessions_CreateListDelete(t *testing.T) {
	app, out := newTestApp(t, mockapi.Options{Seed: true})
	ctx := context.Background()

	require.NoError(t, app.RunSessions(ctx, NewArgParser([]string{"create"})))
	var created SessionData
	decode(t, out, &created)
	require.NotEmpty(t, created.ID)

	require.NoError(t, app.RunSessions(ctx, NewArgParser(nil)))
	var list SessionListData
	decode(t, out, &list)
	require.Len(t, list.Sessions, 3)
	assert.Equal(t, created.ID, list.Sessions[0].ID)
	assert.True(t, list.Sessions[0].Selected)

	err := app.RunSessions(ctx, NewArgParser([]string{"delete", created.ID}))
	require.Error(t, err, "JSON mode requires --confirm")

	require.NoError(t, app.RunSessions(ctx, NewArgParser([]string{"delete", created.ID, "--confirm"})))
	out.Reset()

	last, err := app.Store.LastSession(ctx, app.Client.BaseURL())
	require.NoError(t, err)
	assert.Empty(t, last)
}

func TestSessions_DeleteNotSupported(t *testing.T) {
	app, _ := newTestApp(t, mockapi.Options{Seed: true, DisableDelete: true})

	err := app.RunSessions(context.Background(), NewArgParser([]string{"delete", "whatever", "--confirm"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrNotSupported))

	var buf bytes.Buffer
	DisplayError(&buf, "sessions", err, false)
	assert.Contains(t, buf.String(), "does not support")
}

func TestAsk_UsesLastSessionAndPrintsCitations(t *testing.T) {
	app, out := newTestApp(t, mockapi.Options{})
	ctx := context.Background()

	require.NoError(t, app.RunSessions(ctx, NewArgParser([]string{"create"})))
	var created SessionData
	decode(t, out, &created)

	dir := t.TempDir()
	path := filepath.Join(dir, "biology.txt")
	require.NoError(t, os.WriteFile(path, []byte("osmosis is diffusion of water"), 0600))
	require.NoError(t, app.RunUpload(ctx, NewArgParser([]string{"last", path})))
	var uploaded UploadResultData
	decode(t, out, &uploaded)
	require.Len(t, uploaded.Uploaded, 1)
	assert.Equal(t, created.ID, uploaded.SessionID)

	require.NoError(t, app.RunAsk(ctx, NewArgParser([]string{"last", "what", "is", "osmosis?"})))
	var reply MessageData
	decode(t, out, &reply)
	assert.Equal(t, "assistant", reply.Role)
	require.Len(t, reply.Citations, 1)
	assert.Equal(t, "biology.txt", reply.Citations[0].Title)

	require.NoError(t, app.RunMessages(ctx, NewArgParser(nil)))
	var msgs MessageListData
	decode(t, out, &msgs)
	require.Len(t, msgs.Messages, 3)
	assert.Equal(t, "file", msgs.Messages[0].Role)
	assert.Equal(t, "what is osmosis?", msgs.Messages[1].Content)
}

func TestAsk_RequiresQuestion(t *testing.T) {
	app, _ := newTestApp(t, mockapi.Options{})

	err := app.RunAsk(context.Background(), NewArgParser([]string{"s1"}))
	var uerr *UsageError
	assert.True(t, errors.As(err, &uerr))

	err = app.RunAsk(context.Background(), NewArgParser([]string{"s1", "   "}))
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestExport_PagesFullHistory(t *testing.T) {
	app, out := newTestApp(t, mockapi.Options{PageSize: 2})
	ctx := context.Background()

	require.NoError(t, app.RunSessions(ctx, NewArgParser([]string{"create"})))
	var created SessionData
	decode(t, out, &created)

	for _, q := range []string{"what is osmosis?", "and diffusion?"} {
		require.NoError(t, app.RunAsk(ctx, NewArgParser([]string{created.ID, q})))
		out.Reset()
	}

	dir := t.TempDir()
	require.NoError(t, app.RunExport(ctx, NewArgParser([]string{"last", "--output", dir})))
	var result ExportData
	decode(t, out, &result)
	assert.Equal(t, created.ID, result.SessionID)
	assert.Equal(t, "md", result.Format)
	assert.Equal(t, 4, result.Messages)
	assert.Equal(t, dir, filepath.Dir(result.Path))

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "# what is osmosis?")
	assert.Less(t, strings.Index(md, "what is osmosis?"), strings.Index(md, "and diffusion?"))

	require.NoError(t, app.RunExport(ctx, NewArgParser([]string{created.ID, "--format", "json", "--stdout"})))
	var transcript export.Transcript
	require.NoError(t, json.Unmarshal(out.Bytes(), &transcript))
	require.Len(t, transcript.Messages, 4)
	assert.Equal(t, "and diffusion?", transcript.Messages[2].Content)
}

func TestExport_RejectsUnknownFormat(t *testing.T) {
	app, _ := newTestApp(t, mockapi.Options{Seed: true})

	err := app.RunExport(context.Background(), NewArgParser([]string{"s1", "--format", "pdf"}))

	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestUpload_RejectionsAndHistory(t *testing.T) {
	app, out := newTestApp(t, mockapi.Options{Seed: true})
	ctx := context.Background()

	require.NoError(t, app.RunSessions(ctx, NewArgParser(nil)))
	var list SessionListData
	decode(t, out, &list)
	sessionID := list.Sessions[0].ID

	dir := t.TempDir()
	good := filepath.Join(dir, "notes.txt")
	bad := filepath.Join(dir, "diagram.png")
	require.NoError(t, os.WriteFile(good, []byte("chapter 1 notes"), 0600))
	require.NoError(t, os.WriteFile(bad, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0600))

	require.NoError(t, app.RunUpload(ctx, NewArgParser([]string{sessionID, good, bad, filepath.Join(dir, "missing.pdf")})))
	var result UploadResultData
	decode(t, out, &result)
	assert.Len(t, result.Uploaded, 1)
	assert.Len(t, result.Rejected, 2)

	require.NoError(t, app.RunUploads(ctx, NewArgParser(nil)))
	var history []UploadHistoryData
	decode(t, out, &history)
	require.Len(t, history, 1)
	assert.Equal(t, "notes.txt", history[0].Filename)
	assert.Equal(t, "uploaded", history[0].Status)
	assert.Equal(t, sessionID, history[0].SessionID)

	err := app.RunUpload(ctx, NewArgParser([]string{sessionID, bad}))
	require.Error(t, err)
}

func TestRunConfig_SetGetDoesNotPersistEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STUDYHALL_HOME", home)
	t.Setenv("STUDYHALL_TOKEN", "from-env-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, RunConfig(cfg, NewArgParser([]string{"set", "ui.theme", "light"}), false, &out))
	assert.Contains(t, out.String(), "ui.theme")

	data, err := os.ReadFile(filepath.Join(home, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `theme = "light"`)
	assert.NotContains(t, string(data), "from-env-secret")

	out.Reset()
	require.NoError(t, RunConfig(cfg, NewArgParser([]string{"get", "auth.token"}), false, &out))
	assert.Equal(t, "from********\n", out.String())

	err = RunConfig(cfg, NewArgParser([]string{"set", "ui.theme", "neon"}), false, &out)
	assert.Error(t, err)
}
