// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/jeranaias/studyhall/internal/api"
	"github.com/jeranaias/studyhall/internal/auth"
	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/commands"
	"github.com/jeranaias/studyhall/internal/export"
	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/storage"
	"github.com/jeranaias/studyhall/internal/ui/components"
	"github.com/jeranaias/studyhall/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Backend is the remote API used by the view.
type Backend interface {
	chat.SessionAPI
	chat.MessageAPI
	chat.UploadAPI
	BaseURL() string
}

// StateStore persists the last selected session and the upload history.
type StateStore interface {
	LastSession(ctx context.Context, baseURL string) (string, error)
	SetLastSession(ctx context.Context, baseURL, sessionID string) error
	RecordUpload(ctx context.Context, rec storage.UploadRecord) (int64, error)
}

// Options configures a Model.
type Options struct {
	// Context bounds every request; it defaults to context.Background.
	Context context.Context
	Backend Backend
	// Store may be nil.
	Store         StateStore
	Theme         *styles.Theme
	Uploads       chat.UploaderConfig
	ShowCitations bool
	Compact       bool
	// ExportDir receives /export files; it defaults to the working directory.
	ExportDir string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

type focusArea int

const (
	focusComposer focusArea = iota
	focusSessions
)

const (
	// sessionPaneWidth is the width of the session pane, borders included.
	sessionPaneWidth = 32

	// maxCompletionHints caps the candidates listed after an ambiguous tab.
	maxCompletionHints = 8

	// maxExportPages bounds the history paged in by /export.
	maxExportPages = 500
)

// Model is the Bubble Tea model of the interactive client.
type Model struct {
	ctx     context.Context
	theme   *styles.Theme
	keys    KeyMap
	backend Backend
	store   StateStore

	dir      *chat.Directory
	thread   *chat.Thread
	uploader *chat.Uploader
	bridge   *bridge

	commands  *commands.Parser
	completer *commands.Completer
	exportDir string

	// UI components
	viewport  viewport.Model
	input     textinput.Model
	spinner   spinner.Model
	uploads   components.UploadPanel
	toasts    *components.ToastManager
	markdown  *glamour.TermRenderer
	citations map[string]*components.CitationList

	focus         focusArea
	cursor        int
	showCitations bool
	compact       bool

	// retry repeats the last failed fetch.
	retry tea.Cmd
	// pendingDelete is the session awaiting a second delete press.
	pendingDelete   string
	loadingSessions bool
	spinning        bool
	toastTicking    bool
	scroll          scrollTracker

	width  int
	height int
}

// New creates the model and wires the chat components to it.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("")
	}

	b := newBridge()
	dir := chat.NewDirectory(opts.Backend)
	thread := chat.NewThread(opts.Backend, dir)
	uploader := chat.NewUploader(opts.Backend, opts.Uploads)

	dir.OnSelect = func(id string) { b.emit(selectionChangedMsg{id: id}) }
	thread.OnChange = func(c chat.Change) { b.emit(threadChangedMsg{change: c}) }
	uploader.OnProgress = func(name string, pct int) { b.emit(uploadProgressMsg{name: name, percent: pct}) }
	uploader.OnUploaded = func(sessionID string, doc model.Document) {
		thread.ReceiveUploadedFile(ctx, sessionID, doc)
	}

	input := textinput.New()
	input.Placeholder = "Ask a question, or /attach <file>"
	input.Prompt = "> "
	input.CharLimit = 4000
	input.Focus()

	registry := commands.NewRegistry()
	exportDir := opts.ExportDir
	if exportDir == "" {
		exportDir = "."
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Info

	m := Model{
		ctx:             ctx,
		theme:           theme,
		keys:            DefaultKeyMap(),
		backend:         opts.Backend,
		store:           opts.Store,
		dir:             dir,
		thread:          thread,
		uploader:        uploader,
		bridge:          b,
		commands:        commands.NewParser(registry),
		completer:       commands.NewCompleter(registry),
		exportDir:       exportDir,
		viewport:        viewport.New(80, 20),
		input:           input,
		spinner:         sp,
		uploads:         components.NewUploadPanel(),
		toasts:          components.NewToastManager(),
		citations:       make(map[string]*components.CitationList),
		showCitations:   opts.ShowCitations,
		compact:         opts.Compact,
		loadingSessions: true,
		spinning:        true,
		width:           100,
		height:          30,
	}
	m.markdown = newMarkdownRenderer(theme, m.messageWidth())
	m.layout()
	return m
}

func newMarkdownRenderer(theme *styles.Theme, width int) *glamour.TermRenderer {
	style := theme.Name
	if theme.ColorProfile == termenv.Ascii {
		style = "notty"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		slog.Warn("markdown renderer unavailable", "error", err)
		return nil
	}
	return r
}

// Init starts the session load and the event listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.bridge.listen(), m.loadSessions(1, true))
}

// Update handles a message and re-lays out the screen.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.layout()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	// Component events
	case threadChangedMsg:
		m.refreshViewport()
		switch {
		case m.scroll.observe(msg.change):
			m.viewport.GotoBottom()
		case msg.change.Prepended > 0:
			m.viewport.GotoTop()
		}
		return m, m.bridge.listen()

	case selectionChangedMsg:
		return m.handleSelection(msg)

	case uploadProgressMsg:
		m.uploads.SetProgress(msg.name, msg.percent)
		return m, m.bridge.listen()

	// Command results
	case sessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case sessionCreatedMsg:
		if msg.err != nil {
			return m, m.showError("Could not create a session", msg.err, nil)
		}
		return m, m.addToast(components.NewSuccessToast("Session created"))

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case messagesLoadedMsg:
		if msg.err == nil || errors.Is(msg.err, chat.ErrNoSession) {
			m.clearRetry()
			return m, nil
		}
		retry := m.loadMessages(msg.sessionID, msg.page)
		if msg.page < 0 {
			retry = m.loadOlder()
		}
		return m, m.showError("Could not load messages", msg.err, retry)

	case messageSentMsg:
		return m.handleMessageSent(msg)

	case uploadFinishedMsg:
		return m.handleUploadFinished(msg)

	case exportFinishedMsg:
		if msg.err != nil {
			return m, m.showError("Export failed", msg.err, nil)
		}
		text := fmt.Sprintf("Exported %d %s to %s", msg.count, plural(msg.count, "message", "messages"), msg.path)
		if msg.truncated {
			return m, m.addToast(components.NewWarningToast(text + " (oldest messages left out)"))
		}
		return m, m.addToast(components.NewSuccessToast(text))

	// Animation
	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case components.ToastTickMsg:
		if len(m.toasts.Tick(msg.Time)) == 0 {
			m.toastTicking = false
			return m, nil
		}
		return m, components.ToastTickCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the screen.
func (m Model) View() string {
	return m.render()
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	widthChanged := msg.Width != m.width
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.layout()
	if widthChanged {
		m.markdown = newMarkdownRenderer(m.theme, m.messageWidth())
	}
	m.refreshViewport()
	return m, nil
}

func (m Model) handleSelection(msg selectionChangedMsg) (Model, tea.Cmd) {
	m.pendingDelete = ""
	m.citations = make(map[string]*components.CitationList)
	m.thread.Activate(msg.id)
	m.syncCursor()

	cmds := []tea.Cmd{m.bridge.listen(), m.rememberSession(msg.id)}
	if msg.id != "" {
		cmds = append(cmds, m.loadMessages(msg.id, 1))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleSessionsLoaded(msg sessionsLoadedMsg) (Model, tea.Cmd) {
	m.loadingSessions = false
	if msg.err != nil {
		return m, m.showError("Could not load sessions", msg.err, m.loadSessions(msg.page, msg.restore))
	}
	m.clearRetry()

	if msg.restore && m.dir.Selected() == "" {
		sessions := m.dir.Sessions()
		switch {
		case msg.lastID != "" && m.dir.Contains(msg.lastID):
			m.dir.Select(msg.lastID)
		case len(sessions) > 0:
			m.dir.Select(sessions[0].ID)
		}
	}
	m.syncCursor()
	return m, nil
}

func (m Model) handleSessionDeleted(msg sessionDeletedMsg) (Model, tea.Cmd) {
	if msg.err == nil {
		m.syncCursor()
		return m, m.addToast(components.NewStatusToast("Session deleted"))
	}
	if errors.Is(msg.err, api.ErrNotSupported) {
		return m, m.addToast(components.NewWarningToast("This backend does not support deleting sessions"))
	}
	return m, m.showError("Could not delete the session", msg.err, nil)
}

func (m Model) handleMessageSent(msg messageSentMsg) (Model, tea.Cmd) {
	if msg.err == nil {
		return m, nil
	}
	if errors.Is(msg.err, chat.ErrSendInFlight) {
		return m, m.addToast(components.NewWarningToast("Still waiting for the previous answer"))
	}
	// The composer is ours; give the text back if nothing new was typed.
	if m.input.Value() == "" && m.thread.SessionID() == msg.sessionID {
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
	}
	return m, m.showError("Message not sent", msg.err, nil)
}

func (m Model) handleUploadFinished(msg uploadFinishedMsg) (Model, tea.Cmd) {
	m.uploads.SetProgress("", 0)
	if errors.Is(msg.err, chat.ErrUploadInProgress) {
		return m, nil
	}
	if msg.err != nil {
		return m, m.showError("Upload failed", msg.err, nil)
	}

	var cmds []tea.Cmd
	for _, f := range msg.summary.Failed {
		cmds = append(cmds, m.addToast(components.NewErrorToast(f.Error())))
	}
	if n := msg.summary.Succeeded; n > 0 {
		cmds = append(cmds, m.addToast(components.NewSuccessToast(fmt.Sprintf("Uploaded %d %s", n, plural(n, "file", "files")))))
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.focus == focusComposer && key.Matches(msg, m.keys.Complete) && commands.IsCommand(m.input.Value()) {
		return m.complete()
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Focus):
		return m.toggleFocus()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSessions {
		return m.handlePaneKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Blur):
		return m.toggleFocus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) toggleFocus() (Model, tea.Cmd) {
	m.pendingDelete = ""
	if m.focus == focusComposer {
		m.focus = focusSessions
		m.input.Blur()
		return m, nil
	}
	m.focus = focusComposer
	return m, m.input.Focus()
}

func (m Model) handlePaneKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	confirmingDelete := m.pendingDelete
	m.pendingDelete = ""

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Open):
		return m.toggleFocus()
	case key.Matches(msg, m.keys.NewSession):
		return m, m.createSession()
	case key.Matches(msg, m.keys.DeleteSession):
		id := m.dir.Selected()
		if id == "" {
			return m, nil
		}
		if confirmingDelete == id {
			return m, m.deleteSession(id)
		}
		m.pendingDelete = id
		return m, m.addToast(components.NewWarningToast("Press d again to delete this session"))
	case key.Matches(msg, m.keys.LoadMore):
		return m.loadMore()
	case key.Matches(msg, m.keys.Older):
		return m, m.loadOlder()
	case key.Matches(msg, m.keys.ToggleCitations):
		return m.toggleCitations()
	case key.Matches(msg, m.keys.Retry):
		return m.runRetry()
	case key.Matches(msg, m.keys.Dismiss):
		if toasts := m.toasts.Toasts(); len(toasts) > 0 {
			m.toasts.Remove(toasts[0].ID)
		}
	case key.Matches(msg, m.keys.QuitPane):
		return m, tea.Quit
	}
	return m, nil
}

// moveCursor selects the session delta rows away from the cursor.
func (m *Model) moveCursor(delta int) {
	sessions := m.dir.Sessions()
	if len(sessions) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(sessions)-1)
	m.dir.Select(sessions[m.cursor].ID)
}

// syncCursor points the cursor at the selected session.
func (m *Model) syncCursor() {
	selected := m.dir.Selected()
	for i, s := range m.dir.Sessions() {
		if s.ID == selected {
			m.cursor = i
			return
		}
	}
	m.cursor = 0
}

func (m Model) loadMore() (Model, tea.Cmd) {
	if !m.dir.HasMore() {
		return m, m.addToast(components.NewStatusToast("All sessions are loaded"))
	}
	m.loadingSessions = true
	return m, tea.Batch(m.loadMoreSessions(), m.startSpinner())
}

func (m Model) runRetry() (Model, tea.Cmd) {
	if m.retry == nil {
		return m, m.addToast(components.NewStatusToast("Nothing to retry"))
	}
	cmd := m.retry
	m.clearRetry()
	return m, cmd
}

func (m *Model) clearRetry() {
	m.retry = nil
	m.toasts.DismissRetryable()
}

// toggleCitations expands or collapses the sources of the newest
// assistant message that has any.
func (m Model) toggleCitations() (Model, tea.Cmd) {
	msgs := m.thread.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != model.RoleAssistant || len(msgs[i].Citations()) == 0 {
			continue
		}
		m.citationList(msgs[i]).Toggle()
		m.refreshViewport()
		return m, nil
	}
	return m, m.addToast(components.NewStatusToast("No citations in this session"))
}

func (m *Model) citationList(msg model.Message) *components.CitationList {
	list, ok := m.citations[msg.ID]
	if !ok {
		list = components.NewCitationList(msg.Citations())
		m.citations[msg.ID] = list
	}
	return list
}

// =============================================================================
// COMPOSER
// =============================================================================

func (m Model) submit() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}

	sessionID := m.dir.Selected()
	if sessionID == "" {
		return m, m.addToast(components.NewWarningToast("Create or select a session first (esc, then n)"))
	}
	if m.thread.Waiting() {
		return m, m.addToast(components.NewWarningToast("Still waiting for the previous answer"))
	}

	m.input.Reset()
	return m, tea.Batch(m.sendMessage(sessionID, text), m.startSpinner())
}

// runCommand executes a slash command typed into the composer.
func (m Model) runCommand(line string) (Model, tea.Cmd) {
	result := m.commands.Parse(line)
	if result.Command == nil {
		return m, m.addToast(components.NewWarningToast("Unknown command " + result.CommandName + "; try /help"))
	}
	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		return m, m.addToast(components.NewWarningToast("Usage: " + result.Command.Usage))
	}
	args := result.Args

	switch result.Command.Name {
	case commands.CmdAttach:
		return m.attach(args)
	case commands.CmdUpload:
		return m.upload()
	case commands.CmdRemove:
		n, _ := strconv.Atoi(args[0])
		if !m.uploader.RemoveFile(n - 1) {
			return m, m.addToast(components.NewWarningToast("No attachment " + args[0] + " to remove"))
		}
		return m, nil
	case commands.CmdExport:
		format := "md"
		if len(args) > 0 {
			format = strings.ToLower(args[0])
		}
		return m.export(format)
	case commands.CmdCitations:
		return m.toggleCitations()
	case commands.CmdRetry:
		return m.runRetry()
	case commands.CmdOlder:
		return m, m.loadOlder()
	case commands.CmdNew:
		return m, m.createSession()
	case commands.CmdMore:
		return m.loadMore()
	case commands.CmdHelp:
		return m, m.addToast(components.NewStatusToast(m.commands.Registry().HelpText()))
	case commands.CmdQuit:
		return m, tea.Quit
	}
	return m, nil
}

// complete applies tab completion to a slash command in the composer.
// Several candidates are listed in a toast.
func (m Model) complete() (Model, tea.Cmd) {
	runes := []rune(m.input.Value())
	pos := min(m.input.Position(), len(runes))
	head, tail := string(runes[:pos]), string(runes[pos:])

	completions := m.completer.Complete(head, len(head))
	if len(completions) == 0 {
		return m, nil
	}
	if next, ok := commands.Apply(head, completions); ok {
		m.input.SetValue(next + tail)
		m.input.SetCursor(len([]rune(next)))
	}
	if len(completions) == 1 {
		return m, nil
	}

	names := make([]string, 0, min(len(completions), maxCompletionHints))
	for _, c := range completions[:min(len(completions), maxCompletionHints)] {
		names = append(names, c.Display)
	}
	hint := strings.Join(names, "  ")
	if len(completions) > maxCompletionHints {
		hint += fmt.Sprintf("  (+%d more)", len(completions)-maxCompletionHints)
	}
	return m, m.addToast(components.NewStatusToast(hint))
}

func (m Model) export(format string) (Model, tea.Cmd) {
	sessionID := m.dir.Selected()
	if sessionID == "" {
		return m, m.addToast(components.NewWarningToast("Select a session to export"))
	}
	exporter, err := export.ForFormat(format, &export.Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeCitations:  true,
	})
	if err != nil {
		return m, m.addToast(components.NewWarningToast("Usage: /export [md|json]"))
	}
	return m, m.exportSession(sessionID, exporter)
}

func (m Model) attach(paths []string) (Model, tea.Cmd) {
	if len(paths) == 0 {
		return m, m.addToast(components.NewWarningToast("Usage: /attach <path...>"))
	}

	var cmds []tea.Cmd
	var candidates []chat.Candidate
	for _, p := range paths {
		c, err := chat.CandidateFromPath(p)
		if err != nil {
			cmds = append(cmds, m.addToast(components.NewWarningToast(err.Error())))
			continue
		}
		candidates = append(candidates, c)
	}

	rejected := m.uploader.SelectFiles(candidates)
	for _, r := range rejected {
		cmds = append(cmds, m.addToast(components.NewWarningToast(r.Error())))
	}
	if n := len(candidates) - len(rejected); n > 0 {
		cmds = append(cmds, m.addToast(components.NewStatusToast(
			fmt.Sprintf("Attached %d %s; /upload to send", n, plural(n, "file", "files")))))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) upload() (Model, tea.Cmd) {
	sessionID := m.dir.Selected()
	switch {
	case sessionID == "":
		return m, m.addToast(components.NewWarningToast("Select a session before uploading"))
	case m.uploader.Uploading():
		return m, nil
	case len(m.uploader.Pending()) == 0:
		return m, m.addToast(components.NewWarningToast("Nothing attached; use /attach <path>"))
	}
	return m, tea.Batch(m.uploadFiles(sessionID), m.startSpinner())
}

// =============================================================================
// HELPERS
// =============================================================================

// busy reports whether a request the user waits on is running.
func (m Model) busy() bool {
	return m.thread.Waiting() || m.uploader.Uploading() || m.loadingSessions
}

func (m *Model) startSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

// addToast shows t and starts the sweep ticker when it is not running.
func (m *Model) addToast(t components.Toast) tea.Cmd {
	m.toasts.Add(t)
	if m.toastTicking {
		return nil
	}
	m.toastTicking = true
	return components.ToastTickCmd()
}

// showError toasts err. A non-nil retry is remembered for the retry key.
func (m *Model) showError(what string, err error, retry tea.Cmd) tea.Cmd {
	slog.Warn(what, "error", err)

	text := what + ": " + err.Error()
	switch {
	case errors.Is(err, auth.ErrAuthMissing):
		text = what + ": not signed in. Set STUDYHALL_TOKEN or auth.token_file."
	case errors.Is(err, api.ErrUnauthorized):
		text = what + ": the backend rejected the token."
	}

	if retry == nil {
		return m.addToast(components.NewErrorToast(text))
	}
	m.retry = retry
	return m.addToast(components.NewRetryableErrorToast(text))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
