// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages_cmd.go - The messages command and shared message rendering.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/model"
)

// RunMessages executes "studyhall messages <session> [--page N]".
func (a *App) RunMessages(ctx context.Context, p *ArgParser) error {
	sessionID, err := a.resolveSession(ctx, p.Positional(0), "messages", "<session> [--page N]")
	if err != nil {
		return err
	}
	page, err := p.FlagIntOrDefault("page", 1)
	if err != nil {
		return err
	}

	thread := chat.NewThread(a.Client, nil)
	thread.Activate(sessionID)
	if err := thread.LoadMessages(ctx, sessionID, page); err != nil {
		return err
	}
	a.rememberSession(ctx, sessionID)

	msgs := thread.Messages()
	data := MessageListData{
		SessionID: sessionID,
		Page:      page,
		HasOlder:  thread.HasOlder(),
		Messages:  make([]MessageData, 0, len(msgs)),
	}
	for _, m := range msgs {
		data.Messages = append(data.Messages, messageData(m))
	}

	return a.output("messages", data, func() {
		if len(msgs) == 0 {
			fmt.Fprintln(a.Out, DimStyle.Render("No messages yet. Ask something with: studyhall ask "+sessionID+" \"...\""))
			return
		}
		if thread.HasOlder() {
			fmt.Fprintln(a.Out, DimStyle.Render(fmt.Sprintf("Older messages: studyhall messages %s --page %d", sessionID, page+1)))
		}
		for _, m := range msgs {
			writeMessage(a.Out, m, a.Config.UI.ShowCitations)
		}
	})
}

// resolveSession returns arg, or the last used session when arg is empty
// or "last".
func (a *App) resolveSession(ctx context.Context, arg, command, usage string) (string, error) {
	if arg != "" && arg != "last" {
		return arg, nil
	}
	if id := a.lastSession(ctx); id != "" {
		return id, nil
	}
	return "", ErrMissingArgument(command, usage)
}

func messageData(m model.Message) MessageData {
	d := MessageData{
		ID:        m.ID,
		Role:      m.Role.String(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	for _, c := range m.Citations() {
		d.Citations = append(d.Citations, citationData(c))
	}
	return d
}

func citationData(c model.Citation) CitationData {
	d := CitationData{Ordinal: c.Ordinal, Title: c.DocumentTitle, Snippet: c.Snippet}
	if c.SourceURL != nil {
		d.SourceURL = *c.SourceURL
	}
	return d
}

// writeMessage renders one message as a header line and its content.
func writeMessage(w io.Writer, m model.Message, showCitations bool) {
	style, ok := RoleStyles[m.Role.String()]
	if !ok {
		style = ValueStyle
	}
	fmt.Fprintf(w, "%s %s\n", style.Render(m.Role.DisplayName()), DimStyle.Render(humanize.Time(m.CreatedAt)))
	fmt.Fprintln(w, strings.TrimRight(m.Content, "\n"))
	if showCitations {
		writeCitations(w, m.Citations())
	}
	fmt.Fprintln(w)
}

func writeCitations(w io.Writer, citations []model.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintln(w, DimStyle.Render("Sources:"))
	for _, c := range citations {
		line := fmt.Sprintf("  [%d] %s", c.Ordinal, c.DocumentTitle)
		if c.SourceURL != nil && *c.SourceURL != "" {
			line += " <" + *c.SourceURL + ">"
		}
		fmt.Fprintln(w, DimStyle.Render(line))
	}
}
