// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - The ask command: one question, one answer, in a session.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/studyhall/internal/chat"
)

// RunAsk executes "studyhall ask <session> question...".
// The question may also be piped on stdin with "-".
func (a *App) RunAsk(ctx context.Context, p *ArgParser) error {
	const usage = `<session> "question" [--no-citations]`

	if p.PositionalCount() < 2 {
		return ErrMissingArgument("ask", usage)
	}
	sessionID, err := a.resolveSession(ctx, p.Positional(0), "ask", usage)
	if err != nil {
		return err
	}

	question := strings.Join(p.PositionalFrom(1), " ")
	if question == "-" {
		data, err := io.ReadAll(a.In)
		if err != nil {
			return fmt.Errorf("read question from stdin: %w", err)
		}
		question = string(data)
	}

	dir := chat.NewDirectory(a.Client)
	thread := chat.NewThread(a.Client, dir)
	thread.Activate(sessionID)

	if !a.JSON && !a.Quiet {
		fmt.Fprintln(a.Err, DimStyle.Render("Thinking..."))
	}
	reply, err := thread.SendMessage(ctx, sessionID, question)
	if errors.Is(err, chat.ErrEmptyMessage) {
		return NewValidationError("question", "", "must not be empty")
	}
	if err != nil {
		return err
	}
	a.rememberSession(ctx, sessionID)

	showCitations := a.Config.UI.ShowCitations && !p.BoolFlag("no-citations")
	return a.output("ask", messageData(reply), func() {
		writeMessage(a.Out, reply, showCitations)
	})
}
