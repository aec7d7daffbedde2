// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions_cmd.go - The sessions command: list, create and delete chats.

package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/util"
)

// RunSessions executes "studyhall sessions [list|create|delete <id>]".
func (a *App) RunSessions(ctx context.Context, p *ArgParser) error {
	switch sub := p.Subcommand(); sub {
	case "", "list", "ls":
		page, err := p.FlagIntOrDefault("page", 1)
		if err != nil {
			return err
		}
		return a.listSessions(ctx, page)
	case "create", "new":
		return a.createSession(ctx)
	case "delete", "rm":
		id := p.Positional(1)
		if id == "" {
			return ErrMissingArgument("sessions delete", "<id> [--confirm]")
		}
		return a.deleteSession(ctx, id, p.BoolFlag("confirm"))
	default:
		return NewValidationError("subcommand", sub, "expected list, create or delete")
	}
}

func (a *App) lastSession(ctx context.Context) string {
	if a.Store == nil {
		return ""
	}
	id, err := a.Store.LastSession(ctx, a.Client.BaseURL())
	if err != nil {
		a.Logger.Warn("could not read last session", "error", err)
	}
	return id
}

func (a *App) listSessions(ctx context.Context, page int) error {
	dir := chat.NewDirectory(a.Client)
	if err := dir.ListSessions(ctx, page); err != nil {
		return err
	}

	last := a.lastSession(ctx)
	data := SessionListData{Page: page, HasMore: dir.HasMore(), Sessions: []SessionData{}}
	for _, s := range dir.Sessions() {
		item := SessionData{ID: s.ID, CreatedAt: s.CreatedAt, Selected: s.ID == last}
		if s.LastMessage != nil {
			item.LastMessage = *s.LastMessage
		}
		data.Sessions = append(data.Sessions, item)
	}

	return a.output("sessions", data, func() {
		if len(data.Sessions) == 0 {
			fmt.Fprintln(a.Out, DimStyle.Render("No sessions yet. Create one with: studyhall sessions create"))
			return
		}
		fmt.Fprintln(a.Out, TitleStyle.Render(fmt.Sprintf("Sessions (page %d)", page)))
		for _, s := range dir.Sessions() {
			marker := "  "
			if s.ID == last {
				marker = SuccessStyle.Render("* ")
			}
			fmt.Fprintf(a.Out, "%s%s  %s  %s\n",
				marker,
				ValueStyle.Render(s.ID),
				DimStyle.Render(util.PadRight(humanize.Time(s.CreatedAt), 14)),
				s.Preview(48, "(no messages)"),
			)
		}
		if dir.HasMore() {
			fmt.Fprintln(a.Out, DimStyle.Render(fmt.Sprintf("More sessions: studyhall sessions --page %d", page+1)))
		}
	})
}

func (a *App) createSession(ctx context.Context) error {
	dir := chat.NewDirectory(a.Client)
	session, err := dir.CreateSession(ctx)
	if err != nil {
		return err
	}
	a.rememberSession(ctx, session.ID)

	return a.output("sessions create", sessionData(session), func() {
		fmt.Fprintf(a.Out, "%s Created session %s\n", SuccessStyle.Render("OK"), session.ID)
	})
}

func (a *App) deleteSession(ctx context.Context, id string, confirmFlag bool) error {
	ok, err := a.confirm(confirmFlag, "delete session "+id)
	if err != nil {
		return err
	}
	if !ok {
		a.printf("Cancelled.\n")
		return nil
	}

	dir := chat.NewDirectory(a.Client)
	if err := dir.DeleteSession(ctx, id); err != nil {
		return err
	}
	if a.lastSession(ctx) == id {
		a.rememberSession(ctx, "")
	}

	return a.output("sessions delete", map[string]string{"deleted": id}, func() {
		fmt.Fprintf(a.Out, "%s Deleted session %s\n", SuccessStyle.Render("OK"), id)
	})
}

func sessionData(s model.Session) SessionData {
	d := SessionData{ID: s.ID, CreatedAt: s.CreatedAt}
	if s.LastMessage != nil {
		d.LastMessage = *s.LastMessage
	}
	return d
}
