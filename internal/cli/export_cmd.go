// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export_cmd.go - The export command.

package cli

import (
	"context"
	"fmt"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/export"
)

// maxExportPages stops paging a backend that never reports the last page.
const maxExportPages = 500

// RunExport executes "studyhall export <session> [--format md|json]
// [--output DIR] [--stdout]".
func (a *App) RunExport(ctx context.Context, p *ArgParser) error {
	sessionID, err := a.resolveSession(ctx, p.Positional(0), "export", "<session> [--format md|json] [--output DIR]")
	if err != nil {
		return err
	}
	format := p.FlagOrDefault("format", "md")
	exporter, err := export.ForFormat(format, &export.Options{
		IncludeMetadata:   true,
		IncludeTimestamps: true,
		IncludeCitations:  !p.BoolFlag("no-citations"),
	})
	if err != nil {
		return NewValidationError("format", format, "use md or json")
	}

	msgs, truncated, err := chat.FullHistory(ctx, a.Client, sessionID, maxExportPages)
	if err != nil {
		return err
	}
	if truncated {
		a.Logger.Warn("export stopped paging", "session", sessionID, "pages", maxExportPages)
	}
	a.rememberSession(ctx, sessionID)

	transcript := export.NewTranscript(sessionID, msgs, a.Client.BaseURL())
	if p.BoolFlag("stdout") {
		content, err := exporter.Export(transcript)
		if err != nil {
			return err
		}
		_, err = a.Out.Write(content)
		return err
	}

	path, err := export.WriteFile(transcript, exporter, p.FlagOrDefault("output", "."))
	if err != nil {
		return err
	}
	a.Logger.Info("session exported", "session", sessionID, "path", path, "messages", len(msgs))

	data := ExportData{SessionID: sessionID, Path: path, Format: exporter.FileExtension()[1:], Messages: len(msgs)}
	return a.output("export", data, func() {
		fmt.Fprintf(a.Out, "%s Exported %d messages to %s\n", SuccessStyle.Render("[OK]"), len(msgs), path)
	})
}
