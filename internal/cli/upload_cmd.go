// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// upload_cmd.go - The upload and uploads commands.

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"

	"github.com/jeranaias/studyhall/internal/chat"
	"github.com/jeranaias/studyhall/internal/model"
	"github.com/jeranaias/studyhall/internal/storage"
	"github.com/jeranaias/studyhall/internal/util"
)

// RunUpload executes "studyhall upload <session> <files...>".
func (a *App) RunUpload(ctx context.Context, p *ArgParser) error {
	const usage = "<session> <file> [file...]"
	if p.PositionalCount() < 2 {
		return ErrMissingArgument("upload", usage)
	}
	sessionID, err := a.resolveSession(ctx, p.Positional(0), "upload", usage)
	if err != nil {
		return err
	}

	result := UploadResultData{SessionID: sessionID, Uploaded: []UploadedFileData{}}

	var candidates []chat.Candidate
	for _, path := range p.PositionalFrom(1) {
		c, err := chat.CandidateFromPath(path)
		if err != nil {
			result.Rejected = append(result.Rejected, UploadIssueData{Name: filepath.Base(path), Reason: err.Error()})
			continue
		}
		candidates = append(candidates, c)
	}

	uploader := a.NewUploader()
	rejected := uploader.SelectFiles(candidates)
	for _, r := range rejected {
		result.Rejected = append(result.Rejected, UploadIssueData{Name: r.Name, Reason: r.Reason})
	}
	queued := uploader.Pending()
	if accepted := len(candidates) - len(rejected); len(queued) > 0 && accepted > len(queued) {
		a.printf("%s single-file mode: only %s will be uploaded\n", WarningStyle.Render("Note:"), queued[len(queued)-1].Name)
	}
	for _, r := range result.Rejected {
		a.printf("%s %s: %s\n", WarningStyle.Render("Skipped"), r.Name, r.Reason)
	}
	if len(queued) == 0 {
		if a.JSON {
			_ = NewJSONResponse("upload", result).Print(a.Out)
		}
		return errors.New("no files to upload")
	}

	sizes := make(map[string]chat.Candidate, len(queued))
	for _, c := range queued {
		sizes[c.Name] = c
	}

	var bar *progressLine
	if !a.JSON && !a.Quiet {
		bar = newProgressLine(a)
		uploader.OnProgress = bar.update
	}
	uploader.OnUploaded = func(sid string, doc model.Document) {
		c := sizes[doc.Title]
		a.recordUpload(ctx, storage.UploadRecord{
			Filename:  doc.Title,
			SessionID: sid,
			MimeType:  doc.MimeType,
			Size:      c.Size,
			Status:    storage.UploadSucceeded,
			SourceURL: doc.SourceURL,
		})
	}

	summary, err := uploader.UploadAll(ctx, sessionID)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.finish()
	}

	for _, doc := range summary.Documents {
		result.Uploaded = append(result.Uploaded, UploadedFileData{Title: doc.Title, MimeType: doc.MimeType, SourceURL: doc.SourceURL})
	}
	for _, f := range summary.Failed {
		c := sizes[f.Name]
		a.recordUpload(ctx, storage.UploadRecord{
			Filename:  f.Name,
			SessionID: sessionID,
			MimeType:  c.MimeType,
			Size:      c.Size,
			Status:    storage.UploadFailed,
			Error:     f.Err.Error(),
		})
		result.Failed = append(result.Failed, UploadIssueData{Name: f.Name, Reason: f.Err.Error()})
	}
	if summary.Succeeded > 0 {
		a.rememberSession(ctx, sessionID)
	}

	if err := a.output("upload", result, func() {
		for _, doc := range result.Uploaded {
			fmt.Fprintf(a.Out, "%s %s (%s)\n", SuccessStyle.Render("Uploaded"), doc.Title, doc.MimeType)
		}
		for _, f := range result.Failed {
			fmt.Fprintf(a.Out, "%s %s: %s\n", ErrorStyle.Render("Failed"), f.Name, f.Reason)
		}
	}); err != nil {
		return err
	}

	if summary.Succeeded == 0 {
		return fmt.Errorf("all %d uploads failed", len(summary.Failed))
	}
	return nil
}

func (a *App) recordUpload(ctx context.Context, rec storage.UploadRecord) {
	if a.Store == nil {
		return
	}
	if _, err := a.Store.RecordUpload(ctx, rec); err != nil {
		a.Logger.Warn("could not record upload", "file", rec.Filename, "error", err)
	}
}

// RunUploads executes "studyhall uploads [--limit N]".
func (a *App) RunUploads(ctx context.Context, p *ArgParser) error {
	limit, err := p.FlagIntOrDefault("limit", 20)
	if err != nil {
		return err
	}
	if a.Store == nil {
		return errors.New("upload history unavailable: state store could not be opened")
	}

	records, err := a.Store.Uploads(ctx, limit)
	if err != nil {
		return err
	}

	data := make([]UploadHistoryData, 0, len(records))
	for _, r := range records {
		data = append(data, UploadHistoryData{
			Filename:  r.Filename,
			SessionID: r.SessionID,
			MimeType:  r.MimeType,
			Size:      r.Size,
			Status:    string(r.Status),
			Error:     r.Error,
			CreatedAt: r.CreatedAt,
		})
	}

	return a.output("uploads", data, func() {
		if len(records) == 0 {
			fmt.Fprintln(a.Out, DimStyle.Render("No uploads yet."))
			return
		}
		fmt.Fprintln(a.Out, TitleStyle.Render("Recent uploads"))
		for _, r := range records {
			status := SuccessStyle.Render(util.PadRight(string(r.Status), 9))
			if r.Status == storage.UploadFailed {
				status = ErrorStyle.Render(util.PadRight(string(r.Status), 9))
			}
			fmt.Fprintf(a.Out, "%s %s %s %s %s\n",
				status,
				util.PadRight(r.Filename, 32),
				DimStyle.Render(util.PadRight(humanize.Bytes(uint64(r.Size)), 9)),
				DimStyle.Render(util.PadRight(humanize.Time(r.CreatedAt), 16)),
				r.SessionID,
			)
			if r.Error != "" {
				fmt.Fprintln(a.Out, DimStyle.Render("          "+r.Error))
			}
		}
	})
}

// progressLine renders upload progress on stderr with a bubbles progress bar.
type progressLine struct {
	app *App
	bar progress.Model

	mu   sync.Mutex
	last string
}

func newProgressLine(a *App) *progressLine {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	return &progressLine{app: a, bar: bar}
}

func (l *progressLine) update(name string, pct int) {
	if name == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	line := fmt.Sprintf("%s %s", util.PadRight(name, 28), l.bar.ViewAs(float64(pct)/100))
	if line == l.last {
		return
	}
	l.last = line
	fmt.Fprintf(l.app.Err, "\r%s", line)
}

func (l *progressLine) finish() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last != "" {
		fmt.Fprintln(l.app.Err)
	}
}
