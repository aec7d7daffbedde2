// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/jeranaias/studyhall/internal/model"
)

// UploadRequest describes one file for POST /documents/upload.
type UploadRequest struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
	// ChatID associates the document with a chat when set.
	ChatID string
	// Progress receives 0..100 as the body is sent. It is called from the
	// goroutine writing the request body, and never after UploadFile returns.
	Progress func(percent int)
}

// UploadFile streams a file to the backend as multipart/form-data.
// Uploads are attempted once.
func (c *Client) UploadFile(ctx context.Context, up UploadRequest) (*model.Document, error) {
	if up.Body == nil {
		return nil, errors.New("upload: no file body")
	}
	if up.Name == "" {
		return nil, errors.New("upload: no file name")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	written := make(chan struct{})
	go func() {
		defer close(written)
		pw.CloseWithError(writeMultipart(mw, up))
	}()

	var doc model.Document
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/documents/upload",
		rawBody:     pr,
		contentType: mw.FormDataContentType(),
		long:        true,
	}, &doc)
	// Unblock the writer if the request ended before draining the pipe, and
	// wait for it so Progress is never called after UploadFile returns.
	pr.CloseWithError(io.ErrClosedPipe)
	<-written
	if err != nil {
		return nil, err
	}

	if up.Progress != nil {
		up.Progress(100)
	}
	if doc.Title == "" {
		doc.Title = up.Name
	}
	if doc.MimeType == "" {
		doc.MimeType = up.MimeType
	}
	return &doc, nil
}

func writeMultipart(mw *multipart.Writer, up UploadRequest) error {
	if up.ChatID != "" {
		if err := mw.WriteField("chat_id", up.ChatID); err != nil {
			return err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(up.Name)))
	contentType := up.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}

	var src io.Reader = up.Body
	if up.Progress != nil && up.Size > 0 {
		src = &progressReader{r: up.Body, total: up.Size, report: up.Progress}
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("read %s: %w", up.Name, err)
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// progressReader reports read progress in whole percent, capped at 99 so
// that 100 is only reported once the backend has accepted the file.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	pct := int(p.read * 100 / p.total)
	if pct > 99 {
		pct = 99
	}
	if pct != p.last {
		p.last = pct
		p.report(pct)
	}
	return n, err
}
