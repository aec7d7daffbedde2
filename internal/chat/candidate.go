// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/unicode/norm"
)

// extensionTypes backs up content sniffing for formats that are hard to
// tell apart by their bytes (legacy .doc is an OLE container, plain text
// has no signature).
var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
	".txt":  "text/plain",
	".md":   "text/plain",
}

// CandidateFromPath builds an upload candidate from a local file.
func CandidateFromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}

	return Candidate{
		Name:          norm.NFC.String(filepath.Base(path)),
		Size:          info.Size(),
		SizeFormatted: humanize.Bytes(uint64(info.Size())),
		MimeType:      DetectMimeType(path),
		Path:          path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// DetectMimeType sniffs the file's content type, falling back to its
// extension when sniffing is inconclusive.
func DetectMimeType(path string) string {
	byExt := extensionTypes[strings.ToLower(filepath.Ext(path))]

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		if byExt != "" {
			return byExt
		}
		return "application/octet-stream"
	}

	detected := strings.SplitN(mt.String(), ";", 2)[0]
	switch {
	case byExt == "":
		return detected
	case mt.Is("application/octet-stream"), mt.Is("application/x-ole-storage"):
		return byExt
	case strings.HasPrefix(detected, "text/") && byExt == "text/plain":
		return byExt
	}
	return detected
}
