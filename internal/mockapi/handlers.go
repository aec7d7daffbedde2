// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jeranaias/studyhall/internal/model"
)

const maxUploadBytes = 50 << 20

var acceptedUploadTypes = map[string]bool{
	"application/pdf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/msword": true,
	"text/plain":         true,
}

func pageParam(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("page", "1")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return 0, false
	}
	return page, true
}

func (s *Server) listChats(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	start, end, pages := pageBounds(len(s.order), page, s.opts.PageSize)
	chats := make([]model.Session, 0, end-start)
	for _, id := range s.order[start:end] {
		chats = append(chats, s.chats[id].session)
	}
	total := len(s.order)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"chats":    chats,
		"page":     page,
		"total":    total,
		"has_more": page < pages,
	})
}

func (s *Server) createChat(c *gin.Context) {
	s.mu.Lock()
	session := s.newChat().session
	s.mu.Unlock()

	c.JSON(http.StatusCreated, session)
}

func (s *Server) deleteChat(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	delete(s.chats, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listMessages(c *gin.Context) {
	page, ok := pageParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	ch, found := s.chats[c.Param("id")]
	if !found {
		s.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	n := len(ch.messages)
	start, end, pages := pageBounds(n, page, s.opts.PageSize)
	data := make([]model.Message, 0, end-start)
	// Newest first: index i of the page is message n-1-i overall.
	for i := start; i < end; i++ {
		data = append(data, ch.messages[n-1-i])
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"pagination": gin.H{
			"page":        page,
			"total_pages": pages,
			"total":       n,
		},
	})
}

type askRequest struct {
	Query string `json:"query"`
}

func (s *Server) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ch, found := s.chats[c.Param("id")]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}

	s.appendMessage(ch, model.RoleUser, query, nil)
	answer, sources := cannedAnswer(query, ch.documents)
	var meta *model.Metadata
	if len(sources) > 0 {
		meta = &model.Metadata{Citations: sources}
	}
	s.appendMessage(ch, model.RoleAssistant, answer, meta)

	c.JSON(http.StatusOK, gin.H{
		"response": answer,
		"sources":  sources,
	})
}

// cannedAnswer builds a reply citing every document of the chat.
func cannedAnswer(query string, docs []model.Document) (string, []model.Citation) {
	if len(docs) == 0 {
		return fmt.Sprintf("I have no documents for this chat yet, but here is a start on %q: break the topic into key terms and review each one.", query), nil
	}

	sources := make([]model.Citation, 0, len(docs))
	var b strings.Builder
	fmt.Fprintf(&b, "Here is what your materials say about %q:\n\n", query)
	for i, doc := range docs {
		url := doc.SourceURL
		sources = append(sources, model.Citation{
			DocumentID:    strings.TrimPrefix(doc.SourceURL, "/documents/"),
			DocumentTitle: doc.Title,
			Ordinal:       i + 1,
			Snippet:       "Relevant passage from " + doc.Title,
			SourceURL:     &url,
		})
		fmt.Fprintf(&b, "- See *%s* [%d]\n", doc.Title, i+1)
	}
	return b.String(), sources
}

func (s *Server) uploadDocument(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if header.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	detected, err := mimetype.DetectReader(f)
	f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	mimeType := uploadType(detected, header.Header.Get("Content-Type"), header.Filename)
	if !acceptedUploadTypes[mimeType] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported file type " + mimeType})
		return
	}

	chatID := c.PostForm("chat_id")

	s.mu.Lock()
	defer s.mu.Unlock()
	var ch *chat
	if chatID != "" {
		var found bool
		if ch, found = s.chats[chatID]; !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
	}

	doc := model.Document{
		Title:     filepath.Base(header.Filename),
		SourceURL: "/documents/" + uuid.NewString(),
		MimeType:  mimeType,
		CreatedAt: s.tick(),
	}
	if ch != nil {
		ch.documents = append(ch.documents, doc)
		s.appendMessage(ch, model.RoleFile, "Uploaded: "+doc.Title, &model.Metadata{
			SourceURL: doc.SourceURL,
			Filename:  doc.Title,
			MimeType:  doc.MimeType,
		})
	}
	c.JSON(http.StatusCreated, doc)
}

// uploadType prefers the sniffed type; legacy Word files sniff as OLE
// containers and are trusted on the declared type or extension.
func uploadType(detected *mimetype.MIME, declared, filename string) string {
	base := strings.SplitN(detected.String(), ";", 2)[0]
	switch {
	case detected.Is("application/x-ole-storage"), base == "application/octet-stream":
		if declared == "application/msword" || strings.EqualFold(filepath.Ext(filename), ".doc") {
			return "application/msword"
		}
	case strings.HasPrefix(base, "text/"):
		return "text/plain"
	}
	return base
}
