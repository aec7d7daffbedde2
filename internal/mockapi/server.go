// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jeranaias/studyhall/internal/model"
)

// DefaultPageSize is the number of chats or messages per page.
const DefaultPageSize = 20

// Options configures a Server.
type Options struct {
	// Token is the accepted bearer token. Empty accepts any non-empty token.
	Token string
	// PageSize overrides DefaultPageSize.
	PageSize int
	// DisableDelete leaves DELETE /chats/:id unrouted, like backends
	// that never implemented it.
	DisableDelete bool
	// Seed preloads two example chats.
	Seed bool
	// Now overrides the clock.
	Now func() time.Time
}

type chat struct {
	session   model.Session
	messages  []model.Message // oldest first
	documents []model.Document
}

// Server is the in-memory backend. It is safe for concurrent use.
type Server struct {
	opts   Options
	logger *slog.Logger
	engine *gin.Engine

	mu    sync.Mutex
	chats map[string]*chat
	order []string // newest first
	last  time.Time
}

// New creates a Server and registers its routes.
func New(opts Options) *Server {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:   opts,
		logger: slog.Default().With("component", "mockapi"),
		chats:  make(map[string]*chat),
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.logRequests())
	s.RegisterRoutes(s.engine)

	if opts.Seed {
		s.seed()
	}
	return s
}

// Handler returns the HTTP handler serving the routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("mock backend listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.Use(s.requireBearer())
	api.GET("/chats", s.listChats)
	api.POST("/chats", s.createChat)
	if !s.opts.DisableDelete {
		api.DELETE("/chats/:id", s.deleteChat)
	}
	api.GET("/chats/:id/messages", s.listMessages)
	api.POST("/chats/:id/ask", s.ask)
	api.POST("/documents/upload", s.uploadDocument)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		token := strings.TrimSpace(header[7:])
		if token == "" || (s.opts.Token != "" && token != s.opts.Token) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// logRequests logs method, route and status. Headers and bodies are never logged.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetHeader("X-Request-ID"),
			"duration", time.Since(start),
		)
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// tick returns a timestamp strictly after the previous one. Caller holds mu.
func (s *Server) tick() time.Time {
	now := s.opts.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Millisecond)
	}
	s.last = now
	return now
}

// newChat creates and registers a chat at the front of the list. Caller holds mu.
func (s *Server) newChat() *chat {
	ch := &chat{session: model.Session{ID: uuid.NewString(), CreatedAt: s.tick()}}
	s.chats[ch.session.ID] = ch
	s.order = append([]string{ch.session.ID}, s.order...)
	return ch
}

// appendMessage adds a message and refreshes the preview. Caller holds mu.
func (s *Server) appendMessage(ch *chat, role model.Role, content string, meta *model.Metadata) model.Message {
	msg := model.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: s.tick(),
		Metadata:  meta,
	}
	ch.messages = append(ch.messages, msg)
	preview := content
	ch.session.LastMessage = &preview
	return msg
}

func (s *Server) seed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.newChat()
	s.appendMessage(first, model.RoleUser, "What is the difference between mitosis and meiosis?", nil)
	s.appendMessage(first, model.RoleAssistant,
		"**Mitosis** produces two identical diploid cells. **Meiosis** produces four genetically distinct haploid gametes.", nil)

	second := s.newChat()
	s.appendMessage(second, model.RoleUser, "Summarize the causes of the French Revolution.", nil)
	s.appendMessage(second, model.RoleAssistant,
		"The main causes were fiscal crisis, Enlightenment ideas and resentment of privilege held by the first two estates.", nil)
}

// pageBounds returns the slice bounds of page (1-based) over n items and the page count.
func pageBounds(n, page, size int) (start, end, pages int) {
	pages = (n + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	start = (page - 1) * size
	if start > n {
		start = n
	}
	end = start + size
	if end > n {
		end = n
	}
	return start, end, pages
}
