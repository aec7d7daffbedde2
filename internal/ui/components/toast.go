// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements non-blocking toasts. They stack above the status
// bar and auto-dismiss, so the user keeps working while an error is shown.

package components

import (
	"strconv"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/studyhall/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose)
	ToastKindError
	// ToastKindWarning is a warning toast (amber)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald)
	ToastKindSuccess
)

// Auto-dismiss durations per kind. Errors stay longer to be read.
const (
	DefaultToastDuration = 4 * time.Second
	WarningToastDuration = 6 * time.Second
	ErrorToastDuration   = 8 * time.Second
)

// ToastTickInterval is how often expired toasts are swept.
const ToastTickInterval = 250 * time.Millisecond

// Toast is one notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
	// ShowRetry adds the retry hint; the owner keeps the retry action.
	ShowRetry bool
}

func newToast(kind ToastKind, message string, d time.Duration) Toast {
	return Toast{Message: message, Kind: kind, CreatedAt: time.Now(), Duration: d}
}

// NewErrorToast creates an error toast.
func NewErrorToast(message string) Toast {
	return newToast(ToastKindError, message, ErrorToastDuration)
}

// NewWarningToast creates a warning toast.
func NewWarningToast(message string) Toast {
	return newToast(ToastKindWarning, message, WarningToastDuration)
}

// NewStatusToast creates an informational toast.
func NewStatusToast(message string) Toast {
	return newToast(ToastKindStatus, message, DefaultToastDuration)
}

// NewSuccessToast creates a success toast.
func NewSuccessToast(message string) Toast {
	return newToast(ToastKindSuccess, message, DefaultToastDuration)
}

// NewRetryableErrorToast creates an error toast that offers a retry.
func NewRetryableErrorToast(message string) Toast {
	t := NewErrorToast(message)
	t.ShowRetry = true
	return t
}

// IsExpired reports whether the toast should be dismissed at now.
func (t Toast) IsExpired(now time.Time) bool {
	return now.Sub(t.CreatedAt) >= t.Duration
}

// TimeRemaining returns how much time is left before auto-dismiss.
func (t Toast) TimeRemaining(now time.Time) time.Duration {
	return max(t.Duration-now.Sub(t.CreatedAt), 0)
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager keeps the visible toasts, newest first.
type ToastManager struct {
	mu        sync.Mutex
	toasts    []Toast
	nextID    int
	maxToasts int
}

// NewToastManager creates a manager showing at most 4 toasts.
func NewToastManager() *ToastManager {
	return &ToastManager{nextID: 1, maxToasts: 4}
}

// Add shows toast and returns its id.
func (m *ToastManager) Add(toast Toast) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	toast.ID = m.nextID
	m.nextID++
	m.toasts = append([]Toast{toast}, m.toasts...)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[:m.maxToasts]
	}
	return toast.ID
}

// AddError shows an error toast.
func (m *ToastManager) AddError(message string) int { return m.Add(NewErrorToast(message)) }

// AddWarning shows a warning toast.
func (m *ToastManager) AddWarning(message string) int { return m.Add(NewWarningToast(message)) }

// AddStatus shows an informational toast.
func (m *ToastManager) AddStatus(message string) int { return m.Add(NewStatusToast(message)) }

// AddSuccess shows a success toast.
func (m *ToastManager) AddSuccess(message string) int { return m.Add(NewSuccessToast(message)) }

// Remove dismisses the toast with id.
func (m *ToastManager) Remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			return
		}
	}
}

// DismissRetryable removes every toast offering a retry.
func (m *ToastManager) DismissRetryable() {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.ShowRetry {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

// Tick drops toasts expired at now and returns the rest.
func (m *ToastManager) Tick(now time.Time) []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make([]Toast, 0, len(m.toasts))
	for _, t := range m.toasts {
		if !t.IsExpired(now) {
			active = append(active, t)
		}
	}
	m.toasts = active
	return m.snapshot()
}

// Toasts returns a copy of the visible toasts.
func (m *ToastManager) Toasts() []Toast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *ToastManager) snapshot() []Toast {
	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// HasToasts reports whether any toast is visible.
func (m *ToastManager) HasToasts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.toasts) > 0
}

// =============================================================================
// MESSAGES
// =============================================================================

// ToastTickMsg is sent periodically while toasts are visible.
type ToastTickMsg struct {
	Time time.Time
}

// ToastTickCmd schedules the next sweep.
func ToastTickCmd() tea.Cmd {
	return tea.Tick(ToastTickInterval, func(t time.Time) tea.Msg {
		return ToastTickMsg{Time: t}
	})
}

// =============================================================================
// RENDERING
// =============================================================================

// RenderToast renders a single toast no wider than width.
func RenderToast(theme *styles.Theme, toast Toast, width int, now time.Time) string {
	maxWidth := 60
	if width > 0 && width-4 < maxWidth {
		maxWidth = width - 4
	}
	maxWidth = max(maxWidth, 24)

	var color lipgloss.AdaptiveColor
	var icon string
	switch toast.Kind {
	case ToastKindError:
		color, icon = styles.Rose, styles.StatusIndicators.Error
	case ToastKindWarning:
		color, icon = styles.Amber, styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color, icon = styles.Emerald, styles.StatusIndicators.Success
	default:
		color, icon = styles.Cyan, styles.StatusIndicators.Info
	}

	iconStyle := lipgloss.NewStyle().Foreground(theme.Color(color)).Bold(true)
	content := iconStyle.Render(icon) + " " + wrapToastText(toast.Message, maxWidth-8)

	hints := []string{"[x] dismiss"}
	if toast.ShowRetry {
		hints = append([]string{"[r] retry"}, hints...)
	}
	if secs := int(toast.TimeRemaining(now).Seconds()); secs > 0 {
		hints = append(hints, strconv.Itoa(secs)+"s")
	}
	content += "\n" + theme.Muted.Render(strings.Join(hints, "  "))

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Color(color)).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(content)
}

// RenderToastStack renders toasts right-aligned within width, oldest on top.
func RenderToastStack(theme *styles.Theme, toasts []Toast, width int, now time.Time) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for i := len(toasts) - 1; i >= 0; i-- {
		rendered = append(rendered, RenderToast(theme, toasts[i], width, now))
	}
	stack := lipgloss.JoinVertical(lipgloss.Right, rendered...)
	if width <= 0 {
		return stack
	}
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, stack)
}

// wrapToastText performs simple word wrapping.
func wrapToastText(text string, maxWidth int) string {
	words := strings.Fields(text)
	if maxWidth <= 0 || len(words) == 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	for _, word := range words {
		switch {
		case line.Len() == 0:
			line.WriteString(word)
		case line.Len()+1+len(word) <= maxWidth:
			line.WriteString(" ")
			line.WriteString(word)
		default:
			lines = append(lines, line.String())
			line.Reset()
			line.WriteString(word)
		}
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}
