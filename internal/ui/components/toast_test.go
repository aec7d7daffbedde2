// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/studyhall/internal/ui/styles"
)

func TestNewErrorToast(t *testing.T) {
	toast := NewErrorToast("Test error message")

	if toast.Message != "Test error message" {
		t.Errorf("Expected message 'Test error message', got '%s'", toast.Message)
	}
	if toast.Kind != ToastKindError {
		t.Errorf("Expected ToastKindError, got %d", toast.Kind)
	}
	if toast.Duration != ErrorToastDuration {
		t.Errorf("Expected duration %v, got %v", ErrorToastDuration, toast.Duration)
	}
	if toast.ShowRetry {
		t.Error("Plain error toast should not offer retry")
	}
	if !NewRetryableErrorToast("x").ShowRetry {
		t.Error("Retryable toast should offer retry")
	}
}

func TestToastIsExpired(t *testing.T) {
	now := time.Now()
	toast := NewStatusToast("Test")
	toast.CreatedAt = now.Add(-DefaultToastDuration)

	if !toast.IsExpired(now) {
		t.Error("Toast should be expired")
	}
	if toast.TimeRemaining(now) != 0 {
		t.Error("Expired toast should have no time remaining")
	}
	if NewStatusToast("Fresh").IsExpired(now) {
		t.Error("Fresh toast should not be expired")
	}
}

func TestToastManager(t *testing.T) {
	manager := NewToastManager()

	if manager.HasToasts() {
		t.Error("New manager should have no toasts")
	}

	id1 := manager.AddError("Error 1")
	id2 := manager.AddWarning("Warning 1")
	if id1 == id2 {
		t.Error("Toast ids should be unique")
	}

	toasts := manager.Toasts()
	if len(toasts) != 2 {
		t.Fatalf("Expected 2 toasts, got %d", len(toasts))
	}
	if toasts[0].ID != id2 {
		t.Error("Newest toast should be first")
	}

	manager.Remove(id1)
	if got := len(manager.Toasts()); got != 1 {
		t.Errorf("Expected 1 toast after removal, got %d", got)
	}
}

func TestToastManagerMaxToasts(t *testing.T) {
	manager := NewToastManager()
	for _, msg := range []string{"1", "2", "3", "4", "5", "6"} {
		manager.AddStatus(msg)
	}

	toasts := manager.Toasts()
	if len(toasts) != 4 {
		t.Errorf("Expected max 4 toasts, got %d", len(toasts))
	}
	if toasts[0].Message != "6" {
		t.Error("Newest toast should be first")
	}
}

func TestToastManagerTick(t *testing.T) {
	manager := NewToastManager()

	expired := NewStatusToast("Expired")
	expired.CreatedAt = time.Now().Add(-time.Minute)
	manager.Add(expired)
	manager.AddStatus("Fresh")

	remaining := manager.Tick(time.Now())
	if len(remaining) != 1 || remaining[0].Message != "Fresh" {
		t.Errorf("Expected only the fresh toast, got %+v", remaining)
	}
}

func TestToastManagerDismissRetryable(t *testing.T) {
	manager := NewToastManager()
	manager.Add(NewRetryableErrorToast("load failed"))
	manager.AddSuccess("saved")

	manager.DismissRetryable()
	toasts := manager.Toasts()
	if len(toasts) != 1 || toasts[0].Message != "saved" {
		t.Errorf("Expected only the success toast, got %+v", toasts)
	}
}

func TestRenderToast(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeDark)
	now := time.Now()

	rendered := RenderToast(theme, NewRetryableErrorToast("could not load sessions"), 80, now)
	for _, want := range []string{"[X]", "could not load sessions", "[r] retry", "[x] dismiss"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Rendered toast missing %q:\n%s", want, rendered)
		}
	}
}

func TestRenderToastStack(t *testing.T) {
	theme := styles.NewTheme(styles.ThemeLight)

	if RenderToastStack(theme, nil, 100, time.Now()) != "" {
		t.Error("Empty toast stack should render empty string")
	}

	rendered := RenderToastStack(theme, []Toast{NewErrorToast("Error 1"), NewWarningToast("Warning 1")}, 100, time.Now())
	if strings.Index(rendered, "Warning 1") > strings.Index(rendered, "Error 1") {
		t.Error("Older toast should render above newer toast")
	}
}

func TestWrapToastText(t *testing.T) {
	got := wrapToastText("one two three four", 9)
	if got != "one two\nthree\nfour" {
		t.Errorf("wrapToastText() = %q", got)
	}
}
