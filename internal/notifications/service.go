package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"muse/internal/config"
	"muse/internal/idea"
)

const userAgent = "Muse-Go/0.1.0"

// Service defines the notification surface exposed to the idea workflow.
type Service interface {
	NotifyTransitionCompleted(ctx context.Context, title string, from, to idea.Stage) error
	NotifyTransitionFailed(ctx context.Context, title string, from, to idea.Stage, reason string) error
	NotifyCompensationFailure(ctx context.Context, title string, stuck idea.Stage) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewNoop returns a service that silently drops every notification.
func NewNoop() Service {
	return noopService{}
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		transitions: cfg.Notifications.Transitions,
		errors:      cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	transitions bool
	errors      bool
}

func (n *ntfyService) NotifyTransitionCompleted(ctx context.Context, title string, from, to idea.Stage) error {
	if !n.transitions {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Muse - Stage Advanced",
		message: fmt.Sprintf("%s moved from %s to %s", title, from, to),
		tags:    []string{"muse", "transition", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTransitionFailed(ctx context.Context, title string, from, to idea.Stage, reason string) error {
	if !n.transitions {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("%s could not move from %s to %s", title, from, to)
	if reason != "" {
		message = fmt.Sprintf("%s\nReason: %s", message, reason)
	}
	data := payload{
		title:   "Muse - Transition Failed",
		message: message,
		tags:    []string{"muse", "transition", "failed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompensationFailure(ctx context.Context, title string, stuck idea.Stage) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Muse - Manual Intervention Required",
		message:  fmt.Sprintf("%s is stuck in stage %s after a failed rollback\nManual review required", title, stuck),
		tags:     []string{"muse", "compensation", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Muse - Error",
		message:  builder.String(),
		tags:     []string{"muse", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Muse - Test",
		message:  "Notification system test",
		tags:     []string{"muse", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTransitionCompleted(context.Context, string, idea.Stage, idea.Stage) error {
	return nil
}

func (noopService) NotifyTransitionFailed(context.Context, string, idea.Stage, idea.Stage, string) error {
	return nil
}

func (noopService) NotifyCompensationFailure(context.Context, string, idea.Stage) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
