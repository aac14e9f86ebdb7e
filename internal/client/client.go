package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"muse/internal/api"
	"muse/internal/orchestrator"
)

// ErrDaemonUnavailable indicates the daemon API could not be reached.
var ErrDaemonUnavailable = errors.New("muse daemon unavailable")

// APIError carries a non-2xx response from the daemon.
type APIError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("daemon returned status %d", e.StatusCode)
}

// Client talks to the daemon API.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
	actor string
}

// New builds a client for the daemon listening at bind. The actor ID is
// sent on every idea request; the token is attached when non-empty.
func New(bind, token, actor string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, errors.New("api address required")
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, fmt.Errorf("parse api address: %w", err)
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// Stage processing waits on the model; keep the timeout generous.
		http:  &http.Client{Timeout: 2 * time.Minute},
		token: strings.TrimSpace(token),
		actor: strings.TrimSpace(actor),
	}, nil
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

// Stages lists the stages that can be processed.
func (c *Client) Stages(ctx context.Context) ([]string, error) {
	var out api.StagesResponse
	if err := c.do(ctx, http.MethodGet, "/api/stages", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Stages, nil
}

// ListIdeas fetches the ideas visible to the actor.
func (c *Client) ListIdeas(ctx context.Context, status string, limit, offset int) ([]api.IdeaDTO, error) {
	values := url.Values{}
	if status = strings.TrimSpace(status); status != "" {
		values.Set("status", status)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	var out []api.IdeaDTO
	err := c.do(ctx, http.MethodGet, "/api/ideas", values, nil, &out)
	return out, err
}

// GetIdea fetches one idea.
func (c *Client) GetIdea(ctx context.Context, id string) (api.IdeaDTO, error) {
	var out api.IdeaDTO
	err := c.do(ctx, http.MethodGet, "/api/ideas/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateIdea stores a new idea.
func (c *Client) CreateIdea(ctx context.Context, req api.CreateIdeaRequest) (api.IdeaDTO, error) {
	var out api.IdeaDTO
	err := c.do(ctx, http.MethodPost, "/api/ideas", nil, req, &out)
	return out, err
}

// UpdateIdea applies a partial update.
func (c *Client) UpdateIdea(ctx context.Context, id string, req api.UpdateIdeaRequest) (api.IdeaDTO, error) {
	var out api.IdeaDTO
	err := c.do(ctx, http.MethodPatch, "/api/ideas/"+url.PathEscape(id), nil, req, &out)
	return out, err
}

// DeleteIdea removes an idea.
func (c *Client) DeleteIdea(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/ideas/"+url.PathEscape(id), nil, nil, nil)
}

// Process runs a stage analysis without changing the idea's status.
func (c *Client) Process(ctx context.Context, id string, req api.ProcessRequest) (orchestrator.ProcessingOutcome, error) {
	var out orchestrator.ProcessingOutcome
	err := c.do(ctx, http.MethodPost, "/api/ideas/"+url.PathEscape(id)+"/process", nil, req, &out)
	return out, err
}

// Transition moves an idea to a new stage.
func (c *Client) Transition(ctx context.Context, id string, req api.TransitionRequest) (orchestrator.TransitionOutcome, error) {
	var out orchestrator.TransitionOutcome
	err := c.do(ctx, http.MethodPost, "/api/ideas/"+url.PathEscape(id)+"/transition", nil, req, &out)
	return out, err
}

// AICalls lists the recorded model calls for an idea.
func (c *Client) AICalls(ctx context.Context, id string) ([]api.AICallDTO, error) {
	var out []api.AICallDTO
	err := c.do(ctx, http.MethodGet, "/api/ideas/"+url.PathEscape(id)+"/calls", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dst any) error {
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set("X-Muse-Actor", c.actor)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isConnectionError(err) {
			return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.ErrorResponse
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); decodeErr == nil {
			apiErr.Message = payload.Error
			apiErr.Kind = payload.Kind
		}
		return apiErr
	}

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isConnectionError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsDaemonUnavailable reports whether err means the daemon is not running.
func IsDaemonUnavailable(err error) bool {
	return errors.Is(err, ErrDaemonUnavailable)
}
