package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test/model",
	}
	base := []Option{
		WithHTTPClient(server.Client()),
		WithSleeper(func(time.Duration) {}),
	}
	return NewClient(cfg, append(base, opts...)...)
}

func completionBody(content string) string {
	return `{"choices":[{"finish_reason":"stop","message":{"content":` + quoteJSON(content) + `}}]}`
}

func quoteJSON(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		default:
			out = append(out, s[i])
		}
	}
	return string(append(out, '"'))
}

func TestCompleteJSONSuccess(t *testing.T) {
	var gotAuth string
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(`{"summary":"ok"}`)))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"summary":"ok"}` {
		t.Fatalf("content = %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
}

func TestCompleteJSONValidation(t *testing.T) {
	client := NewClient(Config{APIKey: "k", Model: "m"})
	if _, err := client.CompleteJSON(context.Background(), "", "user"); err == nil {
		t.Fatal("empty system prompt should fail")
	}
	if _, err := client.CompleteJSON(context.Background(), "system", ""); err == nil {
		t.Fatal("empty user prompt should fail")
	}
	missingKey := NewClient(Config{Model: "m"})
	if _, err := missingKey.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("missing api key should fail")
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for http 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("client errors must not retry, got %d attempts", calls.Load())
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	var slept []time.Duration
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "3")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	}, WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("expected a single 3s sleep, got %v", slept)
	}
}

func TestRetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}, WithRetryMaxAttempts(2))

	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestContextCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	if _, err := client.CompleteJSON(ctx, "system", "user"); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestEmptyContentError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"finish_reason":"content_filter","message":{"content":"","refusal":"no"}}]}`))
	})

	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected empty content error")
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Summary string `json:"summary"`
	}

	cases := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"summary":"ok"}`, "ok", false},
		{"fenced", "```json\n{\"summary\":\"ok\"}\n```", "ok", false},
		{"bare fence", "```\n{\"summary\":\"ok\"}\n```", "ok", false},
		{"leading prose", `Here you go: {"summary":"ok"}`, "ok", false},
		{"empty", "", "", true},
		{"no json", "nothing here", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got payload
			err := DecodeJSON(tc.content, &got)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("DecodeJSON(%q) expected error", tc.content)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON(%q): %v", tc.content, err)
			}
			if got.Summary != tc.want {
				t.Fatalf("summary = %q, want %q", got.Summary, tc.want)
			}
		})
	}
}
