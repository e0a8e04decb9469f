package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type chatRequest struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	N           int     `json:"n"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestServer(t *testing.T, contents []string, got *chatRequest) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		choices := make([]map[string]any, 0, len(contents))
		for i, c := range contents {
			choices = append(choices, map[string]any{
				"index":         i,
				"message":       map[string]any{"role": "assistant", "content": c},
				"finish_reason": "stop",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1,
			"model":   got.Model,
			"choices": choices,
		})
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"test-model","object":"model"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var req chatRequest
	srv := newTestServer(t, []string{"  What is a pointer?  "}, &req)
	c := New(srv.URL, "test-key", "test-model")

	opts := DefaultOptions()
	got, err := c.Generate(context.Background(), "generate question: pointers", opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "What is a pointer?" {
		t.Errorf("Generate() = %q, want trimmed completion", got)
	}
	if req.Model != "test-model" {
		t.Errorf("model = %q, want test-model", req.Model)
	}
	if req.MaxTokens != opts.MaxTokens {
		t.Errorf("max_tokens = %d, want %d", req.MaxTokens, opts.MaxTokens)
	}
	if req.N != 1 {
		t.Errorf("n = %d, want 1", req.N)
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "generate question: pointers" {
		t.Errorf("unexpected messages: %+v", req.Messages)
	}
}

func TestGenerateJoinsSequences(t *testing.T) {
	var req chatRequest
	srv := newTestServer(t, []string{"first", "", "second"}, &req)
	c := New(srv.URL, "k", "m")

	opts := DefaultOptions()
	opts.NumSequences = 3
	got, err := c.Generate(context.Background(), "p", opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "first\nsecond" {
		t.Errorf("Generate() = %q, want %q", got, "first\nsecond")
	}
	if req.N != 3 {
		t.Errorf("n = %d, want 3", req.N)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	var req chatRequest
	srv := newTestServer(t, nil, &req)
	c := New(srv.URL, "k", "m")

	_, err := c.Generate(context.Background(), "p", DefaultOptions())
	if !errors.Is(err, ErrNoChoices) {
		t.Fatalf("Generate() error = %v, want ErrNoChoices", err)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := New(srv.URL, "k", "m")

	if _, err := c.Generate(context.Background(), "p", DefaultOptions()); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
}

func TestPing(t *testing.T) {
	var req chatRequest
	srv := newTestServer(t, nil, &req)
	if err := New(srv.URL, "k", "m").Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestDefaultOptionsFitQuestionAndChoices(t *testing.T) {
	opts := DefaultOptions()
	// A question line plus four short choices runs to well over 64 tokens.
	if opts.MaxTokens < 256 {
		t.Errorf("MaxTokens = %d, too small for a question with four choices", opts.MaxTokens)
	}
	if opts.MinTokens > opts.MaxTokens {
		t.Errorf("MinTokens %d exceeds MaxTokens %d", opts.MinTokens, opts.MaxTokens)
	}
}
