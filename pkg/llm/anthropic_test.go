package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAnthropicComplete(t *testing.T) {
	t.Parallel()

	errCh := make(chan error, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "test-key" {
			errCh <- fmt.Errorf("expected api key header, got %q", r.Header.Get("X-API-Key"))
			return
		}
		if r.Header.Get("Anthropic-Version") == "" {
			errCh <- errors.New("missing Anthropic-Version header")
			return
		}
		if r.URL.Path != "/v1/messages" {
			errCh <- fmt.Errorf("unexpected path %s", r.URL.Path)
			return
		}
		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errCh <- fmt.Errorf("decode request: %w", err)
			return
		}
		if req.System != "be brief" {
			errCh <- fmt.Errorf("expected system field from system message, got %q", req.System)
			return
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			errCh <- fmt.Errorf("unexpected messages %+v", req.Messages)
			return
		}
		if req.MaxTokens != defaultAnthropicMaxTokens {
			errCh <- fmt.Errorf("expected default max_tokens %d, got %d", defaultAnthropicMaxTokens, req.MaxTokens)
			return
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"part one "},{"type":"text","text":"part two"}],"stop_reason":"end_turn"}`)
	}))
	defer server.Close()

	client := NewAnthropicClient(Config{APIKey: "test-key", APIURL: server.URL, Model: "claude-test"})
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hello"},
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("handler error: %v", err)
	default:
	}
	if resp.Text != "part one part two" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
}

func TestAnthropicCompleteModelRejected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"model not found"}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient(Config{APIURL: server.URL, Model: "nope"})
	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "q"}},
	})
	if !errors.Is(err, ErrModelRejected) {
		t.Fatalf("expected ErrModelRejected, got %v", err)
	}
}

func TestAnthropicCompleteModelRequired(t *testing.T) {
	t.Parallel()

	client := NewAnthropicClient(Config{})
	if _, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "q"}},
	}); err == nil {
		t.Fatal("expected error when no model configured")
	}
}
