package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestOllamaProvider_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Expected path /api/chat, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("Expected system + user messages, got %+v", req.Messages)
		}

		_, _ = w.Write([]byte(`{
			"model": "llama3.1",
			"message": {"role": "assistant", "content": "{\"decision\": \"stop\"}"},
			"done": true,
			"prompt_eval_count": 10,
			"eval_count": 20
		}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{
		System:   "system prompt",
		Messages: []Message{{Content: "snapshot"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != `{"decision": "stop"}` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("Expected 30 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Generate_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"model": "llama3.1",
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "list_documents", "arguments": {}}}]
			},
			"done": true
		}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{
		Messages: []Message{{Content: "snapshot"}},
		Tools:    []ToolDefinition{{Name: "list_documents", Parameters: json.RawMessage(`{"type":"object"}`)}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "list_documents" {
		t.Fatalf("Unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments != "{}" {
		t.Errorf("Expected {} arguments, got %s", resp.ToolCalls[0].Arguments)
	}
}

func TestOllamaProvider_Generate_APIError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL:    server.URL,
		Model:      "missing",
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}}); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected 404 not to be retried, got %d attempts", hits)
	}
}

func TestOllamaProvider_Generate_RetriesServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"model": "llama3.1", "message": {"role": "assistant", "content": "ok"}, "done": true}`))
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{
		BaseURL:    server.URL,
		Model:      "llama3.1",
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}})
	if err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
}

func TestNewOllamaProvider_RequiresModel(t *testing.T) {
	if _, err := NewOllamaProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing model")
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1"})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}
}
