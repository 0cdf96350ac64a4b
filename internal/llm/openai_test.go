package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ppiankov/casecheck/internal/worker"
)

func testOpenAIConfig(url string) Config {
	return Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "gpt-4o-mini",
		Timeout:    5,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

func TestOpenAIProvider_Generate_Text(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("Expected system + user messages, got %+v", req.Messages)
		}

		resp := openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role:    "assistant",
						Content: `  {"decision": "stop", "reason": "done"}  `,
					},
					FinishReason: "stop",
				},
			},
			Usage: openai.Usage{TotalTokens: 100},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{
		System:   "You are an extraction agent.",
		Messages: []Message{{Role: RoleUser, Content: "snapshot"}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if resp.Text != `{"decision": "stop", "reason": "done"}` {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if resp.TokensUsed != 100 {
		t.Errorf("Expected 100 tokens, got %d", resp.TokensUsed)
	}
}

func TestOpenAIProvider_Generate_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"read_document"`) {
			t.Errorf("Expected tool definitions in request, got %s", body)
		}

		resp := openai.ChatCompletionResponse{
			Model: "gpt-4o-mini",
			Choices: []openai.ChatCompletionChoice{
				{
					Message: openai.ChatCompletionMessage{
						Role: "assistant",
						ToolCalls: []openai.ToolCall{
							{
								ID:   "call_1",
								Type: openai.ToolTypeFunction,
								Function: openai.FunctionCall{
									Name:      "read_document",
									Arguments: `{"doc_id": 1, "start_sentence": 0, "end_sentence": 10}`,
								},
							},
						},
					},
				},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{
		Messages: []Message{{Content: "snapshot"}},
		Tools: []ToolDefinition{{
			Name:        "read_document",
			Description: "Read sentences",
			Parameters:  json.RawMessage(`{"type": "object"}`),
		}},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	if resp.ToolCalls[0].Name != "read_document" || resp.ToolCalls[0].ID != "call_1" {
		t.Errorf("Unexpected tool call: %+v", resp.ToolCalls[0])
	}
}

func TestOpenAIProvider_Generate_RetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if resp.Text != "ok" {
		t.Errorf("Unexpected text: %s", resp.Text)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("Expected 3 attempts, got %d", hits)
	}
}

func TestOpenAIProvider_Generate_RateLimitExhausted(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	_, err = provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", hits)
	}
}

func TestOpenAIProvider_Generate_BadRequestNotRetried(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}}); err == nil {
		t.Fatal("Expected error, got nil")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("Expected a single attempt, got %d", hits)
	}
}

func TestOpenAIProvider_Generate_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{malformed json`))
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOpenAIProvider_Generate_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(testOpenAIConfig(server.URL))
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Generate(ctx, &Request{Messages: []Message{{Content: "hi"}}}); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_Generate_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
		})
	}))
	defer server.Close()

	limiter := worker.NewLimiter(0.001, 1)
	cfg := testOpenAIConfig(server.URL)
	cfg.Limiter = limiter

	provider, err := NewOpenAIProvider(cfg)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if _, err := provider.Generate(context.Background(), &Request{Messages: []Message{{Content: "hi"}}}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// The single burst token for this provider and model is spent
	if limiter.Allow(worker.LimiterKey("openai", "gpt-4o-mini")) {
		t.Error("Expected limiter token to be consumed")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Fatal("Expected error for missing API key")
	}
}

func TestOpenAIProvider_Generate_Temperature(t *testing.T) {
	var seen []float32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		seen = append(seen, req.Temperature)

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "ok"}}},
		})
	}))
	defer server.Close()

	cfg := testOpenAIConfig(server.URL)
	cfg.Temperature = 0.1
	provider, err := NewOpenAIProvider(cfg)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	override := float32(0.7)
	for _, req := range []*Request{
		{Messages: []Message{{Content: "hi"}}},
		{Messages: []Message{{Content: "hi"}}, Temperature: &override},
	} {
		if _, err := provider.Generate(context.Background(), req); err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
	}

	if len(seen) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(seen))
	}
	if seen[0] != 0.1 {
		t.Errorf("Expected configured temperature 0.1, got %v", seen[0])
	}
	if seen[1] != 0.7 {
		t.Errorf("Expected request temperature 0.7, got %v", seen[1])
	}
}
