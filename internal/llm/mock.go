package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockProvider replays scripted responses. The last response repeats once the script is exhausted.
type MockProvider struct {
	// Latency is applied before every response
	Latency time.Duration

	// Func, when set, replaces the script; call is 1-based
	Func func(ctx context.Context, req *Request, call int) (*Response, error)

	responses []*Response
	calls     atomic.Int64

	mu       sync.Mutex
	requests []*Request
}

// NewMockProvider creates a mock provider with a response script
func NewMockProvider(responses ...*Response) *MockProvider {
	return &MockProvider{responses: responses}
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always reports true
func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// Generate returns the next scripted response
func (m *MockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	call := int(m.calls.Add(1))

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.Latency > 0 {
		select {
		case <-time.After(m.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.Func != nil {
		return m.Func(ctx, req, call)
	}

	if len(m.responses) == 0 {
		return &Response{Text: `{"decision": "stop", "reason": "empty script"}`, Model: "mock"}, nil
	}

	idx := call - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	resp := *m.responses[idx]
	resp.ToolCalls = append([]ToolCall(nil), resp.ToolCalls...)
	return &resp, nil
}

// Calls returns how many times Generate was invoked
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}

// Requests returns every request received so far
func (m *MockProvider) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Request(nil), m.requests...)
}
