package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/worker"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends system + messages (optionally with tool schemas) and returns text or tool calls
	Generate(ctx context.Context, req *Request) (*Response, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn
type Message struct {
	Role    string
	Content string
}

// ToolDefinition advertises a callable tool to the model
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema of the arguments object
}

// ToolCall is a native tool-call request returned by the model
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object
}

// Request contains the input for one generation
type Request struct {
	// System is the system prompt
	System string

	// Messages are the conversation turns, usually a single user message
	Messages []Message

	// Tools are advertised to the model; empty means plain text generation
	Tools []ToolDefinition

	// Model overrides the configured model
	Model string

	// MaxTokens overrides the configured response limit
	MaxTokens int

	// Temperature overrides the configured sampling temperature when set
	Temperature *float32
}

// Response contains the model output
type Response struct {
	// Text is the assistant message content
	Text string

	// ToolCalls are native tool-call requests, in model order
	ToolCalls []ToolCall

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "openrouter", "mock", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/OpenRouter
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for a single API request
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Temperature for sampling
	Temperature float32

	// MaxRetries on rate limits, server errors and transport failures
	MaxRetries int

	// RetryDelay is the initial backoff between retries
	RetryDelay time.Duration

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string

	// Limiter is shared by all providers of a process; nil disables limiting
	Limiter *worker.Limiter

	// Logger defaults to a no-op logger
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:    "", // Disabled by default
		Model:       "",
		Timeout:     120,
		MaxTokens:   2000,
		Temperature: 0.1,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 2000
}

func (c Config) temperature(override *float32) float32 {
	if override != nil {
		return *override
	}
	return c.Temperature
}

func (c Config) attempts() uint {
	if c.MaxRetries <= 0 {
		return 1
	}
	return uint(c.MaxRetries) + 1
}

func (c Config) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return time.Second
	}
	return c.RetryDelay
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
