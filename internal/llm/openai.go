package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/util"
	"github.com/ppiankov/casecheck/internal/worker"
)

// OpenAIProvider implements the Provider interface for OpenAI-compatible chat APIs
type OpenAIProvider struct {
	name   string
	client *openai.Client
	config Config
	logger *zap.Logger
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: util.NewTransport(config.HTTPProxy, config.HTTPSProxy, config.NoProxy),
	}

	return &OpenAIProvider{
		name:   "openai",
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
		logger: config.logger().Named("llm"),
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable(ctx context.Context) bool {
	// Simple check: try to list models (lightweight API call)
	_, err := p.client.ListModels(ctx)
	if err != nil {
		p.logger.Warn("API check failed", zap.String("provider", p.name), zap.Error(err))
		return false
	}
	return true
}

// Generate runs one chat completion, retrying rate limits and server errors
func (p *OpenAIProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	// Determine model
	model := req.Model
	if model == "" {
		model = p.config.Model
	}
	if model == "" {
		model = openai.GPT4oMini // Default to gpt-4o-mini
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(req),
		MaxTokens:   p.config.maxTokens(req.MaxTokens),
		Temperature: p.config.temperature(req.Temperature),
	}
	for _, tool := range req.Tools {
		chatReq.Tools = append(chatReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}

	resp, err := retry.DoWithData(
		func() (openai.ChatCompletionResponse, error) {
			if p.config.Limiter != nil {
				if err := p.config.Limiter.Wait(ctx, worker.LimiterKey(p.name, model)); err != nil {
					return openai.ChatCompletionResponse{}, retry.Unrecoverable(err)
				}
			}

			// Create timeout context
			callCtx, cancel := context.WithTimeout(ctx, p.config.timeout())
			defer cancel()

			return p.client.CreateChatCompletion(callCtx, chatReq)
		},
		retry.Context(ctx),
		retry.Attempts(p.config.attempts()),
		retry.Delay(p.config.retryDelay()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && isRetryable(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.logger.Warn("retrying chat completion",
				zap.String("provider", p.name),
				zap.String("model", model),
				zap.Uint("attempt", n+1),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%s API error: %w", p.name, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from %s", p.name)
	}

	msg := resp.Choices[0].Message
	out := &Response{
		Text:       strings.TrimSpace(msg.Content),
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	for _, call := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}

	return out, nil
}

func toOpenAIMessages(req *Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return messages
}

// isRetryable reports whether a failed call may succeed when repeated
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Per-call timeout; the parent context is checked by the caller
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
