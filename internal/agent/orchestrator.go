package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/llm"
)

// Sentinel tool names recorded when no real tool call could be obtained
const (
	ParseErrorTool    = "parse_error"
	ProviderErrorTool = "error"
)

// ErrorKind classifies orchestration failures
type ErrorKind int

const (
	// ErrorKindParse means the model answered but the answer was not a usable decision
	ErrorKindParse ErrorKind = iota + 1
	// ErrorKindProvider means the model call failed
	ErrorKindProvider
	// ErrorKindFatal means the run cannot continue
	ErrorKindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindParse:
		return "parse"
	case ErrorKindProvider:
		return "provider"
	case ErrorKindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// OrchestrationError is returned by Decide. Parse and provider errors come with a sentinel decision.
type OrchestrationError struct {
	Kind ErrorKind
	Err  error
	Raw  string // Model output, when there was one
}

func (e *OrchestrationError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
}

func (e *OrchestrationError) Unwrap() error {
	return e.Err
}

// Decision is the next action chosen by the model
type Decision struct {
	Stop       bool
	StopReason string
	ToolName   string
	ToolArgs   map[string]any
	Thought    string
}

// Decider chooses the next action for a snapshot
type Decider interface {
	Decide(ctx context.Context, snapshot *Snapshot, prompt string) (Decision, error)
}

// Orchestrator asks the language model for the next decision
type Orchestrator struct {
	provider     llm.Provider
	registry     *tools.Registry
	systemPrompt string
	logger       *zap.Logger
}

// NewOrchestrator creates an orchestrator advertising the registry's tools
func NewOrchestrator(provider llm.Provider, registry *tools.Registry, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		provider:     provider,
		registry:     registry,
		systemPrompt: BuildSystemPrompt(registry),
		logger:       logger,
	}
}

// SystemPrompt returns the prompt sent with every decision
func (o *Orchestrator) SystemPrompt() string {
	return o.systemPrompt
}

// Decide sends the rendered snapshot to the model and parses its answer
func (o *Orchestrator) Decide(ctx context.Context, snapshot *Snapshot, prompt string) (Decision, error) {
	if err := ctx.Err(); err != nil {
		return Decision{}, &OrchestrationError{Kind: ErrorKindFatal, Err: err}
	}

	resp, err := o.provider.Generate(ctx, &llm.Request{
		System:   o.systemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Tools:    o.registry.Definitions(),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, &OrchestrationError{Kind: ErrorKindFatal, Err: ctxErr}
		}
		o.logger.Warn("model call failed", zap.Int("step", stepOf(snapshot)), zap.Error(err))
		return sentinel(ProviderErrorTool, err.Error()), &OrchestrationError{Kind: ErrorKindProvider, Err: err}
	}

	// Native tool calls win over text
	if len(resp.ToolCalls) > 0 {
		call := resp.ToolCalls[0]
		args, err := parseArgs(call.Arguments)
		if err != nil {
			return sentinel(ParseErrorTool, err.Error()), &OrchestrationError{Kind: ErrorKindParse, Err: err, Raw: call.Arguments}
		}
		if call.Name == tools.StopTask {
			reason, _ := args["reason"].(string)
			return Decision{ToolName: call.Name, ToolArgs: args, Thought: resp.Text, StopReason: reason}, nil
		}
		return Decision{ToolName: call.Name, ToolArgs: args, Thought: resp.Text}, nil
	}

	dec, err := ParseDecision(resp.Text)
	if err != nil {
		o.logger.Debug("unparseable decision", zap.Int("step", stepOf(snapshot)), zap.String("raw", truncate(resp.Text, 200)))
		return sentinel(ParseErrorTool, err.Error()), &OrchestrationError{Kind: ErrorKindParse, Err: err, Raw: resp.Text}
	}
	return dec, nil
}

// ParseDecision parses a JSON decision from model text
func ParseDecision(text string) (Decision, error) {
	cleaned := stripCodeFences(text)
	if cleaned == "" {
		return Decision{}, errors.New("empty response")
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		candidate := extractJSONObject(cleaned)
		if candidate == "" {
			return Decision{}, fmt.Errorf("response is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
			return Decision{}, fmt.Errorf("response is not JSON: %w", err)
		}
	}

	thought, _ := raw["thought"].(string)
	if decision, _ := raw["decision"].(string); strings.EqualFold(strings.TrimSpace(decision), "stop") {
		reason, _ := raw["reason"].(string)
		if reason == "" {
			reason, _ = raw["stop_reason"].(string)
		}
		return Decision{Stop: true, StopReason: reason, Thought: thought}, nil
	}

	name, _ := raw["tool_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return Decision{}, errors.New("missing tool_name")
	}

	var args map[string]any
	switch v := raw["tool_args"].(type) {
	case nil:
		args = map[string]any{}
	case map[string]any:
		args = v
	case string:
		parsed, err := parseArgs(v)
		if err != nil {
			return Decision{}, err
		}
		args = parsed
	default:
		return Decision{}, fmt.Errorf("tool_args must be an object, got %T", v)
	}

	return Decision{ToolName: name, ToolArgs: args, Thought: thought}, nil
}

func parseArgs(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, fmt.Errorf("tool arguments are not a JSON object: %w", err)
	}
	return args, nil
}

func stepOf(s *Snapshot) int {
	if s == nil {
		return 0
	}
	return s.Step
}

func sentinel(tool, msg string) Decision {
	return Decision{ToolName: tool, ToolArgs: map[string]any{"message": msg}}
}

// stripCodeFences removes a surrounding ``` or ```json fence
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) <= 1 {
		return strings.TrimSpace(strings.Trim(trimmed, "`"))
	}
	lines = lines[1:]
	if last := strings.TrimSpace(lines[len(lines)-1]); strings.HasPrefix(last, "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONObject returns the outermost {...} of content
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return ""
	}
	return content[start : end+1]
}

const systemPromptTemplate = `You are a legal case analyst extracting a structured checklist from court documents.

You work in steps. Each step you see a snapshot of the documents, what you have read, the checklist so far and your recent actions. You then choose exactly one tool to call, or stop.

Rules:
- Only record facts stated in the documents. Never guess.
- Every value must cite evidence: a document id and a contiguous list of sentence ids from read_document or search_document_regex output.
- Use update_checklist to set an item, append_checklist to add further values to it.
- Record "Not Applicable" (with the sentences showing why) when an item does not apply to the case.
- Read efficiently: search for likely passages, then read around them.
- Stop when every item is filled or marked Not Applicable, or nothing more can be found.

Available tools:
%s`

// BuildSystemPrompt renders the system prompt with the registry's tool list
func BuildSystemPrompt(registry *tools.Registry) string {
	var b strings.Builder
	for _, def := range registry.Definitions() {
		fmt.Fprintf(&b, "\n- %s: %s\n  parameters: %s\n", def.Name, def.Description, def.Parameters)
	}
	return fmt.Sprintf(systemPromptTemplate, b.String())
}
