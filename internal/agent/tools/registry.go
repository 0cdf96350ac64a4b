package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ppiankov/casecheck/internal/llm"
)

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

// Registry maps tool names to tools. Built once per run and used only by that run.
type Registry struct {
	tools map[string]registeredTool
	order []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]registeredTool)}
}

// NewDefaultRegistry registers the full extraction tool set over env
func NewDefaultRegistry(env *Env) (*Registry, error) {
	r := NewRegistry()
	for _, t := range []Tool{
		&listDocumentsTool{env: env},
		&readDocumentTool{env: env},
		&searchTool{env: env},
		&getChecklistTool{env: env},
		&patchChecklistTool{env: env, replace: true},
		&patchChecklistTool{env: env, replace: false},
		&stopTool{},
	} {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool and compiles its argument schema
func (r *Registry) Register(t Tool) error {
	raw, err := json.Marshal(t.Schema())
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchema, t.Name(), err)
	}
	schema, err := jsonschema.CompileString(t.Name()+".json", string(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchema, t.Name(), err)
	}

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, t.Name())
	}
	r.tools[t.Name()] = registeredTool{tool: t, schema: schema}
	r.order = append(r.order, t.Name())
	return nil
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	rt, ok := r.tools[name]
	return rt.tool, ok
}

// Names returns tool names in registration order
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the tool list advertised to the model
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name].tool
		params, _ := json.Marshal(t.Schema())
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		})
	}
	return defs
}

// Call validates args against the tool schema and invokes the tool.
// Only an unknown tool name is a Go error; everything else is reported in the Result.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (Result, error) {
	rt, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	normalized, err := normalizeArgs(args)
	if err != nil {
		return errorResult("invalid arguments: %v", err), nil
	}

	if err := rt.schema.Validate(normalized); err != nil {
		return validationResult(schemaErrors(err)), nil
	}

	return rt.tool.Call(ctx, normalized), nil
}

// normalizeArgs round-trips args through JSON so every value has a JSON type
func normalizeArgs(args map[string]any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// schemaErrors flattens a validation error into one line per failing location
func schemaErrors(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}

	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "(root)"
			}
			out = append(out, fmt.Sprintf("%s: %s", loc, e.Message))
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Strings(out)
	return out
}
