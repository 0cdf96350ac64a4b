// Package tools implements the capabilities the extraction agent can invoke.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
)

// Tool names
const (
	ListDocuments       = "list_documents"
	ReadDocument        = "read_document"
	SearchDocumentRegex = "search_document_regex"
	GetChecklist        = "get_checklist"
	UpdateChecklist     = "update_checklist"
	AppendChecklist     = "append_checklist"
	StopTask            = "stop_task"
)

// Result is the JSON-shaped outcome of a tool call. Failures carry an "error" key.
type Result map[string]any

// Error returns the error message of a failed result
func (r Result) Error() (string, bool) {
	msg, ok := r["error"].(string)
	return msg, ok
}

// Schema is a JSON Schema describing a tool's arguments object
type Schema map[string]any

// Tool is one capability the agent can invoke
type Tool interface {
	Name() string
	Description() string
	Schema() Schema
	Call(ctx context.Context, args map[string]any) Result
}

// Limits bounds tool output sizes
type Limits struct {
	ReadWindow       int // Max sentences per read_document call
	SearchMaxMatches int // Cross-document match cap
	SearchTopK       int // Default matches per document
	MaxContext       int // Max context_sentences
}

// DefaultLimits returns the standard tool limits
func DefaultLimits() Limits {
	return Limits{
		ReadWindow:       200,
		SearchMaxMatches: 20,
		SearchTopK:       5,
		MaxContext:       5,
	}
}

// Env bundles the per-run inputs shared by all tools
type Env struct {
	Corpus      *model.Corpus
	Indexer     *extract.Indexer
	Resolver    *extract.Resolver
	Definitions *checklist.Registry
	Store       *state.ChecklistStore
	Ledger      *state.Ledger
	Limits      Limits
}

// spans returns the sentence index of a document
func (e *Env) spans(doc *model.Document) []model.SentenceSpan {
	return e.Indexer.Index(e.Corpus.CaseID, doc.ID, doc.Content)
}

// coverage returns covered sentences and coverage percent of a document
func (e *Env) coverage(doc *model.Document) (int, float64) {
	total := len(e.spans(doc))
	covered := e.Ledger.CoveredSentences(doc.ID)
	if covered > total {
		covered = total
	}
	if total == 0 {
		return covered, 0
	}
	return covered, float64(covered) * 100 / float64(total)
}

func (e *Env) stats() state.Stats {
	return e.Store.Stats(e.Definitions.Keys())
}

// decodeArgs converts validated arguments into a typed struct
func decodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func errorResult(format string, a ...any) Result {
	return Result{"error": fmt.Sprintf(format, a...)}
}

func validationResult(errs []string) Result {
	return Result{
		"error":  fmt.Sprintf("invalid arguments: %d problem(s)", len(errs)),
		"errors": errs,
	}
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
