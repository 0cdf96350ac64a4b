package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
)

type searchTool struct {
	env *Env
}

type searchArgs struct {
	Pattern          string          `json:"pattern"`
	DocID            *int            `json:"doc_id"`
	DocIDs           []int           `json:"doc_ids"`
	Flags            json.RawMessage `json:"flags"`
	ContextSentences *int            `json:"context_sentences"`
	TopK             *int            `json:"top_k"`
}

type searchMatch struct {
	DocID        int    `json:"doc_id"`
	SentenceID   int    `json:"sentence_id"`
	Match        string `json:"match"`
	ContextStart int    `json:"context_start"`
	ContextEnd   int    `json:"context_end"` // Exclusive
	Context      string `json:"context"`
}

func (t *searchTool) Name() string { return SearchDocumentRegex }

func (t *searchTool) Description() string {
	return fmt.Sprintf("Search documents with a regular expression (RE2 syntax). Returns each match's sentence id plus context_sentences on each side. At most top_k matches per document and %d overall; more_remain reports truncation.",
		t.env.Limits.SearchMaxMatches)
}

func (t *searchTool) Schema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Regular expression",
			},
			"doc_id": map[string]any{
				"type":        "integer",
				"minimum":     -1,
				"description": "Single document id, or -1 for all documents",
			},
			"doc_ids": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "integer", "minimum": 0},
				"description": "Document ids to search",
			},
			"flags": map[string]any{
				"type":        []string{"string", "array"},
				"items":       map[string]any{"type": "string"},
				"description": "Any of i (case-insensitive), m (multiline), s (dot matches newline), as \"im\" or [\"i\",\"m\"]",
			},
			"context_sentences": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": fmt.Sprintf("Sentences of context on each side (default 1, max %d)", t.env.Limits.MaxContext),
			},
			"top_k": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"description": fmt.Sprintf("Max matches per document (default %d)", t.env.Limits.SearchTopK),
			},
		},
		"required":             []string{"pattern"},
		"additionalProperties": false,
	}
}

func (t *searchTool) Call(ctx context.Context, args map[string]any) Result {
	var in searchArgs
	if err := decodeArgs(args, &in); err != nil {
		return errorResult("%v", err)
	}

	flags, err := parseFlags(in.Flags)
	if err != nil {
		return errorResult("%v", err)
	}

	expr := in.Pattern
	if flags != "" {
		expr = "(?" + flags + ")" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return errorResult("invalid pattern: %v", err)
	}

	docs, err := t.targets(in)
	if err != nil {
		return errorResult("%v", err)
	}

	contextSentences := 1
	if in.ContextSentences != nil {
		contextSentences = clamp(*in.ContextSentences, 0, t.env.Limits.MaxContext)
	}
	topK := t.env.Limits.SearchTopK
	if in.TopK != nil && *in.TopK > 0 {
		topK = *in.TopK
	}
	maxMatches := t.env.Limits.SearchMaxMatches

	matches := make([]searchMatch, 0)
	totalMatches := 0
	moreRemain := false

	for _, doc := range docs {
		spans := t.env.spans(doc)
		if len(spans) == 0 {
			continue
		}

		perDoc := 0
		seen := make(map[int]bool)
		for _, loc := range re.FindAllStringIndex(doc.Content, -1) {
			sid := extract.SentenceAt(spans, loc[0])
			if seen[sid] {
				continue
			}
			seen[sid] = true
			totalMatches++

			if perDoc >= topK || len(matches) >= maxMatches {
				moreRemain = true
				continue
			}
			perDoc++

			lo := clamp(sid-contextSentences, 0, len(spans))
			hi := clamp(sid+contextSentences+1, 0, len(spans))
			matches = append(matches, searchMatch{
				DocID:        doc.ID,
				SentenceID:   sid,
				Match:        doc.Content[loc[0]:loc[1]],
				ContextStart: lo,
				ContextEnd:   hi,
				Context:      renderSentences(spans[lo:hi]),
			})
		}
	}

	ids := make([]int, len(docs))
	for i, doc := range docs {
		ids[i] = doc.ID
	}
	t.env.Ledger.RecordSearch(state.SearchRecord{Pattern: in.Pattern, DocIDs: ids, Matches: len(matches)})

	return Result{
		"pattern":       in.Pattern,
		"doc_ids":       ids,
		"matches":       matches,
		"returned":      len(matches),
		"total_matches": totalMatches,
		"more_remain":   moreRemain,
	}
}

// targets resolves doc_id / doc_ids into documents; no selection or -1 means all
func (t *searchTool) targets(in searchArgs) ([]*model.Document, error) {
	var ids []int
	switch {
	case len(in.DocIDs) > 0:
		ids = append(ids, in.DocIDs...)
	case in.DocID != nil && *in.DocID >= 0:
		ids = []int{*in.DocID}
	}

	if len(ids) == 0 {
		docs := make([]*model.Document, len(t.env.Corpus.Documents))
		for i := range t.env.Corpus.Documents {
			docs[i] = &t.env.Corpus.Documents[i]
		}
		return docs, nil
	}

	sort.Ints(ids)
	var docs []*model.Document
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		doc, ok := t.env.Corpus.Document(id)
		if !ok {
			return nil, fmt.Errorf("document %d not found", id)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// parseFlags accepts "ims" or ["i","m","s"] and returns the normalized flag set
func parseFlags(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var letters []string
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, r := range s {
			letters = append(letters, string(r))
		}
	} else if err := json.Unmarshal(raw, &letters); err != nil {
		return "", fmt.Errorf("flags must be a string or a list of strings")
	}

	set := map[string]bool{}
	for _, l := range letters {
		l = strings.ToLower(strings.TrimSpace(l))
		switch l {
		case "":
			continue
		case "i", "m", "s":
			set[l] = true
		case "ignorecase":
			set["i"] = true
		case "multiline":
			set["m"] = true
		case "dotall":
			set["s"] = true
		default:
			return "", fmt.Errorf("unsupported flag %q (use i, m, s)", l)
		}
	}

	var out string
	for _, f := range []string{"i", "m", "s"} {
		if set[f] {
			out += f
		}
	}
	return out, nil
}

func renderSentences(spans []model.SentenceSpan) string {
	lines := make([]string, len(spans))
	for i, span := range spans {
		lines[i] = fmt.Sprintf("[%d] %s", span.SentenceID, span.Text)
	}
	return strings.Join(lines, "\n")
}
