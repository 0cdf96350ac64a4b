package tools

import (
	"context"
	"fmt"
)

type readDocumentTool struct {
	env *Env
}

type readDocumentArgs struct {
	DocID         int  `json:"doc_id"`
	StartSentence int  `json:"start_sentence"`
	EndSentence   *int `json:"end_sentence"`
}

func (t *readDocumentTool) Name() string { return ReadDocument }

func (t *readDocumentTool) Description() string {
	return fmt.Sprintf("Read sentences [start_sentence, end_sentence) of a document (end exclusive). Each line is prefixed with its sentence id. At most %d sentences per call; out-of-range bounds are clamped.",
		t.env.Limits.ReadWindow)
}

func (t *readDocumentTool) Schema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"doc_id": map[string]any{
				"type":        "integer",
				"minimum":     0,
				"description": "Document id from list_documents",
			},
			"start_sentence": map[string]any{
				"type":        "integer",
				"description": "First sentence id to read (inclusive, default 0)",
			},
			"end_sentence": map[string]any{
				"type":        "integer",
				"description": "Sentence id to stop before (exclusive)",
			},
		},
		"required":             []string{"doc_id"},
		"additionalProperties": false,
	}
}

func (t *readDocumentTool) Call(ctx context.Context, args map[string]any) Result {
	var in readDocumentArgs
	if err := decodeArgs(args, &in); err != nil {
		return errorResult("%v", err)
	}

	doc, ok := t.env.Corpus.Document(in.DocID)
	if !ok {
		return errorResult("document %d not found", in.DocID)
	}

	spans := t.env.spans(doc)
	total := len(spans)
	window := t.env.Limits.ReadWindow

	start := clamp(in.StartSentence, 0, total)
	end := start + window
	if in.EndSentence != nil {
		end = *in.EndSentence
	}
	end = clamp(end, 0, total)

	if start >= total {
		return errorResult("start_sentence %d is past the end of document %d (%d sentences)", in.StartSentence, doc.ID, total)
	}
	if end <= start {
		return errorResult("end_sentence must be greater than start_sentence (got %d..%d)", start, end)
	}
	if end-start > window {
		return errorResult("requested %d sentences; at most %d may be read per call", end-start, window)
	}

	t.env.Ledger.RecordRead(doc.ID, start, end)

	return Result{
		"doc_id":          doc.ID,
		"title":           doc.Title,
		"start_sentence":  start,
		"end_sentence":    end,
		"total_sentences": total,
		"text":            renderSentences(spans[start:end]),
		"has_more":        end < total,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
