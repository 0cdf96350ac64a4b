package tools

import "context"

type listDocumentsTool struct {
	env *Env
}

func (t *listDocumentsTool) Name() string { return ListDocuments }

func (t *listDocumentsTool) Description() string {
	return "List every document in the case with id, title, type, sentence count and how much has been read so far. Call this first when the corpus is unknown."
}

func (t *listDocumentsTool) Schema() Schema {
	return Schema{
		"type":                 "object",
		"properties":           map[string]any{},
		"additionalProperties": false,
	}
}

func (t *listDocumentsTool) Call(ctx context.Context, args map[string]any) Result {
	docs := make([]map[string]any, 0, len(t.env.Corpus.Documents))
	for i := range t.env.Corpus.Documents {
		doc := &t.env.Corpus.Documents[i]
		covered, pct := t.env.coverage(doc)
		docs = append(docs, map[string]any{
			"doc_id":            doc.ID,
			"title":             doc.Title,
			"type":              doc.Type,
			"sentence_count":    len(t.env.spans(doc)),
			"covered_sentences": covered,
			"coverage_pct":      round1(pct),
			"visited":           t.env.Ledger.Visited(doc.ID),
		})
	}

	return Result{
		"documents": docs,
		"count":     len(docs),
	}
}
