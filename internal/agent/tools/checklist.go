package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
)

type getChecklistTool struct {
	env *Env
}

type getChecklistArgs struct {
	Item  string   `json:"item"`
	Items []string `json:"items"`
}

func (t *getChecklistTool) Name() string { return GetChecklist }

func (t *getChecklistTool) Description() string {
	return "Return the values extracted so far for one item, a list of items, or \"all\", plus completion stats (filled, empty, total)."
}

func (t *getChecklistTool) Schema() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"item": map[string]any{
				"type":        "string",
				"description": "A checklist key, or \"all\"",
			},
			"items": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Several checklist keys",
			},
		},
		"additionalProperties": false,
	}
}

func (t *getChecklistTool) Call(ctx context.Context, args map[string]any) Result {
	var in getChecklistArgs
	if err := decodeArgs(args, &in); err != nil {
		return errorResult("%v", err)
	}

	keys := in.Items
	if in.Item != "" && in.Item != "all" {
		keys = append([]string{in.Item}, keys...)
	}
	if len(keys) == 0 || in.Item == "all" {
		keys = t.env.Definitions.Keys()
	}

	var unknown []string
	for _, key := range keys {
		if !t.env.Definitions.Has(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		return errorResult("unknown checklist keys: %s", strings.Join(unknown, ", "))
	}

	entries := make(map[string]any, len(keys))
	for _, key := range keys {
		values := make([]map[string]any, 0)
		for _, item := range t.env.Store.Get(key) {
			v := map[string]any{
				"value":       item.Value,
				"document_id": item.Evidence.DocumentID,
				"verified":    item.Evidence.Verified,
			}
			if item.Evidence.Text != "" {
				v["text"] = item.Evidence.Text
			}
			values = append(values, v)
		}
		entries[key] = map[string]any{
			"description": t.env.Definitions.Description(key),
			"values":      values,
		}
	}

	st := t.env.stats()
	return Result{
		"checklist":      entries,
		"filled":         st.Filled,
		"empty":          st.Empty,
		"total":          st.Total,
		"not_applicable": st.NotApplicable,
	}
}

// patchChecklistTool implements update_checklist (replace) and append_checklist
type patchChecklistTool struct {
	env     *Env
	replace bool
}

type evidenceArg struct {
	DocumentID  int   `json:"document_id"`
	SentenceIDs []int `json:"sentence_ids"`
}

type extractedArg struct {
	Value    string        `json:"value"`
	Evidence []evidenceArg `json:"evidence"`
}

type patchEntry struct {
	Key       string         `json:"key"`
	Extracted []extractedArg `json:"extracted"`
}

type patchArgs struct {
	Patch []patchEntry `json:"patch"`
}

func (t *patchChecklistTool) Name() string {
	if t.replace {
		return UpdateChecklist
	}
	return AppendChecklist
}

func (t *patchChecklistTool) Description() string {
	if t.replace {
		return "Replace all values of each named checklist key. Every value cites contiguous sentence ids of one document. The whole batch is validated first; an invalid batch changes nothing. Use value \"" + state.NotApplicable + "\" when a key does not apply."
	}
	return "Add values to checklist keys without removing existing ones. Same patch format and validation as update_checklist."
}

func (t *patchChecklistTool) Schema() Schema {
	evidence := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_id":  map[string]any{"type": "integer"},
			"sentence_ids": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
		},
		"required": []string{"document_id", "sentence_ids"},
	}
	extracted := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value":    map[string]any{"type": "string"},
			"evidence": map[string]any{"type": "array", "items": evidence},
		},
		"required": []string{"value", "evidence"},
	}
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"patch": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"key":       map[string]any{"type": "string"},
						"extracted": map[string]any{"type": "array", "items": extracted},
					},
					"required": []string{"key", "extracted"},
				},
			},
		},
		"required":             []string{"patch"},
		"additionalProperties": false,
	}
}

func (t *patchChecklistTool) Call(ctx context.Context, args map[string]any) Result {
	var in patchArgs
	if err := decodeArgs(args, &in); err != nil {
		return errorResult("%v", err)
	}

	// Validate the whole batch before any mutation
	if errs := t.validate(in.Patch); len(errs) > 0 {
		return validationResult(errs)
	}

	// Group entries per key, keeping first-occurrence order
	var order []string
	grouped := make(map[string][]extractedArg)
	for _, entry := range in.Patch {
		key := strings.TrimSpace(entry.Key)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], entry.Extracted...)
	}

	committed := make([]string, 0, len(order))
	failed := make([]map[string]any, 0)
	added := 0

	for _, key := range order {
		items, err := t.resolve(key, grouped[key])
		if err != nil {
			failed = append(failed, map[string]any{"key": key, "error": err.Error()})
			continue
		}
		if t.replace {
			t.env.Store.Update(key, items)
		} else {
			t.env.Store.Append(key, items)
		}
		committed = append(committed, key)
		added += len(items)
	}

	st := t.env.stats()
	return Result{
		"committed":   committed,
		"failed":      failed,
		"items_added": added,
		"filled":      st.Filled,
		"empty":       st.Empty,
		"total":       st.Total,
	}
}

// validate checks every entry and returns one message per problem
func (t *patchChecklistTool) validate(patch []patchEntry) []string {
	if len(patch) == 0 {
		return []string{"patch: must contain at least one entry"}
	}

	var errs []string
	for i, entry := range patch {
		key := strings.TrimSpace(entry.Key)
		switch {
		case key == "":
			errs = append(errs, fmt.Sprintf("patch[%d].key: must not be empty", i))
		case !t.env.Definitions.Has(key):
			errs = append(errs, fmt.Sprintf("patch[%d].key: unknown checklist key %q", i, key))
		}

		if len(entry.Extracted) == 0 {
			errs = append(errs, fmt.Sprintf("patch[%d].extracted: must contain at least one value", i))
		}
		for j, ex := range entry.Extracted {
			if len(ex.Evidence) == 0 {
				errs = append(errs, fmt.Sprintf("patch[%d].extracted[%d].evidence: must contain at least one citation", i, j))
			}
			for k, ev := range ex.Evidence {
				loc := fmt.Sprintf("patch[%d].extracted[%d].evidence[%d]", i, j, k)
				if ev.DocumentID < 0 {
					errs = append(errs, fmt.Sprintf("%s.document_id: must be non-negative", loc))
				}
				if _, err := extract.NormalizeSentenceIDs(ev.SentenceIDs); err != nil {
					errs = append(errs, fmt.Sprintf("%s.sentence_ids: %v", loc, err))
				}
			}
		}
	}
	return errs
}

// resolve grounds every citation of a key; any failure fails the key
func (t *patchChecklistTool) resolve(key string, extracted []extractedArg) ([]model.EvidenceItem, error) {
	var items []model.EvidenceItem
	for _, ex := range extracted {
		for _, ev := range ex.Evidence {
			ptr, err := t.env.Resolver.Resolve(t.env.Corpus, model.LLMEvidencePointer{
				DocumentID:  ev.DocumentID,
				SentenceIDs: ev.SentenceIDs,
			})
			if err != nil {
				return nil, err
			}
			items = append(items, model.EvidenceItem{
				BinID:    key,
				Value:    strings.TrimSpace(ex.Value),
				Evidence: ptr,
			})
		}
	}
	return items, nil
}
