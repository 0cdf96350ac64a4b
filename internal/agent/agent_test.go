package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
)

func testCorpus() *model.Corpus {
	return &model.Corpus{
		CaseID:   "case-1",
		CaseName: "Doe v. Acme Corp.",
		Documents: []model.Document{
			{ID: 0, Title: "Complaint", Type: "complaint", Content: "Plaintiff Jane Doe sues Acme. The complaint was filed on March 3, 2021. Plaintiff seeks damages."},
			{ID: 1, Title: "Settlement", Type: "order", Content: "The parties settled. Acme shall pay $50,000 to the class. The case is closed."},
		},
	}
}

func newTestRun(t *testing.T, corpus *model.Corpus, maxSteps int) *Run {
	t.Helper()

	ix := extract.NewIndexer()
	env := &tools.Env{
		Corpus:      corpus,
		Indexer:     ix,
		Resolver:    extract.NewResolver(ix),
		Definitions: checklist.Default(),
		Store:       state.NewChecklistStore(),
		Ledger:      state.NewLedger(),
		Limits:      tools.DefaultLimits(),
	}
	registry, err := tools.NewDefaultRegistry(env)
	require.NoError(t, err)

	return &Run{
		ID:       "run-1",
		Corpus:   corpus,
		Env:      env,
		Registry: registry,
		MaxSteps: maxSteps,
	}
}

// scriptedDecider returns decisions in order and repeats the last one
type scriptedDecider struct {
	steps []func() (Decision, error)
	calls int
}

func (d *scriptedDecider) Decide(ctx context.Context, snapshot *Snapshot, prompt string) (Decision, error) {
	i := d.calls
	if i >= len(d.steps) {
		i = len(d.steps) - 1
	}
	d.calls++
	return d.steps[i]()
}

func decide(dec Decision) func() (Decision, error) {
	return func() (Decision, error) { return dec, nil }
}

func fail(dec Decision, err error) func() (Decision, error) {
	return func() (Decision, error) { return dec, err }
}

func patchArgs(key string, doc int, ids ...int) map[string]any {
	sentenceIDs := make([]any, len(ids))
	for i, id := range ids {
		sentenceIDs[i] = id
	}
	return map[string]any{"patch": []any{
		map[string]any{
			"key": key,
			"extracted": []any{
				map[string]any{
					"value":    key + " value",
					"evidence": []any{map[string]any{"document_id": doc, "sentence_ids": sentenceIDs}},
				},
			},
		},
	}}
}
