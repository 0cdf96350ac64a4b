package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/llm"
	"github.com/ppiankov/casecheck/internal/model"
)

func TestRunner_ExtractWithMockProvider(t *testing.T) {
	mock := llm.NewMockProvider(
		&llm.Response{Text: `{"tool_name": "search_document_regex", "tool_args": {"pattern": "pay"}}`},
		&llm.Response{Text: "```json\n" + `{"tool_name": "update_checklist", "tool_args": {"patch": [{"key": "payment_terms", "extracted": [{"value": "$50,000 to the class", "evidence": [{"document_id": 1, "sentence_ids": [1]}]}]}]}}` + "\n```"},
		&llm.Response{Text: `{"decision": "stop", "reason": "payment terms found"}`},
	)
	r := NewRunner(mock, extract.NewIndexer(), checklist.Default(), Config{MaxSteps: 10}, nil)

	res, err := r.Extract(context.Background(), testCorpus())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, "payment terms found", res.StopReason)
	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, 3, mock.Calls())
	require.Len(t, res.Collection.Items, 1)
	assert.Equal(t, "payment_terms", res.Collection.Items[0].BinID)
	assert.Equal(t, "Acme shall pay $50,000 to the class.", res.Collection.Items[0].Evidence.Text)

	// Later prompts show earlier actions
	reqs := mock.Requests()
	assert.Contains(t, reqs[1].Messages[0].Content, "### Step 1: search_document_regex")
}

func TestRunner_RunsAreIndependent(t *testing.T) {
	mock := llm.NewMockProvider(&llm.Response{Text: `{"decision": "stop"}`})
	r := NewRunner(mock, extract.NewIndexer(), checklist.Default(), Config{}, nil)

	a, err := r.Extract(context.Background(), testCorpus())
	require.NoError(t, err)
	b, err := r.Extract(context.Background(), testCorpus())
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, 1, a.Steps)
	assert.Equal(t, 1, b.Steps)
}

func TestRunner_NilCorpus(t *testing.T) {
	r := NewRunner(llm.NewMockProvider(), extract.NewIndexer(), checklist.Default(), Config{}, nil)
	_, err := r.Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCorpus)
}

func TestConfigFromModel(t *testing.T) {
	cfg := ConfigFromModel(model.AgentConfig{MaxSteps: 12, ReadWindow: 50})
	assert.Equal(t, 12, cfg.MaxSteps)
	assert.Equal(t, 50, cfg.Limits.ReadWindow)
	assert.Equal(t, 20, cfg.Limits.SearchMaxMatches)
}
