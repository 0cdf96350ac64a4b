package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/model"
)

func TestDriver_StopAtFirstStep(t *testing.T) {
	run := newTestRun(t, testCorpus(), 10)
	d := NewDriver(run, &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{Stop: true, StopReason: "nothing to do"}),
	}}, nil, nil)

	res := d.Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, "nothing to do", res.StopReason)
	assert.Equal(t, 1, res.Steps)
	history := run.Env.Ledger.History()
	require.Len(t, history, 1)
	assert.Equal(t, StopAction, history[0].Tool)
	assert.Empty(t, res.Collection.Items)
}

func TestDriver_ExhaustsStepBudget(t *testing.T) {
	run := newTestRun(t, testCorpus(), 5)
	dec := &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{ToolName: tools.ListDocuments, ToolArgs: map[string]any{}}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateExhausted, res.State)
	assert.Equal(t, 5, res.Steps)
	assert.Equal(t, 5, dec.calls)
}

func TestDriver_ExtractsThenStops(t *testing.T) {
	run := newTestRun(t, testCorpus(), 10)
	dec := &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{ToolName: tools.ReadDocument, ToolArgs: map[string]any{"doc_id": 1}}),
		decide(Decision{ToolName: tools.UpdateChecklist, ToolArgs: patchArgs("settlement_terms", 1, 1)}),
		decide(Decision{ToolName: tools.StopTask, ToolArgs: map[string]any{"reason": "done"}}),
		decide(Decision{ToolName: tools.ListDocuments}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, "done", res.StopReason)
	assert.Equal(t, 3, res.Steps)
	require.Len(t, res.Collection.Items, 1)
	item := res.Collection.Items[0]
	assert.Equal(t, "settlement_terms", item.BinID)
	assert.True(t, item.Evidence.Verified)
	assert.Equal(t, "Acme shall pay $50,000 to the class.", item.Evidence.Text)
}

func TestDriver_UnknownToolIsRecorded(t *testing.T) {
	run := newTestRun(t, testCorpus(), 2)
	dec := &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{ToolName: "format_disk", ToolArgs: map[string]any{}}),
		decide(Decision{Stop: true}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	first := run.Env.Ledger.History()[0]
	assert.Equal(t, "format_disk", first.Tool)
	assert.Equal(t, "Tool 'format_disk' not found", first.Result["error"])
}

type panicTool struct{}

func (panicTool) Name() string        { return "explode" }
func (panicTool) Description() string { return "panics" }
func (panicTool) Schema() tools.Schema {
	return tools.Schema{"type": "object"}
}
func (panicTool) Call(ctx context.Context, args map[string]any) tools.Result {
	panic("boom")
}

func TestDriver_RecoversToolPanic(t *testing.T) {
	run := newTestRun(t, testCorpus(), 3)
	require.NoError(t, run.Registry.Register(panicTool{}))
	dec := &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{ToolName: "explode", ToolArgs: map[string]any{}}),
		decide(Decision{Stop: true, StopReason: "after panic"}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, 2, res.Steps)
	msg, _ := run.Env.Ledger.History()[0].Result["error"].(string)
	assert.Contains(t, msg, "boom")
}

func TestDriver_ParseErrorContinues(t *testing.T) {
	run := newTestRun(t, testCorpus(), 4)
	parseErr := &OrchestrationError{Kind: ErrorKindParse, Err: errors.New("missing tool_name")}
	dec := &scriptedDecider{steps: []func() (Decision, error){
		fail(sentinel(ParseErrorTool, "missing tool_name"), parseErr),
		decide(Decision{Stop: true}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, 2, res.Steps)
	first := run.Env.Ledger.History()[0]
	assert.Equal(t, ParseErrorTool, first.Tool)
	assert.Contains(t, first.Result["error"], "missing tool_name")
}

func TestDriver_FatalErrorStops(t *testing.T) {
	run := newTestRun(t, testCorpus(), 4)
	dec := &scriptedDecider{steps: []func() (Decision, error){
		decide(Decision{ToolName: tools.ListDocuments}),
		fail(Decision{}, &OrchestrationError{Kind: ErrorKindFatal, Err: context.Canceled}),
	}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, ProviderErrorTool, run.Env.Ledger.History()[1].Tool)
}

func TestDriver_EmptyCorpusStopsWithoutActions(t *testing.T) {
	run := newTestRun(t, &model.Corpus{CaseID: "empty"}, 4)
	dec := &scriptedDecider{steps: []func() (Decision, error){decide(Decision{ToolName: tools.ListDocuments})}}

	res := NewDriver(run, dec, nil, nil).Run(context.Background())

	assert.Equal(t, StateStopped, res.State)
	assert.Equal(t, 0, res.Steps)
	assert.Equal(t, 0, dec.calls)
}
