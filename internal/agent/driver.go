package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/agent/tools"
)

// StopAction is the ledger tool name recorded for a stop decision
const StopAction = "stop"

// Driver runs the snapshot, decide, dispatch loop for one run
type Driver struct {
	run     *Run
	decider Decider
	builder *SnapshotBuilder
	logger  *zap.Logger
}

// NewDriver creates a driver for a run
func NewDriver(run *Run, decider Decider, builder *SnapshotBuilder, logger *zap.Logger) *Driver {
	if builder == nil {
		builder = NewSnapshotBuilder(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{run: run, decider: decider, builder: builder, logger: logger}
}

// Run loops until a stop decision, a stop_task call, a fatal error or the step budget.
// It always returns the evidence accumulated so far.
func (d *Driver) Run(ctx context.Context) *Result {
	run := d.run
	ledger := run.Env.Ledger
	result := &Result{RunID: run.ID, State: StateRunning}

	for run.Step = 1; run.Step <= run.MaxSteps; run.Step++ {
		snap, err := d.builder.Build(run)
		if err != nil {
			d.logger.Error("snapshot build failed", zap.String("run", run.ID), zap.Int("step", run.Step), zap.Error(err))
			result.State = StateStopped
			result.StopReason = fmt.Sprintf("snapshot failed: %v", err)
			break
		}

		decision, err := d.decider.Decide(ctx, snap, Format(snap))
		if err != nil {
			var oe *OrchestrationError
			if !errors.As(err, &oe) || oe.Kind == ErrorKindFatal {
				d.logger.Warn("orchestration aborted", zap.String("run", run.ID), zap.Int("step", run.Step), zap.Error(err))
				ledger.Record(ProviderErrorTool, nil, tools.Result{"error": err.Error()}, "")
				result.State = StateStopped
				result.StopReason = err.Error()
				break
			}

			// Visible to the model on the next step
			ledger.Record(decision.ToolName, decision.ToolArgs, tools.Result{"error": err.Error()}, decision.Thought)
			continue
		}

		if decision.Stop {
			ledger.Record(StopAction, nil, tools.Result{"reason": decision.StopReason}, decision.Thought)
			result.State = StateStopped
			result.StopReason = decision.StopReason
			break
		}

		res := d.dispatch(ctx, decision)
		ledger.Record(decision.ToolName, decision.ToolArgs, res, decision.Thought)
		d.logger.Debug("tool call",
			zap.String("run", run.ID),
			zap.Int("step", run.Step),
			zap.String("tool", decision.ToolName),
			zap.Bool("failed", res["error"] != nil))

		if decision.ToolName == tools.StopTask {
			if _, failed := res.Error(); !failed {
				result.State = StateStopped
				result.StopReason, _ = res["reason"].(string)
				break
			}
		}
	}

	if result.State == StateRunning {
		result.State = StateExhausted
	}
	result.Steps = ledger.Len()
	result.Collection = run.Env.Store.CurrentCollection()
	return result
}

// dispatch invokes a tool and turns every failure into an error result
func (d *Driver) dispatch(ctx context.Context, decision Decision) (res tools.Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked", zap.String("tool", decision.ToolName), zap.Any("panic", r))
			res = tools.Result{"error": fmt.Sprintf("tool %s failed: %v", decision.ToolName, r)}
		}
	}()

	res, err := d.run.Registry.Call(ctx, decision.ToolName, decision.ToolArgs)
	if errors.Is(err, tools.ErrToolNotFound) {
		return tools.Result{"error": fmt.Sprintf("Tool '%s' not found", decision.ToolName)}
	}
	if err != nil {
		return tools.Result{"error": err.Error()}
	}
	return res
}
