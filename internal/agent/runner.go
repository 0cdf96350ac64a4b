package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/llm"
	"github.com/ppiankov/casecheck/internal/model"
)

// Config bounds agent runs
type Config struct {
	MaxSteps      int
	RecentActions int
	Limits        tools.Limits
}

// ConfigFromModel converts model.AgentConfig to agent.Config
func ConfigFromModel(c model.AgentConfig) Config {
	limits := tools.DefaultLimits()
	if c.ReadWindow > 0 {
		limits.ReadWindow = c.ReadWindow
	}
	if c.SearchMaxMatches > 0 {
		limits.SearchMaxMatches = c.SearchMaxMatches
	}
	if c.SearchTopKDefault > 0 {
		limits.SearchTopK = c.SearchTopKDefault
	}
	return Config{
		MaxSteps:      c.MaxSteps,
		RecentActions: c.RecentActions,
		Limits:        limits,
	}
}

// Runner starts extraction runs. It is safe for concurrent use; every run gets private state.
type Runner struct {
	provider    llm.Provider
	indexer     *extract.Indexer
	resolver    *extract.Resolver
	definitions *checklist.Registry
	config      Config
	logger      *zap.Logger

	// newDecider is replaced in tests
	newDecider func(registry *tools.Registry) Decider
}

// NewRunner creates a runner sharing one sentence indexer across runs
func NewRunner(provider llm.Provider, indexer *extract.Indexer, definitions *checklist.Registry, config Config, logger *zap.Logger) *Runner {
	if config.MaxSteps <= 0 {
		config.MaxSteps = 60
	}
	if config.RecentActions <= 0 {
		config.RecentActions = 8
	}
	if config.Limits == (tools.Limits{}) {
		config.Limits = tools.DefaultLimits()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		provider:    provider,
		indexer:     indexer,
		resolver:    extract.NewResolver(indexer),
		definitions: definitions,
		config:      config,
		logger:      logger.Named("agent"),
	}
	r.newDecider = func(registry *tools.Registry) Decider {
		return NewOrchestrator(r.provider, registry, r.logger)
	}
	return r
}

// Extract runs the agent over a corpus and returns the accumulated evidence
func (r *Runner) Extract(ctx context.Context, corpus *model.Corpus) (*Result, error) {
	if corpus == nil {
		return nil, fmt.Errorf("extract: %w", ErrEmptyCorpus)
	}

	env := &tools.Env{
		Corpus:      corpus,
		Indexer:     r.indexer,
		Resolver:    r.resolver,
		Definitions: r.definitions,
		Store:       state.NewChecklistStore(),
		Ledger:      state.NewLedger(),
		Limits:      r.config.Limits,
	}

	registry, err := tools.NewDefaultRegistry(env)
	if err != nil {
		return nil, fmt.Errorf("build tools: %w", err)
	}

	run := &Run{
		ID:       uuid.NewString(),
		Corpus:   corpus,
		Env:      env,
		Registry: registry,
		MaxSteps: r.config.MaxSteps,
	}

	r.logger.Info("extraction run started",
		zap.String("run", run.ID),
		zap.String("case", corpus.CaseID),
		zap.Int("documents", len(corpus.Documents)),
		zap.Int("max_steps", run.MaxSteps))

	driver := NewDriver(run, r.newDecider(registry), NewSnapshotBuilder(r.config.RecentActions), r.logger)
	result := driver.Run(ctx)

	r.logger.Info("extraction run finished",
		zap.String("run", run.ID),
		zap.String("case", corpus.CaseID),
		zap.String("state", result.State.String()),
		zap.Int("steps", result.Steps),
		zap.Int("items", len(result.Collection.Items)),
		zap.String("reason", result.StopReason))

	return result, nil
}
