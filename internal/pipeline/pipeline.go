package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/agent"
	"github.com/ppiankov/casecheck/internal/cache"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/corpus"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/llm"
	"github.com/ppiankov/casecheck/internal/model"
	"github.com/ppiankov/casecheck/internal/service"
	"github.com/ppiankov/casecheck/internal/store"
	"github.com/ppiankov/casecheck/internal/worker"
)

// Options adjusts how a pipeline is assembled
type Options struct {
	Logger *zap.Logger

	// Provider replaces the configured language model (tests, dry runs)
	Provider llm.Provider

	// Corpus replaces the directory provider
	Corpus corpus.Provider

	// NoCache forces a fresh agent run on every extraction
	NoCache bool
}

// Pipeline wires the corpus, the agent and the checklist service together
type Pipeline struct {
	config   *model.Config
	corpus   corpus.Provider
	service  *service.Service
	store    store.Store
	metrics  *service.Metrics
	registry *prometheus.Registry
	renderer *Renderer
	noCache  bool
	logger   *zap.Logger
}

// CaseReport is the outcome of an extraction request for one case
type CaseReport struct {
	Summary    *model.ExtractionSummary
	Categories *model.EvidenceCategoryCollection
	Record     *model.StoredDocumentChecklist
}

// New creates a pipeline from configuration
func New(cfg *model.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	definitions := checklist.Default()
	if path := cfg.Checklist.DefinitionsFile; path != "" {
		defs, err := checklist.LoadFile(expandHome(path))
		if err != nil {
			return nil, fmt.Errorf("load checklist definitions: %w", err)
		}
		definitions = defs
	}

	provider := opts.Provider
	if provider == nil {
		llmConfig := llm.ConfigFromModel(cfg.LLM)
		llmConfig.Limiter = worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
		llmConfig.Logger = logger
		p, err := llm.NewProvider(llmConfig)
		if err != nil {
			if errors.Is(err, llm.ErrProviderDisabled) {
				return nil, fmt.Errorf("%w (set llm.provider or --llm-provider)", err)
			}
			return nil, fmt.Errorf("create LLM provider: %w", err)
		}
		provider = p
	}

	runner := agent.NewRunner(provider, extract.NewIndexer(), definitions, agent.ConfigFromModel(cfg.Agent), logger)

	storeConfig := cfg.Store
	storeConfig.Path = expandHome(storeConfig.Path)
	st, err := store.Open(storeConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var memory *cache.MemoryCache
	if cfg.Cache.Enabled {
		memory = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.CleanupInterval)
	}

	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)

	svc, err := service.New(service.Options{
		Extractor:   runner,
		Store:       st,
		Definitions: definitions,
		Memory:      memory,
		MemoryTTL:   cfg.Cache.MemoryTTL,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	docs := opts.Corpus
	if docs == nil {
		docs = corpus.NewDirProvider(expandHome(cfg.Corpus.Root), cfg.Cache.MemoryTTL, logger)
	}

	return &Pipeline{
		config:   cfg,
		corpus:   docs,
		service:  svc,
		store:    st,
		metrics:  metrics,
		registry: registry,
		renderer: NewRenderer(),
		noCache:  opts.NoCache,
		logger:   logger.Named("pipeline"),
	}, nil
}

// Extract returns the checklist of a case, running the agent when nothing is cached.
// With NoCache set every call runs the agent.
func (p *Pipeline) Extract(ctx context.Context, caseID string) (*CaseReport, error) {
	return p.report(ctx, caseID, p.noCache)
}

// Checklist returns the current checklist of a case, honoring caches even with NoCache set
func (p *Pipeline) Checklist(ctx context.Context, caseID string) (*CaseReport, error) {
	return p.report(ctx, caseID, false)
}

func (p *Pipeline) report(ctx context.Context, caseID string, fresh bool) (*CaseReport, error) {
	docs, err := p.corpus.ListDocuments(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}

	var ex *service.Extraction
	if fresh {
		ex, err = p.service.Refresh(ctx, docs)
	} else {
		ex, err = p.service.Extract(ctx, docs)
	}
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", caseID, err)
	}

	categories := service.BuildCategoryCollection(p.service.Definitions(), ex.Record)
	summary := p.summarize(docs, ex, categories)
	p.logger.Debug("checklist served",
		zap.String("case", caseID),
		zap.String("source", summary.Source),
		zap.Int("filled", summary.Filled),
		zap.Int("total", summary.Total))

	return &CaseReport{
		Summary:    summary,
		Categories: categories,
		Record:     ex.Record,
	}, nil
}

// ExtractCase implements worker.CaseExtractor
func (p *Pipeline) ExtractCase(ctx context.Context, caseID string) (*model.ExtractionSummary, error) {
	report, err := p.Extract(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return report.Summary, nil
}

// AddUserItem adds a manual item to the checklist of a case
func (p *Pipeline) AddUserItem(ctx context.Context, caseID string, in service.UserItemInput) (*model.StoredUserChecklistItem, error) {
	docs, err := p.corpus.ListDocuments(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return p.service.AddUserItem(ctx, docs, in)
}

// RemoveValue removes a presented value from the checklist of a case
func (p *Pipeline) RemoveValue(ctx context.Context, caseID, valueID string) error {
	docs, err := p.corpus.ListDocuments(ctx, caseID)
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}
	return p.service.RemoveValue(ctx, docs, valueID)
}

// Config returns the configuration the pipeline was built from
func (p *Pipeline) Config() *model.Config {
	return p.config
}

// Definitions returns the checklist registry in use
func (p *Pipeline) Definitions() *checklist.Registry {
	return p.service.Definitions()
}

// Metrics returns the service collectors
func (p *Pipeline) Metrics() *service.Metrics {
	return p.metrics
}

// Gatherer exposes the pipeline's metric registry
func (p *Pipeline) Gatherer() prometheus.Gatherer {
	return p.registry
}

// Renderer returns the output renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Close releases the store
func (p *Pipeline) Close() error {
	return p.store.Close()
}

func (p *Pipeline) summarize(docs *model.Corpus, ex *service.Extraction, categories *model.EvidenceCategoryCollection) *model.ExtractionSummary {
	defs := p.service.Definitions()
	keys := defs.Keys()

	filled := 0
	for _, key := range keys {
		if len(ex.Record.Items.ByBin(key)) > 0 {
			filled++
		}
	}

	summary := &model.ExtractionSummary{
		CaseID:            docs.CaseID,
		CaseName:          docs.CaseName,
		Signature:         ex.Signature,
		CombinedSignature: categories.CombinedSignature,
		Source:            ex.Source,
		Items:             len(ex.Record.Items.Items) + len(ex.Record.UserItems),
		Filled:            filled,
		Empty:             len(keys) - filled,
		Total:             len(keys),
	}
	if ex.Run != nil {
		summary.Steps = ex.Run.Steps
		summary.State = ex.Run.State.String()
	}
	return summary
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
