// Package service serves checklists for cases: signature-keyed caching, coalesced
// extraction runs, the category projection and user edits.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/casecheck/internal/agent"
	"github.com/ppiankov/casecheck/internal/cache"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
	"github.com/ppiankov/casecheck/internal/store"
)

// Extractor runs the agent over a corpus. *agent.Runner implements it.
type Extractor interface {
	Extract(ctx context.Context, corpus *model.Corpus) (*agent.Result, error)
}

// Options configures a Service
type Options struct {
	Extractor   Extractor
	Store       store.Store
	Definitions *checklist.Registry

	// Memory caches JSON-encoded records by signature. Nil disables it.
	Memory    *cache.MemoryCache
	MemoryTTL time.Duration

	Metrics *Metrics
	Logger  *zap.Logger

	// Now is replaced in tests
	Now func() time.Time
}

// Extraction is the answer to a checklist request
type Extraction struct {
	CaseID    string
	Signature string
	Source    string // memory, store or extraction
	Record    *model.StoredDocumentChecklist

	// Run is set when this request started or joined an agent run
	Run *agent.Result
}

// Service is safe for concurrent use
type Service struct {
	extractor   Extractor
	store       store.Store
	definitions *checklist.Registry
	memory      *cache.MemoryCache
	memoryTTL   time.Duration
	metrics     *Metrics
	logger      *zap.Logger
	now         func() time.Time

	group singleflight.Group

	// Serializes read-modify-write of stored records
	editMu sync.Mutex
}

type runResult struct {
	record *model.StoredDocumentChecklist
	source string
	run    *agent.Result
}

// New creates a service
func New(opts Options) (*Service, error) {
	if opts.Extractor == nil {
		return nil, errors.New("service: extractor is required")
	}
	if opts.Store == nil {
		return nil, errors.New("service: store is required")
	}
	if opts.Definitions == nil {
		opts.Definitions = checklist.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		extractor:   opts.Extractor,
		store:       opts.Store,
		definitions: opts.Definitions,
		memory:      opts.Memory,
		memoryTTL:   opts.MemoryTTL,
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("service"),
		now:         opts.Now,
	}, nil
}

// Definitions returns the checklist registry in use
func (s *Service) Definitions() *checklist.Registry {
	return s.definitions
}

// Signature computes the signature of a corpus under the current checklist version
func (s *Service) Signature(corpus *model.Corpus) string {
	return Signature(corpus.CaseID, corpus.CaseName, s.definitions.Version(), corpus.Documents)
}

// Extract returns the checklist for a corpus, looking in the memory cache, then the
// store, and running the agent on a miss. Concurrent misses for one signature share
// a single run. The returned record is the caller's own copy.
func (s *Service) Extract(ctx context.Context, corpus *model.Corpus) (*Extraction, error) {
	if err := checkCorpus(corpus); err != nil {
		return nil, err
	}
	sig := s.Signature(corpus)

	ex, err := s.cached(ctx, corpus, sig)
	if err != nil || ex != nil {
		return ex, err
	}
	return s.extract(ctx, corpus, sig, true)
}

// Refresh runs the agent even when a cached or stored checklist exists.
// User items of the case are carried over.
func (s *Service) Refresh(ctx context.Context, corpus *model.Corpus) (*Extraction, error) {
	if err := checkCorpus(corpus); err != nil {
		return nil, err
	}
	return s.extract(ctx, corpus, s.Signature(corpus), false)
}

// cached looks up the memory cache, then the store. It returns nil on a miss.
func (s *Service) cached(ctx context.Context, corpus *model.Corpus, sig string) (*Extraction, error) {
	if rec := s.fromMemory(sig); rec != nil {
		s.metrics.Lookups.WithLabelValues(LookupMemory).Inc()
		return &Extraction{CaseID: corpus.CaseID, Signature: sig, Source: LookupMemory, Record: rec}, nil
	}

	rec, err := s.store.Get(ctx, corpus.CaseID, sig)
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}
	if rec == nil {
		return nil, nil
	}
	s.metrics.Lookups.WithLabelValues(LookupStore).Inc()
	rec = s.settle(ctx, corpus, rec)
	return &Extraction{CaseID: corpus.CaseID, Signature: sig, Source: LookupStore, Record: rec}, nil
}

func (s *Service) extract(ctx context.Context, corpus *model.Corpus, sig string, useCache bool) (*Extraction, error) {
	s.metrics.Lookups.WithLabelValues(LookupExtraction).Inc()

	// The run outlives any single caller; each caller stops waiting on its own context.
	runCtx := context.WithoutCancel(ctx)
	for {
		var owner atomic.Bool
		ch := s.group.DoChan(sig, func() (any, error) {
			owner.Store(true)
			if useCache {
				// A run for this signature may have finished since the caller's lookup
				ex, err := s.cached(runCtx, corpus, sig)
				if err != nil {
					return nil, err
				}
				if ex != nil {
					return &runResult{record: ex.Record, source: ex.Source}, nil
				}
			}
			return s.run(runCtx, corpus, sig)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}

		if !owner.Load() {
			s.metrics.Coalesced.Inc()
		}
		if res.Err != nil {
			return nil, res.Err
		}
		rr := res.Val.(*runResult)
		if !useCache && rr.source != LookupExtraction {
			// Joined a lookup that was served from cache; a refresh needs its own run
			continue
		}
		return &Extraction{
			CaseID:    corpus.CaseID,
			Signature: sig,
			Source:    rr.source,
			Record:    rr.record.Clone(),
			Run:       rr.run,
		}, nil
	}
}

// run performs one agent run and persists its result
func (s *Service) run(ctx context.Context, corpus *model.Corpus, sig string) (*runResult, error) {
	start := s.now()
	result, err := s.extractor.Extract(ctx, corpus)
	if err != nil {
		s.metrics.Runs.WithLabelValues(OutcomeError).Inc()
		s.logger.Error("extraction run failed", zap.String("case", corpus.CaseID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	outcome := OutcomeStopped
	if result.State == agent.StateExhausted {
		outcome = OutcomeExhausted
	}
	s.metrics.Runs.WithLabelValues(outcome).Inc()
	s.metrics.Steps.Observe(float64(result.Steps))

	rec := &model.StoredDocumentChecklist{
		Signature: sig,
		Items:     result.Collection.Clone(),
		Version:   s.definitions.Version(),
		UpdatedAt: s.now().UTC(),
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	// User items belong to the case, not to one document revision
	prev, err := s.store.Get(ctx, corpus.CaseID, "")
	if err != nil {
		return nil, fmt.Errorf("load checklist: %w", err)
	}
	if prev != nil {
		rec.UserItems = prev.Clone().UserItems
	}

	if err := s.store.Set(ctx, corpus.CaseID, rec); err != nil {
		return nil, fmt.Errorf("save checklist: %w", err)
	}
	s.toMemory(rec)

	s.logger.Info("checklist extracted",
		zap.String("case", corpus.CaseID),
		zap.String("signature", sig),
		zap.String("run", result.RunID),
		zap.String("state", result.State.String()),
		zap.Int("steps", result.Steps),
		zap.Int("items", len(rec.Items.Items)),
		zap.Duration("elapsed", s.now().Sub(start)))

	return &runResult{record: rec, source: LookupExtraction, run: result}, nil
}

// settle brings a record read from the store up to date with the current documents
// and caches it. The record is read again under editMu, so an edit committed since
// the first read wins over it. Write-back failures keep the refreshed copy in use.
func (s *Service) settle(ctx context.Context, corpus *model.Corpus, read *model.StoredDocumentChecklist) *model.StoredDocumentChecklist {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	rec := read
	current, err := s.store.Get(ctx, corpus.CaseID, read.Signature)
	switch {
	case err != nil:
		s.logger.Warn("checklist reload failed", zap.String("case", corpus.CaseID), zap.Error(err))
	case current != nil:
		rec = current
	}

	if s.refresh(corpus, rec) > 0 {
		rec.UpdatedAt = s.now().UTC()
		if err := s.store.Set(ctx, corpus.CaseID, rec); err != nil {
			s.logger.Warn("refreshed checklist not saved", zap.String("case", corpus.CaseID), zap.Error(err))
		}
	}
	s.toMemory(rec)
	return rec
}

// refresh re-reads evidence text from the current documents and returns how many
// pointers drifted
func (s *Service) refresh(corpus *model.Corpus, rec *model.StoredDocumentChecklist) int {
	dmp := diffmatchpatch.New()
	changed := 0

	for i := range rec.Items.Items {
		item := &rec.Items.Items[i]
		old := item.Evidence

		var fresh model.EvidencePointer
		if doc, ok := corpus.Document(old.DocumentID); ok {
			fresh = extract.RefreshPointer(old, doc.Content)
		} else {
			fresh = extract.UnverifiedPointer(old.DocumentID)
		}
		if samePointer(old, fresh) {
			continue
		}

		changed++
		diffs := dmp.DiffMain(old.Text, fresh.Text, false)
		s.logger.Info("evidence drifted",
			zap.String("case", corpus.CaseID),
			zap.String("key", item.BinID),
			zap.Bool("verified", fresh.Verified),
			zap.Int("distance", dmp.DiffLevenshtein(diffs)),
			zap.String("diff", truncate(dmp.DiffPrettyText(diffs), 200)))
		item.Evidence = fresh
	}
	return changed
}

// Categories returns the category projection of the corpus checklist
func (s *Service) Categories(ctx context.Context, corpus *model.Corpus) (*model.EvidenceCategoryCollection, error) {
	ex, err := s.Extract(ctx, corpus)
	if err != nil {
		return nil, err
	}
	return BuildCategoryCollection(s.definitions, ex.Record), nil
}

// UserItemInput is a manually added fact
type UserItemInput struct {
	CategoryID  string
	Value       string
	DocumentID  *int
	StartOffset *int
	EndOffset   *int
}

// AddUserItem validates and stores a user item, returning it with its assigned id
func (s *Service) AddUserItem(ctx context.Context, corpus *model.Corpus, in UserItemInput) (*model.StoredUserChecklistItem, error) {
	if _, ok := s.definitions.Category(in.CategoryID); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, in.CategoryID)
	}
	if err := validateUserItem(corpus, in); err != nil {
		return nil, err
	}

	item := model.StoredUserChecklistItem{
		ID:          uuid.NewString(),
		CategoryID:  in.CategoryID,
		Value:       strings.TrimSpace(in.Value),
		DocumentID:  in.DocumentID,
		StartOffset: in.StartOffset,
		EndOffset:   in.EndOffset,
		CreatedAt:   s.now().UTC(),
	}

	err := s.edit(ctx, corpus, func(rec *model.StoredDocumentChecklist) error {
		rec.UserItems = append(rec.UserItems, item)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user item added", zap.String("case", corpus.CaseID), zap.String("id", item.ID), zap.String("category", item.CategoryID))
	out := item
	return &out, nil
}

// RemoveValue deletes a value by its presentation id. The base signature never changes.
func (s *Service) RemoveValue(ctx context.Context, corpus *model.Corpus, valueID string) error {
	ref, err := ParseValueID(valueID)
	if err != nil {
		return err
	}

	err = s.edit(ctx, corpus, func(rec *model.StoredDocumentChecklist) error {
		if !removeValue(rec, ref) {
			return fmt.Errorf("%w: %s", ErrValueNotFound, valueID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("value removed", zap.String("case", corpus.CaseID), zap.String("id", valueID))
	return nil
}

// edit applies fn to the current record, persists it and refreshes the memory cache
func (s *Service) edit(ctx context.Context, corpus *model.Corpus, fn func(*model.StoredDocumentChecklist) error) error {
	// Make sure a record exists for the current signature
	ex, err := s.Extract(ctx, corpus)
	if err != nil {
		return err
	}

	s.editMu.Lock()
	defer s.editMu.Unlock()

	rec, err := s.store.Get(ctx, corpus.CaseID, ex.Signature)
	if err != nil {
		return fmt.Errorf("load checklist: %w", err)
	}
	if rec == nil {
		rec = ex.Record
	}

	if err := fn(rec); err != nil {
		return err
	}
	rec.UpdatedAt = s.now().UTC()

	if err := s.store.Set(ctx, corpus.CaseID, rec); err != nil {
		return fmt.Errorf("save checklist: %w", err)
	}
	s.toMemory(rec)
	return nil
}

func (s *Service) fromMemory(sig string) *model.StoredDocumentChecklist {
	if s.memory == nil {
		return nil
	}
	var rec model.StoredDocumentChecklist
	found, err := cache.GetJSON(s.memory, memoryKey(sig), &rec)
	if err != nil {
		s.logger.Warn("dropping unreadable cache entry", zap.String("signature", sig), zap.Error(err))
		_ = s.memory.Delete(memoryKey(sig))
		return nil
	}
	if !found {
		return nil
	}
	return &rec
}

func (s *Service) toMemory(rec *model.StoredDocumentChecklist) {
	if s.memory == nil {
		return
	}
	if err := cache.SetJSON(s.memory, memoryKey(rec.Signature), rec, s.memoryTTL); err != nil {
		s.logger.Warn("cache write failed", zap.String("signature", rec.Signature), zap.Error(err))
	}
}

// Invalidate drops the memory cache entry of a corpus
func (s *Service) Invalidate(corpus *model.Corpus) {
	if s.memory != nil {
		_ = s.memory.Delete(memoryKey(s.Signature(corpus)))
	}
}

func memoryKey(sig string) string {
	return cache.Key("checklist", sig)
}

func checkCorpus(corpus *model.Corpus) error {
	if corpus == nil || len(corpus.Documents) == 0 {
		return ErrNoDocuments
	}
	return nil
}

func validateUserItem(corpus *model.Corpus, in UserItemInput) error {
	if strings.TrimSpace(in.Value) == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidUserItem)
	}
	if (in.StartOffset == nil) != (in.EndOffset == nil) {
		return fmt.Errorf("%w: start and end offsets go together", ErrInvalidUserItem)
	}
	if in.DocumentID == nil {
		if in.StartOffset != nil {
			return fmt.Errorf("%w: offsets need a document", ErrInvalidUserItem)
		}
		return nil
	}

	doc, ok := corpus.Document(*in.DocumentID)
	if !ok {
		return fmt.Errorf("%w: document %d not found", ErrInvalidUserItem, *in.DocumentID)
	}
	if in.StartOffset != nil {
		start, end := *in.StartOffset, *in.EndOffset
		if start < 0 || end <= start || end > len(doc.Content) {
			return fmt.Errorf("%w: offsets [%d, %d) outside document %d", ErrInvalidUserItem, start, end, doc.ID)
		}
	}
	return nil
}

func samePointer(a, b model.EvidencePointer) bool {
	return a.DocumentID == b.DocumentID &&
		a.Verified == b.Verified &&
		a.Text == b.Text &&
		deref(a.StartOffset) == deref(b.StartOffset) &&
		deref(a.EndOffset) == deref(b.EndOffset)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
