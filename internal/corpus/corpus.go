// Package corpus loads the documents of a case.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/casecheck/internal/model"
)

var (
	// ErrCaseNotFound is returned for an unknown case id
	ErrCaseNotFound = errors.New("case not found")

	// ErrInvalidManifest is returned for a malformed case manifest
	ErrInvalidManifest = errors.New("invalid case manifest")
)

// Provider materializes the documents of a case
type Provider interface {
	ListDocuments(ctx context.Context, caseID string) (*model.Corpus, error)
}

// Static serves corpora from memory
type Static struct {
	mu    sync.RWMutex
	cases map[string]*model.Corpus
}

// NewStatic creates a static provider holding the given corpora
func NewStatic(corpora ...*model.Corpus) *Static {
	s := &Static{cases: make(map[string]*model.Corpus)}
	for _, c := range corpora {
		s.Put(c)
	}
	return s
}

// Put adds or replaces a corpus
func (s *Static) Put(c *model.Corpus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[c.CaseID] = cloneCorpus(c)
}

// ListDocuments returns a copy of the stored corpus
func (s *Static) ListDocuments(ctx context.Context, caseID string) (*model.Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cases[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	return cloneCorpus(c), nil
}

func cloneCorpus(c *model.Corpus) *model.Corpus {
	out := *c
	out.Documents = append([]model.Document(nil), c.Documents...)
	return &out
}
