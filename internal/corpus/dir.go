package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casecheck/internal/cache"
	"github.com/ppiankov/casecheck/internal/extract"
	"github.com/ppiankov/casecheck/internal/model"
)

// ManifestFile is the per-case manifest name
const ManifestFile = "case.yaml"

// Manifest describes a case directory
type Manifest struct {
	CaseName  string          `yaml:"case_name"`
	Documents []ManifestEntry `yaml:"documents"`
}

// ManifestEntry is one document of a case
type ManifestEntry struct {
	ID        int    `yaml:"id"`
	Title     string `yaml:"title"`
	Type      string `yaml:"type"`
	File      string `yaml:"file"`
	IsDocket  bool   `yaml:"is_docket,omitempty"`
	ECFNumber string `yaml:"ecf_number,omitempty"`
	Date      string `yaml:"date,omitempty"`
}

// DirProvider loads cases from <root>/<case-id>/case.yaml.
// Loaded corpora are cached and concurrent loads of one case share a single read.
type DirProvider struct {
	root   string
	cache  *cache.MemoryCache
	ttl    time.Duration
	group  singleflight.Group
	logger *zap.Logger
}

// NewDirProvider creates a directory provider. A ttl of 0 disables caching.
func NewDirProvider(root string, ttl time.Duration, logger *zap.Logger) *DirProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirProvider{
		root:   root,
		cache:  cache.NewMemoryCache(ttl, 0),
		ttl:    ttl,
		logger: logger.Named("corpus"),
	}
}

// ListDocuments returns the documents of a case
func (p *DirProvider) ListDocuments(ctx context.Context, caseID string) (*model.Corpus, error) {
	if err := validCaseID(caseID); err != nil {
		return nil, err
	}

	if p.ttl > 0 {
		var c model.Corpus
		if found, _ := cache.GetJSON(p.cache, caseID, &c); found {
			return &c, nil
		}
	}

	ch := p.group.DoChan(caseID, func() (any, error) {
		c, err := p.load(caseID)
		if err != nil {
			return nil, err
		}
		if p.ttl > 0 {
			if err := cache.SetJSON(p.cache, caseID, c, 0); err != nil {
				p.logger.Warn("corpus cache write failed", zap.String("case", caseID), zap.Error(err))
			}
		}
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneCorpus(res.Val.(*model.Corpus)), nil
	}
}

// Invalidate drops the cached corpus of a case
func (p *DirProvider) Invalidate(caseID string) {
	_ = p.cache.Delete(caseID)
}

// Cases lists case ids under the root, sorted
func (p *DirProvider) Cases() ([]string, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return nil, fmt.Errorf("read corpus root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(p.root, e.Name(), ManifestFile)); err == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

func (p *DirProvider) load(caseID string) (*model.Corpus, error) {
	dir := filepath.Join(p.root, caseID)
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCaseNotFound, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	c := &model.Corpus{CaseID: caseID, CaseName: m.CaseName}
	seen := make(map[int]bool, len(m.Documents))
	for _, entry := range m.Documents {
		if entry.File == "" {
			return nil, fmt.Errorf("%w: document %d has no file", ErrInvalidManifest, entry.ID)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("%w: duplicate document id %d", ErrInvalidManifest, entry.ID)
		}
		seen[entry.ID] = true

		content, err := readDocument(filepath.Join(dir, filepath.Clean(entry.File)))
		if err != nil {
			return nil, fmt.Errorf("load document %d: %w", entry.ID, err)
		}
		c.Documents = append(c.Documents, model.Document{
			ID:        entry.ID,
			Title:     entry.Title,
			Type:      entry.Type,
			Content:   content,
			IsDocket:  entry.IsDocket,
			ECFNumber: entry.ECFNumber,
			Date:      entry.Date,
		})
	}

	p.logger.Debug("corpus loaded", zap.String("case", caseID), zap.Int("documents", len(c.Documents)))
	return c, nil
}

// readDocument returns the plain text of a document file
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return extract.VisibleText(string(data))
	default:
		return string(data), nil
	}
}

func validCaseID(caseID string) error {
	if caseID == "" || caseID == "." || caseID == ".." || strings.ContainsAny(caseID, `/\`) {
		return fmt.Errorf("%w: %q", ErrCaseNotFound, caseID)
	}
	return nil
}
