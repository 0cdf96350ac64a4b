package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/ppiankov/casecheck/internal/cache"
	"github.com/ppiankov/casecheck/internal/model"
)

// FileStore keeps checklists as JSON files in a directory
type FileStore struct {
	mu   sync.Mutex
	disk *cache.DiskCache
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{disk: cache.NewDiskCache(dir, cache.NoExpiration)}
}

// Get returns the record for a case and signature, or the latest one when signature is empty
func (s *FileStore) Get(ctx context.Context, caseID, signature string) (*model.StoredDocumentChecklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if signature == "" {
		raw, found := s.disk.Get(latestKey(caseID))
		if !found {
			return nil, nil
		}
		signature = string(raw)
	}

	var rec model.StoredDocumentChecklist
	found, err := cache.GetJSON(s.disk, recordKey(caseID, signature), &rec)
	if err != nil {
		return nil, fmt.Errorf("store get %s: %w", caseID, err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// Set writes a record and marks it latest for the case
func (s *FileStore) Set(ctx context.Context, caseID string, rec *model.StoredDocumentChecklist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(caseID, rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := cache.SetJSON(s.disk, recordKey(caseID, rec.Signature), rec, cache.NoExpiration); err != nil {
		return fmt.Errorf("store set %s: %w", caseID, err)
	}
	if err := s.disk.Set(latestKey(caseID), []byte(rec.Signature), cache.NoExpiration); err != nil {
		return fmt.Errorf("store set %s: %w", caseID, err)
	}
	return nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}
