// Package store persists extracted checklists per case and signature.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/model"
)

var (
	// ErrInvalidRecord is returned when a record cannot be stored
	ErrInvalidRecord = errors.New("invalid checklist record")

	// ErrClosed is returned after Close
	ErrClosed = errors.New("store closed")
)

// Store is the persistent checklist store.
//
// Get returns (nil, nil) on a miss. An empty signature returns the latest
// record written for the case; a non-empty one only matches that signature.
type Store interface {
	Get(ctx context.Context, caseID, signature string) (*model.StoredDocumentChecklist, error)
	Set(ctx context.Context, caseID string, rec *model.StoredDocumentChecklist) error
	Close() error
}

// Backend names
const (
	BackendBadger = "badger"
	BackendFile   = "file"
)

// Open creates the store selected by cfg
func Open(cfg model.StoreConfig, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case BackendBadger, "":
		bc := DefaultConfig()
		bc.Path = cfg.Path
		bc.Logger = logger
		return OpenBadger(bc)
	case BackendFile:
		return NewFileStore(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

func validate(caseID string, rec *model.StoredDocumentChecklist) error {
	if caseID == "" {
		return fmt.Errorf("%w: empty case id", ErrInvalidRecord)
	}
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrInvalidRecord)
	}
	if rec.Signature == "" {
		return fmt.Errorf("%w: empty signature", ErrInvalidRecord)
	}
	return nil
}

func recordKey(caseID, signature string) string {
	return "checklist/" + caseID + "/" + signature
}

func latestKey(caseID string) string {
	return "latest/" + caseID
}
