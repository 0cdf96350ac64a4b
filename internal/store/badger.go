package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/ppiankov/casecheck/internal/model"
)

// Config holds configuration for a BadgerDB-backed store
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is true.
	Path string

	// InMemory disables disk persistence
	InMemory bool

	SyncWrites bool

	// Logger receives badger's internal logs. Nil disables them.
	Logger *zap.Logger

	// GCInterval is how often value log GC runs. 0 disables it.
	GCInterval time.Duration

	// GCDiscardRatio is the minimum garbage ratio before a rewrite
	GCDiscardRatio float64
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests
func InMemoryConfig() Config {
	return Config{
		InMemory: true,
	}
}

// badgerLogger adapts zap to badger's Logger interface
type badgerLogger struct {
	logger *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warnf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// BadgerStore keeps checklists in an embedded BadgerDB.
// Each Set writes the record and the case's latest pointer in one transaction.
type BadgerStore struct {
	db       *badger.DB
	gc       *gcRunner
	logger   *zap.Logger
	closeMu  sync.Mutex
	isClosed bool
}

// OpenBadger opens a badger store and starts the GC runner when configured
func OpenBadger(cfg Config) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger.Named("badger").Sugar()})
	} else {
		logger = zap.NewNop()
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{db: db, logger: logger.Named("store")}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.gc = newGCRunner(db, cfg.GCInterval, cfg.GCDiscardRatio, s.logger)
		s.gc.start()
	}
	return s, nil
}

// Get returns the record for a case and signature, or the latest one when signature is empty
func (s *BadgerStore) Get(ctx context.Context, caseID, signature string) (*model.StoredDocumentChecklist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed() {
		return nil, ErrClosed
	}

	var rec *model.StoredDocumentChecklist
	err := s.db.View(func(txn *badger.Txn) error {
		sig := signature
		if sig == "" {
			item, err := txn.Get([]byte(latestKey(caseID)))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			sig = string(raw)
		}

		item, err := txn.Get([]byte(recordKey(caseID, sig)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			rec = &model.StoredDocumentChecklist{}
			return json.Unmarshal(val, rec)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store get %s: %w", caseID, err)
	}
	return rec, nil
}

// Set writes a record keyed by its signature and marks it latest for the case
func (s *BadgerStore) Set(ctx context.Context, caseID string, rec *model.StoredDocumentChecklist) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(caseID, rec); err != nil {
		return err
	}
	if s.closed() {
		return ErrClosed
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(recordKey(caseID, rec.Signature)), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey(caseID)), []byte(rec.Signature))
	})
	if err != nil {
		return fmt.Errorf("store set %s: %w", caseID, err)
	}

	s.logger.Debug("checklist stored",
		zap.String("case", caseID),
		zap.String("signature", rec.Signature),
		zap.Int("items", len(rec.Items.Items)),
		zap.Int("user_items", len(rec.UserItems)))
	return nil
}

// Close stops GC and closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.isClosed {
		return nil
	}
	s.isClosed = true
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func (s *BadgerStore) closed() bool {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	return s.isClosed
}

// gcRunner periodically runs value log garbage collection
type gcRunner struct {
	db       *badger.DB
	interval time.Duration
	ratio    float64
	stopCh   chan struct{}
	doneCh   chan struct{}
	logger   *zap.Logger
}

func newGCRunner(db *badger.DB, interval time.Duration, ratio float64, logger *zap.Logger) *gcRunner {
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	return &gcRunner{
		db:       db,
		interval: interval,
		ratio:    ratio,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (r *gcRunner) start() {
	go r.run()
}

func (r *gcRunner) stop() {
	close(r.stopCh)
	<-r.doneCh
}

func (r *gcRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			// ErrNoRewrite means nothing to collect
			if err := r.db.RunValueLogGC(r.ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				r.logger.Warn("value log GC failed", zap.Error(err))
			}
		}
	}
}
