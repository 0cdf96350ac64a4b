package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casecheck/internal/model"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	bs, err := OpenBadger(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { bs.Close() })

	return map[string]Store{
		"badger": bs,
		"file":   NewFileStore(t.TempDir()),
	}
}

func record(sig string, values ...string) *model.StoredDocumentChecklist {
	rec := &model.StoredDocumentChecklist{
		Signature: sig,
		Version:   "2026.1",
		UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	for i, v := range values {
		rec.Items.Items = append(rec.Items.Items, model.EvidenceItem{
			BinID: "payment_terms",
			Value: v,
			Evidence: model.EvidencePointer{
				DocumentID:  1,
				StartOffset: model.IntPtr(i * 10),
				EndOffset:   model.IntPtr(i*10 + 5),
				Text:        v,
				Verified:    true,
			},
		})
	}
	return rec
}

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, "case-1", "sig-a")
			require.NoError(t, err)
			assert.Nil(t, got)

			want := record("sig-a", "$50,000", "30 days")
			want.UserItems = []model.StoredUserChecklistItem{{ID: "u1", CategoryID: "outcome", Value: "manual", CreatedAt: want.UpdatedAt}}
			require.NoError(t, s.Set(ctx, "case-1", want))

			got, err = s.Get(ctx, "case-1", "sig-a")
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			// Other signatures and cases miss
			got, err = s.Get(ctx, "case-1", "sig-b")
			require.NoError(t, err)
			assert.Nil(t, got)
			got, err = s.Get(ctx, "case-2", "sig-a")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_LatestBySignature(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get(ctx, "case-1", "")
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, s.Set(ctx, "case-1", record("sig-a", "one")))
			require.NoError(t, s.Set(ctx, "case-1", record("sig-b", "two")))

			latest, err := s.Get(ctx, "case-1", "")
			require.NoError(t, err)
			require.NotNil(t, latest)
			assert.Equal(t, "sig-b", latest.Signature)

			// Older signatures stay addressable
			old, err := s.Get(ctx, "case-1", "sig-a")
			require.NoError(t, err)
			require.NotNil(t, old)
			assert.Equal(t, "one", old.Items.Items[0].Value)
		})
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Set(ctx, "case-1", record("sig-a", "one")))

			first, err := s.Get(ctx, "case-1", "sig-a")
			require.NoError(t, err)
			first.Items.Items[0].Value = "mutated"

			second, err := s.Get(ctx, "case-1", "sig-a")
			require.NoError(t, err)
			assert.Equal(t, "one", second.Items.Items[0].Value)
		})
	}
}

func TestStore_InvalidRecord(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Set(ctx, "", record("sig")), ErrInvalidRecord)
			assert.ErrorIs(t, s.Set(ctx, "case-1", nil), ErrInvalidRecord)
			assert.ErrorIs(t, s.Set(ctx, "case-1", record("")), ErrInvalidRecord)
		})
	}
}

func TestBadgerStore_Persistent(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = time.Hour

	s, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "case-1", record("sig-a", "one")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Get(ctx, "case-1", "sig-a")
	assert.ErrorIs(t, err, ErrClosed)

	reopened, err := OpenBadger(cfg)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "case-1", "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sig-a", got.Signature)
}

func TestOpen_Backends(t *testing.T) {
	s, err := Open(model.StoreConfig{Backend: "file", Path: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(model.StoreConfig{Backend: "redis"}, nil)
	assert.Error(t, err)
}
