package state

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/casecheck/internal/model"
)

func item(value string) model.EvidenceItem {
	return model.EvidenceItem{
		Value: value,
		Evidence: model.EvidencePointer{
			DocumentID:  1,
			StartOffset: model.IntPtr(0),
			EndOffset:   model.IntPtr(4),
			Text:        "text",
			Verified:    true,
		},
	}
}

func TestChecklistStore_UpdateReplaces(t *testing.T) {
	s := NewChecklistStore()
	s.Append("court", []model.EvidenceItem{item("D. Mass.")})
	s.Append("judge", []model.EvidenceItem{item("Judge Young")})
	s.Update("court", []model.EvidenceItem{item("S.D.N.Y."), item("2d Cir.")})

	got := s.Get("court")
	require.Len(t, got, 2)
	assert.Equal(t, "S.D.N.Y.", got[0].Value)
	assert.Equal(t, "court", got[0].BinID)

	// Replaced items move after untouched keys
	coll := s.CurrentCollection()
	require.Len(t, coll.Items, 3)
	assert.Equal(t, "judge", coll.Items[0].BinID)
}

func TestChecklistStore_Append(t *testing.T) {
	s := NewChecklistStore()
	s.Append("parties", []model.EvidenceItem{item("A")})
	s.Append("parties", []model.EvidenceItem{item("B")})

	values := []string{}
	for _, it := range s.Get("parties") {
		values = append(values, it.Value)
	}
	assert.Equal(t, []string{"A", "B"}, values)
	assert.Equal(t, []string{"parties"}, s.Keys())
}

func TestChecklistStore_Stats(t *testing.T) {
	s := NewChecklistStore()
	s.Append("court", []model.EvidenceItem{item("D. Mass.")})
	s.Append("settlement_terms", []model.EvidenceItem{item(" not applicable ")})

	st := s.Stats([]string{"court", "judge", "settlement_terms"})
	assert.Equal(t, Stats{Filled: 2, Empty: 1, Total: 3, NotApplicable: 1}, st)
}

func TestChecklistStore_CurrentCollectionIsCopy(t *testing.T) {
	s := NewChecklistStore()
	s.Append("court", []model.EvidenceItem{item("D. Mass.")})

	coll := s.CurrentCollection()
	coll.Items[0].Value = "changed"
	*coll.Items[0].Evidence.StartOffset = 99

	got := s.Get("court")[0]
	assert.Equal(t, "D. Mass.", got.Value)
	assert.Equal(t, 0, *got.Evidence.StartOffset)
}

func TestLedger_RecordAndRecent(t *testing.T) {
	l := NewLedger()
	for _, tool := range []string{"list_documents", "read_document", "search_document_regex"} {
		l.Record(tool, nil, map[string]any{"ok": true}, "")
	}

	assert.Equal(t, 3, l.Len())

	recent := l.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "read_document", recent[0].Tool)
	assert.Equal(t, 3, recent[1].Step)

	assert.Len(t, l.Recent(10), 3)
	assert.Empty(t, l.Recent(0))
}

func TestLedger_ReadCoverage(t *testing.T) {
	l := NewLedger()
	l.RecordRead(1, 10, 20)
	l.RecordRead(1, 0, 5)
	l.RecordRead(1, 15, 30)
	l.RecordRead(1, 30, 35)
	l.RecordRead(2, 0, 3)
	l.RecordRead(3, 4, 4) // Empty read is ignored

	want := []ReadRange{{DocID: 1, Start: 0, End: 5}, {DocID: 1, Start: 10, End: 35}}
	if diff := cmp.Diff(want, l.ReadRanges(1)); diff != "" {
		t.Errorf("ReadRanges mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 30, l.CoveredSentences(1))
	assert.True(t, l.Visited(2))
	assert.False(t, l.Visited(3))
}

func TestLedger_Searches(t *testing.T) {
	l := NewLedger()
	ids := []int{1, 2}
	l.RecordSearch(SearchRecord{Pattern: "settle", DocIDs: ids, Matches: 3})
	ids[0] = 99

	got := l.Searches()
	require.Len(t, got, 1)
	assert.Equal(t, []int{1, 2}, got[0].DocIDs)
}
