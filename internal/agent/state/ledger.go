package state

import (
	"sort"
	"time"
)

// ActionRecord is one step of the agent loop
type ActionRecord struct {
	Step     int            `json:"step"`
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args,omitempty"`
	Result   map[string]any `json:"result,omitempty"`
	Thought  string         `json:"thought,omitempty"`
	Recorded time.Time      `json:"recorded"`
}

// ReadRange is a sentence range [Start, End) the agent has read
type ReadRange struct {
	DocID int `json:"doc_id"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// SearchRecord is one regex search
type SearchRecord struct {
	Pattern string `json:"pattern"`
	DocIDs  []int  `json:"doc_ids"`
	Matches int    `json:"matches"`
}

// Ledger is the append-only history of one extraction run
type Ledger struct {
	history  []ActionRecord
	reads    []ReadRange
	searches []SearchRecord
	now      func() time.Time
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

// Record appends an action and returns its step number
func (l *Ledger) Record(tool string, args, result map[string]any, thought string) ActionRecord {
	rec := ActionRecord{
		Step:     len(l.history) + 1,
		Tool:     tool,
		Args:     args,
		Result:   result,
		Thought:  thought,
		Recorded: l.now(),
	}
	l.history = append(l.history, rec)
	return rec
}

// History returns all actions in step order
func (l *Ledger) History() []ActionRecord {
	return append([]ActionRecord(nil), l.history...)
}

// Recent returns the last n actions
func (l *Ledger) Recent(n int) []ActionRecord {
	if n <= 0 {
		return nil
	}
	if n > len(l.history) {
		n = len(l.history)
	}
	return append([]ActionRecord(nil), l.history[len(l.history)-n:]...)
}

// Len returns the number of recorded actions
func (l *Ledger) Len() int {
	return len(l.history)
}

// RecordRead remembers that sentences [start, end) of a document were read
func (l *Ledger) RecordRead(docID, start, end int) {
	if end <= start {
		return
	}
	l.reads = append(l.reads, ReadRange{DocID: docID, Start: start, End: end})
}

// ReadRanges returns merged, non-overlapping read ranges of a document ordered by start
func (l *Ledger) ReadRanges(docID int) []ReadRange {
	var ranges []ReadRange
	for _, r := range l.reads {
		if r.DocID == docID {
			ranges = append(ranges, r)
		}
	}
	return MergeRanges(ranges)
}

// CoveredSentences counts distinct sentences read in a document
func (l *Ledger) CoveredSentences(docID int) int {
	total := 0
	for _, r := range l.ReadRanges(docID) {
		total += r.End - r.Start
	}
	return total
}

// Visited reports whether any part of the document was read
func (l *Ledger) Visited(docID int) bool {
	for _, r := range l.reads {
		if r.DocID == docID {
			return true
		}
	}
	return false
}

// RecordSearch remembers a search
func (l *Ledger) RecordSearch(rec SearchRecord) {
	rec.DocIDs = append([]int(nil), rec.DocIDs...)
	l.searches = append(l.searches, rec)
}

// Searches returns all searches in order
func (l *Ledger) Searches() []SearchRecord {
	return append([]SearchRecord(nil), l.searches...)
}

// MergeRanges sorts ranges and merges overlapping or adjacent ones.
// All ranges are assumed to belong to the same document.
func MergeRanges(ranges []ReadRange) []ReadRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := append([]ReadRange(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := []ReadRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
