// Package state holds the private per-run agent state: the in-progress checklist and the action ledger.
package state

import (
	"strings"

	"github.com/ppiankov/casecheck/internal/model"
)

// NotApplicable is the value an agent records for a key that does not apply to the case
const NotApplicable = "Not Applicable"

// IsNotApplicable reports whether a value marks its key as not applicable
func IsNotApplicable(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), NotApplicable)
}

// Stats summarizes checklist completion
type Stats struct {
	Filled        int `json:"filled"`
	Empty         int `json:"empty"`
	Total         int `json:"total"`
	NotApplicable int `json:"not_applicable"`
}

// ChecklistStore is the in-progress extraction result of one run.
// Items stay in extraction order.
type ChecklistStore struct {
	items []model.EvidenceItem
}

// NewChecklistStore creates an empty checklist store
func NewChecklistStore() *ChecklistStore {
	return &ChecklistStore{}
}

// Update replaces every item of key with items
func (s *ChecklistStore) Update(key string, items []model.EvidenceItem) {
	kept := s.items[:0:0]
	for _, item := range s.items {
		if item.BinID != key {
			kept = append(kept, item)
		}
	}
	s.items = append(kept, withBin(key, items)...)
}

// Append adds items for key after the existing ones
func (s *ChecklistStore) Append(key string, items []model.EvidenceItem) {
	s.items = append(s.items, withBin(key, items)...)
}

// Get returns the items of key in extraction order
func (s *ChecklistStore) Get(key string) []model.EvidenceItem {
	var out []model.EvidenceItem
	for _, item := range s.items {
		if item.BinID == key {
			out = append(out, item)
		}
	}
	return out
}

// Keys returns filled keys in order of first extraction
func (s *ChecklistStore) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, item := range s.items {
		if !seen[item.BinID] {
			seen[item.BinID] = true
			keys = append(keys, item.BinID)
		}
	}
	return keys
}

// NotApplicableKey reports whether every item of key marks it not applicable
func (s *ChecklistStore) NotApplicableKey(key string) bool {
	items := s.Get(key)
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !IsNotApplicable(item.Value) {
			return false
		}
	}
	return true
}

// Stats computes completion counts over allKeys.
// Not-applicable keys count as filled.
func (s *ChecklistStore) Stats(allKeys []string) Stats {
	st := Stats{Total: len(allKeys)}
	for _, key := range allKeys {
		switch {
		case s.NotApplicableKey(key):
			st.Filled++
			st.NotApplicable++
		case len(s.Get(key)) > 0:
			st.Filled++
		default:
			st.Empty++
		}
	}
	return st
}

// Len returns the number of stored items
func (s *ChecklistStore) Len() int {
	return len(s.items)
}

// CurrentCollection returns a copy of the accumulated evidence
func (s *ChecklistStore) CurrentCollection() model.EvidenceCollection {
	return model.EvidenceCollection{Items: s.items}.Clone()
}

func withBin(key string, items []model.EvidenceItem) []model.EvidenceItem {
	out := make([]model.EvidenceItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].BinID = key
		out[i].Evidence = item.Evidence.Clone()
	}
	return out
}
