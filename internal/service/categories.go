package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/model"
)

// Value sources
const (
	SourceAI   = "ai"
	SourceUser = "user"
)

const idSep = "::"

// AIValueID returns the presentation id of the n-th value (0-based) of a checklist key
func AIValueID(bin string, n int) string {
	return SourceAI + idSep + bin + idSep + strconv.Itoa(n)
}

// UserValueID returns the presentation id of a user item
func UserValueID(id string) string {
	return SourceUser + idSep + id
}

// ValueRef is a parsed presentation value id
type ValueRef struct {
	Source string
	Bin    string // ai only
	Index  int    // ai only
	UserID string // user only
}

// ParseValueID parses ai::<bin>::<n> and user::<uuid>
func ParseValueID(id string) (ValueRef, error) {
	parts := strings.Split(id, idSep)
	switch {
	case len(parts) == 3 && parts[0] == SourceAI && parts[1] != "":
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 0 {
			return ValueRef{}, fmt.Errorf("%w: %q", ErrInvalidValueID, id)
		}
		return ValueRef{Source: SourceAI, Bin: parts[1], Index: n}, nil
	case len(parts) == 2 && parts[0] == SourceUser && parts[1] != "":
		return ValueRef{Source: SourceUser, UserID: parts[1]}, nil
	default:
		return ValueRef{}, fmt.Errorf("%w: %q", ErrInvalidValueID, id)
	}
}

type rankedValue struct {
	value  model.EvidenceCategoryValue
	source int // 0 ai, 1 user
	order  int
}

// BuildCategoryCollection projects a stored checklist onto the category registry.
// Values within a category sort AI before user, then by extraction or insertion order,
// then by document id and start offset. "Not Applicable" values are left out; they
// still count toward the per-key index so ids match stored positions.
func BuildCategoryCollection(defs *checklist.Registry, rec *model.StoredDocumentChecklist) *model.EvidenceCategoryCollection {
	out := &model.EvidenceCategoryCollection{
		Signature:         rec.Signature,
		CombinedSignature: CombinedSignature(rec.Signature, rec.UserItems),
	}

	byCategory := make(map[string][]rankedValue)
	perBin := make(map[string]int)
	for i, item := range rec.Items.Items {
		n := perBin[item.BinID]
		perBin[item.BinID]++

		cat, ok := defs.CategoryOf(item.BinID)
		if !ok || state.IsNotApplicable(item.Value) {
			continue
		}
		v := model.EvidenceCategoryValue{
			ID:         AIValueID(item.BinID, n),
			Value:      item.Value,
			Text:       item.Evidence.Text,
			DocumentID: model.IntPtr(item.Evidence.DocumentID),
			Verified:   item.Evidence.Verified,
			Source:     SourceAI,
		}
		if item.Evidence.HasRange() {
			v.StartOffset = model.IntPtr(*item.Evidence.StartOffset)
			v.EndOffset = model.IntPtr(*item.Evidence.EndOffset)
		}
		byCategory[cat] = append(byCategory[cat], rankedValue{value: v, source: 0, order: i})
	}

	for i, u := range rec.UserItems {
		v := model.EvidenceCategoryValue{
			ID:       UserValueID(u.ID),
			Value:    u.Value,
			Verified: true,
			Source:   SourceUser,
		}
		if u.DocumentID != nil {
			v.DocumentID = model.IntPtr(*u.DocumentID)
		}
		if u.StartOffset != nil && u.EndOffset != nil {
			v.StartOffset = model.IntPtr(*u.StartOffset)
			v.EndOffset = model.IntPtr(*u.EndOffset)
		}
		byCategory[u.CategoryID] = append(byCategory[u.CategoryID], rankedValue{value: v, source: 1, order: i})
	}

	for _, cat := range defs.Categories() {
		values := byCategory[cat.ID]
		sort.SliceStable(values, func(i, j int) bool {
			a, b := values[i], values[j]
			if a.source != b.source {
				return a.source < b.source
			}
			if a.order != b.order {
				return a.order < b.order
			}
			if da, db := deref(a.value.DocumentID), deref(b.value.DocumentID); da != db {
				return da < db
			}
			return deref(a.value.StartOffset) < deref(b.value.StartOffset)
		})

		category := model.EvidenceCategory{
			ID:     cat.ID,
			Label:  cat.Label,
			Color:  cat.Color,
			Values: make([]model.EvidenceCategoryValue, 0, len(values)),
		}
		for _, v := range values {
			category.Values = append(category.Values, v.value)
		}
		out.Categories = append(out.Categories, category)
	}
	return out
}

// removeValue deletes the referenced value from rec in place
func removeValue(rec *model.StoredDocumentChecklist, ref ValueRef) bool {
	switch ref.Source {
	case SourceUser:
		for i, u := range rec.UserItems {
			if u.ID == ref.UserID {
				rec.UserItems = append(rec.UserItems[:i], rec.UserItems[i+1:]...)
				return true
			}
		}
	case SourceAI:
		n := 0
		for i, item := range rec.Items.Items {
			if item.BinID != ref.Bin {
				continue
			}
			if n == ref.Index {
				rec.Items.Items = append(rec.Items.Items[:i], rec.Items.Items[i+1:]...)
				return true
			}
			n++
		}
	}
	return false
}

func deref(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
