package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/agent/tools"
	"github.com/ppiankov/casecheck/internal/model"
)

// Checklist entry statuses
const (
	StatusExtracted     = "extracted"
	StatusNotApplicable = "not_applicable"
	StatusEmpty         = "empty"
)

// DocumentInfo is one document as shown to the model
type DocumentInfo struct {
	ID          int
	Title       string
	Type        string
	Sentences   int
	Tokens      int // Rough estimate, len(text)/4
	Visited     bool
	ReadRanges  []state.ReadRange
	Covered     int
	CoveragePct float64
}

// ChecklistEntry is one checklist key with its current values
type ChecklistEntry struct {
	Key         string
	Description string
	Status      string
	Values      []model.EvidenceItem
}

// Snapshot is the bounded view of a run given to the model each step
type Snapshot struct {
	CaseID         string
	CaseName       string
	Step           int
	MaxSteps       int
	Documents      []DocumentInfo
	Checklist      []ChecklistEntry
	Stats          state.Stats
	RecentActions  []state.ActionRecord
	HistorySummary []string
	TotalActions   int
}

// SnapshotBuilder renders run state into snapshots
type SnapshotBuilder struct {
	RecentActions int
}

// NewSnapshotBuilder creates a builder keeping the last recent actions in detail
func NewSnapshotBuilder(recent int) *SnapshotBuilder {
	if recent <= 0 {
		recent = 8
	}
	return &SnapshotBuilder{RecentActions: recent}
}

// Build assembles the snapshot for the current step
func (b *SnapshotBuilder) Build(run *Run) (*Snapshot, error) {
	if run == nil || run.Corpus == nil || len(run.Corpus.Documents) == 0 {
		return nil, ErrEmptyCorpus
	}
	env := run.Env
	if env == nil || env.Definitions == nil || env.Store == nil || env.Ledger == nil {
		return nil, fmt.Errorf("run %s has no agent state", run.ID)
	}

	s := &Snapshot{
		CaseID:       run.Corpus.CaseID,
		CaseName:     run.Corpus.CaseName,
		Step:         run.Step,
		MaxSteps:     run.MaxSteps,
		TotalActions: env.Ledger.Len(),
	}

	// Documents with ledger-derived coverage
	for _, doc := range run.Corpus.Documents {
		spans := env.Indexer.Index(run.Corpus.CaseID, doc.ID, doc.Content)
		ranges := env.Ledger.ReadRanges(doc.ID)
		covered := 0
		for _, r := range ranges {
			covered += r.End - r.Start
		}
		info := DocumentInfo{
			ID:         doc.ID,
			Title:      doc.Title,
			Type:       doc.Type,
			Sentences:  len(spans),
			Tokens:     len(doc.Content) / 4,
			Visited:    env.Ledger.Visited(doc.ID),
			ReadRanges: ranges,
			Covered:    covered,
		}
		if info.Sentences > 0 {
			info.CoveragePct = float64(covered) * 100 / float64(info.Sentences)
		}
		s.Documents = append(s.Documents, info)
	}

	// Every defined key appears, filled or not
	keys := env.Definitions.Keys()
	for _, key := range keys {
		entry := ChecklistEntry{
			Key:         key,
			Description: env.Definitions.Description(key),
			Values:      env.Store.Get(key),
		}
		switch {
		case env.Store.NotApplicableKey(key):
			entry.Status = StatusNotApplicable
		case len(entry.Values) > 0:
			entry.Status = StatusExtracted
		default:
			entry.Status = StatusEmpty
		}
		s.Checklist = append(s.Checklist, entry)
	}
	s.Stats = env.Store.Stats(keys)

	s.RecentActions = env.Ledger.Recent(b.RecentActions)
	if env.Ledger.Len() > b.RecentActions {
		for _, rec := range env.Ledger.History() {
			s.HistorySummary = append(s.HistorySummary, summarizeAction(rec))
		}
	}

	return s, nil
}

// summarizeAction renders one compact history line
func summarizeAction(rec state.ActionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s", rec.Step, rec.Tool)

	args := normalize(rec.Args)
	switch rec.Tool {
	case tools.ReadDocument:
		fmt.Fprintf(&b, " doc %v [%v, %v)", args["doc_id"], num(normalize(rec.Result)["start_sentence"]), num(normalize(rec.Result)["end_sentence"]))
	case tools.SearchDocumentRegex:
		fmt.Fprintf(&b, " /%v/", args["pattern"])
	case tools.UpdateChecklist, tools.AppendChecklist:
		if keys := patchKeys(args); len(keys) > 0 {
			fmt.Fprintf(&b, " %s", strings.Join(keys, ", "))
		}
	}

	res := normalize(rec.Result)
	if msg, ok := res["error"].(string); ok {
		fmt.Fprintf(&b, " -> error: %s", truncate(msg, 80))
	} else {
		b.WriteString(" -> ok")
	}
	return b.String()
}

func patchKeys(args map[string]any) []string {
	patch, _ := args["patch"].([]any)
	var keys []string
	for _, p := range patch {
		if m, ok := p.(map[string]any); ok {
			if k, ok := m["key"].(string); ok && k != "" {
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// normalize round-trips a value through JSON so numbers are float64 and slices are []any
func normalize(v map[string]any) map[string]any {
	if v == nil {
		return map[string]any{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := map[string]any{}
	_ = json.Unmarshal(b, &out)
	return out
}

func num(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
