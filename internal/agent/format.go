package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/casecheck/internal/agent/state"
	"github.com/ppiankov/casecheck/internal/agent/tools"
)

// Format renders a snapshot as the user prompt for the next decision.
// Output depends only on the snapshot.
func Format(s *Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Checklist Extraction: %s\n\n", s.CaseName)
	fmt.Fprintf(&b, "Case ID: %s\n\n", s.CaseID)
	b.WriteString("Fill every checklist item with values found in the case documents. ")
	b.WriteString("Every value must cite one contiguous run of sentence ids from a single document. ")
	b.WriteString("Use \"" + state.NotApplicable + "\" for items that do not apply, and stop when nothing more can be found.\n")

	if len(s.HistorySummary) > 0 {
		b.WriteString("\n## History Recap\n\n")
		for _, line := range s.HistorySummary {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n## Recent Actions\n\n")
	if len(s.RecentActions) == 0 {
		b.WriteString("No actions yet. Start with list_documents.\n")
	}
	for _, rec := range s.RecentActions {
		formatAction(&b, rec)
	}

	b.WriteString("\n## Status\n\n")
	fmt.Fprintf(&b, "- Step: %d of %d\n", s.Step, s.MaxSteps)
	fmt.Fprintf(&b, "- Checklist: %d of %d filled (%d not applicable), %d empty\n",
		s.Stats.Filled, s.Stats.Total, s.Stats.NotApplicable, s.Stats.Empty)
	visited := 0
	for _, d := range s.Documents {
		if d.Visited {
			visited++
		}
	}
	fmt.Fprintf(&b, "- Documents visited: %d of %d\n", visited, len(s.Documents))

	b.WriteString("\n## Documents\n\n")
	b.WriteString("| id | title | type | sentences | ~tokens | coverage | read ranges |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, d := range s.Documents {
		coverage := "unread"
		if d.Visited {
			coverage = fmt.Sprintf("%.1f%%", d.CoveragePct)
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %d | %s | %s |\n",
			d.ID, cell(d.Title), cell(d.Type), d.Sentences, d.Tokens, coverage, formatRanges(d.ReadRanges))
	}

	b.WriteString("\n## Checklist Progress\n")
	var extracted, notApplicable, empty []ChecklistEntry
	for _, e := range s.Checklist {
		switch e.Status {
		case StatusExtracted:
			extracted = append(extracted, e)
		case StatusNotApplicable:
			notApplicable = append(notApplicable, e)
		default:
			empty = append(empty, e)
		}
	}

	fmt.Fprintf(&b, "\n### Extracted (%d)\n\n", len(extracted))
	for _, e := range extracted {
		fmt.Fprintf(&b, "- %s:\n", e.Key)
		for _, v := range e.Values {
			mark := ""
			if !v.Evidence.Verified {
				mark = " [unverified]"
			}
			fmt.Fprintf(&b, "  - %q (doc %d)%s\n", v.Value, v.Evidence.DocumentID, mark)
		}
	}

	fmt.Fprintf(&b, "\n### Not Applicable (%d)\n\n", len(notApplicable))
	for _, e := range notApplicable {
		fmt.Fprintf(&b, "- %s\n", e.Key)
	}

	fmt.Fprintf(&b, "\n### Empty (%d)\n\n", len(empty))
	for _, e := range empty {
		fmt.Fprintf(&b, "- %s: %s\n", e.Key, e.Description)
	}

	b.WriteString("\n## Next Step\n\n")
	b.WriteString("Choose exactly one action. Respond with a single JSON object and nothing else:\n\n")
	b.WriteString("{\"decision\": \"tool\", \"thought\": \"<short reasoning>\", \"tool_name\": \"<tool>\", \"tool_args\": {...}}\n\n")
	b.WriteString("or, when the checklist is complete or nothing more can be found:\n\n")
	b.WriteString("{\"decision\": \"stop\", \"reason\": \"<why>\"}\n")

	return b.String()
}

// formatAction renders one recent action with tool-specific result detail
func formatAction(b *strings.Builder, rec state.ActionRecord) {
	fmt.Fprintf(b, "### Step %d: %s\n\n", rec.Step, rec.Tool)
	if rec.Thought != "" {
		fmt.Fprintf(b, "Thought: %s\n", rec.Thought)
	}
	if len(rec.Args) > 0 {
		args, _ := json.Marshal(rec.Args)
		fmt.Fprintf(b, "Args: %s\n", args)
	}

	res := normalize(rec.Result)
	if msg, ok := res["error"].(string); ok {
		fmt.Fprintf(b, "Result: ERROR: %s\n", msg)
		if errs, ok := res["errors"].([]any); ok {
			for _, e := range errs {
				fmt.Fprintf(b, "  - %v\n", e)
			}
		}
		b.WriteString("\n")
		return
	}

	switch rec.Tool {
	case tools.ListDocuments:
		fmt.Fprintf(b, "Result: listed %d documents\n", num(res["count"]))

	case tools.ReadDocument:
		fmt.Fprintf(b, "Result: doc %d sentences [%d, %d) of %d\n",
			num(res["doc_id"]), num(res["start_sentence"]), num(res["end_sentence"]), num(res["total_sentences"]))
		if text, ok := res["text"].(string); ok && text != "" {
			fmt.Fprintf(b, "```\n%s\n```\n", text)
		}

	case tools.SearchDocumentRegex:
		more := ""
		if res["more_remain"] == true {
			more = ", more remain"
		}
		fmt.Fprintf(b, "Result: %d matches shown (%d total%s)\n", num(res["returned"]), num(res["total_matches"]), more)
		matches, _ := res["matches"].([]any)
		for _, m := range matches {
			mm, _ := m.(map[string]any)
			fmt.Fprintf(b, "- doc %d sentence %d: %q\n```\n%v\n```\n",
				num(mm["doc_id"]), num(mm["sentence_id"]), mm["match"], mm["context"])
		}

	case tools.GetChecklist:
		fmt.Fprintf(b, "Result: %d filled, %d empty, %d total\n", num(res["filled"]), num(res["empty"]), num(res["total"]))
		entries, _ := res["checklist"].(map[string]any)
		for _, key := range sortedKeys(entries) {
			entry, _ := entries[key].(map[string]any)
			values, _ := entry["values"].([]any)
			if len(values) == 0 {
				continue
			}
			parts := make([]string, 0, len(values))
			for _, v := range values {
				vm, _ := v.(map[string]any)
				parts = append(parts, fmt.Sprintf("%q", vm["value"]))
			}
			fmt.Fprintf(b, "- %s: %s\n", key, strings.Join(parts, ", "))
		}

	case tools.UpdateChecklist, tools.AppendChecklist:
		committed := toStrings(res["committed"])
		fmt.Fprintf(b, "Result: committed %d key(s)", len(committed))
		if len(committed) > 0 {
			fmt.Fprintf(b, ": %s", strings.Join(committed, ", "))
		}
		b.WriteString("\n")
		failed, _ := res["failed"].([]any)
		for _, f := range failed {
			fm, _ := f.(map[string]any)
			fmt.Fprintf(b, "- FAILED %v: %v\n", fm["key"], fm["error"])
		}

	case tools.StopTask, StopAction:
		fmt.Fprintf(b, "Result: stopped (%v)\n", res["reason"])

	default:
		out, _ := json.Marshal(res)
		fmt.Fprintf(b, "Result: %s\n", truncate(string(out), 500))
	}
	b.WriteString("\n")
}

func formatRanges(ranges []state.ReadRange) string {
	if len(ranges) == 0 {
		return "-"
	}
	parts := make([]string, len(ranges))
	for i, r := range ranges {
		parts[i] = fmt.Sprintf("[%d,%d)", r.Start, r.End)
	}
	return strings.Join(parts, " ")
}

func toStrings(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", "/")
}
