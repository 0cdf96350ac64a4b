package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/casecheck/internal/checklist"
	"github.com/ppiankov/casecheck/internal/model"
)

// Renderer writes case reports as JSON, Markdown or a terminal summary
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// jsonReport is the on-disk JSON layout
type jsonReport struct {
	Summary    *model.ExtractionSummary          `json:"summary"`
	Categories *model.EvidenceCategoryCollection `json:"categories"`
}

// RenderJSON writes the report as indented JSON. "-" writes to stdout.
func (r *Renderer) RenderJSON(report *CaseReport, path string) error {
	data, err := json.MarshalIndent(jsonReport{Summary: report.Summary, Categories: report.Categories}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeOutput(path, append(data, '\n'))
}

// RenderMarkdown writes the report as Markdown. "-" writes to stdout.
func (r *Renderer) RenderMarkdown(report *CaseReport, path string) error {
	return writeOutput(path, []byte(r.Markdown(report)))
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *CaseReport) string {
	var b strings.Builder
	s := report.Summary

	title := s.CaseID
	if s.CaseName != "" {
		title = fmt.Sprintf("%s (%s)", s.CaseName, s.CaseID)
	}
	fmt.Fprintf(&b, "# Case Checklist: %s\n\n", title)
	fmt.Fprintf(&b, "- Signature: `%s`\n", short(s.Signature))
	fmt.Fprintf(&b, "- Combined signature: `%s`\n", short(s.CombinedSignature))
	fmt.Fprintf(&b, "- Source: %s\n", s.Source)
	fmt.Fprintf(&b, "- Keys filled: %d/%d\n", s.Filled, s.Total)
	if s.State != "" {
		fmt.Fprintf(&b, "- Agent: %s after %d steps\n", s.State, s.Steps)
	}
	b.WriteString("\n")

	for _, cat := range report.Categories.Categories {
		fmt.Fprintf(&b, "## %s\n\n", cat.Label)
		if len(cat.Values) == 0 {
			b.WriteString("_No values._\n\n")
			continue
		}
		for _, v := range cat.Values {
			fmt.Fprintf(&b, "- **%s**", escapeMarkdown(v.Value))
			if v.Source == "user" {
				b.WriteString(" (added manually)")
			} else if !v.Verified {
				b.WriteString(" (unverified)")
			}
			fmt.Fprintf(&b, " `%s`\n", v.ID)
			if v.Text != "" {
				loc := ""
				if v.DocumentID != nil {
					loc = fmt.Sprintf(" [doc %d", *v.DocumentID)
					if v.StartOffset != nil && v.EndOffset != nil {
						loc += fmt.Sprintf(", %d-%d", *v.StartOffset, *v.EndOffset)
					}
					loc += "]"
				}
				fmt.Fprintf(&b, "  > %s%s\n", oneLine(v.Text), loc)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderSummary prints a short human-readable summary
func (r *Renderer) RenderSummary(w io.Writer, report *CaseReport) {
	s := report.Summary

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  %s\n", firstNonEmpty(s.CaseName, s.CaseID))
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Case:        %s\n", s.CaseID)
	fmt.Fprintf(w, "  Signature:   %s\n", short(s.Signature))
	fmt.Fprintf(w, "  Source:      %s\n", s.Source)
	fmt.Fprintf(w, "  Keys filled: %d/%d\n", s.Filled, s.Total)
	if s.State != "" {
		fmt.Fprintf(w, "  Agent:       %s (%d steps)\n", s.State, s.Steps)
	}
	fmt.Fprintf(w, "\n")

	for _, cat := range report.Categories.Categories {
		if len(cat.Values) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s\n", cat.Label)
		for _, v := range cat.Values {
			mark := "✓"
			if !v.Verified {
				mark = "?"
			}
			fmt.Fprintf(w, "    %s %s  [%s]\n", mark, oneLine(v.Value), v.ID)
		}
	}
	fmt.Fprintf(w, "\n")
}

// RenderDefinitions prints categories with their checklist keys
func (r *Renderer) RenderDefinitions(w io.Writer, defs *checklist.Registry) {
	fmt.Fprintf(w, "Checklist definitions (version %s)\n\n", short(defs.Version()))
	for _, cat := range defs.Categories() {
		fmt.Fprintf(w, "%s [%s]\n", cat.Label, cat.ID)
		for _, key := range cat.Members {
			fmt.Fprintf(w, "  %-32s %s\n", key, oneLine(defs.Description(key)))
		}
		fmt.Fprintf(w, "\n")
	}
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

func short(sig string) string {
	if len(sig) > 12 {
		return sig[:12]
	}
	return sig
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", `\*`, "_", `\_`, "`", "\\`").Replace(oneLine(s))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
