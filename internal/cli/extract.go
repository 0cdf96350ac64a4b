package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/casecheck/internal/pipeline"
)

var (
	outJSON string
	outMD   string
	noCache bool
	timeout time.Duration
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <case-id>",
	Short: "Extract the evidence checklist of a case",
	Long: `Extract reads every document of a case and builds its checklist:
- Run the extraction agent over the case documents
- Ground every value in the sentences it came from
- Reuse the stored checklist when the documents have not changed
- Print the checklist grouped by category

Example:
  casecheck extract doe-v-acme
  casecheck extract doe-v-acme --json report.json --md report.md
  casecheck extract doe-v-acme --no-cache --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Output flags
	extractCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path ('-' for stdout)")
	extractCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path ('-' for stdout)")

	extractCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall extraction timeout")
	extractCmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore cached and stored checklists (force a fresh run)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	caseID := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Extracting: %s\n", caseID)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", !noCache)
		fmt.Fprintln(os.Stderr)
	}

	p, logger, err := openPipeline(noCache)
	if err != nil {
		return err
	}
	defer func() {
		_ = p.Close()
		_ = logger.Sync()
	}()

	report, err := p.Extract(ctx, caseID)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Checklist from %s\n", report.Summary.Source)
		if report.Summary.State != "" {
			fmt.Fprintf(os.Stderr, "✓ Agent %s after %d steps\n", report.Summary.State, report.Summary.Steps)
		}
		fmt.Fprintf(os.Stderr, "✓ %d/%d keys filled\n", report.Summary.Filled, report.Summary.Total)
		fmt.Fprintln(os.Stderr)
	}

	return renderReport(p, report, outJSON, outMD)
}

// renderReport writes the requested outputs and the terminal summary
func renderReport(p *pipeline.Pipeline, report *pipeline.CaseReport, jsonPath, mdPath string) error {
	r := p.Renderer()

	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose && jsonPath != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose && mdPath != "-" {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// Keep stdout clean when a document is streamed to it
	out := os.Stdout
	if jsonPath == "-" || mdPath == "-" {
		out = os.Stderr
	}
	r.RenderSummary(out, report)

	return nil
}
