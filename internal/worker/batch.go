package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/casecheck/internal/model"
)

// CaseExtractor extracts the checklist of one case
type CaseExtractor interface {
	ExtractCase(ctx context.Context, caseID string) (*model.ExtractionSummary, error)
}

// CaseJob extracts one case of a batch
type CaseJob struct {
	Index     int
	CaseID    string
	Extractor CaseExtractor
}

// Execute executes the case job
func (j *CaseJob) Execute(ctx context.Context) Result {
	start := time.Now()
	summary, err := j.Extractor.ExtractCase(ctx, j.CaseID)
	return &CaseResult{
		Index:    j.Index,
		CaseID:   j.CaseID,
		Summary:  summary,
		Error:    err,
		Duration: time.Since(start),
	}
}

// CaseResult represents the result of a case job
type CaseResult struct {
	Index    int
	CaseID   string
	Summary  *model.ExtractionSummary
	Error    error
	Duration time.Duration
}

// GetError returns the error from the case result
func (r *CaseResult) GetError() error {
	return r.Error
}

// BatchProcessor extracts multiple cases concurrently
type BatchProcessor struct {
	extractor   CaseExtractor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(extractor CaseExtractor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		extractor:   extractor,
		concurrency: concurrency,
	}
}

// ProcessCases extracts cases concurrently and returns results in input order
func (b *BatchProcessor) ProcessCases(ctx context.Context, caseIDs []string) []*CaseResult {
	if len(caseIDs) == 0 {
		return []*CaseResult{}
	}

	jobs := make([]Job, len(caseIDs))
	for i, id := range caseIDs {
		jobs[i] = &CaseJob{Index: i, CaseID: id, Extractor: b.extractor}
	}

	pool := NewPool(ctx, b.concurrency)
	results := pool.Run(jobs)

	caseResults := make([]*CaseResult, len(caseIDs))
	for _, result := range results {
		r := result.(*CaseResult)
		caseResults[r.Index] = r
	}

	// Jobs never started because the batch was cancelled
	for i, r := range caseResults {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			caseResults[i] = &CaseResult{Index: i, CaseID: caseIDs[i], Error: err}
		}
	}

	return caseResults
}

// ProcessFile reads case ids from a file and extracts them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*CaseResult, error) {
	ids, err := ReadCaseIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read case ids: %w", err)
	}

	return b.ProcessCases(ctx, ids), nil
}

// ReadCaseIDsFromFile reads case ids from a file (one per line)
func ReadCaseIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}
