package extract

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/ppiankov/casecheck/internal/model"
)

// Resolver turns agent citations (document + sentence ids) into verified evidence pointers
type Resolver struct {
	indexer *Indexer
}

// NewResolver creates a new evidence resolver over the given indexer
func NewResolver(indexer *Indexer) *Resolver {
	return &Resolver{indexer: indexer}
}

// Resolve converts a sentence-level citation into a verified evidence pointer.
// The sentence ids must form one contiguous run after sorting and deduplication.
func (r *Resolver) Resolve(corpus *model.Corpus, ptr model.LLMEvidencePointer) (model.EvidencePointer, error) {
	ids, err := NormalizeSentenceIDs(ptr.SentenceIDs)
	if err != nil {
		return UnverifiedPointer(ptr.DocumentID), err
	}

	doc, ok := corpus.Document(ptr.DocumentID)
	if !ok {
		return UnverifiedPointer(ptr.DocumentID), fmt.Errorf("%w: %d", ErrDocumentNotFound, ptr.DocumentID)
	}

	spans := r.indexer.Index(corpus.CaseID, doc.ID, doc.Content)
	first, last := ids[0], ids[len(ids)-1]
	if first < 0 || last >= len(spans) {
		return UnverifiedPointer(ptr.DocumentID), fmt.Errorf("%w: sentences %d-%d, document %d has %d sentences",
			ErrOutOfRange, first, last, doc.ID, len(spans))
	}

	start := spans[first].StartChar
	end := spans[last].EndChar

	return model.EvidencePointer{
		DocumentID:  doc.ID,
		StartOffset: model.IntPtr(start),
		EndOffset:   model.IntPtr(end),
		Text:        doc.Content[start:end],
		Verified:    true,
	}, nil
}

// NormalizeSentenceIDs deduplicates and sorts ids and checks they are contiguous
func NormalizeSentenceIDs(ids []int) ([]int, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: sentence_ids is empty", ErrInvalidEvidence)
	}

	seen := make(map[int]bool, len(ids))
	unique := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Ints(unique)

	for i := 1; i < len(unique); i++ {
		if unique[i]-unique[i-1] != 1 {
			return nil, fmt.Errorf("%w: sentence_ids %v are not contiguous", ErrInvalidEvidence, unique)
		}
	}

	return unique, nil
}

// RefreshPointer re-slices the current document text with stored offsets so the evidence
// text always matches the document body. Offsets that no longer fit the text yield an
// unverified pointer for the same document.
func RefreshPointer(ptr model.EvidencePointer, docText string) model.EvidencePointer {
	if !ptr.HasRange() {
		return UnverifiedPointer(ptr.DocumentID)
	}

	start, end := *ptr.StartOffset, *ptr.EndOffset
	if end > len(docText) || !onRuneBoundary(docText, start) || !onRuneBoundary(docText, end) {
		return UnverifiedPointer(ptr.DocumentID)
	}

	return model.EvidencePointer{
		DocumentID:  ptr.DocumentID,
		StartOffset: model.IntPtr(start),
		EndOffset:   model.IntPtr(end),
		Text:        docText[start:end],
		Verified:    true,
	}
}

// UnverifiedPointer returns the pointer used when a citation cannot be grounded
func UnverifiedPointer(docID int) model.EvidencePointer {
	return model.EvidencePointer{DocumentID: docID, Verified: false}
}

func onRuneBoundary(s string, i int) bool {
	if i == 0 || i == len(s) {
		return true
	}
	return utf8.RuneStart(s[i])
}
