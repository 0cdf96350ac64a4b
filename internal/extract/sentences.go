package extract

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"
	"unsafe"

	"github.com/clipperhouse/uax29/v2/sentences"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/casecheck/internal/model"
)

// Indexer splits documents into sentence spans and memoizes the result per (case, document)
// for the lifetime of the process.
type Indexer struct {
	cache *gocache.Cache
}

type indexEntry struct {
	size   int
	digest [sha256.Size]byte
	spans  []model.SentenceSpan

	// Backing bytes of the last text that matched; a string sharing them is a hit
	data atomic.Pointer[byte]
}

func newIndexEntry(text string, spans []model.SentenceSpan) *indexEntry {
	entry := &indexEntry{size: len(text), digest: sha256.Sum256([]byte(text)), spans: spans}
	entry.data.Store(unsafe.StringData(text))
	return entry
}

// matches reports whether text is the text the entry was built from. Texts sharing
// the remembered backing bytes match without hashing; an equal copy is hashed once
// and then remembered.
func (e *indexEntry) matches(text string) bool {
	if len(text) != e.size {
		return false
	}
	ptr := unsafe.StringData(text)
	if e.data.Load() == ptr {
		return true
	}
	if sha256.Sum256([]byte(text)) != e.digest {
		return false
	}
	e.data.Store(ptr)
	return true
}

// NewIndexer creates a new sentence indexer
func NewIndexer() *Indexer {
	return &Indexer{
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Index returns the sentence spans of a document. The first call for a (case, document)
// pair segments the text; later calls with the same text are lookups. A call with different
// text for the same pair rebuilds the entry.
func (ix *Indexer) Index(caseID string, docID int, text string) []model.SentenceSpan {
	key := indexKey(caseID, docID)

	if val, found := ix.cache.Get(key); found {
		if entry := val.(*indexEntry); entry.matches(text) {
			return entry.spans
		}
	}

	spans := SplitSentences(text)
	ix.cache.Set(key, newIndexEntry(text, spans), gocache.NoExpiration)
	return spans
}

// Spans returns cached spans without indexing
func (ix *Indexer) Spans(caseID string, docID int) ([]model.SentenceSpan, bool) {
	val, found := ix.cache.Get(indexKey(caseID, docID))
	if !found {
		return nil, false
	}
	return val.(*indexEntry).spans, true
}

// Forget drops every cached document of a case
func (ix *Indexer) Forget(caseID string) {
	prefix := caseID + "\x00"
	for key := range ix.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			ix.cache.Delete(key)
		}
	}
}

// SentenceAt returns the id of the sentence containing the byte offset.
// Offsets between sentences map to the following sentence.
func SentenceAt(spans []model.SentenceSpan, offset int) int {
	if len(spans) == 0 {
		return -1
	}
	i := sort.Search(len(spans), func(i int) bool {
		return spans[i].EndChar > offset
	})
	if i == len(spans) {
		return len(spans) - 1
	}
	return i
}

// SplitSentences segments text on UAX #29 sentence boundaries. Segments are trimmed of
// surrounding whitespace, whitespace-only segments are dropped, and ids are sequential from 0.
func SplitSentences(text string) []model.SentenceSpan {
	spans := make([]model.SentenceSpan, 0)

	seg := sentences.FromString(text)
	for seg.Next() {
		start, end := trimSpan(text, seg.Start(), seg.End())
		if start >= end {
			continue
		}
		spans = append(spans, model.SentenceSpan{
			SentenceID: len(spans),
			StartChar:  start,
			EndChar:    end,
			Text:       text[start:end],
		})
	}

	return spans
}

// trimSpan narrows [start, end) to exclude leading and trailing whitespace
func trimSpan(text string, start, end int) (int, int) {
	segment := text[start:end]
	trimmedLeft := strings.TrimLeftFunc(segment, unicode.IsSpace)
	start += len(segment) - len(trimmedLeft)
	trimmed := strings.TrimRightFunc(trimmedLeft, unicode.IsSpace)
	return start, start + len(trimmed)
}

func indexKey(caseID string, docID int) string {
	return fmt.Sprintf("%s\x00%d", caseID, docID)
}
