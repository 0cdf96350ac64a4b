package extract

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ppiankov/casecheck/internal/model"
)

func testCorpus() *model.Corpus {
	return &model.Corpus{
		CaseID:   "case-1",
		CaseName: "Doe v. Acme",
		Documents: []model.Document{
			{ID: 1, Title: "Complaint", Type: "complaint", Content: "S0. S1. S2. S3. S4. S5."},
			{ID: 2, Title: "Order", Type: "order", Content: "The motion is denied."},
		},
	}
}

func TestNormalizeSentenceIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     []int
		want    []int
		wantErr bool
	}{
		{"single", []int{3}, []int{3}, false},
		{"unordered", []int{4, 2, 3}, []int{2, 3, 4}, false},
		{"duplicates", []int{2, 2, 3, 3}, []int{2, 3}, false},
		{"gap", []int{2, 5}, nil, true},
		{"empty", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSentenceIDs(tt.ids)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvidence) {
					t.Fatalf("Expected ErrInvalidEvidence, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	corpus := testCorpus()
	r := NewResolver(NewIndexer())

	ptr, err := r.Resolve(corpus, model.LLMEvidencePointer{DocumentID: 1, SentenceIDs: []int{4, 2, 3}})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !ptr.Verified {
		t.Error("Expected verified pointer")
	}
	if ptr.Text != "S2. S3. S4." {
		t.Errorf("Expected %q, got %q", "S2. S3. S4.", ptr.Text)
	}

	content := corpus.Documents[0].Content
	if content[*ptr.StartOffset:*ptr.EndOffset] != ptr.Text {
		t.Errorf("Pointer text does not match document slice")
	}
}

func TestResolver_RoundTrip(t *testing.T) {
	corpus := testCorpus()
	ix := NewIndexer()
	r := NewResolver(ix)

	content := corpus.Documents[0].Content
	spans := ix.Index(corpus.CaseID, 1, content)

	for first := 0; first < len(spans); first++ {
		for last := first; last < len(spans); last++ {
			ids := make([]int, 0, last-first+1)
			for id := last; id >= first; id-- {
				ids = append(ids, id)
			}

			ptr, err := r.Resolve(corpus, model.LLMEvidencePointer{DocumentID: 1, SentenceIDs: ids})
			if err != nil {
				t.Fatalf("Resolve %v: %v", ids, err)
			}

			want := content[spans[first].StartChar:spans[last].EndChar]
			if ptr.Text != want {
				t.Errorf("Resolve %v: expected %q, got %q", ids, want, ptr.Text)
			}
		}
	}
}

func TestResolver_Errors(t *testing.T) {
	corpus := testCorpus()
	r := NewResolver(NewIndexer())

	tests := []struct {
		name string
		ptr  model.LLMEvidencePointer
		want error
	}{
		{"non-contiguous", model.LLMEvidencePointer{DocumentID: 1, SentenceIDs: []int{2, 5}}, ErrInvalidEvidence},
		{"empty ids", model.LLMEvidencePointer{DocumentID: 1}, ErrInvalidEvidence},
		{"missing document", model.LLMEvidencePointer{DocumentID: 99, SentenceIDs: []int{0}}, ErrDocumentNotFound},
		{"past end", model.LLMEvidencePointer{DocumentID: 2, SentenceIDs: []int{0, 1}}, ErrOutOfRange},
		{"negative", model.LLMEvidencePointer{DocumentID: 2, SentenceIDs: []int{-1, 0}}, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ptr, err := r.Resolve(corpus, tt.ptr)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if ptr.Verified || ptr.StartOffset != nil {
				t.Errorf("Expected unverified pointer without offsets, got %+v", ptr)
			}
		})
	}
}

func TestRefreshPointer(t *testing.T) {
	text := "Résumé filed. Second sentence."

	fresh := RefreshPointer(model.EvidencePointer{
		DocumentID:  1,
		StartOffset: model.IntPtr(0),
		EndOffset:   model.IntPtr(len("Résumé filed.")),
		Text:        "stale text",
	}, text)
	if !fresh.Verified || fresh.Text != "Résumé filed." {
		t.Errorf("Expected refreshed verified text, got %+v", fresh)
	}

	tests := []struct {
		name       string
		start, end *int
	}{
		{"missing offsets", nil, nil},
		{"past end", model.IntPtr(0), model.IntPtr(len(text) + 1)},
		{"inverted", model.IntPtr(5), model.IntPtr(2)},
		{"mid rune", model.IntPtr(2), model.IntPtr(6)}, // 'é' starts at byte 1
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RefreshPointer(model.EvidencePointer{DocumentID: 1, StartOffset: tt.start, EndOffset: tt.end}, text)
			if got.Verified || got.StartOffset != nil || got.DocumentID != 1 {
				t.Errorf("Expected unverified pointer for document 1, got %+v", got)
			}
		})
	}
}
