package extract

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences_Basic(t *testing.T) {
	spans := SplitSentences("A. B. C.")
	if len(spans) != 3 {
		t.Fatalf("Expected 3 sentences, got %d: %+v", len(spans), spans)
	}

	want := []string{"A.", "B.", "C."}
	for i, span := range spans {
		if span.SentenceID != i {
			t.Errorf("Span %d: expected id %d, got %d", i, i, span.SentenceID)
		}
		if span.Text != want[i] {
			t.Errorf("Span %d: expected %q, got %q", i, want[i], span.Text)
		}
	}

	if spans[1].StartChar != 3 || spans[1].EndChar != 5 {
		t.Errorf("Expected second span [3,5), got [%d,%d)", spans[1].StartChar, spans[1].EndChar)
	}
}

func TestSplitSentences_OffsetsMatchText(t *testing.T) {
	text := "  Señor López filed the complaint.   The court dismissed it.\n\nAppeal followed.  "
	spans := SplitSentences(text)
	if len(spans) != 3 {
		t.Fatalf("Expected 3 sentences, got %d: %+v", len(spans), spans)
	}

	for _, span := range spans {
		if text[span.StartChar:span.EndChar] != span.Text {
			t.Errorf("Span %d text %q does not match document slice %q",
				span.SentenceID, span.Text, text[span.StartChar:span.EndChar])
		}
	}

	if spans[0].Text != "Señor López filed the complaint." {
		t.Errorf("Unexpected first sentence %q", spans[0].Text)
	}
	if spans[2].Text != "Appeal followed." {
		t.Errorf("Unexpected last sentence %q", spans[2].Text)
	}
}

func TestSplitSentences_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		if spans := SplitSentences(text); len(spans) != 0 {
			t.Errorf("Expected no spans for %q, got %d", text, len(spans))
		}
	}
}

func TestIndexer_Idempotent(t *testing.T) {
	ix := NewIndexer()
	text := "The motion was granted. Costs were awarded."

	first := ix.Index("case-1", 1, text)
	second := ix.Index("case-1", 1, text)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical spans, got %+v and %+v", first, second)
	}

	cached, ok := ix.Spans("case-1", 1)
	if !ok {
		t.Fatal("Expected cached spans")
	}
	if !reflect.DeepEqual(first, cached) {
		t.Errorf("Expected cached spans to equal computed spans")
	}
}

func TestIndexer_RebuildsOnTextChange(t *testing.T) {
	ix := NewIndexer()

	before := ix.Index("case-1", 1, "One. Two.")
	after := ix.Index("case-1", 1, "One. Two. Three.")

	if len(before) != 2 || len(after) != 3 {
		t.Errorf("Expected 2 then 3 spans, got %d then %d", len(before), len(after))
	}
}

func TestIndexer_CopiedTextReusesSpans(t *testing.T) {
	ix := NewIndexer()
	text := "The motion was granted. Costs were awarded."

	first := ix.Index("case-1", 1, text)
	copied := ix.Index("case-1", 1, strings.Clone(text))
	again := ix.Index("case-1", 1, strings.Clone(text))

	if &first[0] != &copied[0] || &first[0] != &again[0] {
		t.Error("Expected an equal copy of the text to reuse the cached spans")
	}

	// Same length, different text
	changed := ix.Index("case-1", 1, "The motion was denied!! Costs were awarded.")
	if len(changed) == 0 || changed[0].Text != "The motion was denied!!" {
		t.Errorf("Expected spans rebuilt for changed text, got %+v", changed)
	}
	if &changed[0] == &first[0] {
		t.Error("Expected changed text to rebuild the entry")
	}
}

func TestIndexer_Forget(t *testing.T) {
	ix := NewIndexer()
	ix.Index("case-1", 1, "One.")
	ix.Index("case-1", 2, "Two.")
	ix.Index("case-2", 1, "Other.")

	ix.Forget("case-1")

	if _, ok := ix.Spans("case-1", 1); ok {
		t.Error("Expected case-1 doc 1 to be forgotten")
	}
	if _, ok := ix.Spans("case-1", 2); ok {
		t.Error("Expected case-1 doc 2 to be forgotten")
	}
	if _, ok := ix.Spans("case-2", 1); !ok {
		t.Error("Expected case-2 to stay cached")
	}
}

func TestSentenceAt(t *testing.T) {
	spans := SplitSentences("A. B. C.")

	tests := []struct {
		offset int
		want   int
	}{
		{0, 0},
		{1, 0},
		{2, 1}, // Gap before "B." belongs to the next sentence
		{3, 1},
		{7, 2},
		{100, 2},
	}

	for _, tt := range tests {
		if got := SentenceAt(spans, tt.offset); got != tt.want {
			t.Errorf("SentenceAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}

	if got := SentenceAt(nil, 0); got != -1 {
		t.Errorf("Expected -1 for no spans, got %d", got)
	}
}
