package model

// SentenceSpan is one sentence of a document with its byte offsets in the document text
type SentenceSpan struct {
	SentenceID int    `json:"sentence_id"` // 0-based, contiguous
	StartChar  int    `json:"start_char"`  // Inclusive byte offset
	EndChar    int    `json:"end_char"`    // Exclusive byte offset
	Text       string `json:"text"`
}

// EvidencePointer grounds an extracted value in a document range.
// Verified=false with nil offsets signals that the range could not be resolved.
type EvidencePointer struct {
	DocumentID  int    `json:"document_id"`
	StartOffset *int   `json:"start_offset,omitempty"`
	EndOffset   *int   `json:"end_offset,omitempty"`
	Text        string `json:"text,omitempty"`
	Verified    bool   `json:"verified"`
}

// HasRange reports whether the pointer carries a usable offset range
func (p EvidencePointer) HasRange() bool {
	return p.StartOffset != nil && p.EndOffset != nil && *p.StartOffset >= 0 && *p.StartOffset < *p.EndOffset
}

// Clone returns a copy that shares no pointers with p
func (p EvidencePointer) Clone() EvidencePointer {
	out := p
	if p.StartOffset != nil {
		v := *p.StartOffset
		out.StartOffset = &v
	}
	if p.EndOffset != nil {
		v := *p.EndOffset
		out.EndOffset = &v
	}
	return out
}

// LLMEvidencePointer is the agent-facing citation before resolution
type LLMEvidencePointer struct {
	DocumentID  int   `json:"document_id"`
	SentenceIDs []int `json:"sentence_ids"`
}

// EvidenceItem is one extracted fact for a checklist key
type EvidenceItem struct {
	BinID    string          `json:"bin_id"` // Checklist key
	Value    string          `json:"value"`
	Evidence EvidencePointer `json:"evidence"`
}

// EvidenceCollection is the ordered result of an extraction run.
// Item order is extraction order and must be preserved.
type EvidenceCollection struct {
	Items []EvidenceItem `json:"items"`
}

// Clone returns a deep copy of the collection
func (c EvidenceCollection) Clone() EvidenceCollection {
	items := make([]EvidenceItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = item
		items[i].Evidence = item.Evidence.Clone()
	}
	return EvidenceCollection{Items: items}
}

// ByBin returns the items for a checklist key in collection order
func (c EvidenceCollection) ByBin(binID string) []EvidenceItem {
	var out []EvidenceItem
	for _, item := range c.Items {
		if item.BinID == binID {
			out = append(out, item)
		}
	}
	return out
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
