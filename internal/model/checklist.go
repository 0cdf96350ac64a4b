package model

import "time"

// CategoryMetadata groups checklist keys for presentation
type CategoryMetadata struct {
	ID      string   `json:"id" yaml:"id"`
	Label   string   `json:"label" yaml:"label"`
	Color   string   `json:"color" yaml:"color"`
	Members []string `json:"members,omitempty" yaml:"members"`
}

// StoredUserChecklistItem is a manually added fact. It is verified by construction.
type StoredUserChecklistItem struct {
	ID          string    `json:"id"` // uuid
	CategoryID  string    `json:"category_id"`
	Value       string    `json:"value"`
	DocumentID  *int      `json:"document_id,omitempty"`
	StartOffset *int      `json:"start_offset,omitempty"`
	EndOffset   *int      `json:"end_offset,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoredDocumentChecklist is the durable extraction result for one case.
// Signature binds it to an exact document set and checklist version.
type StoredDocumentChecklist struct {
	Signature string                    `json:"signature"`
	Items     EvidenceCollection        `json:"items"`
	UserItems []StoredUserChecklistItem `json:"user_items,omitempty"`
	Version   string                    `json:"version"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// Clone returns a deep copy of the stored checklist
func (s *StoredDocumentChecklist) Clone() *StoredDocumentChecklist {
	if s == nil {
		return nil
	}
	out := *s
	out.Items = s.Items.Clone()
	out.UserItems = make([]StoredUserChecklistItem, len(s.UserItems))
	for i, u := range s.UserItems {
		out.UserItems[i] = u
		if u.DocumentID != nil {
			out.UserItems[i].DocumentID = IntPtr(*u.DocumentID)
		}
		if u.StartOffset != nil {
			out.UserItems[i].StartOffset = IntPtr(*u.StartOffset)
		}
		if u.EndOffset != nil {
			out.UserItems[i].EndOffset = IntPtr(*u.EndOffset)
		}
	}
	return &out
}

// EvidenceCategoryValue is one presented value inside a category
type EvidenceCategoryValue struct {
	ID          string `json:"id"` // ai::<bin>::<n> or user::<uuid>
	Value       string `json:"value"`
	Text        string `json:"text,omitempty"`
	DocumentID  *int   `json:"document_id,omitempty"`
	StartOffset *int   `json:"start_offset,omitempty"`
	EndOffset   *int   `json:"end_offset,omitempty"`
	Verified    bool   `json:"verified"`
	Source      string `json:"source"` // "ai" or "user"
}

// EvidenceCategory is a category with its ordered values
type EvidenceCategory struct {
	ID     string                  `json:"id"`
	Label  string                  `json:"label"`
	Color  string                  `json:"color"`
	Values []EvidenceCategoryValue `json:"values"`
}

// EvidenceCategoryCollection is the presentation projection of a stored checklist
type EvidenceCategoryCollection struct {
	Signature         string             `json:"signature"`
	CombinedSignature string             `json:"combined_signature"`
	Categories        []EvidenceCategory `json:"categories"`
}
