package model

// Document is one case document as materialized by the corpus provider
type Document struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Type      string `json:"type" yaml:"type"`                               // e.g. "complaint", "docket", "order"
	Content   string `json:"content" yaml:"-"`                               // Normalized plain text
	IsDocket  bool   `json:"is_docket,omitempty" yaml:"is_docket,omitempty"` // Docket sheets sort first in signatures
	ECFNumber string `json:"ecf_number,omitempty" yaml:"ecf_number,omitempty"`
	Date      string `json:"date,omitempty" yaml:"date,omitempty"`
}

// Corpus is the full document set of one case
type Corpus struct {
	CaseID    string     `json:"case_id"`
	CaseName  string     `json:"case_name"`
	Documents []Document `json:"documents"`
}

// Document returns the document with the given id
func (c *Corpus) Document(id int) (*Document, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Documents {
		if c.Documents[i].ID == id {
			return &c.Documents[i], true
		}
	}
	return nil, false
}
