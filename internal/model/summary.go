package model

// ExtractionSummary is the compact outcome of extracting one case
type ExtractionSummary struct {
	CaseID            string `json:"case_id"`
	CaseName          string `json:"case_name"`
	Signature         string `json:"signature"`
	CombinedSignature string `json:"combined_signature"`
	Source            string `json:"source"` // memory, store or extraction
	Items             int    `json:"items"`
	Filled            int    `json:"filled"`
	Empty             int    `json:"empty"`
	Total             int    `json:"total"`
	Steps             int    `json:"steps,omitempty"`
	State             string `json:"state,omitempty"`
}
