package extract

import "errors"

// Evidence resolution errors
var (
	// ErrInvalidEvidence is returned for empty or non-contiguous sentence id sets
	ErrInvalidEvidence = errors.New("invalid evidence")

	// ErrDocumentNotFound is returned when the cited document is not in the corpus
	ErrDocumentNotFound = errors.New("document not found")

	// ErrOutOfRange is returned when a cited sentence id is outside the document
	ErrOutOfRange = errors.New("sentence id out of range")
)
