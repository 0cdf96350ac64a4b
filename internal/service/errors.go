package service

import "errors"

var (
	// ErrNoDocuments is returned for a nil or empty corpus
	ErrNoDocuments = errors.New("case has no documents")

	// ErrExtractionFailed wraps failures of the agent run
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrInvalidValueID is returned for a malformed presentation value id
	ErrInvalidValueID = errors.New("invalid value id")

	// ErrValueNotFound is returned when a value id does not match a stored value
	ErrValueNotFound = errors.New("value not found")

	// ErrUnknownCategory is returned for a category id outside the registry
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidUserItem is returned for a user item that cannot be stored
	ErrInvalidUserItem = errors.New("invalid user item")
)
