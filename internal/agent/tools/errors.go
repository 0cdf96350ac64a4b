package tools

import "errors"

var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolAlreadyRegistered is returned when registering a duplicate tool name.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrInvalidSchema is returned when a tool's schema does not compile.
	ErrInvalidSchema = errors.New("invalid tool schema")
)
