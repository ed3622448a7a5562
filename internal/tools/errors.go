package tools

import "errors"

// Tool dispatch errors.
var (
	// ErrUnknownTool is returned for a name outside the closed tool vocabulary.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrNotRegistered is returned when a known tool has no handler installed.
	ErrNotRegistered = errors.New("tool not registered")

	// ErrHandlerNil is returned when registering a nil handler.
	ErrHandlerNil = errors.New("tool handler cannot be nil")

	// ErrAlreadyRegistered is returned when registering a duplicate handler.
	ErrAlreadyRegistered = errors.New("tool already registered")

	// ErrMissingRequiredArg is returned when a mutating tool call lacks a
	// required argument.
	ErrMissingRequiredArg = errors.New("missing required argument")
)
