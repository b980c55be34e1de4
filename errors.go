package otl

import "errors"

// Sentinel errors.
var (
	// ErrParse is returned when a source cannot be parsed into a tree.
	ErrParse = errors.New("otl: parse error")

	// ErrConfigNotFound is returned when no config file exists in the
	// directory or any of its parents.
	ErrConfigNotFound = errors.New("otl: config file not found")

	// ErrUnknownSink is returned when an export sink name is not registered.
	ErrUnknownSink = errors.New("otl: unknown sink")
)
