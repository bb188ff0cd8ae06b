package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a cache entry is absent or expired
var ErrNotFound = errors.New("not found")

// ValidationError rejects input before any classifier runs
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ArtifactLoadError means the statistical model could not be loaded
type ArtifactLoadError struct {
	Path string
	Err  error
}

func (e *ArtifactLoadError) Error() string {
	return fmt.Sprintf("failed to load classifier artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactLoadError) Unwrap() error { return e.Err }

// GenerativeServiceError wraps a failed call to the generation service
type GenerativeServiceError struct {
	Provider string
	Err      error
}

func (e *GenerativeServiceError) Error() string {
	return fmt.Sprintf("generation service %s failed: %v", e.Provider, e.Err)
}

func (e *GenerativeServiceError) Unwrap() error { return e.Err }

// GenerativeParseError means the judge reply did not match the expected structure
type GenerativeParseError struct {
	Raw string
	Err error
}

func (e *GenerativeParseError) Error() string {
	return fmt.Sprintf("failed to parse generative response: %v", e.Err)
}

func (e *GenerativeParseError) Unwrap() error { return e.Err }

// StoreCorruptionError is a data-integrity warning: the store file exists but
// could not be parsed and has been treated as empty
type StoreCorruptionError struct {
	Path string
	Err  error
}

func (e *StoreCorruptionError) Error() string {
	return fmt.Sprintf("history store %s is corrupt, treated as empty: %v", e.Path, e.Err)
}

func (e *StoreCorruptionError) Unwrap() error { return e.Err }

// StoreIOError is a failed store operation; nothing was applied
type StoreIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreIOError) Error() string {
	return fmt.Sprintf("history store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreIOError) Unwrap() error { return e.Err }

// IsCorruption reports whether err carries a StoreCorruptionError
func IsCorruption(err error) bool {
	var ce *StoreCorruptionError
	return errors.As(err, &ce)
}
