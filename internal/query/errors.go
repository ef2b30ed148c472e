package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUpstream is returned when the remote catalog could not be fetched
	// after all retries and no earlier copy is cached.
	ErrUpstream = errors.New("query: remote catalog unavailable")
	// ErrStorageWrite is returned when a mutation could not be persisted.
	ErrStorageWrite = errors.New("query: failed to save to storage")
)

// ValidationError carries one message per rejected input field.
type ValidationError struct {
	Fields map[string]string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "query: validation failed: " + strings.Join(parts, "; ")
}
