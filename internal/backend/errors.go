package backend

import (
	"fmt"
	"strings"
)

// StatusError is returned for non-2xx HTTP responses
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend request failed (status %d): %s", e.Code, e.Body)
}

// APIError is returned when the backend answers with success=false
type APIError struct {
	Table   string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend %s: %s", e.Table, e.Message)
}

// FieldError is a validation failure reported for one field of a record
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// RecordFailure describes one record the backend refused to write
type RecordFailure struct {
	Index   int
	Message string
	Errors  []FieldError
}

// RecordErrors collects per-record failures of a bulk write
type RecordErrors struct {
	Table    string
	Failures []RecordFailure
}

func (e *RecordErrors) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs := make([]string, 0, len(f.Errors)+1)
		for _, fe := range f.Errors {
			msgs = append(msgs, fe.FieldLabel+": "+fe.Message)
		}
		if f.Message != "" {
			msgs = append(msgs, f.Message)
		}
		parts = append(parts, fmt.Sprintf("record %d: %s", f.Index, strings.Join(msgs, "; ")))
	}
	return fmt.Sprintf("backend %s: %d record(s) failed: %s", e.Table, len(e.Failures), strings.Join(parts, ", "))
}
