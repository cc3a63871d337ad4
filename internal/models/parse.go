package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrEmptyReport is returned by ParseReport when there is nothing to parse.
var ErrEmptyReport = errors.New("report text is empty")

// ValidationError reports generator output that is not a well-formed report.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("malformed report: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ParseReport decodes generator output into a fully populated ReachReport.
// Markdown code fences around the JSON are tolerated. Missing lists come back
// empty; wrong JSON types or a non-object root are a *ValidationError.
func ParseReport(text string) (*ReachReport, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, ErrEmptyReport
	}
	if cleaned[0] != '{' {
		return nil, &ValidationError{Err: errors.New("top-level value is not an object")}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	var report ReachReport
	if err := dec.Decode(&report); err != nil {
		return nil, &ValidationError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{Err: errors.New("unexpected data after report object")}
	}

	report.Normalize()
	return &report, nil
}

func stripFences(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
