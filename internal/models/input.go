package models

import (
	"errors"
	"strings"
)

// ErrURLRequired is returned when an analysis request has no product URL.
var ErrURLRequired = errors.New("url is required")

// AnalysisInput is one submission of a product for analysis.
type AnalysisInput struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Region      string `json:"region,omitempty"`
	Language    string `json:"language,omitempty"`
}

func (in AnalysisInput) Validate() error {
	if strings.TrimSpace(in.URL) == "" {
		return ErrURLRequired
	}
	return nil
}
