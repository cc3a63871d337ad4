package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies relay failures.
type Kind string

const (
	KindInvalidRequest       Kind = "InvalidRequest"
	KindUpstreamEmpty        Kind = "UpstreamEmpty"
	KindUpstreamMalformed    Kind = "UpstreamMalformed"
	KindUpstreamUnavailable  Kind = "UpstreamUnavailable"
	KindConfigurationMissing Kind = "ConfigurationMissing"
)

// Error is returned by every failing relay operation. Message is what the
// caller shows to the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of a relay error, or "" for anything else.
func KindOf(err error) Kind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}

// HTTPStatus maps an error to the status the analyze endpoint responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUpstreamEmpty, KindUpstreamMalformed, KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

const quotaHint = " (this may be the daily generation limit, please try again later)"

func invalidRequest(err error) *Error {
	return &Error{Kind: KindInvalidRequest, Message: err.Error(), Err: err}
}

func configurationMissing() *Error {
	return &Error{
		Kind:    KindConfigurationMissing,
		Message: "report generation is not configured: set GEMINI_API_KEY in the server environment or .env file",
	}
}

func upstreamEmpty() *Error {
	return &Error{Kind: KindUpstreamEmpty, Message: "the generation service returned no content"}
}

func upstreamMalformed(err error) *Error {
	return &Error{
		Kind:    KindUpstreamMalformed,
		Message: fmt.Sprintf("the generation service returned an invalid report: %v", err),
		Err:     err,
	}
}

func upstreamUnavailable(err error, timeout fmt.Stringer) *Error {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = fmt.Sprintf("the generation service did not respond within %s", timeout)
	case looksLikeQuota(msg):
		msg += quotaHint
	}
	return &Error{Kind: KindUpstreamUnavailable, Message: msg, Err: err}
}

func looksLikeQuota(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "429") ||
		strings.Contains(lower, "quota") ||
		strings.Contains(lower, "resource_exhausted") ||
		strings.Contains(lower, "too many requests")
}
