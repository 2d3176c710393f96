package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a provider failure. Only Unavailable and RateLimited are
// retryable; everything else is fatal for the current call.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnavailable
	KindRateLimited
	KindAuth
	KindQuota
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	case KindAuth:
		return "auth"
	case KindQuota:
		return "quota"
	case KindBadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

func (k Kind) Retryable() bool {
	return k == KindUnavailable || k == KindRateLimited
}

// Error is a classified provider failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status from the provider, 0 for transport errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("llm %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.Kind
	}
	return KindUnknown
}

// ClassifyStatus maps a provider HTTP status (plus response body for the
// quota-vs-rate-limit ambiguity on 429) onto a Kind.
func ClassifyStatus(status int, body string) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		// Gemini reports both throttling and exhausted daily quota as 429.
		if strings.Contains(strings.ToLower(body), "quota") {
			return KindQuota
		}
		return KindRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}
