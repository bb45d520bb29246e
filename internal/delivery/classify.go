package delivery

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a failed attempt by which remediation can fix it:
// alternate credentials, waiting, an alternate encoding, or nothing.
type Kind int

const (
	KindTransport Kind = iota
	KindAuthorization
	KindRateLimited
	KindFormatUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindRateLimited:
		return "rate_limited"
	case KindFormatUnavailable:
		return "format_unavailable"
	default:
		return "transport"
	}
}

// Error is a classified attempt failure.
type Error struct {
	Kind       Kind
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("delivery failed: kind=%s status=%d", e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("delivery failed: kind=%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("delivery failed: kind=%s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindForStatus classifies an HTTP response code. 403 and 410 mean the
// signed URL was minted for credentials the request did not present.
func KindForStatus(code int) Kind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusGone:
		return KindAuthorization
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusNotFound:
		return KindFormatUnavailable
	default:
		return KindTransport
	}
}

func statusError(code int, retryAfter string) *Error {
	classified := &Error{Kind: KindForStatus(code), Status: code}
	if classified.Kind == KindRateLimited {
		classified.RetryAfter = parseRetryAfter(retryAfter)
	}
	return classified
}

// Classify wraps an arbitrary attempt error. Timeouts are transport
// failures like any other.
func Classify(err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Kind: KindTransport, Err: err}
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}
