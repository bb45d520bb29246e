package platform

import (
	"fmt"
	"strings"
)

// StatusError reports a non-200 player API response.
type StatusError struct {
	Persona string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("player api status=%d persona=%s", e.Code, e.Persona)
}

// PlayabilityError reports a well-formed response the platform refuses to
// serve: gated, deleted, or region-blocked content.
type PlayabilityError struct {
	Persona string
	Status  string
	Reason  string
}

func (e *PlayabilityError) Error() string {
	return fmt.Sprintf("unplayable status=%s persona=%s reason=%s", e.Status, e.Persona, e.Reason)
}

// Gated reports whether the denial is an access-control decision that an
// alternate identity or delivery mode might get past, as opposed to the
// content being gone outright.
func (e *PlayabilityError) Gated() bool {
	s := strings.ToUpper(e.Status + " " + e.Reason)
	return strings.Contains(s, "LOGIN") ||
		strings.Contains(s, "SIGN IN") ||
		strings.Contains(s, "AGE") ||
		strings.Contains(s, "EMBED")
}
