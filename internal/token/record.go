package token

import (
	"errors"
	"fmt"
	"time"
)

// Origin tells how a token record was obtained.
type Origin string

const (
	// OriginAuto marks tokens captured by the automatic browser fetcher.
	OriginAuto Origin = "auto"
	// OriginStatic marks operator-configured fallback tokens.
	OriginStatic Origin = "static"
)

// Record is one cached proof-of-origin token.
type Record struct {
	Value     string
	Persona   string
	FetchedAt time.Time
	TTL       time.Duration
	Origin    Origin
}

// Valid reports whether the record is still usable at the given instant.
// Static records never expire; automatic ones live for their TTL.
func (r Record) Valid(now time.Time) bool {
	if r.Value == "" {
		return false
	}
	if r.Origin == OriginStatic || r.TTL <= 0 {
		return true
	}
	return now.Before(r.FetchedAt.Add(r.TTL))
}

// ErrNoToken indicates a persona could not be given a token. It is scoped
// to that persona only and never fatal to an overall resolution.
var ErrNoToken = errors.New("no proof-of-origin token")

// NoTokenError carries the persona the denial applies to.
type NoTokenError struct {
	Persona string
	Cause   error
}

func (e *NoTokenError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no proof-of-origin token for persona=%s: %v", e.Persona, e.Cause)
	}
	return fmt.Sprintf("no proof-of-origin token for persona=%s", e.Persona)
}

func (e *NoTokenError) Unwrap() error { return ErrNoToken }
