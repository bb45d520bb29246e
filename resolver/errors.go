package resolver

import (
	"errors"
	"fmt"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/orchestrator"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/token"
)

var (
	// ErrInvalidIdentifier indicates the input is neither a content id
	// nor a recognized URL shape.
	ErrInvalidIdentifier = errors.New("invalid identifier")
	// ErrExhausted indicates every persona/mode combination failed.
	ErrExhausted = errors.New("resolution exhausted")
	// ErrNoToken indicates a persona could not obtain its
	// proof-of-origin token. Persona-scoped, never fatal on its own.
	ErrNoToken = token.ErrNoToken

	// Failure classes a single attempt can end in. Attempt.Reason
	// returns the one matching the attempt's Kind.
	ErrAuthorization     = errors.New("authorization denied")
	ErrRateLimited       = errors.New("rate limited")
	ErrFormatUnavailable = errors.New("format unavailable")
	ErrTransport         = errors.New("transport failure")
)

// Attempt is one entry of a failed resolution's trial history.
type Attempt struct {
	Persona  string
	Mode     Mode
	FormatID int
	Kind     string
	Status   int
	Err      error
}

// Reason maps the attempt's failure kind onto the package sentinels so
// callers can branch with errors.Is.
func (a Attempt) Reason() error {
	switch a.Kind {
	case "authorization":
		return ErrAuthorization
	case "rate_limited":
		return ErrRateLimited
	case "format_unavailable":
		return ErrFormatUnavailable
	default:
		return ErrTransport
	}
}

// ExhaustedError reports total failure with the ordered history of
// everything that was tried, for logging and alerting.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v: %d attempt(s)", ErrExhausted, len(e.Attempts))
}

func (e *ExhaustedError) Unwrap() error { return ErrExhausted }

// mapError translates internal failures to the public taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var exhausted *orchestrator.ExhaustedError
	if errors.As(err, &exhausted) {
		out := &ExhaustedError{Attempts: make([]Attempt, len(exhausted.Attempts))}
		for i, a := range exhausted.Attempts {
			out.Attempts[i] = Attempt{
				Persona:  a.Persona,
				Mode:     Mode(a.Mode),
				FormatID: a.Format,
				Kind:     a.Kind.String(),
				Status:   a.Status,
				Err:      a.Err,
			}
		}
		return out
	}
	return err
}
