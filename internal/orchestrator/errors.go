package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/delivery"
)

// Attempt records one trial of the persona/mode walk. Mode is empty
// when the persona failed before any delivery was attempted, e.g. the
// platform refused to advertise formats at all.
type Attempt struct {
	Persona string
	Mode    delivery.Mode
	Format  int
	Kind    delivery.Kind
	Status  int
	Err     error
}

func (a Attempt) String() string {
	var b strings.Builder
	b.WriteString(a.Persona)
	if a.Mode != "" {
		b.WriteString("/")
		b.WriteString(string(a.Mode))
	}
	fmt.Fprintf(&b, " kind=%s", a.Kind)
	if a.Format != 0 {
		fmt.Fprintf(&b, " itag=%d", a.Format)
	}
	if a.Status != 0 {
		fmt.Fprintf(&b, " status=%d", a.Status)
	}
	return b.String()
}

// ExhaustedError is returned when every persona/mode combination has
// been tried. Attempts preserve trial order for diagnosis.
type ExhaustedError struct {
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "resolution exhausted: no personas to try"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.String()
	}
	return fmt.Sprintf("resolution exhausted after %d attempt(s): %s",
		len(e.Attempts), strings.Join(parts, "; "))
}
