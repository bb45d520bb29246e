// Package delivery materializes negotiated stream candidates. Direct
// delivery validates a signed URL and hands it to the player, piped
// delivery opens the byte stream and relays it through the engine.
package delivery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
)

// Mode names a delivery strategy.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModePiped  Mode = "piped"
)

// Request is one materialization attempt: an unlocked stream URL plus
// the context the attempt runs under.
type Request struct {
	URL      string
	Headers  http.Header
	Format   negotiate.Candidate
	Persona  string
	Duration time.Duration
}

// Descriptor is a playable stream. Direct descriptors carry the URL
// and the headers the player must send; piped descriptors carry an
// open byte stream instead.
type Descriptor struct {
	Mode     Mode
	Persona  string
	Format   negotiate.Candidate
	Duration time.Duration

	// Direct delivery.
	URL     string
	Headers http.Header

	// Piped delivery.
	Body io.ReadCloser
}

// Close releases the piped byte stream. It is a no-op for direct
// descriptors.
func (d *Descriptor) Close() error {
	if d == nil || d.Body == nil {
		return nil
	}
	return d.Body.Close()
}

// Strategy executes one delivery mode.
type Strategy interface {
	Mode() Mode
	Materialize(ctx context.Context, req Request) (*Descriptor, error)
}

func applyHeaders(req *http.Request, headers http.Header) {
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, vals := range h {
		cp := make([]string, len(vals))
		copy(cp, vals)
		out[k] = cp
	}
	return out
}
