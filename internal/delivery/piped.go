package delivery

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
)

const defaultOpenTimeout = 15 * time.Second

// Piped opens the byte stream itself and relays it to the player.
// Only the initial handshake is validated; the returned body streams
// for as long as the player keeps reading.
type Piped struct {
	HTTPClient  *http.Client
	OpenTimeout time.Duration
	Logger      logrus.FieldLogger
}

func (p *Piped) Mode() Mode { return ModePiped }

func (p *Piped) Materialize(ctx context.Context, req Request) (*Descriptor, error) {
	if req.Format.Class == negotiate.ClassSegmented {
		return p.relaySegments(ctx, req)
	}

	openTimeout := p.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}

	// The handshake is bounded but the stream itself is not: reading
	// continues long past any sane open timeout. A timer that only
	// covers the header exchange gets both.
	streamCtx, cancel := context.WithCancel(ctx)
	handshake := time.AfterFunc(openTimeout, cancel)

	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		handshake.Stop()
		cancel()
		return nil, Classify(err)
	}
	applyHeaders(httpReq, req.Headers)

	resp, err := p.httpClient().Do(httpReq)
	if !handshake.Stop() {
		if resp != nil {
			resp.Body.Close()
		}
		cancel()
		return nil, &Error{Kind: KindTransport, Err: context.DeadlineExceeded}
	}
	if err != nil {
		cancel()
		return nil, Classify(err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		cancel()
		return nil, statusError(resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"persona": req.Persona,
			"itag":    req.Format.ID,
			"status":  resp.StatusCode,
		}).Debug("piped stream open")
	}
	return &Descriptor{
		Mode:     ModePiped,
		Persona:  req.Persona,
		Format:   req.Format,
		Duration: req.Duration,
		Body:     &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (p *Piped) httpClient() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return http.DefaultClient
}

type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
