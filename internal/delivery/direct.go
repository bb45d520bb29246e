package delivery

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultPreflightTimeout = 10 * time.Second
	defaultPreflightBytes   = 1024
)

// Direct validates a signed URL with a bounded partial read and hands
// the URL itself to the player. Signed URLs expire and are bound to
// the requesting identity, so a URL that preflights now is playable
// now; nothing stronger is promised.
type Direct struct {
	HTTPClient       *http.Client
	PreflightTimeout time.Duration
	PreflightBytes   int64
	Logger           logrus.FieldLogger
}

func (d *Direct) Mode() Mode { return ModeDirect }

func (d *Direct) Materialize(ctx context.Context, req Request) (*Descriptor, error) {
	timeout := d.PreflightTimeout
	if timeout <= 0 {
		timeout = defaultPreflightTimeout
	}
	limit := d.PreflightBytes
	if limit <= 0 {
		limit = defaultPreflightBytes
	}

	preflightCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	probe, err := http.NewRequestWithContext(preflightCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, Classify(err)
	}
	applyHeaders(probe, req.Headers)
	probe.Header.Set("Range", "bytes=0-"+strconv.FormatInt(limit-1, 10))

	resp, err := d.httpClient().Do(probe)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, statusError(resp.StatusCode, resp.Header.Get("Retry-After"))
	}
	n, err := io.Copy(io.Discard, io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, Classify(err)
	}
	if n == 0 {
		return nil, &Error{Kind: KindTransport, Err: io.ErrUnexpectedEOF}
	}

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"persona": req.Persona,
			"itag":    req.Format.ID,
			"bytes":   n,
		}).Debug("direct preflight ok")
	}
	return &Descriptor{
		Mode:     ModeDirect,
		Persona:  req.Persona,
		Format:   req.Format,
		Duration: req.Duration,
		URL:      req.URL,
		Headers:  cloneHeader(req.Headers),
	}, nil
}

func (d *Direct) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return http.DefaultClient
}
