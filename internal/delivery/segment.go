package delivery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// relaySegments pipes a segmented stream: the manifest is polled and
// each new media segment is fetched in order and relayed through an
// io.Pipe. Live manifests are re-polled every target duration until
// the end-list marker appears.
func (p *Piped) relaySegments(ctx context.Context, req Request) (*Descriptor, error) {
	openTimeout := p.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}

	manifestCtx, cancelOpen := context.WithTimeout(ctx, openTimeout)
	mediaURL, err := p.resolveMediaPlaylist(manifestCtx, req.URL, req.Headers)
	cancelOpen()
	if err != nil {
		return nil, err
	}

	relayCtx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	go func() {
		err := p.relayLoop(relayCtx, mediaURL, req.Headers, pw)
		pw.CloseWithError(err)
	}()

	return &Descriptor{
		Mode:     ModePiped,
		Persona:  req.Persona,
		Format:   req.Format,
		Duration: req.Duration,
		Body:     &cancelReadCloser{ReadCloser: pr, cancel: cancel},
	}, nil
}

// resolveMediaPlaylist follows a master playlist down to its media
// playlist. The manifest advertised for audio candidates usually is a
// master with one variant per bitrate; the lowest-bandwidth variant is
// the audio rendition.
func (p *Piped) resolveMediaPlaylist(ctx context.Context, manifestURL string, headers http.Header) (string, error) {
	manifest, err := p.fetchText(ctx, manifestURL, headers)
	if err != nil {
		return "", err
	}
	if !strings.Contains(manifest, "#EXT-X-STREAM-INF") {
		return manifestURL, nil
	}

	bestURL := ""
	bestBandwidth := -1
	scanner := bufio.NewScanner(strings.NewReader(manifest))
	pendingBandwidth := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			pendingBandwidth = parseBandwidth(line)
			continue
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if bestBandwidth == -1 || pendingBandwidth < bestBandwidth {
			bestBandwidth = pendingBandwidth
			bestURL = resolveRef(manifestURL, line)
		}
	}
	if bestURL == "" {
		return "", &Error{Kind: KindFormatUnavailable, Err: fmt.Errorf("master playlist has no variants")}
	}
	return bestURL, nil
}

func (p *Piped) relayLoop(ctx context.Context, mediaURL string, headers http.Header, w io.Writer) error {
	lastSeq := -1
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		manifest, err := p.fetchText(ctx, mediaURL, headers)
		if err != nil {
			return err
		}
		segments, targetDuration := parseMediaPlaylist(manifest, mediaURL)

		for _, seg := range segments {
			if seg.seq <= lastSeq {
				continue
			}
			if err := p.relaySegment(ctx, seg.url, headers, w); err != nil {
				return fmt.Errorf("segment seq=%d: %w", seg.seq, err)
			}
			lastSeq = seg.seq
		}

		if strings.Contains(manifest, "#EXT-X-ENDLIST") {
			return io.EOF
		}

		wait := time.Duration(targetDuration * float64(time.Second))
		if wait <= 0 {
			wait = 5 * time.Second
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (p *Piped) relaySegment(ctx context.Context, segURL string, headers http.Header, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, segURL, nil)
	if err != nil {
		return err
	}
	applyHeaders(req, headers)
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, resp.Header.Get("Retry-After"))
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (p *Piped) fetchText(ctx context.Context, rawURL string, headers http.Header) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", Classify(err)
	}
	applyHeaders(req, headers)
	resp, err := p.httpClient().Do(req)
	if err != nil {
		return "", Classify(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, resp.Header.Get("Retry-After"))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Classify(err)
	}
	return string(body), nil
}

type mediaSegment struct {
	url string
	seq int
}

func parseMediaPlaylist(manifest, manifestURL string) ([]mediaSegment, float64) {
	var segments []mediaSegment
	var targetDuration float64
	seq := 0

	scanner := bufio.NewScanner(strings.NewReader(manifest))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			if v, err := strconv.ParseFloat(line[len("#EXT-X-TARGETDURATION:"):], 64); err == nil {
				targetDuration = v
			}
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			if v, err := strconv.Atoi(line[len("#EXT-X-MEDIA-SEQUENCE:"):]); err == nil {
				seq = v
			}
		case line == "" || strings.HasPrefix(line, "#"):
		default:
			segments = append(segments, mediaSegment{url: resolveRef(manifestURL, line), seq: seq})
			seq++
		}
	}
	return segments, targetDuration
}

func parseBandwidth(streamInf string) int {
	for _, attr := range strings.Split(streamInf[len("#EXT-X-STREAM-INF:"):], ",") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(attr), "BANDWIDTH="); ok {
			if bw, err := strconv.Atoi(v); err == nil {
				return bw
			}
		}
	}
	return 0
}

func resolveRef(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
