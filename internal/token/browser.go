package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

// entrySurfaces are the platform pages tried in sequence when capturing a
// token. The mobile surface bootstraps fastest; the desktop and music
// subdomains are the fallbacks when it serves a degraded page.
var entrySurfaces = []string{
	"https://m.youtube.com",
	"https://www.youtube.com",
	"https://music.youtube.com",
}

// bootstrapPath is a stable, embeddable watch page used only to trigger
// the normal page bootstrap that emits the token.
const bootstrapPath = "/watch?v=jNQXAC9IVRw"

// tokenProbeJS reads the token value the player config exposes once
// bootstrap attestation has completed.
const tokenProbeJS = `() => {
	if (typeof ytcfg === 'undefined' || !ytcfg.get) { return ''; }
	const cfg = ytcfg.get('WEB_PLAYER_CONTEXT_CONFIGS') || {};
	for (const k in cfg) {
		if (cfg[k] && cfg[k].serializedExperimentIds !== undefined && cfg[k].poToken) {
			return cfg[k].poToken;
		}
	}
	return ytcfg.get('PO_TOKEN') || ytcfg.get('ID_TOKEN') || '';
}`

// consentSelectors match the consent interstitial accept buttons across
// the entry surfaces.
var consentSelectors = []string{
	`button[aria-label*="Accept"]`,
	`button[aria-label*="Accepter"]`,
	`form[action*="consent"] button`,
}

// BrowserFetcher captures proof-of-origin tokens by driving a headless
// browser through a normal page bootstrap. It is the single production
// Fetcher implementation; everything above it depends only on the
// interface.
type BrowserFetcher struct {
	// ControlURL connects to an existing browser instead of launching one.
	ControlURL string
	// SurfaceTimeout bounds the bootstrap of a single entry surface.
	SurfaceTimeout time.Duration
}

// Fetch visits the entry surfaces in sequence, dismisses consent
// interstitials, and polls the page config for a token value.
func (f *BrowserFetcher) Fetch(ctx context.Context, profile persona.Profile) (string, error) {
	browser := rod.New().Context(ctx)
	if f.ControlURL != "" {
		browser = browser.ControlURL(f.ControlURL)
	}
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("browser connect: %w", err)
	}
	defer browser.Close()

	surfaceTimeout := f.SurfaceTimeout
	if surfaceTimeout <= 0 {
		surfaceTimeout = 25 * time.Second
	}

	var lastErr error
	for _, surface := range entrySurfaces {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		value, err := f.captureFromSurface(browser, profile, surface, surfaceTimeout)
		if err == nil && value != "" {
			return value, nil
		}
		if err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no token emitted by any entry surface")
	}
	return "", lastErr
}

func (f *BrowserFetcher) captureFromSurface(browser *rod.Browser, profile persona.Profile, surface string, timeout time.Duration) (string, error) {
	page, err := browser.Page(proto.TargetCreateTarget{URL: surface + bootstrapPath})
	if err != nil {
		return "", fmt.Errorf("open %s: %w", surface, err)
	}
	defer page.Close()

	page = page.Timeout(timeout)
	if ua := strings.TrimSpace(profile.UserAgent); ua != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
	}
	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("load %s: %w", surface, err)
	}

	f.dismissConsent(page)

	// The token appears a beat after load, once the attestation frame has
	// run. Poll instead of waiting for a fixed delay.
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		res, err := page.Eval(tokenProbeJS)
		if err == nil {
			if value := strings.TrimSpace(res.Value.Str()); value != "" {
				return value, nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return "", fmt.Errorf("token not emitted on %s within %s", surface, timeout)
}

func (f *BrowserFetcher) dismissConsent(page *rod.Page) {
	for _, selector := range consentSelectors {
		el, err := page.Timeout(2 * time.Second).Element(selector)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
			_ = page.WaitLoad()
			return
		}
	}
}
