// Package resolver turns an opaque content identifier into a currently
// playable audio stream descriptor. It degrades across client personas
// and delivery modes rather than failing on the first denial, and a
// total failure reports every attempt it made.
package resolver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/creds"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/delivery"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/orchestrator"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/platform"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/playerjs"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/token"
)

// Mode selects how stream bytes reach the player.
type Mode string

const (
	// ModeDirect hands the player a URL; the platform streams to it.
	ModeDirect Mode = Mode(delivery.ModeDirect)
	// ModePiped relays bytes through the engine.
	ModePiped Mode = Mode(delivery.ModePiped)
)

// StreamDescriptor is a playable stream. Direct descriptors carry URL
// and Headers; piped descriptors carry an open Body the caller must
// close.
type StreamDescriptor struct {
	Mode      Mode
	URL       string
	Headers   http.Header
	Body      io.ReadCloser
	Duration  time.Duration
	FormatID  int
	Codec     string
	Container string
	Persona   string
}

// Close releases a piped descriptor's byte stream.
func (d *StreamDescriptor) Close() error {
	if d == nil || d.Body == nil {
		return nil
	}
	return d.Body.Close()
}

// Resolver resolves content identifiers to stream descriptors. Safe
// for concurrent use; concurrent calls share only the token cache.
type Resolver struct {
	engine *orchestrator.Engine
	log    logrus.FieldLogger
}

func New(cfg Config) (*Resolver, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	jar, err := loadCookies(cfg, log)
	if err != nil {
		return nil, err
	}
	var cookieJar http.CookieJar
	if jar != nil {
		cookieJar = jar
	}
	httpClient := buildHTTPClient(cfg, cookieJar)

	personas := persona.Order(cfg.PersonaOrder, jar != nil)

	var pref *negotiate.Preference
	if cfg.FormatPreference != "" {
		pref, err = negotiate.ParsePreference(cfg.FormatPreference)
		if err != nil {
			return nil, err
		}
	}

	var fetcher token.Fetcher
	if !cfg.DisableTokenFetch {
		fetcher = &token.BrowserFetcher{ControlURL: cfg.BrowserControlURL}
	}
	tokens := token.NewProvider(token.Options{
		Fetcher:      fetcher,
		Static:       cfg.StaticTokens,
		TTL:          cfg.TokenTTL,
		FetchTimeout: cfg.TokenFetchTimeout,
		Logger:       log,
	})

	platformClient := platform.NewClient(httpClient, log)
	unlocker := &scriptUnlocker{
		source:   playerjs.NewSource(httpClient, log),
		platform: platformClient,
	}

	var headers func(persona.Profile) http.Header
	if cfg.UserAgent != "" {
		headers = func(persona.Profile) http.Header {
			return http.Header{"User-Agent": {cfg.UserAgent}}
		}
	}

	engine := orchestrator.New(orchestrator.Config{
		Personas:   personas,
		Tokens:     tokens,
		Advertiser: platformClient,
		Unlocker:   unlocker,
		Strategies: []delivery.Strategy{
			&delivery.Direct{HTTPClient: httpClient, PreflightTimeout: cfg.PreflightTimeout, Logger: log},
			&delivery.Piped{HTTPClient: httpClient, OpenTimeout: cfg.OpenTimeout, Logger: log},
		},
		Preference: pref,
		Headers:    headers,
		Backoff: orchestrator.BackoffConfig{
			Initial: cfg.BackoffInitial,
			Max:     cfg.BackoffMax,
			Budget:  cfg.BackoffBudget,
		},
		Logger: log,
	})

	return &Resolver{engine: engine, log: log}, nil
}

// Resolve walks the configured personas and both delivery modes and
// returns the first stream that materializes.
func (r *Resolver) Resolve(ctx context.Context, input string) (*StreamDescriptor, error) {
	cid, err := ExtractContentID(input)
	if err != nil {
		return nil, err
	}
	desc, err := r.engine.Resolve(ctx, cid.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return publicDescriptor(desc), nil
}

// ResolveForced restricts resolution to one delivery mode. This is the
// diagnostic entry point for operational testing.
func (r *Resolver) ResolveForced(ctx context.Context, input string, mode Mode) (*StreamDescriptor, error) {
	cid, err := ExtractContentID(input)
	if err != nil {
		return nil, err
	}
	desc, err := r.engine.ResolveForced(ctx, cid.ID, delivery.Mode(mode))
	if err != nil {
		return nil, mapError(err)
	}
	return publicDescriptor(desc), nil
}

func publicDescriptor(desc *delivery.Descriptor) *StreamDescriptor {
	return &StreamDescriptor{
		Mode:      Mode(desc.Mode),
		URL:       desc.URL,
		Headers:   desc.Headers,
		Body:      desc.Body,
		Duration:  desc.Duration,
		FormatID:  desc.Format.ID,
		Codec:     desc.Format.Codec,
		Container: desc.Format.Container,
		Persona:   desc.Persona,
	}
}

func loadCookies(cfg Config, log logrus.FieldLogger) (*creds.Jar, error) {
	switch {
	case cfg.FirefoxProfile != "":
		jar, err := creds.FromFirefoxProfile(cfg.FirefoxProfile)
		if err != nil {
			return nil, err
		}
		log.WithField("origin", jar.Origin).Info("cookies loaded")
		return jar, nil
	case cfg.CookiesFile != "":
		jar, err := creds.FromFile(cfg.CookiesFile)
		if err != nil {
			return nil, err
		}
		log.WithField("origin", jar.Origin).Info("cookies loaded")
		return jar, nil
	case cfg.CookiesBase64 != "":
		jar, err := creds.FromBase64(cfg.CookiesBase64)
		if err != nil {
			return nil, err
		}
		log.WithField("origin", jar.Origin).Info("cookies loaded")
		return jar, nil
	}
	return nil, nil
}

// scriptUnlocker adapts the player script machinery to the engine: it
// loads the script serving the video, feeds the build timestamp back
// to the platform client, and unlocks the stream reference.
type scriptUnlocker struct {
	source   *playerjs.Source
	platform *platform.Client
}

func (u *scriptUnlocker) Unlock(ctx context.Context, videoID string, stream platform.Stream) (string, error) {
	// Direct URLs without a throttle parameter need no script at all.
	if stream.SignatureCipher == "" && stream.URL != "" && !needsScript(stream.URL) {
		return stream.URL, nil
	}

	script, err := u.source.ScriptForVideo(ctx, videoID)
	if err != nil {
		return "", err
	}
	if ts := script.SignatureTimestamp(); ts != 0 {
		u.platform.SetSignatureTimestamp(ts)
	}

	unlocked, err := playerjs.Unlock(script, stream.URL, stream.SignatureCipher)
	if err != nil {
		if errors.Is(err, playerjs.ErrLocked) {
			return "", &delivery.Error{Kind: delivery.KindFormatUnavailable, Err: err}
		}
		return "", err
	}
	return unlocked, nil
}

func needsScript(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Query().Get("n") != ""
}
