// Package orchestrator walks the persona/mode matrix for one
// resolution call. The walk is strictly sequential: persona order
// encodes operator-tuned priority, and every attempt lands in an
// ordered history so a failed resolution can be diagnosed from the
// returned error alone.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/delivery"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/platform"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/token"
)

// Advertiser asks the platform what a persona may stream.
type Advertiser interface {
	Advertise(ctx context.Context, profile persona.Profile, videoID, token string) (*platform.Advertisement, error)
}

// TokenSource supplies proof-of-origin tokens for tokened personas.
type TokenSource interface {
	Token(ctx context.Context, profile persona.Profile) (token.Record, error)
}

// Unlocker turns an advertised stream reference into a playable URL.
type Unlocker interface {
	Unlock(ctx context.Context, videoID string, stream platform.Stream) (string, error)
}

// Config assembles an Engine. Personas, Advertiser, Unlocker and at
// least one strategy are required; everything else has a default.
type Config struct {
	Personas   []persona.Profile
	Tokens     TokenSource
	Advertiser Advertiser
	Unlocker   Unlocker
	Strategies []delivery.Strategy
	Preference *negotiate.Preference
	Headers    func(persona.Profile) http.Header
	Backoff    BackoffConfig
	Logger     logrus.FieldLogger

	// Sleep is the delay primitive used between rate-limited
	// attempts. Tests inject a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

type Engine struct {
	personas   []persona.Profile
	tokens     TokenSource
	advertiser Advertiser
	unlocker   Unlocker
	strategies []delivery.Strategy
	pref       *negotiate.Preference
	headers    func(persona.Profile) http.Header
	backoff    BackoffConfig
	sleep      func(ctx context.Context, d time.Duration) error
	log        logrus.FieldLogger
}

func New(cfg Config) *Engine {
	headers := cfg.Headers
	if headers == nil {
		headers = func(p persona.Profile) http.Header {
			return http.Header{"User-Agent": {p.UserAgent}}
		}
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = waitBackoff
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		personas:   cfg.Personas,
		tokens:     cfg.Tokens,
		advertiser: cfg.Advertiser,
		unlocker:   cfg.Unlocker,
		strategies: cfg.Strategies,
		pref:       cfg.Preference,
		headers:    headers,
		backoff:    cfg.Backoff.withDefaults(),
		sleep:      sleep,
		log:        log,
	}
}

// Resolve walks personas in priority order and delivery modes in
// strategy order, returning the first descriptor that materializes.
// Failure is always an *ExhaustedError carrying the attempt history,
// unless the caller's context ended first.
func (e *Engine) Resolve(ctx context.Context, videoID string) (*delivery.Descriptor, error) {
	return e.resolve(ctx, videoID, e.strategies)
}

// ResolveForced restricts the walk to a single delivery mode. It backs
// the diagnostic entry point used for operational testing.
func (e *Engine) ResolveForced(ctx context.Context, videoID string, mode delivery.Mode) (*delivery.Descriptor, error) {
	for _, strat := range e.strategies {
		if strat.Mode() == mode {
			return e.resolve(ctx, videoID, []delivery.Strategy{strat})
		}
	}
	return nil, fmt.Errorf("no strategy configured for mode %q", mode)
}

func (e *Engine) resolve(ctx context.Context, videoID string, strategies []delivery.Strategy) (*delivery.Descriptor, error) {
	bo := e.backoff.newBackOff()
	var attempts []Attempt

	for _, profile := range e.personas {
		desc, err := e.tryPersona(ctx, videoID, profile, strategies, bo, &attempts)
		if desc != nil {
			return desc, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, &ExhaustedError{Attempts: attempts}
}

// tryPersona runs one persona through the mode walk. A nil, nil return
// means the persona is abandoned and the walk advances; a non-nil
// error aborts the whole resolution (context ended).
func (e *Engine) tryPersona(
	ctx context.Context,
	videoID string,
	profile persona.Profile,
	strategies []delivery.Strategy,
	bo *backoff.ExponentialBackOff,
	attempts *[]Attempt,
) (*delivery.Descriptor, error) {
	log := e.log.WithFields(logrus.Fields{"persona": profile.Alias, "video": videoID})

	tok := ""
	if profile.RequiresToken && e.tokens != nil {
		rec, err := e.tokens.Token(ctx, profile)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Warn("persona has no token, skipping")
			*attempts = append(*attempts, Attempt{Persona: profile.Alias, Kind: delivery.KindAuthorization, Err: err})
			return nil, nil
		}
		tok = rec.Value
	}

	adv, err := e.advertise(ctx, videoID, profile, tok, bo, attempts)
	if err != nil || adv == nil {
		return nil, err
	}

	for _, strat := range strategies {
		desc, abandon, err := e.tryMode(ctx, videoID, profile, adv, strat, bo, attempts, log)
		if desc != nil || err != nil {
			return desc, err
		}
		if abandon {
			return nil, nil
		}
	}
	return nil, nil
}

// advertise fetches the persona's format advertisement, absorbing rate
// limits with backoff up to the budget. nil, nil means the persona was
// abandoned with its failure recorded.
func (e *Engine) advertise(
	ctx context.Context,
	videoID string,
	profile persona.Profile,
	tok string,
	bo *backoff.ExponentialBackOff,
	attempts *[]Attempt,
) (*platform.Advertisement, error) {
	for try := 0; ; try++ {
		adv, err := e.advertiser.Advertise(ctx, profile, videoID, tok)
		if err == nil {
			return adv, nil
		}
		classified := classifyPlatformError(err)
		if classified.Kind == delivery.KindRateLimited && try < e.backoff.Budget {
			if err := e.delay(ctx, bo, classified); err != nil {
				return nil, err
			}
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		*attempts = append(*attempts, Attempt{
			Persona: profile.Alias,
			Kind:    classified.Kind,
			Status:  classified.Status,
			Err:     err,
		})
		return nil, nil
	}
}

// tryMode runs one persona/mode pair including its internal retries.
// abandon reports that the persona should not try further modes.
func (e *Engine) tryMode(
	ctx context.Context,
	videoID string,
	profile persona.Profile,
	adv *platform.Advertisement,
	strat delivery.Strategy,
	bo *backoff.ExponentialBackOff,
	attempts *[]Attempt,
	log logrus.FieldLogger,
) (desc *delivery.Descriptor, abandon bool, err error) {
	mode := strat.Mode()
	cand, ok := negotiate.Select(adv.Candidates, e.pref)
	if !ok {
		*attempts = append(*attempts, Attempt{
			Persona: profile.Alias,
			Mode:    mode,
			Kind:    delivery.KindFormatUnavailable,
			Err:     fmt.Errorf("no format candidates advertised"),
		})
		return nil, true, nil
	}

	legacyTried := false
	budgetUsed := 0
	for {
		desc, attemptErr := e.attempt(ctx, videoID, profile, adv, cand, strat)
		if attemptErr == nil {
			log.WithFields(logrus.Fields{"mode": mode, "itag": cand.ID}).Info("stream resolved")
			return desc, false, nil
		}
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}

		classified := delivery.Classify(attemptErr)
		*attempts = append(*attempts, Attempt{
			Persona: profile.Alias,
			Mode:    mode,
			Format:  cand.ID,
			Kind:    classified.Kind,
			Status:  classified.Status,
			Err:     attemptErr,
		})
		log.WithFields(logrus.Fields{
			"mode": mode, "itag": cand.ID, "kind": classified.Kind.String(),
		}).Warn("attempt failed")

		switch classified.Kind {
		case delivery.KindAuthorization:
			// Direct denial may still stream piped for the same
			// persona; a piped denial exhausts the persona.
			return nil, mode == delivery.ModePiped, nil
		case delivery.KindRateLimited:
			if budgetUsed >= e.backoff.Budget {
				return nil, false, nil
			}
			budgetUsed++
			if err := e.delay(ctx, bo, classified); err != nil {
				return nil, false, err
			}
		case delivery.KindFormatUnavailable:
			if legacyTried {
				return nil, true, nil
			}
			legacyTried = true
			cand = negotiate.LegacyProgressive()
		default:
			return nil, true, nil
		}
	}
}

func (e *Engine) attempt(
	ctx context.Context,
	videoID string,
	profile persona.Profile,
	adv *platform.Advertisement,
	cand negotiate.Candidate,
	strat delivery.Strategy,
) (*delivery.Descriptor, error) {
	stream, ok := adv.Streams[cand.ID]
	if !ok {
		return nil, &delivery.Error{
			Kind: delivery.KindFormatUnavailable,
			Err:  fmt.Errorf("itag %d not advertised for persona %s", cand.ID, profile.Alias),
		}
	}
	streamURL, err := e.unlocker.Unlock(ctx, videoID, stream)
	if err != nil {
		return nil, err
	}
	return strat.Materialize(ctx, delivery.Request{
		URL:      streamURL,
		Headers:  e.headers(profile),
		Format:   cand,
		Persona:  profile.Alias,
		Duration: adv.Duration,
	})
}

func (e *Engine) delay(ctx context.Context, bo *backoff.ExponentialBackOff, classified *delivery.Error) error {
	d := bo.NextBackOff()
	if classified.RetryAfter > d {
		d = classified.RetryAfter
	}
	e.log.WithField("delay", d).Info("rate limited, backing off")
	return e.sleep(ctx, d)
}

func classifyPlatformError(err error) *delivery.Error {
	var statusErr *platform.StatusError
	if errors.As(err, &statusErr) {
		return &delivery.Error{Kind: delivery.KindForStatus(statusErr.Code), Status: statusErr.Code, Err: err}
	}
	var playErr *platform.PlayabilityError
	if errors.As(err, &playErr) {
		if playErr.Gated() {
			return &delivery.Error{Kind: delivery.KindAuthorization, Err: err}
		}
		return &delivery.Error{Kind: delivery.KindTransport, Err: err}
	}
	return delivery.Classify(err)
}
