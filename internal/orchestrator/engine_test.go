package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/delivery"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/platform"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/token"
)

var (
	personaA = persona.Profile{Name: "PersonaA", Alias: "a", UserAgent: "ua-a"}
	personaB = persona.Profile{Name: "PersonaB", Alias: "b", UserAgent: "ua-b"}
)

func testAdvertisement(personaAlias string) *platform.Advertisement {
	return &platform.Advertisement{
		Persona: personaAlias,
		VideoID: "jNQXAC9IVRw",
		Candidates: []negotiate.Candidate{
			{ID: 251, Codec: "opus", Container: "webm", Bitrate: 160, Class: negotiate.ClassAdaptive, AudioOnly: true},
			negotiate.LegacyProgressive(),
		},
		Streams: map[int]platform.Stream{
			251: {URL: "https://cdn.example/251"},
			18:  {URL: "https://cdn.example/18"},
		},
		Duration: 19 * time.Second,
	}
}

type advertiserFunc func(ctx context.Context, profile persona.Profile, videoID, tok string) (*platform.Advertisement, error)

func (f advertiserFunc) Advertise(ctx context.Context, profile persona.Profile, videoID, tok string) (*platform.Advertisement, error) {
	return f(ctx, profile, videoID, tok)
}

var okAdvertiser = advertiserFunc(func(_ context.Context, profile persona.Profile, _, _ string) (*platform.Advertisement, error) {
	return testAdvertisement(profile.Alias), nil
})

type unlockerFunc func(ctx context.Context, videoID string, stream platform.Stream) (string, error)

func (f unlockerFunc) Unlock(ctx context.Context, videoID string, stream platform.Stream) (string, error) {
	return f(ctx, videoID, stream)
}

var passthroughUnlocker = unlockerFunc(func(_ context.Context, _ string, stream platform.Stream) (string, error) {
	return stream.URL, nil
})

// scriptedStrategy fails or succeeds per persona according to a script
// and records every materialization in trial order.
type scriptedStrategy struct {
	mode    delivery.Mode
	outcome func(req delivery.Request) error
	calls   *[]string
}

func (s *scriptedStrategy) Mode() delivery.Mode { return s.mode }

func (s *scriptedStrategy) Materialize(_ context.Context, req delivery.Request) (*delivery.Descriptor, error) {
	*s.calls = append(*s.calls, fmt.Sprintf("%s-%s-%d", req.Persona, s.mode, req.Format.ID))
	if err := s.outcome(req); err != nil {
		return nil, err
	}
	return &delivery.Descriptor{Mode: s.mode, Persona: req.Persona, Format: req.Format, URL: req.URL}, nil
}

func authDenied() error {
	return &delivery.Error{Kind: delivery.KindAuthorization, Status: http.StatusForbidden}
}

func newTestEngine(cfg Config) *Engine {
	if cfg.Advertiser == nil {
		cfg.Advertiser = okAdvertiser
	}
	if cfg.Unlocker == nil {
		cfg.Unlocker = passthroughUnlocker
	}
	if cfg.Personas == nil {
		cfg.Personas = []persona.Profile{personaA, personaB}
	}
	return New(cfg)
}

func TestResolveDegradesModeThenPersonaOnAuthFailure(t *testing.T) {
	var calls []string
	direct := &scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(delivery.Request) error {
		return authDenied()
	}}
	piped := &scriptedStrategy{mode: delivery.ModePiped, calls: &calls, outcome: func(req delivery.Request) error {
		if req.Persona == "b" {
			return nil
		}
		return authDenied()
	}}

	engine := newTestEngine(Config{Strategies: []delivery.Strategy{direct, piped}})
	desc, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, delivery.ModePiped, desc.Mode)
	require.Equal(t, "b", desc.Persona)
	require.Equal(t, []string{"a-direct-251", "a-piped-251", "b-direct-251", "b-piped-251"}, calls)
}

func TestResolveExhaustionCarriesOrderedHistory(t *testing.T) {
	var calls []string
	fail := func(delivery.Request) error { return authDenied() }
	engine := newTestEngine(Config{Strategies: []delivery.Strategy{
		&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: fail},
		&scriptedStrategy{mode: delivery.ModePiped, calls: &calls, outcome: fail},
	}})

	_, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 4, "personas x modes")

	want := []struct {
		persona string
		mode    delivery.Mode
	}{
		{"a", delivery.ModeDirect},
		{"a", delivery.ModePiped},
		{"b", delivery.ModeDirect},
		{"b", delivery.ModePiped},
	}
	for i, attempt := range exhausted.Attempts {
		require.Equal(t, want[i].persona, attempt.Persona)
		require.Equal(t, want[i].mode, attempt.Mode)
		require.Equal(t, delivery.KindAuthorization, attempt.Kind)
	}
}

func TestResolveRetriesLegacyCandidateOnFormatFailure(t *testing.T) {
	var calls []string
	direct := &scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(req delivery.Request) error {
		if req.Format.ID == negotiate.LegacyID {
			return nil
		}
		return &delivery.Error{Kind: delivery.KindFormatUnavailable, Status: http.StatusNotFound}
	}}

	engine := newTestEngine(Config{
		Personas:   []persona.Profile{personaA},
		Strategies: []delivery.Strategy{direct},
	})
	desc, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, negotiate.LegacyID, desc.Format.ID)
	require.Equal(t, []string{"a-direct-251", "a-direct-18"}, calls)
}

func TestResolveAbandonsPersonaAfterLegacyAlsoFails(t *testing.T) {
	var calls []string
	formatGone := func(delivery.Request) error {
		return &delivery.Error{Kind: delivery.KindFormatUnavailable}
	}
	engine := newTestEngine(Config{Strategies: []delivery.Strategy{
		&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: formatGone},
		&scriptedStrategy{mode: delivery.ModePiped, calls: &calls, outcome: formatGone},
	}})

	_, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	// Each persona gets its preferred candidate plus one legacy retry
	// in direct mode, then the persona is abandoned outright.
	require.Equal(t, []string{"a-direct-251", "a-direct-18", "b-direct-251", "b-direct-18"}, calls)
}

func TestResolveBackoffGrowsMonotonicallyToCap(t *testing.T) {
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	var calls []string
	rateLimited := func(delivery.Request) error {
		return &delivery.Error{Kind: delivery.KindRateLimited, Status: http.StatusTooManyRequests}
	}
	engine := newTestEngine(Config{
		Personas: []persona.Profile{personaA, personaB},
		Strategies: []delivery.Strategy{
			&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: rateLimited},
		},
		Backoff: BackoffConfig{Initial: time.Second, Max: 4 * time.Second, Budget: 3},
		Sleep:   sleep,
	})

	_, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	require.NotEmpty(t, delays)
	cap := 4 * time.Second
	for i, d := range delays {
		require.LessOrEqual(t, d, cap)
		if i > 0 {
			require.GreaterOrEqual(t, d, delays[i-1], "delay must not shrink")
		}
	}
	require.Equal(t, cap, delays[len(delays)-1], "delay settles at the cap")
}

func TestResolveHonorsRetryAfterHint(t *testing.T) {
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	var calls []string
	first := true
	engine := newTestEngine(Config{
		Personas: []persona.Profile{personaA},
		Strategies: []delivery.Strategy{
			&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(delivery.Request) error {
				if first {
					first = false
					return &delivery.Error{Kind: delivery.KindRateLimited, RetryAfter: time.Minute}
				}
				return nil
			}},
		},
		Backoff: BackoffConfig{Initial: time.Second, Max: 5 * time.Second, Budget: 2},
		Sleep:   sleep,
	})

	_, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, []time.Duration{time.Minute}, delays)
}

func TestResolveSkipsTokenedPersonaWithoutToken(t *testing.T) {
	tokenedA := personaA
	tokenedA.RequiresToken = true

	tokens := tokenSourceFunc(func(_ context.Context, profile persona.Profile) (token.Record, error) {
		return token.Record{}, &token.NoTokenError{Persona: profile.Alias}
	})

	var calls []string
	engine := newTestEngine(Config{
		Personas: []persona.Profile{tokenedA, personaB},
		Tokens:   tokens,
		Strategies: []delivery.Strategy{
			&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(delivery.Request) error { return nil }},
		},
	})

	desc, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, "b", desc.Persona)
	require.Equal(t, []string{"b-direct-251"}, calls, "tokened persona never reaches delivery")
}

type tokenSourceFunc func(ctx context.Context, profile persona.Profile) (token.Record, error)

func (f tokenSourceFunc) Token(ctx context.Context, profile persona.Profile) (token.Record, error) {
	return f(ctx, profile)
}

func TestResolveAbandonsPersonaOnTransportError(t *testing.T) {
	var calls []string
	direct := &scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(req delivery.Request) error {
		if req.Persona == "a" {
			return fmt.Errorf("connection reset")
		}
		return nil
	}}
	piped := &scriptedStrategy{mode: delivery.ModePiped, calls: &calls, outcome: func(delivery.Request) error { return nil }}

	engine := newTestEngine(Config{Strategies: []delivery.Strategy{direct, piped}})
	desc, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, "b", desc.Persona)
	require.Equal(t, []string{"a-direct-251", "b-direct-251"}, calls, "transport failure skips piped mode for the persona")
}

func TestResolveRecordsAdvertiseDenialAndAdvances(t *testing.T) {
	advertiser := advertiserFunc(func(_ context.Context, profile persona.Profile, _, _ string) (*platform.Advertisement, error) {
		if profile.Alias == "a" {
			return nil, &platform.StatusError{Persona: profile.Alias, Code: http.StatusForbidden}
		}
		return testAdvertisement(profile.Alias), nil
	})

	var calls []string
	engine := newTestEngine(Config{
		Advertiser: advertiser,
		Strategies: []delivery.Strategy{
			&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: func(delivery.Request) error { return nil }},
		},
	})

	desc, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	require.NoError(t, err)
	require.Equal(t, "b", desc.Persona)
	require.Equal(t, []string{"b-direct-251"}, calls)
}

func TestResolveForcedRestrictsMode(t *testing.T) {
	var calls []string
	ok := func(delivery.Request) error { return nil }
	engine := newTestEngine(Config{
		Personas: []persona.Profile{personaA},
		Strategies: []delivery.Strategy{
			&scriptedStrategy{mode: delivery.ModeDirect, calls: &calls, outcome: ok},
			&scriptedStrategy{mode: delivery.ModePiped, calls: &calls, outcome: ok},
		},
	})

	desc, err := engine.ResolveForced(context.Background(), "jNQXAC9IVRw", delivery.ModePiped)
	require.NoError(t, err)
	require.Equal(t, delivery.ModePiped, desc.Mode)
	require.Equal(t, []string{"a-piped-251"}, calls)

	_, err = engine.ResolveForced(context.Background(), "jNQXAC9IVRw", delivery.Mode("carrier-pigeon"))
	require.Error(t, err)
}

func TestResolveWithNoPersonasIsExhausted(t *testing.T) {
	engine := newTestEngine(Config{
		Personas:   []persona.Profile{},
		Strategies: []delivery.Strategy{},
	})
	_, err := engine.Resolve(context.Background(), "jNQXAC9IVRw")
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Empty(t, exhausted.Attempts)
}
