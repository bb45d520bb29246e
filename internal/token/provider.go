package token

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

const (
	defaultTTL          = 6 * time.Hour
	defaultFetchTimeout = 90 * time.Second
)

// Options configures a Provider.
type Options struct {
	// Fetcher performs automatic acquisition. Nil disables it, leaving
	// only static tokens.
	Fetcher Fetcher
	// Static maps persona aliases to operator-configured fallback tokens.
	Static map[string]string
	// TTL bounds the lifetime of automatically fetched tokens.
	TTL time.Duration
	// FetchTimeout bounds one automatic acquisition.
	FetchTimeout time.Duration
	// Clock is the time source; nil means time.Now. Injected for tests.
	Clock func() time.Time
	// Logger receives non-fatal acquisition warnings.
	Logger logrus.FieldLogger
}

// Provider hands out per-persona token records. It is safe for concurrent
// use: records are cached process-wide per instance, and all callers
// wanting the same persona's token await a single in-flight fetch.
type Provider struct {
	fetcher      Fetcher
	static       map[string]string
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          logrus.FieldLogger

	mu    sync.Mutex
	cache map[string]Record
	group singleflight.Group
}

// NewProvider creates a Provider with the given options.
func NewProvider(opts Options) *Provider {
	p := &Provider{
		fetcher:      opts.Fetcher,
		static:       make(map[string]string, len(opts.Static)),
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Clock,
		log:          opts.Logger,
		cache:        make(map[string]Record),
	}
	for alias, value := range opts.Static {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" || strings.TrimSpace(value) == "" {
			continue
		}
		p.static[alias] = strings.TrimSpace(value)
	}
	if p.ttl <= 0 {
		p.ttl = defaultTTL
	}
	if p.fetchTimeout <= 0 {
		p.fetchTimeout = defaultFetchTimeout
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.log == nil {
		nop := logrus.New()
		nop.SetOutput(io.Discard)
		p.log = nop
	}
	return p
}

// Token returns a valid token record for the persona. Cache hits are
// served directly; otherwise one automatic fetch runs per persona at a
// time, with every concurrent caller awaiting its result. On automatic
// failure the static fallback applies; with neither, a persona-scoped
// NoTokenError is returned.
func (p *Provider) Token(ctx context.Context, profile persona.Profile) (Record, error) {
	if rec, ok := p.cached(profile.Alias); ok {
		return rec, nil
	}

	ch := p.group.DoChan(profile.Alias, func() (any, error) {
		return p.acquire(profile)
	})

	select {
	case <-ctx.Done():
		// The shared fetch keeps running for other callers.
		return Record{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Record{}, res.Err
		}
		return res.Val.(Record), nil
	}
}

// Invalidate drops the cached record for a persona, forcing the next
// Token call to re-acquire.
func (p *Provider) Invalidate(alias string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cache, strings.ToLower(strings.TrimSpace(alias)))
}

func (p *Provider) cached(alias string) (Record, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.cache[alias]
	if !ok {
		return Record{}, false
	}
	if !rec.Valid(p.now()) {
		delete(p.cache, alias)
		return Record{}, false
	}
	return rec, true
}

// acquire runs inside the singleflight group. Its lifetime is independent
// of any single resolution call: the fetch runs against a detached,
// timeout-bounded context so one caller's cancellation cannot starve the
// others still waiting on the same persona.
func (p *Provider) acquire(profile persona.Profile) (Record, error) {
	if p.fetcher != nil {
		fetchCtx, cancel := context.WithTimeout(context.Background(), p.fetchTimeout)
		raw, err := p.fetcher.Fetch(fetchCtx, profile)
		cancel()
		if err == nil && strings.TrimSpace(raw) != "" {
			rec := Record{
				Value:     applyPrefix(profile, raw),
				Persona:   profile.Alias,
				FetchedAt: p.now(),
				TTL:       p.ttl,
				Origin:    OriginAuto,
			}
			p.store(profile.Alias, rec)
			return rec, nil
		}
		if err != nil {
			p.log.WithField("persona", profile.Alias).Warnf("automatic token fetch failed: %v", err)
		}
	}

	if raw, ok := p.static[profile.Alias]; ok {
		rec := Record{
			Value:     applyPrefix(profile, raw),
			Persona:   profile.Alias,
			FetchedAt: p.now(),
			Origin:    OriginStatic,
		}
		p.store(profile.Alias, rec)
		return rec, nil
	}

	return Record{}, &NoTokenError{Persona: profile.Alias}
}

func (p *Provider) store(alias string, rec Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[alias] = rec
}

// applyPrefix scopes a raw token value to the persona unless the operator
// already supplied a scoped one.
func applyPrefix(profile persona.Profile, raw string) string {
	raw = strings.TrimSpace(raw)
	if profile.TokenPrefix == "" || strings.Contains(raw, "+") {
		return raw
	}
	return profile.TokenPrefix + raw
}
