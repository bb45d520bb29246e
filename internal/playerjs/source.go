package playerjs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	defaultScriptBase = "https://www.youtube.com"
	scriptUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	preferredLocale   = "en_US"
)

var (
	scriptURLPattern  = regexp.MustCompile(`(/s/player/[A-Za-z0-9_-]+/[A-Za-z0-9._/-]*/base\.js)`)
	scriptPathPattern = regexp.MustCompile(`^/s/player/([A-Za-z0-9_-]+)/(.+)$`)
	localePathPattern = regexp.MustCompile(`(?i)(player(?:_[a-z0-9]+)?\.vflset)/[a-z]{2,3}_[a-z]{2,3}/base\.js$`)
	nonAlnumPattern   = regexp.MustCompile(`[^a-zA-Z0-9]+`)
)

// Source locates, fetches and caches player scripts. Scripts are keyed
// by player build and variant, so every video served by the same build
// shares one parsed Script.
type Source struct {
	httpClient *http.Client
	baseURL    string
	log        logrus.FieldLogger

	mu      sync.Mutex
	scripts map[string]*Script
}

func NewSource(httpClient *http.Client, logger logrus.FieldLogger) *Source {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Source{
		httpClient: httpClient,
		baseURL:    defaultScriptBase,
		log:        logger,
		scripts:    make(map[string]*Script),
	}
}

// ScriptForVideo resolves the player script serving videoID and returns
// it parsed. The watch page names the current build; the script body is
// then fetched once per build.
func (s *Source) ScriptForVideo(ctx context.Context, videoID string) (*Script, error) {
	path, err := s.locate(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return s.Load(ctx, path)
}

// Load fetches and caches the player script at the given path or URL.
func (s *Source) Load(ctx context.Context, scriptURL string) (*Script, error) {
	normalized := normalizeLocale(scriptURL)
	key := cacheKey(normalized)

	s.mu.Lock()
	cached, ok := s.scripts[key]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	candidates := []string{normalized}
	if scriptURL != normalized {
		candidates = append(candidates, scriptURL)
	}

	var lastErr error
	for _, candidate := range candidates {
		body, err := s.fetch(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		script := NewScript(body)
		s.mu.Lock()
		s.scripts[key] = script
		s.mu.Unlock()
		s.log.WithFields(logrus.Fields{"script": candidate, "bytes": len(body)}).Debug("player script loaded")
		return script, nil
	}
	return nil, lastErr
}

func (s *Source) locate(ctx context.Context, videoID string) (string, error) {
	watchURL := strings.TrimRight(s.baseURL, "/") + "/watch?v=" + url.QueryEscape(videoID)
	body, err := s.get(ctx, watchURL)
	if err != nil {
		return "", err
	}
	if m := scriptURLPattern.FindSubmatch(body); len(m) == 2 {
		return string(m[1]), nil
	}

	// Consent walls strip the player reference from the watch page.
	// The iframe API embeds the same script path and has no wall.
	body, err = s.get(ctx, strings.TrimRight(s.baseURL, "/")+"/iframe_api")
	if err != nil {
		return "", err
	}
	if m := scriptURLPattern.FindSubmatch(body); len(m) == 2 {
		return string(m[1]), nil
	}
	return "", fmt.Errorf("player script reference not found for video %s", videoID)
}

func (s *Source) fetch(ctx context.Context, scriptURL string) (string, error) {
	if !strings.HasPrefix(scriptURL, "http://") && !strings.HasPrefix(scriptURL, "https://") {
		scriptURL = strings.TrimRight(s.baseURL, "/") + scriptURL
	}
	body, err := s.get(ctx, scriptURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *Source) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", scriptUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status=%d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// normalizeLocale rewrites localized script paths to one shared locale
// so translated builds of the same player hit a single cache entry.
func normalizeLocale(scriptURL string) string {
	if u, err := url.Parse(scriptURL); err == nil && u.Path != "" {
		scriptURL = u.Path
	}
	if localePathPattern.MatchString(scriptURL) {
		return localePathPattern.ReplaceAllString(scriptURL, "${1}/"+preferredLocale+"/base.js")
	}
	return scriptURL
}

func cacheKey(scriptPath string) string {
	m := scriptPathPattern.FindStringSubmatch(scriptPath)
	if len(m) < 3 {
		return scriptPath
	}
	return m[1] + ":" + nonAlnumPattern.ReplaceAllString(m[2], "_")
}
