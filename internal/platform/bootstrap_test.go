package platform

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

const bootstrapPage = `<html><head>
<script>var nothing = 1;</script>
<script>window.ytcfg = {"INNERTUBE_API_KEY":"AIzaSyTEST-scraped-key","INNERTUBE_CONTEXT":{}};</script>
</head><body></body></html>`

func TestBootstrapKeysScrapeAndCache(t *testing.T) {
	hits := 0
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hits++
		require.Equal(t, persona.WebProfile.UserAgent, r.Header.Get("User-Agent"))
		return jsonResponse(http.StatusOK, bootstrapPage), nil
	})

	keys := newBootstrapKeys(&http.Client{Transport: rt})
	for i := 0; i < 3; i++ {
		key, err := keys.resolve(context.Background(), persona.WebProfile)
		require.NoError(t, err)
		require.Equal(t, "AIzaSyTEST-scraped-key", key)
	}
	require.Equal(t, 1, hits, "key is cached per host")
}

func TestBootstrapKeysCacheExpires(t *testing.T) {
	hits := 0
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		hits++
		return jsonResponse(http.StatusOK, bootstrapPage), nil
	})

	keys := newBootstrapKeys(&http.Client{Transport: rt})
	_, err := keys.resolve(context.Background(), persona.WebProfile)
	require.NoError(t, err)

	keys.mu.Lock()
	keys.fetched[persona.WebProfile.Host] = time.Now().Add(-7 * time.Hour)
	keys.mu.Unlock()

	_, err = keys.resolve(context.Background(), persona.WebProfile)
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}

func TestBootstrapKeysMissingKey(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `<html><script>var x = 1;</script></html>`), nil
	})

	_, err := newBootstrapKeys(&http.Client{Transport: rt}).resolve(context.Background(), persona.WebProfile)
	require.Error(t, err)
}
