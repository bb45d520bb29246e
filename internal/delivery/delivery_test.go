package delivery

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
)

func TestDirectPreflightAcceptsServableURL(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		require.Equal(t, "engine/1.0", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	headers := http.Header{"User-Agent": {"engine/1.0"}}
	direct := &Direct{HTTPClient: srv.Client()}
	desc, err := direct.Materialize(context.Background(), Request{
		URL:     srv.URL + "/stream",
		Headers: headers,
		Format:  negotiate.Candidate{ID: 251},
		Persona: "web",
	})
	require.NoError(t, err)
	require.Equal(t, "bytes=0-1023", gotRange)
	require.Equal(t, ModeDirect, desc.Mode)
	require.Equal(t, srv.URL+"/stream", desc.URL)
	require.Equal(t, "engine/1.0", desc.Headers.Get("User-Agent"))
	require.Nil(t, desc.Body)
	require.NoError(t, desc.Close())
}

func TestDirectPreflightClassifiesDenials(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		wantKind   Kind
		wantDelay  time.Duration
	}{
		{name: "forbidden", status: http.StatusForbidden, wantKind: KindAuthorization},
		{name: "gone", status: http.StatusGone, wantKind: KindAuthorization},
		{name: "rate limited", status: http.StatusTooManyRequests, retryAfter: "7", wantKind: KindRateLimited, wantDelay: 7 * time.Second},
		{name: "missing", status: http.StatusNotFound, wantKind: KindFormatUnavailable},
		{name: "server error", status: http.StatusInternalServerError, wantKind: KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := (&Direct{HTTPClient: srv.Client()}).Materialize(context.Background(), Request{URL: srv.URL})
			var classified *Error
			require.ErrorAs(t, err, &classified)
			require.Equal(t, tt.wantKind, classified.Kind)
			require.Equal(t, tt.status, classified.Status)
			require.Equal(t, tt.wantDelay, classified.RetryAfter)
		})
	}
}

func TestDirectPreflightRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := (&Direct{HTTPClient: srv.Client()}).Materialize(context.Background(), Request{URL: srv.URL})
	var classified *Error
	require.ErrorAs(t, err, &classified)
	require.Equal(t, KindTransport, classified.Kind)
}

func TestPipedOpensByteStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	piped := &Piped{HTTPClient: srv.Client()}
	desc, err := piped.Materialize(context.Background(), Request{
		URL:     srv.URL,
		Format:  negotiate.Candidate{ID: 140, Class: negotiate.ClassAdaptive},
		Persona: "android",
	})
	require.NoError(t, err)
	defer desc.Close()

	require.Equal(t, ModePiped, desc.Mode)
	require.NotNil(t, desc.Body)
	body, err := io.ReadAll(desc.Body)
	require.NoError(t, err)
	require.Equal(t, "audio-bytes", string(body))
}

func TestPipedClassifiesHandshakeDenial(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := (&Piped{HTTPClient: srv.Client()}).Materialize(context.Background(), Request{URL: srv.URL})
	var classified *Error
	require.ErrorAs(t, err, &classified)
	require.Equal(t, KindAuthorization, classified.Kind)
}

func TestPipedRelaysSegmentedStream(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "#EXTM3U\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=144000\n/hi/media.m3u8\n"+
			"#EXT-X-STREAM-INF:BANDWIDTH=48000\n/lo/media.m3u8\n")
	})
	mux.HandleFunc("/lo/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "#EXTM3U\n"+
			"#EXT-X-TARGETDURATION:5\n"+
			"#EXT-X-MEDIA-SEQUENCE:0\n"+
			"#EXTINF:5.0,\nseg0.ts\n"+
			"#EXTINF:5.0,\nseg1.ts\n"+
			"#EXT-X-ENDLIST\n")
	})
	mux.HandleFunc("/lo/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "first-")
	})
	mux.HandleFunc("/lo/seg1.ts", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "second")
	})

	piped := &Piped{HTTPClient: srv.Client()}
	desc, err := piped.Materialize(context.Background(), Request{
		URL:    srv.URL + "/master.m3u8",
		Format: negotiate.Candidate{ID: 233, Class: negotiate.ClassSegmented},
	})
	require.NoError(t, err)
	defer desc.Close()

	body, err := io.ReadAll(desc.Body)
	require.NoError(t, err)
	require.Equal(t, "first-second", string(body))
}

func TestParseRetryAfter(t *testing.T) {
	require.Equal(t, 30*time.Second, parseRetryAfter("30"))
	require.Equal(t, time.Duration(0), parseRetryAfter(""))
	require.Equal(t, time.Duration(0), parseRetryAfter("-5"))
	require.Equal(t, time.Duration(0), parseRetryAfter("soon"))
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	classified := Classify(io.ErrUnexpectedEOF)
	require.Equal(t, KindTransport, classified.Kind)
	require.ErrorIs(t, classified, io.ErrUnexpectedEOF)
}
