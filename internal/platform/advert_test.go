package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

const okPlayerBody = `{
	"playabilityStatus": {"status": "OK"},
	"videoDetails": {"videoId": "jNQXAC9IVRw", "title": "Me at the zoo", "lengthSeconds": "19"},
	"streamingData": {
		"formats": [
			{"itag": 18, "url": "https://cdn.example/18", "mimeType": "video/mp4; codecs=\"avc1.42001E, mp4a.40.2\"", "bitrate": 500000}
		],
		"adaptiveFormats": [
			{"itag": 251, "url": "https://cdn.example/251", "mimeType": "audio/webm; codecs=\"opus\"", "averageBitrate": 160000},
			{"itag": 140, "signatureCipher": "s=abc&sp=sig&url=https%3A%2F%2Fcdn.example%2F140", "mimeType": "audio/mp4; codecs=\"mp4a.40.2\"", "averageBitrate": 128000},
			{"itag": 248, "url": "https://cdn.example/248", "mimeType": "video/webm; codecs=\"vp9\"", "averageBitrate": 2000000}
		],
		"hlsManifestUrl": "https://cdn.example/master.m3u8"
	}
}`

func newTestClient(rt roundTripFunc) *Client {
	c := NewClient(&http.Client{Transport: rt}, nil)
	c.keys = nil // keep unit tests off the bootstrap scrape path
	return c
}

func TestAdvertiseBuildsCandidates(t *testing.T) {
	var sawToken string
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		var req playerRequest
		require.NoError(t, json.Unmarshal(body, &req))
		if req.ServiceIntegrityDimensions != nil {
			sawToken = req.ServiceIntegrityDimensions.PoToken
		}
		require.Equal(t, "WEB", req.Context.Client.ClientName)
		return jsonResponse(http.StatusOK, okPlayerBody), nil
	})

	adv, err := newTestClient(rt).Advertise(context.Background(), persona.WebProfile, "jNQXAC9IVRw", "web.gvs+tok")
	require.NoError(t, err)
	require.Equal(t, "web.gvs+tok", sawToken)
	require.Equal(t, "web", adv.Persona)
	require.Equal(t, int64(19), int64(adv.Duration.Seconds()))

	byID := make(map[int]negotiate.Candidate)
	for _, c := range adv.Candidates {
		byID[c.ID] = c
	}
	require.Contains(t, byID, 18, "muxed progressive kept")
	require.Contains(t, byID, 251)
	require.Contains(t, byID, 140)
	require.NotContains(t, byID, 248, "video-only adaptive tracks dropped")
	require.Contains(t, byID, 233, "segmented candidate synthesized from manifest")

	require.Equal(t, "opus", byID[251].Codec)
	require.Equal(t, "webm", byID[251].Container)
	require.True(t, byID[251].AudioOnly)
	require.Equal(t, 160, byID[251].Bitrate)
	require.Equal(t, "m4a", byID[140].Container)
	require.Equal(t, negotiate.ClassProgressive, byID[18].Class)
	require.Equal(t, negotiate.ClassSegmented, byID[233].Class)

	require.Equal(t, "https://cdn.example/251", adv.Streams[251].URL)
	require.NotEmpty(t, adv.Streams[140].SignatureCipher)
	require.Equal(t, "https://cdn.example/master.m3u8", adv.Streams[233].URL)
}

func TestAdvertiseStatusError(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, `denied`), nil
	})

	_, err := newTestClient(rt).Advertise(context.Background(), persona.AndroidProfile, "jNQXAC9IVRw", "")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusForbidden, statusErr.Code)
	require.Equal(t, "android", statusErr.Persona)
}

func TestAdvertisePlayabilityError(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in to confirm your age"}}`), nil
	})

	_, err := newTestClient(rt).Advertise(context.Background(), persona.WebProfile, "jNQXAC9IVRw", "")
	var pErr *PlayabilityError
	require.ErrorAs(t, err, &pErr)
	require.True(t, pErr.Gated())
}

func TestSplitMime(t *testing.T) {
	kind, container, codecs := splitMime(`audio/webm; codecs="opus"`)
	require.Equal(t, "audio", kind)
	require.Equal(t, "webm", container)
	require.Equal(t, "opus", codecs)

	kind, container, codecs = splitMime(`video/mp4; codecs="avc1.42001E, mp4a.40.2"`)
	require.Equal(t, "video", kind)
	require.Equal(t, "mp4", container)
	require.Equal(t, "avc1.42001E", firstCodec(codecs))
}

func TestEmbeddedPersonaSendsThirdPartyContext(t *testing.T) {
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		body, _ := io.ReadAll(r.Body)
		var req playerRequest
		require.NoError(t, json.Unmarshal(body, &req))
		require.NotNil(t, req.Context.ThirdParty)
		return jsonResponse(http.StatusOK, okPlayerBody), nil
	})

	_, err := newTestClient(rt).Advertise(context.Background(), persona.WebEmbeddedProfile, "jNQXAC9IVRw", "")
	require.NoError(t, err)
}
