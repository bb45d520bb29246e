package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	neturl "net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/negotiate"
	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

// Stream is the raw materialization input for one advertised format:
// either a plain URL or a signature cipher that still needs unlocking.
type Stream struct {
	URL             string
	SignatureCipher string
}

// Advertisement is one persona's view of a content item: the normalized
// candidate encodings plus the raw streams behind them.
type Advertisement struct {
	Persona    string
	VideoID    string
	Title      string
	Duration   time.Duration
	Candidates []negotiate.Candidate
	Streams    map[int]Stream
	// HLSManifestURL backs the segmented candidates, when advertised.
	HLSManifestURL string
}

// Client performs player API calls.
type Client struct {
	HTTP        *http.Client
	APIKey      string
	VisitorData string
	Logger      logrus.FieldLogger

	// sigTS is the player build timestamp web personas must echo to
	// receive working signature ciphers. Learned from the player
	// script after the first unlock, hence the atomic.
	sigTS atomic.Int64

	keys *bootstrapKeys
}

// NewClient creates a platform client. Dynamic API key resolution from
// the watch page bootstrap is enabled by default; a configured APIKey is
// the fallback when scraping fails.
func NewClient(httpClient *http.Client, logger logrus.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		HTTP:   httpClient,
		APIKey: defaultAPIKey,
		Logger: logger,
		keys:   newBootstrapKeys(httpClient),
	}
}

// SetSignatureTimestamp records the timestamp of the player build whose
// ciphers the engine can currently solve.
func (c *Client) SetSignatureTimestamp(ts int) {
	c.sigTS.Store(int64(ts))
}

// Advertise asks the platform what this persona may stream for the video.
// The token is attached when non-empty; personas that require one and got
// none are the caller's concern.
func (c *Client) Advertise(ctx context.Context, profile persona.Profile, videoID, token string) (*Advertisement, error) {
	req := newPlayerRequest(profile, videoID, requestOptions{
		Token:              token,
		VisitorData:        c.VisitorData,
		SignatureTimestamp: int(c.sigTS.Load()),
	})

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := "https://" + profile.Host + "/youtubei/v1/player"
	if key := c.resolveAPIKey(ctx, profile); key != "" {
		endpoint += "?key=" + neturl.QueryEscape(key)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", profile.UserAgent)
	httpReq.Header.Set("Origin", "https://"+profile.Host)
	httpReq.Header.Set("Referer", "https://"+profile.Host+"/watch?v="+videoID)
	if profile.SupportsCookies {
		for k, vs := range cookieAuthHeaders(c.HTTP, profile.Host, time.Now()) {
			for _, v := range vs {
				httpReq.Header.Add(k, v)
			}
		}
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Persona: profile.Alias, Code: resp.StatusCode}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed playerResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	if !parsed.PlayabilityStatus.ok() {
		return nil, &PlayabilityError{
			Persona: profile.Alias,
			Status:  parsed.PlayabilityStatus.Status,
			Reason:  parsed.PlayabilityStatus.Reason,
		}
	}

	return buildAdvertisement(profile, videoID, &parsed), nil
}

func buildAdvertisement(profile persona.Profile, videoID string, parsed *playerResponse) *Advertisement {
	adv := &Advertisement{
		Persona:        profile.Alias,
		VideoID:        videoID,
		Title:          parsed.VideoDetails.Title,
		Streams:        make(map[int]Stream),
		HLSManifestURL: parsed.StreamingData.HlsManifestURL,
	}
	if secs, err := strconv.ParseInt(parsed.VideoDetails.LengthSeconds, 10, 64); err == nil {
		adv.Duration = time.Duration(secs) * time.Second
	}

	collect := func(raw []rawFormat, class negotiate.Class) {
		for _, f := range raw {
			kind, container, codecs := splitMime(f.MimeType)
			if class == negotiate.ClassAdaptive && kind != "audio" {
				continue // video-only tracks are useless to an audio engine
			}
			adv.Candidates = append(adv.Candidates, negotiate.Candidate{
				ID:        f.Itag,
				Codec:     firstCodec(codecs),
				Container: normalizeContainer(kind, container),
				Bitrate:   bitrateKbps(f),
				Class:     class,
				AudioOnly: kind == "audio",
			})
			adv.Streams[f.Itag] = Stream{
				URL:             f.URL,
				SignatureCipher: firstNonEmpty(f.SignatureCipher, f.Cipher),
			}
		}
	}
	collect(parsed.StreamingData.Formats, negotiate.ClassProgressive)
	collect(parsed.StreamingData.AdaptiveFormats, negotiate.ClassAdaptive)

	if adv.HLSManifestURL != "" {
		const hlsAudioID = 233
		adv.Candidates = append(adv.Candidates, negotiate.Candidate{
			ID:        hlsAudioID,
			Codec:     "mp4a.40.2",
			Container: "mp4",
			Bitrate:   48,
			Class:     negotiate.ClassSegmented,
			AudioOnly: true,
		})
		adv.Streams[hlsAudioID] = Stream{URL: adv.HLSManifestURL}
	}
	return adv
}

func (c *Client) resolveAPIKey(ctx context.Context, profile persona.Profile) string {
	if c.keys != nil {
		if key, err := c.keys.resolve(ctx, profile); err == nil && key != "" {
			return key
		}
	}
	return c.APIKey
}

func firstCodec(codecs string) string {
	codecs = strings.TrimSpace(codecs)
	if idx := strings.IndexByte(codecs, ','); idx >= 0 {
		codecs = codecs[:idx]
	}
	return strings.TrimSpace(codecs)
}

// normalizeContainer maps mime containers to the names the negotiator
// speaks: audio/mp4 is conventionally called m4a.
func normalizeContainer(kind, container string) string {
	container = strings.ToLower(strings.TrimSpace(container))
	if kind == "audio" {
		switch container {
		case "mp4":
			return "m4a"
		case "mpeg":
			return "mp3"
		}
	}
	return container
}

func bitrateKbps(f rawFormat) int {
	bps := f.AverageBitrate
	if bps == 0 {
		bps = f.Bitrate
	}
	return bps / 1000
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
