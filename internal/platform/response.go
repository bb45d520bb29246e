package platform

import (
	"regexp"
	"strings"
)

type playerResponse struct {
	PlayabilityStatus playabilityStatus `json:"playabilityStatus"`
	StreamingData     streamingData     `json:"streamingData"`
	VideoDetails      videoDetails      `json:"videoDetails"`
}

type videoDetails struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	LengthSeconds string `json:"lengthSeconds"`
}

type playabilityStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (p playabilityStatus) ok() bool { return p.Status == "OK" }

type streamingData struct {
	ExpiresInSeconds string      `json:"expiresInSeconds"`
	Formats          []rawFormat `json:"formats"`
	AdaptiveFormats  []rawFormat `json:"adaptiveFormats"`
	HlsManifestURL   string      `json:"hlsManifestUrl"`
}

type rawFormat struct {
	Itag             int    `json:"itag"`
	URL              string `json:"url"`
	MimeType         string `json:"mimeType"`
	Bitrate          int    `json:"bitrate"`
	AverageBitrate   int    `json:"averageBitrate"`
	AudioQuality     string `json:"audioQuality"`
	AudioSampleRate  string `json:"audioSampleRate"`
	ApproxDurationMs string `json:"approxDurationMs"`
	SignatureCipher  string `json:"signatureCipher"`
	Cipher           string `json:"cipher"`
}

var mimeCodecsPattern = regexp.MustCompile(`codecs="([^"]*)"`)

// splitMime decomposes `audio/webm; codecs="opus"` into its parts.
func splitMime(mimeType string) (kind, container, codecs string) {
	base := mimeType
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		base = mimeType[:idx]
	}
	base = strings.TrimSpace(base)
	if idx := strings.IndexByte(base, '/'); idx >= 0 {
		kind = base[:idx]
		container = base[idx+1:]
	}
	if m := mimeCodecsPattern.FindStringSubmatch(mimeType); len(m) == 2 {
		codecs = m[1]
	}
	return kind, container, codecs
}
