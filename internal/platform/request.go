// Package platform speaks the video platform's player API: building
// per-persona request payloads, interpreting the advertised stream data,
// and mapping platform denials onto the engine's failure taxonomy.
package platform

import (
	"strings"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/internal/persona"
)

type playerRequest struct {
	Context                    requestContext              `json:"context"`
	VideoID                    string                      `json:"videoId"`
	ContentCheckOk             bool                        `json:"contentCheckOk,omitempty"`
	RacyCheckOk                bool                        `json:"racyCheckOk,omitempty"`
	PlaybackContext            *playbackContext            `json:"playbackContext,omitempty"`
	ServiceIntegrityDimensions *serviceIntegrityDimensions `json:"serviceIntegrityDimensions,omitempty"`
}

type requestContext struct {
	Client     clientInfo      `json:"client"`
	ThirdParty *thirdParty     `json:"thirdParty,omitempty"`
	Request    requestSettings `json:"request"`
}

type clientInfo struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	UserAgent         string `json:"userAgent,omitempty"`
	DeviceMake        string `json:"deviceMake,omitempty"`
	DeviceModel       string `json:"deviceModel,omitempty"`
	OsName            string `json:"osName,omitempty"`
	OsVersion         string `json:"osVersion,omitempty"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	AcceptLanguage    string `json:"hl"`
	TimeZone          string `json:"timeZone"`
	UtcOffsetMinutes  int    `json:"utcOffsetMinutes"`
	VisitorData       string `json:"visitorData,omitempty"`
}

type thirdParty struct {
	EmbedURL string `json:"embedUrl"`
}

type requestSettings struct {
	UseSsl bool `json:"useSsl"`
}

type playbackContext struct {
	ContentPlaybackContext contentPlaybackContext `json:"contentPlaybackContext"`
}

type contentPlaybackContext struct {
	HTML5Preference    string `json:"html5Preference"`
	SignatureTimestamp int    `json:"signatureTimestamp,omitempty"`
}

type serviceIntegrityDimensions struct {
	PoToken string `json:"poToken,omitempty"`
}

// requestOptions carries the per-attempt request inputs.
type requestOptions struct {
	Token              string
	VisitorData        string
	SignatureTimestamp int
}

func newPlayerRequest(profile persona.Profile, videoID string, opts requestOptions) *playerRequest {
	info := clientInfo{
		ClientName:       profile.Name,
		ClientVersion:    profile.Version,
		UserAgent:        profile.UserAgent,
		AcceptLanguage:   "en",
		TimeZone:         "UTC",
		UtcOffsetMinutes: 0,
		VisitorData:      opts.VisitorData,
	}
	applyDeviceDefaults(&info, profile)

	req := &playerRequest{
		VideoID:        videoID,
		ContentCheckOk: true,
		RacyCheckOk:    true,
		Context: requestContext{
			Client:  info,
			Request: requestSettings{UseSsl: true},
		},
		PlaybackContext: &playbackContext{
			ContentPlaybackContext: contentPlaybackContext{
				HTML5Preference:    "HTML5_PREF_WANTS",
				SignatureTimestamp: opts.SignatureTimestamp,
			},
		},
	}
	if profile.Embedded {
		req.Context.ThirdParty = &thirdParty{
			EmbedURL: "https://" + profile.Host + "/watch?v=" + videoID,
		}
	}
	if opts.Token != "" {
		req.ServiceIntegrityDimensions = &serviceIntegrityDimensions{PoToken: opts.Token}
	}
	return req
}

func applyDeviceDefaults(info *clientInfo, profile persona.Profile) {
	switch strings.ToUpper(profile.Name) {
	case "ANDROID":
		info.OsName = "Android"
		info.OsVersion = "11"
		info.DeviceMake = "Google"
		info.DeviceModel = "Pixel 5"
		info.AndroidSdkVersion = 30
	case "IOS":
		info.OsName = "iOS"
		info.OsVersion = "18.3.2.22D82"
		info.DeviceMake = "Apple"
		info.DeviceModel = "iPhone16,2"
	case "MWEB":
		info.OsName = "Android"
		info.OsVersion = "11"
		info.DeviceMake = "Google"
		info.DeviceModel = "Pixel 5"
	case "TVHTML5":
		info.OsName = "Cobalt"
		info.OsVersion = "25"
	default:
		info.OsName = "Windows"
		info.OsVersion = "10.0"
	}
}
