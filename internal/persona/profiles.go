package persona

// Profile describes one emulated client identity used against the platform.
// Each persona advertises a different surface of formats and carries its own
// proof-of-origin token requirement.
type Profile struct {
	// Name is the canonical client name sent in the player context.
	Name string
	// Alias is the short configuration name ("web", "android", ...).
	Alias string
	// Version is the client version string for the player context.
	Version string
	// ContextID is the numeric client name id used by the platform.
	ContextID int
	// UserAgent is sent on every request made as this persona.
	UserAgent string
	// Host is the API host the persona talks to.
	Host string
	// RequiresToken marks personas that cannot obtain servable stream URLs
	// without a proof-of-origin token.
	RequiresToken bool
	// TokenPrefix is prepended to raw token values for this persona
	// (the platform expects client-scoped token encodings).
	TokenPrefix string
	// SupportsCookies marks personas that honor an authenticated cookie jar.
	SupportsCookies bool
	// Embedded marks personas that present as an embedded player.
	Embedded bool
	// Priority is the position in the configured order; set by the registry.
	Priority int
}

var (
	// WebProfile is the standard desktop web client.
	WebProfile = Profile{
		Name:            "WEB",
		Alias:           "web",
		Version:         "2.20260114.08.00",
		ContextID:       1,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Host:            "www.youtube.com",
		RequiresToken:   true,
		TokenPrefix:     "web.gvs+",
		SupportsCookies: true,
	}

	// MWebProfile is the mobile web client.
	MWebProfile = Profile{
		Name:          "MWEB",
		Alias:         "mweb",
		Version:       "2.20260115.01.00",
		ContextID:     2,
		UserAgent:     "Mozilla/5.0 (Linux; Android 11; Pixel 5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		Host:          "www.youtube.com",
		RequiresToken: true,
		TokenPrefix:   "mweb.gvs+",
	}

	// AndroidProfile mimics the official Android app. It can serve streams
	// without a proof-of-origin token when a player token is present, which
	// makes it the usual untokened fallback.
	AndroidProfile = Profile{
		Name:        "ANDROID",
		Alias:       "android",
		Version:     "21.02.35",
		ContextID:   3,
		UserAgent:   "com.google.android.youtube/21.02.35 (Linux; U; Android 11) gzip",
		Host:        "www.youtube.com",
		TokenPrefix: "android.gvs+",
	}

	// IOSProfile mimics the official iOS app.
	IOSProfile = Profile{
		Name:        "IOS",
		Alias:       "ios",
		Version:     "21.02.3",
		ContextID:   5,
		UserAgent:   "com.google.ios.youtube/21.02.3 (iPhone16,2; U; CPU iOS 18_3_2 like Mac OS X;)",
		Host:        "www.youtube.com",
		TokenPrefix: "ios.gvs+",
	}

	// TVProfile is the Smart TV client.
	TVProfile = Profile{
		Name:            "TVHTML5",
		Alias:           "tv",
		Version:         "7.20260114.12.00",
		ContextID:       7,
		UserAgent:       "Mozilla/5.0 (ChromiumStylePlatform) Cobalt/25.lts.30.1034943-gold (unlike Gecko)",
		Host:            "www.youtube.com",
		SupportsCookies: true,
		TokenPrefix:     "tv.gvs+",
	}

	// WebEmbeddedProfile presents as an embedded player, which relaxes some
	// gating for embeddable content.
	WebEmbeddedProfile = Profile{
		Name:            "WEB_EMBEDDED_PLAYER",
		Alias:           "web_embedded",
		Version:         "1.20260115.01.00",
		ContextID:       56,
		UserAgent:       WebProfile.UserAgent,
		Host:            "www.youtube.com",
		SupportsCookies: true,
		Embedded:        true,
		TokenPrefix:     "web.gvs+",
	}
)
