package resolver

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds everything the engine takes from its operator. The zero
// value works: anonymous personas, default preference order, automatic
// token acquisition disabled.
type Config struct {
	// HTTPClient overrides the constructed client. When set, ProxyURL
	// and ForceIPv4 are ignored.
	HTTPClient *http.Client

	// ProxyURL routes all platform traffic through a proxy.
	ProxyURL string

	// ForceIPv4 pins outbound dials to tcp4. Some stream hosts serve
	// degraded or broken responses over v6 ranges.
	ForceIPv4 bool

	// UserAgent overrides the per-persona user agent on stream
	// requests. Empty means each persona presents its own.
	UserAgent string

	// PersonaOrder is the ordered list of persona aliases to try.
	// Unknown aliases are dropped; empty means the built-in order.
	PersonaOrder []string

	// FormatPreference is a selection expression such as
	// "251/bestaudio[abr<=160]". Empty means the default order.
	FormatPreference string

	// StaticTokens maps persona aliases to operator-supplied
	// proof-of-origin tokens, used when automatic acquisition fails
	// or is disabled.
	StaticTokens map[string]string

	// BrowserControlURL connects automatic token acquisition to a
	// running browser's devtools endpoint. Empty launches a managed
	// browser; DisableTokenFetch turns acquisition off entirely.
	BrowserControlURL string
	DisableTokenFetch bool
	TokenTTL          time.Duration
	TokenFetchTimeout time.Duration

	// Cookie material, first non-empty source wins: a Firefox profile
	// directory, a Netscape cookies file, or an inline base64 blob.
	FirefoxProfile string
	CookiesFile    string
	CookiesBase64  string

	// Per-attempt transport bounds.
	PreflightTimeout time.Duration
	OpenTimeout      time.Duration

	// Rate-limit backoff shape.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffBudget  int

	Logger logrus.FieldLogger
}
