package resolver

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

func buildHTTPClient(cfg Config, jar http.CookieJar) *http.Client {
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}

	transport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Client{Jar: jar}
	}
	transport = transport.Clone()

	if proxy := strings.TrimSpace(cfg.ProxyURL); proxy != "" {
		if parsed, err := url.Parse(proxy); err == nil && parsed.Scheme != "" && parsed.Host != "" {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	if cfg.ForceIPv4 {
		dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			switch network {
			case "tcp", "tcp6":
				network = "tcp4"
			}
			return dialer.DialContext(ctx, network, addr)
		}
	}

	return &http.Client{Transport: transport, Jar: jar}
}
