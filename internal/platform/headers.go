package platform

import (
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// cookieAuthHeaders derives the session authorization headers an
// authenticated web persona must present alongside its cookie jar. The
// platform validates a timestamped SHA-1 over the session cookie and the
// request origin.
func cookieAuthHeaders(httpClient *http.Client, host string, now time.Time) http.Header {
	out := make(http.Header)
	if httpClient == nil || httpClient.Jar == nil {
		return out
	}
	cookies := httpClient.Jar.Cookies(&url.URL{Scheme: "https", Host: host})
	if len(cookies) == 0 {
		return out
	}

	byName := make(map[string]string, len(cookies))
	for _, c := range cookies {
		if name := strings.TrimSpace(c.Name); name != "" {
			byName[name] = c.Value
		}
	}

	origin := "https://" + host
	var schemes []string
	add := func(scheme, sid string) {
		if sid = strings.TrimSpace(sid); sid != "" {
			schemes = append(schemes, scheme+" "+sidHash(now.Unix(), sid, origin))
		}
	}
	add("SAPISIDHASH", firstNonEmpty(byName["SAPISID"], byName["APISID"]))
	add("SAPISID1PHASH", byName["__Secure-1PAPISID"])
	add("SAPISID3PHASH", byName["__Secure-3PAPISID"])

	if len(schemes) > 0 {
		out.Set("Authorization", strings.Join(schemes, " "))
		out.Set("X-Origin", origin)
	}
	if strings.TrimSpace(byName["LOGIN_INFO"]) != "" {
		out.Set("X-Youtube-Bootstrap-Logged-In", "true")
	}
	return out
}

func sidHash(ts int64, sid, origin string) string {
	sum := sha1.Sum([]byte(strconv.FormatInt(ts, 10) + " " + sid + " " + origin))
	return strconv.FormatInt(ts, 10) + "_" + hex.EncodeToString(sum[:])
}
