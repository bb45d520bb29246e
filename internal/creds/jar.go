// Package creds loads cookie material for authenticated personas from the
// three supported origins: an exported cookies file, an inline
// base64-encoded blob, or a local browser profile.
package creds

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Origin tells where a jar's cookie material came from.
type Origin string

const (
	OriginBrowser Origin = "browser"
	OriginFile    Origin = "file"
	OriginBase64  Origin = "base64"
)

// Jar is an opaque credential blob usable as an http.CookieJar.
type Jar struct {
	http.CookieJar
	Origin Origin
}

// FromFile loads a Netscape-format cookies file.
func FromFile(path string) (*Jar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookies file: %w", err)
	}
	defer f.Close()

	jar, err := parseNetscape(f)
	if err != nil {
		return nil, err
	}
	return &Jar{CookieJar: jar, Origin: OriginFile}, nil
}

// FromBase64 loads an inline base64-encoded Netscape cookies blob.
func FromBase64(blob string) (*Jar, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(blob))
	if err != nil {
		return nil, fmt.Errorf("decode cookie blob: %w", err)
	}
	jar, err := parseNetscape(strings.NewReader(string(decoded)))
	if err != nil {
		return nil, err
	}
	return &Jar{CookieJar: jar, Origin: OriginBase64}, nil
}

// parseNetscape reads the tab-separated cookies.txt format. The
// #HttpOnly_ domain prefix is honored; other comment lines are skipped.
func parseNetscape(r io.Reader) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		httpOnly := false
		if strings.HasPrefix(raw, "#HttpOnly_") {
			raw = strings.TrimPrefix(raw, "#HttpOnly_")
			httpOnly = true
		} else if strings.HasPrefix(raw, "#") {
			continue
		}

		fields := strings.Split(raw, "\t")
		if len(fields) < 7 {
			return nil, fmt.Errorf("malformed cookie line %d: %d fields", line, len(fields))
		}

		domain := strings.TrimPrefix(strings.TrimSpace(fields[0]), ".")
		expiry, _ := strconv.ParseInt(fields[4], 10, 64)
		cookie := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Domain:   strings.TrimSpace(fields[0]),
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
		}
		if expiry > 0 {
			cookie.Expires = time.Unix(expiry, 0)
		}
		setForDomain(jar, domain, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return jar, nil
}

func setForDomain(jar http.CookieJar, domain string, cookie *http.Cookie) {
	if domain == "" {
		return
	}
	jar.SetCookies(&url.URL{Scheme: "https", Host: domain}, []*http.Cookie{cookie})
}
