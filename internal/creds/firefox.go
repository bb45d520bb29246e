package creds

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// FromFirefoxProfile reads cookies.sqlite out of a Firefox profile
// directory. Firefox stores cookie values unencrypted, so no OS keyring
// access is needed. The database is opened read-only and immutable, which
// tolerates a concurrently running browser.
func FromFirefoxProfile(profileDir string) (*Jar, error) {
	dbPath := filepath.Join(profileDir, "cookies.sqlite")
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("firefox profile has no cookie store: %w", err)
	}

	db, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open cookie store: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT host, path, isSecure, expiry, name, value FROM moz_cookies`)
	if err != nil {
		return nil, fmt.Errorf("read cookie store: %w", err)
	}
	defer rows.Close()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var (
			host, path, name, value string
			isSecure                int
			expiry                  int64
		)
		if err := rows.Scan(&host, &path, &isSecure, &expiry, &name, &value); err != nil {
			return nil, fmt.Errorf("scan cookie row: %w", err)
		}
		cookie := &http.Cookie{
			Name:   name,
			Value:  value,
			Path:   path,
			Domain: host,
			Secure: isSecure != 0,
		}
		if expiry > 0 {
			cookie.Expires = time.Unix(expiry, 0)
		}
		setForDomain(jar, strings.TrimPrefix(host, "."), cookie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cookie store: %w", err)
	}

	return &Jar{CookieJar: jar, Origin: OriginBrowser}, nil
}
