package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, s.PreflightTimeout)
	assert.Equal(t, 15*time.Second, s.OpenTimeout)
	assert.Equal(t, 6*time.Hour, s.Tokens.TTL)
	assert.Equal(t, 2*time.Second, s.Backoff.Initial)
	assert.Equal(t, 30*time.Second, s.Backoff.Max)
	assert.Equal(t, 2, s.Backoff.Budget)
	assert.Equal(t, "info", s.Logs.Level)
	assert.Empty(t, s.Personas)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gregresolve.toml")
	body := `
proxy = "socks5://127.0.0.1:9050"
force_ipv4 = true
personas = ["android", "web"]
format_preference = "251/bestaudio[abr<=160]"
preflight_timeout = "5s"

[tokens]
disable_fetch = true

[tokens.static]
web = "static-po-token"

[cookies]
file = "/var/lib/greg/cookies.txt"

[backoff]
initial = "1s"
max = "8s"
budget = 4

[logs]
level = "debug"
json = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "socks5://127.0.0.1:9050", s.Proxy)
	assert.True(t, s.ForceIPv4)
	assert.Equal(t, []string{"android", "web"}, s.Personas)
	assert.Equal(t, "251/bestaudio[abr<=160]", s.FormatPreference)
	assert.Equal(t, 5*time.Second, s.PreflightTimeout)
	assert.Equal(t, 15*time.Second, s.OpenTimeout)
	assert.True(t, s.Tokens.DisableFetch)
	assert.Equal(t, "static-po-token", s.Tokens.Static["web"])
	assert.Equal(t, "/var/lib/greg/cookies.txt", s.Cookies.File)
	assert.Equal(t, time.Second, s.Backoff.Initial)
	assert.Equal(t, 8*time.Second, s.Backoff.Max)
	assert.Equal(t, 4, s.Backoff.Budget)
	assert.Equal(t, "debug", s.Logs.Level)
	assert.True(t, s.Logs.JSON)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	log := Settings{Logs: Logs{Level: "warn"}}.Logger()
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log = Settings{Logs: Logs{Level: "nonsense"}}.Logger()
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log = Settings{Logs: Logs{Level: "debug", JSON: true}}.Logger()
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestResolverConfigMapping(t *testing.T) {
	s := Settings{
		Proxy:            "http://proxy:3128",
		Personas:         []string{"ios"},
		FormatPreference: "140",
		Tokens:           Tokens{TTL: time.Hour, Static: map[string]string{"ios": "tok"}},
		Backoff:          Backoff{Budget: 3},
	}
	log := logrus.New()

	cfg := s.ResolverConfig(log)
	assert.Equal(t, "http://proxy:3128", cfg.ProxyURL)
	assert.Equal(t, []string{"ios"}, cfg.PersonaOrder)
	assert.Equal(t, "140", cfg.FormatPreference)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "tok", cfg.StaticTokens["ios"])
	assert.Equal(t, 3, cfg.BackoffBudget)
	assert.Equal(t, logrus.FieldLogger(log), cfg.Logger)
}
