// Package settings loads engine configuration from a TOML file and
// environment variables.
package settings

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/Paul-Berdier/GregLeConsanguin-sub000/resolver"
)

const envPrefix = "GREGRESOLVE"

// Settings mirrors resolver.Config in configuration-file terms.
type Settings struct {
	Proxy            string        `mapstructure:"proxy"`
	ForceIPv4        bool          `mapstructure:"force_ipv4"`
	UserAgent        string        `mapstructure:"user_agent"`
	Personas         []string      `mapstructure:"personas"`
	FormatPreference string        `mapstructure:"format_preference"`
	PreflightTimeout time.Duration `mapstructure:"preflight_timeout"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`

	Tokens  Tokens  `mapstructure:"tokens"`
	Cookies Cookies `mapstructure:"cookies"`
	Backoff Backoff `mapstructure:"backoff"`
	Logs    Logs    `mapstructure:"logs"`
}

type Tokens struct {
	Static            map[string]string `mapstructure:"static"`
	BrowserControlURL string            `mapstructure:"browser_control_url"`
	DisableFetch      bool              `mapstructure:"disable_fetch"`
	TTL               time.Duration     `mapstructure:"ttl"`
	FetchTimeout      time.Duration     `mapstructure:"fetch_timeout"`
}

type Cookies struct {
	FirefoxProfile string `mapstructure:"firefox_profile"`
	File           string `mapstructure:"file"`
	Base64         string `mapstructure:"base64"`
}

type Backoff struct {
	Initial time.Duration `mapstructure:"initial"`
	Max     time.Duration `mapstructure:"max"`
	Budget  int           `mapstructure:"budget"`
}

type Logs struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads settings from the given TOML file. An empty path loads
// defaults and environment variables only; a named file must exist.
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetConfigType("toml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("preflight_timeout", 10*time.Second)
	v.SetDefault("open_timeout", 15*time.Second)
	v.SetDefault("tokens.ttl", 6*time.Hour)
	v.SetDefault("tokens.fetch_timeout", 90*time.Second)
	v.SetDefault("backoff.initial", 2*time.Second)
	v.SetDefault("backoff.max", 30*time.Second)
	v.SetDefault("backoff.budget", 2)
	v.SetDefault("logs.level", "info")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Logger builds the process logger described by the Logs section.
func (s Settings) Logger() *logrus.Logger {
	log := logrus.New()
	if s.Logs.JSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(s.Logs.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// ResolverConfig maps the settings onto the engine's configuration.
func (s Settings) ResolverConfig(log logrus.FieldLogger) resolver.Config {
	return resolver.Config{
		ProxyURL:          s.Proxy,
		ForceIPv4:         s.ForceIPv4,
		UserAgent:         s.UserAgent,
		PersonaOrder:      s.Personas,
		FormatPreference:  s.FormatPreference,
		StaticTokens:      s.Tokens.Static,
		BrowserControlURL: s.Tokens.BrowserControlURL,
		DisableTokenFetch: s.Tokens.DisableFetch,
		TokenTTL:          s.Tokens.TTL,
		TokenFetchTimeout: s.Tokens.FetchTimeout,
		FirefoxProfile:    s.Cookies.FirefoxProfile,
		CookiesFile:       s.Cookies.File,
		CookiesBase64:     s.Cookies.Base64,
		PreflightTimeout:  s.PreflightTimeout,
		OpenTimeout:       s.OpenTimeout,
		BackoffInitial:    s.Backoff.Initial,
		BackoffMax:        s.Backoff.Max,
		BackoffBudget:     s.Backoff.Budget,
		Logger:            log,
	}
}
