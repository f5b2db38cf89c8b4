package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// CallbackPath is the path of the OAuth redirect page served next to the host page.
const CallbackPath = "/callback/spotify"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
	Player  PlayerConfig  `toml:"player"`
	Session SessionConfig `toml:"session"`
	Log     LogConfig     `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	Origin string `toml:"origin"`
}

// SpotifyConfig contains Spotify application credentials and player settings.
//
// ClientSecret is only read by the token proxy handler.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	ProxyURL     string   `toml:"proxy_url"`
	Scopes       []string `toml:"scopes"`
	PlayerName   string   `toml:"player_name"`
	RateLimit    float64  `toml:"rate_limit"`
}

// YouTubeConfig contains embedded player settings and curated sources keyed by name.
type YouTubeConfig struct {
	EmbedHost string            `toml:"embed_host"`
	Container string            `toml:"container"`
	Autoplay  bool              `toml:"autoplay"`
	Curated   map[string]string `toml:"curated"`
}

type PlayerConfig struct {
	DefaultVolume int `toml:"default_volume"`
}

// SessionConfig selects the session-scoped key/value backend.
//
// ID names the session for persistent backends so tokens survive a restart. Empty means a fresh
// id per process.
type SessionConfig struct {
	Backend   string `toml:"backend"`
	ID        string `toml:"id"`
	Path      string `toml:"path"`
	RedisAddr string `toml:"redis_addr"`
	TTLHours  int    `toml:"ttl_hours"`
}

// TTL returns the session lifetime, defaulting to 12 hours.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLHours <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(s.TTLHours) * time.Hour
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the values the integration layer cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port))
	}
	origin, err := url.Parse(c.Server.Origin)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		errs = append(errs, fmt.Errorf("%w: server.origin must be an absolute origin", ErrInvalidConfig))
		origin = nil
	}
	if c.Spotify.ClientID == "" {
		errs = append(errs, fmt.Errorf("%w: spotify.client_id", ErrMissingCredentials))
	}
	if c.Spotify.RedirectURI == "" {
		errs = append(errs, fmt.Errorf("%w: spotify.redirect_uri is required", ErrInvalidConfig))
	} else if origin != nil {
		if u, same := sameOrigin(c.Spotify.RedirectURI, origin); !same {
			errs = append(errs, fmt.Errorf("%w: spotify.redirect_uri %q is not on server.origin %q", ErrInvalidConfig, c.Spotify.RedirectURI, c.Server.Origin))
		} else if u.Path != CallbackPath {
			errs = append(errs, fmt.Errorf("%w: spotify.redirect_uri path must be %s", ErrInvalidConfig, CallbackPath))
		}
	}
	if c.Spotify.ClientSecret == "" && c.localProxy(origin) {
		errs = append(errs, fmt.Errorf("%w: spotify.client_secret is required by the built-in token proxy", ErrMissingCredentials))
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 100 {
		errs = append(errs, fmt.Errorf("%w: player.default_volume must be 0-100", ErrInvalidConfig))
	}
	switch c.YouTube.EmbedHost {
	case "https://www.youtube-nocookie.com", "https://www.youtube.com":
	default:
		errs = append(errs, fmt.Errorf("%w: youtube.embed_host %q is not an allowed host", ErrInvalidConfig, c.YouTube.EmbedHost))
	}
	switch c.Session.Backend {
	case "memory", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("%w: session.backend %q", ErrInvalidConfig, c.Session.Backend))
	}

	return errors.Join(errs...)
}

// localProxy reports whether token requests go to the proxy served by this process.
func (c *Config) localProxy(origin *url.URL) bool {
	if c.Spotify.ProxyURL == "" {
		return true
	}
	_, same := sameOrigin(c.Spotify.ProxyURL, origin)
	return same
}

// sameOrigin parses raw and reports whether it has the scheme and host of origin.
func sameOrigin(raw string, origin *url.URL) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || origin == nil {
		return u, false
	}
	return u, strings.EqualFold(u.Scheme, origin.Scheme) && strings.EqualFold(u.Host, origin.Host)
}
