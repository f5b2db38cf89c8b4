package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// ApplyEnv loads envFile (if present) into the process environment and overrides config values from FITPLAY_* variables.
//
// A missing envFile is not an error.
func ApplyEnv(c *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	str := map[string]*string{
		"FITPLAY_SPOTIFY_CLIENT_ID":     &c.Spotify.ClientID,
		"FITPLAY_SPOTIFY_CLIENT_SECRET": &c.Spotify.ClientSecret,
		"FITPLAY_SPOTIFY_REDIRECT_URI":  &c.Spotify.RedirectURI,
		"FITPLAY_SPOTIFY_PROXY_URL":     &c.Spotify.ProxyURL,
		"FITPLAY_SERVER_HOST":           &c.Server.Host,
		"FITPLAY_SERVER_ORIGIN":         &c.Server.Origin,
		"FITPLAY_SESSION_BACKEND":       &c.Session.Backend,
		"FITPLAY_SESSION_PATH":          &c.Session.Path,
		"FITPLAY_REDIS_ADDR":            &c.Session.RedisAddr,
		"FITPLAY_LOG_LEVEL":             &c.Log.Level,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("FITPLAY_SERVER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: FITPLAY_SERVER_PORT=%q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	return nil
}
