package spotify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/shared"
)

var (
	spotifyURI = regexp.MustCompile(`^spotify:(track|episode|playlist|album|artist|show):([A-Za-z0-9]+)$`)
	spotifyID  = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)
)

// ParseSource classifies an open.spotify.com link, a spotify: URI, or a bare track id.
//
// Tracks and episodes are single items; playlists, albums, artists and shows are collections.
// The returned ID is always a spotify: URI.
func ParseSource(raw string) (models.PlaybackSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.PlaybackSource{}, fmt.Errorf("%w: empty input", shared.ErrInvalidSource)
	}

	if m := spotifyURI.FindStringSubmatch(raw); m != nil {
		return sourceFor(m[1], m[2]), nil
	}

	if spotifyID.MatchString(raw) {
		return sourceFor("track", raw), nil
	}

	u, err := url.Parse(raw)
	if err == nil && strings.HasSuffix(u.Hostname(), "open.spotify.com") {
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// Localized links look like /intl-de/track/<id>.
		if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
			parts = parts[1:]
		}
		if len(parts) >= 2 {
			if m := spotifyURI.FindStringSubmatch("spotify:" + parts[0] + ":" + parts[1]); m != nil {
				return sourceFor(m[1], m[2]), nil
			}
		}
	}

	return models.PlaybackSource{}, fmt.Errorf("%w: %q", shared.ErrInvalidSource, raw)
}

func sourceFor(kind, id string) models.PlaybackSource {
	uri := "spotify:" + kind + ":" + id
	switch kind {
	case "track", "episode":
		return models.PlaybackSource{Kind: models.SourceSingle, ID: uri}
	default:
		return models.PlaybackSource{Kind: models.SourceCollection, ID: uri}
	}
}
