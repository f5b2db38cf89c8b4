package youtube

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/shared"
)

var (
	videoPattern = regexp.MustCompile(`(?:[?&]v=|youtu\.be/|/embed/|/shorts/|/live/|/v/)([A-Za-z0-9_-]{11})`)
	listPattern  = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]+)`)
	bareID       = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// ParseSource classifies a YouTube URL or a bare playlist id.
//
// Collections always loop. A URL naming both a video and a list is the list, started at that
// video.
func ParseSource(raw string) (models.PlaybackSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.PlaybackSource{}, fmt.Errorf("%w: empty input", shared.ErrInvalidSource)
	}

	if !strings.ContainsAny(raw, "/.") {
		if !bareID.MatchString(raw) {
			return models.PlaybackSource{}, fmt.Errorf("%w: %q", shared.ErrInvalidSource, raw)
		}
		return models.PlaybackSource{Kind: models.SourceCollection, ID: raw, Loop: true}, nil
	}

	var video, list string
	if m := videoPattern.FindStringSubmatch(raw); m != nil {
		video = m[1]
	}
	if m := listPattern.FindStringSubmatch(raw); m != nil {
		list = m[1]
	}

	switch {
	case list != "":
		return models.PlaybackSource{Kind: models.SourceCollection, ID: list, StartID: video, Loop: true}, nil
	case video != "":
		return models.PlaybackSource{Kind: models.SourceSingle, ID: video}, nil
	default:
		return models.PlaybackSource{}, fmt.Errorf("%w: %q", shared.ErrInvalidSource, raw)
	}
}

// Curated maps short names to configured sources.
type Curated map[string]string

// Resolve parses the source configured under name.
func (c Curated) Resolve(name string) (models.PlaybackSource, error) {
	raw, ok := c[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return models.PlaybackSource{}, fmt.Errorf("%w: no curated source %q", shared.ErrInvalidSource, name)
	}
	return ParseSource(raw)
}

// Names lists the curated names in no particular order.
func (c Curated) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	return names
}
