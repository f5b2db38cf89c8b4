package sdk

import (
	"fmt"

	"github.com/desertthunder/fitplay/internal/shared"
)

// Key identifies a supported SDK.
type Key string

const (
	Spotify Key = "spotify"
	YouTube Key = "youtube"
)

// Descriptor describes how an SDK is delivered and how it announces readiness.
type Descriptor struct {
	ScriptURL     string
	ReadyCallback string // global function the SDK invokes once loaded
	GlobalObject  string // global the SDK defines once loaded
}

var descriptors = map[Key]Descriptor{
	Spotify: {
		ScriptURL:     "https://sdk.scdn.co/spotify-player.js",
		ReadyCallback: "onSpotifyWebPlaybackSDKReady",
		GlobalObject:  "Spotify",
	},
	YouTube: {
		ScriptURL:     "https://www.youtube.com/iframe_api",
		ReadyCallback: "onYouTubeIframeAPIReady",
		GlobalObject:  "YT",
	},
}

// Lookup returns the [Descriptor] for key.
func Lookup(key Key) (Descriptor, error) {
	desc, ok := descriptors[key]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", shared.ErrUnknownSDK, key)
	}
	return desc, nil
}

// Keys returns every registered SDK key.
func Keys() []Key {
	return []Key{Spotify, YouTube}
}

// Document is the page surface the loader needs.
//
// InjectScript must not block until the script has executed; readiness is reported through
// the global-ready callback and failures through onError.
type Document interface {
	HasScript(src string) bool
	HasGlobal(name string) bool
	InjectScript(src string, onError func(error)) error
}

// LoadStatus is the loader state of one SDK.
type LoadStatus int

const (
	Unloaded LoadStatus = iota
	Loading
	Ready
)

func (s LoadStatus) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}
