package bridge

import "encoding/json"

// Commands sent to the page.
const (
	CmdInjectScript = "inject_script"
	CmdOpenPopup    = "open_popup"
	CmdToken        = "token"
	CmdSpotify      = "spotify"
	CmdYouTube      = "youtube"
)

// Events received from the page.
const (
	EvtHello        = "hello"
	EvtResult       = "result"
	EvtGlobalReady  = "global_ready"
	EvtScriptError  = "script_error"
	EvtOAuthMessage = "oauth_message"
	EvtTokenRequest = "token_request"
	EvtSpotify      = "spotify_event"
	EvtYouTube      = "youtube_event"
)

// Frame is one websocket message in either direction.
//
// ID correlates a command with its result and a token_request with its token reply. Player names
// the page-side player instance a frame is about.
type Frame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id,omitempty"`
	Player string          `json:"player,omitempty"`
	Method string          `json:"method,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type helloData struct {
	Scripts []string `json:"scripts"`
	Globals []string `json:"globals"`
}

type globalReadyData struct {
	Callback string `json:"callback"`
	Object   string `json:"object"`
}

type scriptData struct {
	Src     string `json:"src"`
	Message string `json:"message,omitempty"`
}

type popupData struct {
	URL    string `json:"url"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type oauthData struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

type tokenData struct {
	Token string `json:"token"`
}

func encode(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
