package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/sdk"
	"github.com/desertthunder/fitplay/internal/shared"
)

var (
	_ sdk.Document = (*Hub)(nil)
	_ auth.Window  = (*Hub)(nil)
)

// HasScript reports whether the page has a script tag for src, as of its hello frame or an
// injection made through this hub.
func (h *Hub) HasScript(src string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scripts[src]
}

// HasGlobal reports whether the page has defined the global name.
func (h *Hub) HasGlobal(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.objects[name]
}

// InjectScript asks the page to append a script tag for src. It does not wait for the script.
func (h *Hub) InjectScript(src string, onError func(error)) error {
	h.mu.Lock()
	if h.conn == nil {
		h.mu.Unlock()
		return fmt.Errorf("inject %s: %w", src, shared.ErrBridgeOffline)
	}
	h.scripts[src] = true
	h.scriptErrors[src] = onError
	h.mu.Unlock()

	if err := h.send(Frame{Type: CmdInjectScript, Data: encode(scriptData{Src: src})}); err != nil {
		h.mu.Lock()
		delete(h.scripts, src)
		delete(h.scriptErrors, src)
		h.mu.Unlock()
		return err
	}
	return nil
}

// OpenPopup asks the page to open a popup window. The page reports a blocked popup as an error.
func (h *Hub) OpenPopup(url, name string, features auth.PopupFeatures) error {
	_, err := h.call(context.Background(), Frame{
		Type: CmdOpenPopup,
		Data: encode(popupData{URL: url, Name: name, Width: features.Width, Height: features.Height}),
	})
	return err
}

// relayOAuth hands a popup message to the OAuth channel with the origin the browser reported.
func (h *Hub) relayOAuth(f Frame) {
	if h.channel == nil {
		return
	}
	var data oauthData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		h.logger.Warn("bad oauth_message frame", "error", err)
		return
	}
	var env auth.Envelope
	if err := json.Unmarshal(data.Data, &env); err != nil {
		h.logger.Debug("ignoring non-envelope message", "origin", data.Origin)
		return
	}
	if err := h.channel.Deliver(context.Background(), data.Origin, env); err != nil {
		h.logger.Warn("oauth message rejected", "origin", data.Origin, "error", err)
	}
}

// answerToken replies to the Spotify SDK's getOAuthToken callback.
func (h *Hub) answerToken(f Frame) {
	h.mu.Lock()
	p := h.spotify[f.Player]
	h.mu.Unlock()

	reply := Frame{Type: CmdToken, ID: f.ID, Player: f.Player}
	if p == nil {
		reply.Error = "unknown player"
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		token, err := p.opts.GetOAuthToken(ctx)
		cancel()
		if err != nil {
			h.logger.Warn("token request failed", "error", err)
			reply.Error = err.Error()
		} else {
			reply.Data = encode(tokenData{Token: token})
		}
	}

	if err := h.send(reply); err != nil && !errors.Is(err, shared.ErrBridgeOffline) {
		h.logger.Warn("failed to send token", "error", err)
	}
}
