package server

import (
	"html/template"
	"net/http"

	"github.com/desertthunder/fitplay/internal/shared"
)

// CallbackPath is the redirect URI path registered with the accounts service.
const CallbackPath = shared.CallbackPath

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Connecting Spotify</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #1DB954; }
        .err { color: #c0392b; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Connecting…</h1>
        <p id="detail"></p>
    </div>
    <script>
    (function () {
        var origin = {{.Origin}};
        var params = new URLSearchParams(window.location.search);
        var message = {
            type: "oauth-callback",
            code: params.get("code") || undefined,
            state: params.get("state") || undefined,
            error: params.get("error") || undefined
        };
        var title = document.getElementById("title");
        var detail = document.getElementById("detail");

        if (!window.opener) {
            title.textContent = "Unable to finish connecting";
            title.className = "err";
            detail.textContent = "This window lost track of the page that opened it. Close it and connect again from the player.";
            return;
        }

        window.opener.postMessage(message, origin);
        if (message.error) {
            title.textContent = "Authorization cancelled";
            title.className = "err";
            detail.textContent = message.error;
        } else {
            title.textContent = "✓ Connected";
            title.className = "ok";
            detail.textContent = "This window will close automatically.";
        }
        setTimeout(function () { window.close(); }, {{.CloseDelayMS}});
    })();
    </script>
</body>
</html>
`))

// CallbackHandler renders the popup redirect page. It never touches tokens; the opener validates
// state and drives the exchange.
type CallbackHandler struct {
	origin string
}

func NewCallbackHandler(origin string) *CallbackHandler {
	return &CallbackHandler{origin: origin}
}

func (h *CallbackHandler) Routes() []string {
	return []string{http.MethodGet + " " + CallbackPath}
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Referrer-Policy", "no-referrer")

	data := struct {
		Origin       string
		CloseDelayMS int
	}{h.origin, 1500}
	if err := callbackPage.Execute(w, data); err != nil {
		http.Error(w, "failed to render callback page", http.StatusInternalServerError)
	}
}
