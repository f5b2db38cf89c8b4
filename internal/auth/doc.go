// Package auth implements the delegated streaming service's authorization code flow and token lifecycle.
//
// # Flow
//
// [Flow] drives idle -> awaiting_popup -> exchanging -> connected | failed. Connect stores a
// one-time state nonce and opens the authorization URL in a popup through a [Window]. The
// popup's callback page posts an [Envelope] back to its opener, which the websocket bridge
// relays into a [Channel]. The channel drops envelopes from any origin but the app's own and
// the flow rejects any state that does not match the stored nonce. Codes are exchanged
// through the trusted token proxy so the client secret never reaches the browser.
//
// # Tokens
//
// [TokenStore] persists the [models.TokenSet] in the session store. [Manager.GetValidToken]
// returns the cached access token while it is valid past [ExpiryBuffer] and refreshes it
// through the proxy otherwise. A failed refresh clears the tokens and notifies OnAuthLost
// hooks; it is never retried.
package auth
