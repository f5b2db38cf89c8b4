package models

import "time"

// TokenSet is the OAuth token set for the delegated streaming service.
//
// ExpiresAt is an absolute epoch timestamp in milliseconds.
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// NewTokenSet builds a [TokenSet] from a token endpoint response, where expiresIn is in seconds.
func NewTokenSet(access, refresh string, expiresIn int, now time.Time) TokenSet {
	return TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second).UnixMilli(),
	}
}

// Expiry returns ExpiresAt as a [time.Time].
func (t TokenSet) Expiry() time.Time {
	return time.UnixMilli(t.ExpiresAt)
}
