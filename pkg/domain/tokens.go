package domain

import "time"

// Tokens is the access/refresh credential pair held for the signed-in user.
type Tokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Empty reports whether no access token is held.
func (t Tokens) Empty() bool {
	return t.AccessToken == ""
}

// Expired reports whether the access token should be treated as expired at now.
// A zero ExpiresAt means the expiry is unknown and the token is used as-is.
func (t Tokens) Expired(now time.Time, leeway time.Duration) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt.Add(-leeway))
}
