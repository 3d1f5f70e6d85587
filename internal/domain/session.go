package domain

import "time"

// Session is the explicit authenticated-identity value produced by the
// session bootstrap. It is threaded as a parameter into everything that needs
// the current user; nothing reads an ambient global identity.
type Session struct {
	ID         int64     `json:"id"`
	Token      string    `json:"token"`
	Phone      string    `json:"phone"`
	UID        string    `json:"uid"`
	Credential string    `json:"credential"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session credential has lapsed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
