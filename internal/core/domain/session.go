package domain

import "time"

// Session is a home-server login session. Only the SHA-256 hash of
// the session token is stored; the plaintext is handed to the client
// once at creation.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired reports whether the session has expired. A zero ExpiresAt
// means no expiration.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}
