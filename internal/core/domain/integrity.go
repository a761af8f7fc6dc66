package domain

import "time"

// IntegrityRecord is a short-lived cross-server identity assertion:
// this node vouching that a token maps to one of the users it has
// resolved, without the user's home-server session token ever being
// shared. At most one active record exists per user; re-issuing while
// one is active extends its expiry instead of minting a duplicate.
type IntegrityRecord struct {
	ID        string    `json:"id"`
	UserIDs   string    `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// IsExpired reports whether the assertion has expired. Expiry is
// absolute wall-clock, not sliding.
func (r *IntegrityRecord) IsExpired() bool {
	return time.Now().After(r.ExpiresAt)
}

// Extend pushes the expiry to now + ttl and refreshes UpdatedAt.
func (r *IntegrityRecord) Extend(ttl time.Duration) {
	now := time.Now()
	r.ExpiresAt = now.Add(ttl)
	r.UpdatedAt = now
}
