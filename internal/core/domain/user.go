package domain

import (
	"slices"
	"time"
)

// Well-known user tags.
const (
	TagAdmin           = "avr:admin"
	TagBot             = "avr:bot"
	TagRoot            = "avr:root"
	TagDisabled        = "avr:disabled"
	TagWorldCreator    = "avr:world_creator"
	TagInstanceCreator = "avr:instance_creator"
	TagFetchExternal   = "avr:fetch_external"
)

// User is an account record. Internal users are authoritative on this
// node; external users are read-only copies fetched from their home
// server and are never persisted as owned data.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Display      string    `json:"display,omitempty"`
	Tags         []string  `json:"tags"`
	Server       string    `json:"-"`
	Internal     bool      `json:"-"`
	Home         string    `json:"home,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Banner       string    `json:"banner,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// HasTag reports whether the user carries the given tag.
func (u *User) HasTag(tag string) bool {
	return slices.Contains(u.Tags, tag)
}

// IsAdministrator reports whether the user is a platform admin.
func (u *User) IsAdministrator() bool {
	return u.HasTag(TagAdmin)
}

// IsBot reports whether the user is a bot account.
func (u *User) IsBot() bool {
	return u.HasTag(TagBot)
}

// IsDisabled reports whether the account is disabled.
func (u *User) IsDisabled() bool {
	return u.HasTag(TagDisabled)
}

// CanFetch reports whether the user may trigger outbound federation
// fetches from this node. Only internal, non-disabled users qualify;
// admins bypass the disabled check.
func (u *User) CanFetch() bool {
	return u.Internal && (!u.IsDisabled() || u.IsAdministrator())
}

// CanCreateInstance reports whether the user may create instances.
func (u *User) CanCreateInstance() bool {
	return u.Internal && (u.HasTag(TagInstanceCreator) || u.IsAdministrator())
}

// DisplayName returns the display name, falling back to a placeholder.
func (u *User) DisplayName() string {
	if u.Display != "" {
		return u.Display
	}
	return "Unknown"
}

// Identifier returns the user's federated identifier.
func (u *User) Identifier() Identifier {
	server := u.Server
	if u.Internal || server == "" {
		server = SelfMarker
	}
	return Identifier{ID: u.ID, Server: server}
}

// External returns a copy of the user marked non-internal, as handed
// out when a foreign server authenticates one of this node's records
// or vice versa.
func (u *User) External(server string) *User {
	c := *u
	c.Internal = false
	c.Server = server
	c.PasswordHash = ""
	c.Tags = slices.Clone(u.Tags)
	return &c
}
