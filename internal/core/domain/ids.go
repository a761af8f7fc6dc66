package domain

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SelfMarker is the canonical server value for records owned by this
// node. Any address recognized as "this node" normalizes to it, so a
// record's cache key is stable no matter which alias was used to
// reach it.
const SelfMarker = "::"

// Identifier is a federated identifier: a record's local id plus its
// owning server, with an optional qualifier (a world version, for
// example). The text form is "id[:qualifier]@server"; a missing
// server segment means the record is local.
type Identifier struct {
	ID        string
	Server    string
	Qualifier string
}

// ParseIdentifier parses "id[:qualifier]@server". A missing or empty
// server segment parses as the self marker.
func ParseIdentifier(s string) Identifier {
	var id Identifier
	head, server, _ := strings.Cut(s, "@")
	id.ID, id.Qualifier, _ = strings.Cut(head, ":")
	if server == "" {
		id.Server = SelfMarker
	} else {
		id.Server = server
	}
	return id
}

// String serializes the identifier. The self marker is kept verbatim;
// use StringFor to substitute the node's own address for federation
// payloads.
func (id Identifier) String() string {
	var b strings.Builder
	b.WriteString(id.ID)
	if id.Qualifier != "" {
		b.WriteByte(':')
		b.WriteString(id.Qualifier)
	}
	b.WriteByte('@')
	b.WriteString(id.Server)
	return b.String()
}

// StringFor serializes the identifier, replacing the self marker with
// the given node address.
func (id Identifier) StringFor(self string) string {
	out := id
	if out.Server == SelfMarker || out.Server == "" {
		out.Server = self
	}
	return out.String()
}

// IsLocal reports whether the identifier refers to a record owned by
// this node.
func (id Identifier) IsLocal() bool {
	return id.Server == SelfMarker || id.Server == ""
}

// Equal reports whether two identifiers name the same record: local
// id and normalized server both match.
func (id Identifier) Equal(other Identifier) bool {
	return id.ID == other.ID && id.Server == other.Server
}

var loopbackAliases = []*regexp.Regexp{
	regexp.MustCompile(`^127\.\d+\.\d+\.\d+(:\d+)?$`),
	regexp.MustCompile(`^0\.\d+\.\d+\.\d+(:\d+)?$`),
	regexp.MustCompile(`^localhost(:\d+)?$`),
}

// IsOwnAddress reports whether addr refers to this node, either by
// matching the preferred address or by being a loopback alias.
func IsOwnAddress(addr, preferred string) bool {
	if addr == preferred || addr == SelfMarker {
		return true
	}
	for _, re := range loopbackAliases {
		if re.MatchString(addr) {
			return true
		}
	}
	return false
}

// NormalizeServer maps any address recognized as this node to the
// self marker and strips a scheme if one is present.
func NormalizeServer(addr, preferred string) string {
	addr = StripScheme(addr)
	if addr == "" || IsOwnAddress(addr, preferred) {
		return SelfMarker
	}
	return addr
}

// StripScheme reduces an address to a bare host[:port]. Inputs may
// arrive as "https://host", "host:port", or a bare host.
func StripScheme(addr string) string {
	if strings.Contains(addr, "://") {
		if u, err := url.Parse(addr); err == nil && u.Host != "" {
			return u.Host
		}
	}
	// url.Parse treats "host:3032" as scheme "host"; anchor with a
	// throwaway scheme to extract the host the way a browser would.
	if u, err := url.Parse("h://" + addr); err == nil && u.Host != "" {
		return u.Host
	}
	return addr
}

// Entity id prefixes. Ids are prefixed lowercase ULIDs so that their
// kind is readable in logs and wire payloads.
const (
	UserIDPrefix      = "u_"
	WorldIDPrefix     = "w_"
	InstanceIDPrefix  = "i_"
	SessionIDPrefix   = "s_"
	PlayerIDPrefix    = "p_"
	ServerIDPrefix    = "srv_"
	IntegrityIDPrefix = "g_"
)

func newID(prefix string) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return prefix + strings.ToLower(id.String())
}

// GenerateUserID returns a new user id.
func GenerateUserID() string { return newID(UserIDPrefix) }

// GenerateWorldID returns a new world id.
func GenerateWorldID() string { return newID(WorldIDPrefix) }

// GenerateInstanceID returns a new instance id.
func GenerateInstanceID() string { return newID(InstanceIDPrefix) }

// GenerateSessionID returns a new session id.
func GenerateSessionID() string { return newID(SessionIDPrefix) }

// GeneratePlayerID returns a new player id.
func GeneratePlayerID() string { return newID(PlayerIDPrefix) }

// GenerateServerID returns a new server record id.
func GenerateServerID() string { return newID(ServerIDPrefix) }

// GenerateIntegrityID returns a new integrity record id.
func GenerateIntegrityID() string { return newID(IntegrityIDPrefix) }

// GenerateInstanceName returns a short human-typeable instance name.
func GenerateInstanceName() string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "000000"
	}
	return hex.EncodeToString(b[:])
}
