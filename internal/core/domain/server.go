package domain

import (
	"net/url"
)

// Gateways are a server's advertised network endpoints for federation
// traffic. A peer may redirect them at runtime.
type Gateways struct {
	HTTP string `json:"http"`
	WS   string `json:"ws"`
}

// ServerRecord describes a peer server (or this node, when Internal
// is true). Records are created on first successful discovery, then
// persisted and re-linked under every known address alias.
type ServerRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Address     string    `json:"address"`
	Gateways    Gateways  `json:"gateways"`
	Secure      bool      `json:"secure"`
	Version     string    `json:"version"`
	ReadyAt     Millis    `json:"ready_at"`
	Icon        string    `json:"icon,omitempty"`

	// Challenge is a server-level secret authenticating this node's
	// outbound calls to that peer. Never serialized.
	Challenge string `json:"-"`

	Internal bool `json:"-"`
}

// HTTPGatewayURL parses the HTTP gateway. An empty URL and error mean
// the record was populated with an invalid gateway and must not be
// fetched against.
func (s *ServerRecord) HTTPGatewayURL() (*url.URL, error) {
	return url.Parse(s.Gateways.HTTP)
}

// Valid reports whether the record carries the fields a discovery
// response must provide, with syntactically valid URLs.
func (s *ServerRecord) Valid() bool {
	if s.ID == "" || s.Title == "" || s.Address == "" || s.Version == "" {
		return false
	}
	for _, raw := range []string{s.Gateways.HTTP, s.Gateways.WS} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || u.Scheme == "" {
			return false
		}
	}
	return true
}
