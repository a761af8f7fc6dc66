// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for reileta-server.
type ServerConfig struct {
	Server     ServerSection     `koanf:"server"`
	Storage    StorageSection    `koanf:"storage"`
	Federation FederationSection `koanf:"federation"`
	Session    SessionSection    `koanf:"session"`
	Root       RootSection       `koanf:"root"`
	RateLimit  RateLimitSection  `koanf:"ratelimit"`
	Log        LogSection        `koanf:"log"`
}

// ServerSection configures the node identity and listener.
type ServerSection struct {
	// Address is the public address peers reach this node at,
	// e.g. "avr.example.org". It is the node's federation identity.
	Address string `koanf:"address"`

	// Addr is the local bind address.
	Addr string `koanf:"addr"`

	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	Icon        string `koanf:"icon"`

	// Secure declares that peers reach this node over https. Gateway
	// URLs are derived from it unless overridden.
	Secure      bool   `koanf:"secure"`
	GatewayHTTP string `koanf:"gateway_http"`
	GatewayWS   string `koanf:"gateway_ws"`

	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// StorageSection configures the persistent store.
type StorageSection struct {
	// Backend is "badger" or "memory".
	Backend string `koanf:"backend"`
	DataDir string `koanf:"data_dir"`

	// EncryptionKey seals peer challenge secrets at rest. Empty
	// disables sealing.
	EncryptionKey string `koanf:"encryption_key"`
}

// FederationSection configures server-to-server behavior.
type FederationSection struct {
	Timeout      time.Duration `koanf:"timeout"`
	IntegrityTTL time.Duration `koanf:"integrity_ttl"`
}

// SessionSection configures login sessions.
type SessionSection struct {
	TTL time.Duration `koanf:"ttl"`
}

// RootSection bootstraps the root administrator on first start.
type RootSection struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// RateLimitSection configures per-client HTTP rate limiting.
type RateLimitSection struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
