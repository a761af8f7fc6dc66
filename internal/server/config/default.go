package config

import "time"

// Default configuration values.
const (
	DefaultAddr    = "127.0.0.1:3032"
	DefaultDataDir = "/var/lib/reileta/data"

	DefaultFederationTimeout = 10 * time.Second
	DefaultIntegrityTTL      = 300 * time.Second
	DefaultSessionTTL        = 30 * 24 * time.Hour

	DefaultRateRPS   = 20.0
	DefaultRateBurst = 40

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:  DefaultAddr,
			Title: "Reileta",
		},
		Storage: StorageSection{
			Backend: "badger",
			DataDir: DefaultDataDir,
		},
		Federation: FederationSection{
			Timeout:      DefaultFederationTimeout,
			IntegrityTTL: DefaultIntegrityTTL,
		},
		Session: SessionSection{
			TTL: DefaultSessionTTL,
		},
		RateLimit: RateLimitSection{
			Enabled: true,
			RPS:     DefaultRateRPS,
			Burst:   DefaultRateBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
