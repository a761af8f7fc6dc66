package config

import (
	"errors"
	"net/url"
	"os"
)

// Verify validates the configuration and derives gateway URLs from
// the public address when they are not set explicitly.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.RPS <= 0 {
		return errors.New("ratelimit.rps must be positive")
	}
	return nil
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Address == "" {
		return errors.New("server.address is required")
	}
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}

	httpScheme, wsScheme := "http", "ws"
	if cfg.Secure {
		httpScheme, wsScheme = "https", "wss"
	}
	if cfg.GatewayHTTP == "" {
		cfg.GatewayHTTP = httpScheme + "://" + cfg.Address
	}
	if cfg.GatewayWS == "" {
		cfg.GatewayWS = wsScheme + "://" + cfg.Address
	}
	for _, raw := range []string{cfg.GatewayHTTP, cfg.GatewayWS} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errors.New("invalid gateway URL: " + raw)
		}
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "", "memory":
		return nil
	case "badger":
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required")
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		return nil
	default:
		return errors.New("unknown storage backend: " + cfg.Backend)
	}
}
