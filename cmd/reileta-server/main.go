// Package main is the entry point for reileta-server, the federated
// virtual-space node: the HTTP discovery and record API plus the
// realtime instance socket.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hactazia/reileta/internal/cache"
	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/infra/buildinfo"
	"github.com/hactazia/reileta/internal/infra/confloader"
	"github.com/hactazia/reileta/internal/infra/shutdown"
	"github.com/hactazia/reileta/internal/server/config"
	"github.com/hactazia/reileta/internal/server/httpserver"
	"github.com/hactazia/reileta/internal/server/httpserver/handler"
	"github.com/hactazia/reileta/internal/server/socketserver"
	"github.com/hactazia/reileta/internal/storage"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
	"github.com/hactazia/reileta/pkg/crypto/adaptive"
)

func main() {
	app := &cli.App{
		Name:    "reileta-server",
		Usage:   "federated virtual-space server",
		Version: buildinfo.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to configuration file",
				EnvVars: []string{"REILETA_CONFIG"},
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	loader := confloader.NewLoader(confloader.WithConfigFile(c.String("config")))
	if err := loader.Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return fmt.Errorf("verify config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	logger.SetDefault(log)

	log.Info("starting reileta-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"address", cfg.Server.Address)

	metrics := metric.NewRegistry()

	store, err := openStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	self := selfRecord(cfg)
	client := federation.NewClient(store.Servers(), cfg.Server.Address, log, metrics)
	registry := federation.NewRegistry(store.Servers(), client, self, log)

	users := service.NewUserService(store.Users(), registry, client, metrics, log)
	worlds := service.NewWorldService(store.Worlds(), registry, client, metrics, log)
	instances := service.NewInstanceService(store.Instances(), worlds, registry, client, metrics, log)
	sessions := service.NewSessionService(store.Sessions(), cfg.Session.TTL, log)
	integrity := service.NewIntegrityService(store.Integrity(), users, registry, client, nil, cfg.Federation.IntegrityTTL, metrics, log)
	auth := service.NewAuthService(users, sessions, integrity, log)

	ctx := context.Background()
	if err := users.EnsureRoot(ctx, cfg.Root.Username, cfg.Root.Password); err != nil {
		return fmt.Errorf("bootstrap root: %w", err)
	}

	socket := socketserver.New(auth, instances, registry, metrics, log)

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Services: handler.Services{
			Auth:      auth,
			Users:     users,
			Worlds:    worlds,
			Instances: instances,
			Integrity: integrity,
			Registry:  registry,
		},
		Metrics:   metrics,
		Logger:    log,
		RateLimit: cfg.RateLimit,
		Socket:    socket,
	})

	httpServer := httpserver.New(cfg.Server.Addr, router)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Periodic eviction of expired resolution and discovery entries.
	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	for _, c := range []*cache.Cache{
		users.Cache(), worlds.Cache(), instances.Cache(), registry.Cache(),
	} {
		c.StartSweep(sweepCtx, time.Minute)
	}
	shutdownHandler.OnShutdown(func(context.Context) error {
		stopSweeps()
		return nil
	})

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down storage")
		return store.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpServer.Shutdown(ctx)
	})

	watchConfig(c.String("config"), cfg, log)

	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		var err error
		if cfg.Server.TLSCertFile != "" {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

func openStorage(cfg *config.ServerConfig, log logger.Logger) (storage.Store, error) {
	var cipher adaptive.Cipher
	if cfg.Storage.EncryptionKey != "" {
		key, err := hex.DecodeString(cfg.Storage.EncryptionKey)
		if err != nil {
			key, err = adaptive.DeriveKey([]byte(cfg.Storage.EncryptionKey), "storage")
			if err != nil {
				return nil, err
			}
		}
		cipher, err = adaptive.New(key)
		if err != nil {
			return nil, err
		}
	}
	return storage.Open(storage.Config{
		Backend: cfg.Storage.Backend,
		DataDir: cfg.Storage.DataDir,
		Cipher:  cipher,
		Logger:  log.Slog(),
	})
}

// selfRecord builds this node's own server record from configuration.
func selfRecord(cfg *config.ServerConfig) *domain.ServerRecord {
	return &domain.ServerRecord{
		ID:          domain.GenerateServerID(),
		Title:       cfg.Server.Title,
		Description: cfg.Server.Description,
		Address:     cfg.Server.Address,
		Gateways: domain.Gateways{
			HTTP: cfg.Server.GatewayHTTP,
			WS:   cfg.Server.GatewayWS,
		},
		Secure:   cfg.Server.Secure,
		Version:  buildinfo.Version,
		ReadyAt:  domain.NowMillis(),
		Icon:     cfg.Server.Icon,
		Internal: true,
	}
}

// watchConfig reloads the log level when the config file changes.
func watchConfig(path string, cfg *config.ServerConfig, log logger.Logger) {
	if path == "" {
		return
	}
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return
	}
	if err := watcher.Watch(path); err != nil {
		log.Warn("config watch failed", "path", path, "error", err)
		return
	}
	watcher.OnChange(func(changed string) {
		reloaded := config.Default()
		loader := confloader.NewLoader(confloader.WithConfigFile(path))
		if err := loader.Load(reloaded); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if reloaded.Log.Level != cfg.Log.Level {
			logger.SetLevel(reloaded.Log.Level)
			cfg.Log.Level = reloaded.Log.Level
			log.Info("log level updated", "level", reloaded.Log.Level)
		}
	})
	watcher.StartAsync()
}
