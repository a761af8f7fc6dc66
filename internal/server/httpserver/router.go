package httpserver

import (
	"net/http"

	"github.com/hactazia/reileta/internal/server/config"
	"github.com/hactazia/reileta/internal/server/httpserver/handler"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// RouterConfig assembles the HTTP surface.
type RouterConfig struct {
	Services  handler.Services
	Metrics   *metric.Registry
	Logger    logger.Logger
	RateLimit config.RateLimitSection

	// Socket handles websocket upgrades at /api/ws.
	Socket http.Handler
}

// NewRouter builds the full HTTP handler: API routes behind the
// middleware chain, the metrics endpoint, and the websocket upgrade
// path.
func NewRouter(cfg *RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	h := handler.New(cfg.Services, cfg.Metrics, log)

	middlewares := []Middleware{
		RequestID(),
		Recover(log),
	}
	if cfg.RateLimit.Enabled {
		middlewares = append(middlewares, RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	mux := http.NewServeMux()
	mux.Handle("/", Chain(h, middlewares...))

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics.Handler())
	}
	if cfg.Socket != nil {
		// Upgrades bypass the rate limiter; the socket layer owns its
		// own connection lifecycle.
		mux.Handle("GET /api/ws", Chain(cfg.Socket, RequestID(), Recover(log)))
	}
	return mux
}
