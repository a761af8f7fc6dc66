// Package handler implements the HTTP API endpoints: node discovery,
// record resolution for peers and clients, authentication, and
// integrity issuance.
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/telemetry/logger"
	"github.com/hactazia/reileta/internal/telemetry/metric"
)

// Services bundles the application services the handler exposes.
type Services struct {
	Auth      *service.AuthService
	Users     *service.UserService
	Worlds    *service.WorldService
	Instances *service.InstanceService
	Integrity *service.IntegrityService
	Registry  *federation.Registry
}

// Handler routes API requests to the services.
type Handler struct {
	svc     Services
	metrics *metric.Registry
	logger  logger.Logger
	mux     *http.ServeMux
}

// New creates the API handler.
func New(svc Services, metrics *metric.Registry, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	h := &Handler{
		svc:     svc,
		metrics: metrics,
		logger:  log,
		mux:     http.NewServeMux(),
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.route("GET /health", h.handleHealth)
	h.route("GET /api/server", h.handleServer)

	h.route("POST /api/auth/register", h.handleRegister)
	h.route("POST /api/auth/login", h.handleLogin)
	h.route("POST /api/auth/logout", h.handleLogout)

	h.route("GET /api/users/me", h.handleMe)
	h.route("GET /api/users/{id}", h.handleGetUser)

	h.route("POST /api/worlds", h.handleCreateWorld)
	h.route("GET /api/worlds/{id}", h.handleGetWorld)

	h.route("POST /api/instances", h.handleCreateInstance)
	h.route("GET /api/instances/{id}", h.handleGetInstance)

	h.route("PUT /api/integrity", h.handleMakeIntegrity)
	h.route("POST /api/integrity", h.handleRequestIntegrity)
}

// route registers a pattern with request metrics attached.
func (h *Handler) route(pattern string, fn http.HandlerFunc) {
	parts := strings.SplitN(pattern, " ", 2)
	method, path := parts[0], parts[1]
	h.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		if h.metrics != nil {
			h.metrics.RequestsTotal.WithLabelValues(method, path, http.StatusText(rec.status)).Inc()
			h.metrics.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// credentials extracts the session or integrity token carried by the
// request. Authorization schemes "Bearer" and "Integrity" are
// recognized.
func credentials(r *http.Request) (sessionToken, integrityToken string) {
	auth := r.Header.Get("Authorization")
	switch {
	case strings.HasPrefix(auth, "Bearer "):
		sessionToken = strings.TrimPrefix(auth, "Bearer ")
	case strings.HasPrefix(auth, "Integrity "):
		integrityToken = strings.TrimPrefix(auth, "Integrity ")
	}
	if t := r.Header.Get("X-Integrity-Token"); t != "" {
		integrityToken = t
	}
	return sessionToken, integrityToken
}

// authenticate resolves the calling user, or nil when no credentials
// were presented.
func (h *Handler) authenticate(r *http.Request) (*domain.User, error) {
	sessionToken, integrityToken := credentials(r)
	if sessionToken == "" && integrityToken == "" {
		return nil, nil
	}
	return h.svc.Auth.Authenticate(r.Context(), sessionToken, integrityToken)
}

// requireUser resolves the calling user, failing when the request is
// anonymous.
func (h *Handler) requireUser(r *http.Request) (*domain.User, error) {
	user, err := h.authenticate(r)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotLogged
	}
	return user, nil
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// handleServer is the discovery endpoint: the node's self-description
// as peers and clients see it.
func (h *Handler) handleServer(w http.ResponseWriter, r *http.Request) {
	WriteData(w, r, http.StatusOK, h.svc.Registry.Self())
}
