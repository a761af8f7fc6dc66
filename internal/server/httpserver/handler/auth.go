package handler

import (
	"net/http"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/telemetry/logger"
)

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := h.svc.Users.Create(r.Context(), req.Username, req.Password, req.Display, nil)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusCreated, viewUser(user, h.svc.Registry.Address()))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	user, session, plaintext, err := h.svc.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		logger.L(r.Context()).Warn("login failed", "username", req.Username)
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, loginResponse{
		User:      viewUser(user, h.svc.Registry.Address()),
		Token:     plaintext,
		ExpiresAt: session.ExpiresAt,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sessionToken, _ := credentials(r)
	if sessionToken == "" {
		WriteError(w, r, domain.ErrAuthInvalidInput)
		return
	}
	if err := h.svc.Auth.Logout(r.Context(), sessionToken); err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, map[string]bool{"logout": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, viewUser(user, h.svc.Registry.Address()))
}
