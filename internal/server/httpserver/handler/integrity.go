package handler

import (
	"net/http"
	"strings"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
)

// handleMakeIntegrity is the peer-facing issue endpoint: a foreign
// server calls it with a federated user id to get an assertion token
// it can later hand back for authentication.
func (h *Handler) handleMakeIntegrity(w http.ResponseWriter, r *http.Request) {
	challenge := strings.TrimPrefix(r.Header.Get("Authorization"), "Challenge ")
	peer := r.Header.Get("User-Agent")
	if err := h.svc.Integrity.Verifier().Verify(r.Context(), peer, challenge); err != nil {
		WriteError(w, r, domain.ErrUserDontHavePermission.WithCause(err))
		return
	}

	var req makeIntegrityRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	record, err := h.svc.Integrity.Make(r.Context(), req.User)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, service.IntegrityGrant{
		ID:        record.ID,
		User:      record.UserIDs,
		Token:     record.Token,
		ExpiresAt: record.ExpiresAt,
	})
}

// handleRequestIntegrity is the user-facing endpoint: a logged-in
// user asks this node to obtain a grant from a foreign server on
// their behalf.
func (h *Handler) handleRequestIntegrity(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req requestIntegrityRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if req.Server == "" {
		WriteError(w, r, domain.ErrIntegrityInvalidInput.WithDetails("server required"))
		return
	}
	grant, err := h.svc.Integrity.Request(r.Context(), service.ActorFor(user), req.Server)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, grant)
}
