package handler

import (
	"net/http"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/core/service"
)

// search builds a record search from a path value, which may carry a
// full federated identifier ("id@server") or a bare local id.
func (h *Handler) search(r *http.Request) service.Search {
	s := service.SearchIdentifier(domain.ParseIdentifier(r.PathValue("id")))
	s.Force = r.URL.Query().Get("force") == "true"
	if v := r.URL.Query().Get("version"); v != "" {
		s.Qualifier = v
	}
	return s
}

// actor identifies the caller for resolution. Anonymous callers can
// read local records but never trigger outbound fetches.
func (h *Handler) actor(r *http.Request) (service.Actor, error) {
	user, err := h.authenticate(r)
	if err != nil {
		return service.Actor{}, err
	}
	return service.ActorFor(user), nil
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	user, err := h.svc.Users.Resolve(r.Context(), h.search(r), actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, viewUser(user, h.svc.Registry.Address()))
}

func (h *Handler) handleGetWorld(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	world, err := h.svc.Worlds.Resolve(r.Context(), h.search(r), actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, viewWorld(world, h.svc.Registry.Address()))
}

func (h *Handler) handleCreateWorld(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req createWorldRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	world, err := h.svc.Worlds.Create(r.Context(), service.ActorFor(user), req.Title, req.Description, req.Capacity, req.Tags)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusCreated, viewWorld(world, h.svc.Registry.Address()))
}

func (h *Handler) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	instance, err := h.svc.Instances.Resolve(r.Context(), h.search(r), actor)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusOK, viewInstance(instance, h.svc.Registry.Address()))
}

func (h *Handler) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	user, err := h.requireUser(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req createInstanceRequest
	if err := readJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	instance, err := h.svc.Instances.Create(r.Context(), service.ActorFor(user), req.World, req.Name, req.Title, req.Capacity, req.Tags)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteData(w, r, http.StatusCreated, viewInstance(instance, h.svc.Registry.Address()))
}
