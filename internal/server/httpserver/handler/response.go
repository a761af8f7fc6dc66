package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hactazia/reileta/internal/core/domain"
	"github.com/hactazia/reileta/internal/federation"
	"github.com/hactazia/reileta/internal/telemetry/logger"
)

// WriteData writes a success envelope.
func WriteData(w http.ResponseWriter, r *http.Request, status int, data any) {
	env, err := federation.NewEnvelope(requestName(r), data)
	if err != nil {
		WriteError(w, r, domain.ErrInternalError.WithCause(err))
		return
	}
	writeJSON(w, r, status, env)
}

// WriteError writes an error envelope with the error's HTTP status.
// Non-domain errors are masked as internal errors.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var errMsg *domain.ErrorMessage
	if !errors.As(err, &errMsg) {
		logger.L(r.Context()).Error("unclassified handler error", "error", err)
		errMsg = domain.ErrInternalError
	}
	status := errMsg.Status
	if status == 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, r, status, federation.NewErrorEnvelope(requestName(r), errMsg))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, env *federation.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.L(r.Context()).Error("write response", "error", err)
	}
}

func requestName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// readJSON decodes a request body, bounding its size.
func readJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(out); err != nil {
		return domain.ErrUserInvalidInput.WithDetails("invalid json body").WithCause(err)
	}
	return nil
}
