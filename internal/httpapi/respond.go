package httpapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/BrandonDHaskell/Gatekeeper/server/internal/gatekeeper/service"
	"github.com/BrandonDHaskell/Gatekeeper/server/internal/validation"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields, then
// validates it.
// pathParam returns the named route parameter with percent-encoding removed.
// chi routes on the raw path, so a key such as "AA%3ABB" reaches the handler
// still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return false
	}
	return validate(w, dst)
}

func validate(w http.ResponseWriter, v any) bool {
	if err := validation.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

// writeServiceError maps a service error onto a status code. Messages of
// *service.Error values are meant for clients; anything else is logged and
// hidden.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *service.Error
	msg := "unexpected server error"
	if errors.As(err, &svcErr) {
		msg = svcErr.Error()
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", msg)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", msg)
	case errors.Is(err, service.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", msg)
	case errors.Is(err, service.ErrPhotoWrite):
		writeError(w, http.StatusInternalServerError, "photo_write_failed", "Failed to save photo")
	case errors.Is(err, service.ErrPersist):
		writeError(w, http.StatusInternalServerError, "persist_failed", "Failed to save data")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
