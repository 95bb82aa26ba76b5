package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
)

const maxRequestBodySize = 1 << 20

// readJSON decodes the body into a T, answering 413 or 400 itself on failure.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (v T, ok bool) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	err := dec.Decode(&v)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return v, true
	case errors.As(err, &tooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		writeError(w, http.StatusBadRequest, "invalid request body")
	}
	return v, false
}

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// requireField answers 400 when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if value != "" {
		return true
	}
	writeError(w, http.StatusBadRequest, fieldName+" is required")
	return false
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		return n, true
	}
	writeError(w, http.StatusBadRequest, name+" must be a non-negative integer")
	return 0, false
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "status", status, "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// detail strips the sentinel suffix so clients see only the label, e.g.
// "vote: agent cmo already voted on post p1".
func detail(err, sentinel error) string {
	msg := err.Error()
	msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}

// writeDomainError answers 404, 409, 400 or 502 for known failures and 500
// for everything else.
func writeDomainError(w http.ResponseWriter, err error, notFoundMsg string) {
	var (
		callErr  *agent.CallError
		parseErr *agent.ParseError
	)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, domain.ErrConstraintViolation):
		writeError(w, http.StatusConflict, detail(err, domain.ErrConstraintViolation))
	case errors.Is(err, domain.ErrConflict), errors.Is(err, deliberation.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "pitch state changed; reload and retry")
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, detail(err, domain.ErrValidation))
	case errors.As(err, &callErr):
		slog.Warn("agent call failed", "op", callErr.Op, "agent_id", callErr.AgentID, "error", callErr.Err)
		writeError(w, http.StatusBadGateway, "agent unavailable")
	case errors.As(err, &parseErr):
		slog.Warn("agent response unusable", "op", parseErr.Op, "error", parseErr.Err)
		writeError(w, http.StatusBadGateway, "agent returned an unusable response")
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
