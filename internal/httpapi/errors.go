package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/plugreg/plugreg/internal/analyzer"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
	"github.com/plugreg/plugreg/internal/resource"
)

// errBadRequest marks malformed query input caught at the HTTP layer.
var errBadRequest = errors.New("bad request")

// errorPayload mirrors the agent protocol's structured error object so both
// surfaces speak the same error language.
type errorPayload struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError classifies err into an error kind and HTTP status, then writes
// the structured error body.
func writeError(w http.ResponseWriter, err error) {
	kind, status := "internal", http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		kind, status = "invalid_argument", http.StatusBadRequest
	case errors.Is(err, resolver.ErrPathTraversal):
		kind, status = "path_traversal", http.StatusForbidden
		log.Error().Err(err).Msg("path traversal rejected")
	case errors.Is(err, resource.ErrResourceRead):
		kind, status = "resource_read", http.StatusNotFound
	case errors.Is(err, registry.ErrPluginNotFound):
		kind, status = "plugin_not_found", http.StatusNotFound
	case errors.Is(err, registry.ErrRegistryLoad):
		kind, status = "registry_load", http.StatusServiceUnavailable
	case errors.Is(err, analyzer.ErrInvalidProjectPath):
		kind, status = "invalid_project_path", http.StatusBadRequest
	default:
		log.Error().Err(err).Msg("http handler failed")
	}

	var payload errorPayload
	payload.Error.Kind = kind
	payload.Error.Message = err.Error()
	writeJSON(w, status, payload)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode http response")
	}
}

// writeText writes raw document bytes with an explicit content type.
func writeText(w http.ResponseWriter, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Msg("write http response")
	}
}
