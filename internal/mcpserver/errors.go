package mcpserver

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/plugreg/plugreg/internal/analyzer"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
	"github.com/plugreg/plugreg/internal/resource"
)

// ErrInvalidArgument marks malformed tool-call arguments, caught at the
// protocol boundary before dispatch.
var ErrInvalidArgument = errors.New("invalid argument")

// Error kinds surfaced to calling agents. Agents branch on these, so they
// are part of the protocol contract.
const (
	kindRegistryLoad       = "registry_load"
	kindPluginNotFound     = "plugin_not_found"
	kindPathTraversal      = "path_traversal"
	kindResourceRead       = "resource_read"
	kindInvalidProjectPath = "invalid_project_path"
	kindInvalidArgument    = "invalid_argument"
	kindInternal           = "internal"
)

// errorBody is the structured error object returned to agents in place of
// an unstructured failure.
type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

// classify maps an internal error to its protocol error kind.
func classify(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return kindInvalidArgument
	case errors.Is(err, resolver.ErrPathTraversal):
		return kindPathTraversal
	case errors.Is(err, resource.ErrResourceRead):
		return kindResourceRead
	case errors.Is(err, registry.ErrPluginNotFound):
		return kindPluginNotFound
	case errors.Is(err, registry.ErrRegistryLoad):
		return kindRegistryLoad
	case errors.Is(err, analyzer.ErrInvalidProjectPath):
		return kindInvalidProjectPath
	default:
		return kindInternal
	}
}

// toolError renders err as a structured tool result. Traversal attempts are
// logged distinctly: they are security violations, not lookup misses.
func toolError(err error) *mcp.CallToolResult {
	kind := classify(err)
	switch kind {
	case kindPathTraversal:
		log.Error().Err(err).Msg("path traversal rejected")
	case kindInternal:
		log.Error().Err(err).Msg("tool call failed")
	default:
		log.Debug().Err(err).Str("kind", kind).Msg("tool call returned error result")
	}

	var body errorBody
	body.Error.Kind = kind
	body.Error.Message = err.Error()
	data, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf(`{"error":{"kind":%q,"message":"marshal failure"}}`, kind))
	}
	return mcp.NewToolResultError(string(data))
}

// toolJSON renders v as a JSON tool result.
func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("encode result: %w", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
