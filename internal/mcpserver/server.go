// Package mcpserver exposes the registry over the Model Context Protocol:
// callable tools for discovery, analysis, and validation, plus addressable
// plugin-registry:// resources for raw content. All outputs are JSON or raw
// document text; all failures are structured error objects the calling
// agent can branch on.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/plugreg/plugreg/internal/analyzer"
	"github.com/plugreg/plugreg/internal/discovery"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resource"
	"github.com/plugreg/plugreg/internal/validator"
)

const serverName = "plugreg"

const serverInstructions = `Plugin registry service. Use the discovery tools
(list_available_plugins, search_plugins, get_plugin_details) to find plugins,
analyze_project to get recommendations for a project directory, and the
plugin-registry:// resources to fetch installation instructions, readmes,
and template files.`

// Deps carries the service components the protocol boundary dispatches to.
type Deps struct {
	Store     *registry.Store
	Provider  *resource.Provider
	Engine    *discovery.Engine
	Analyzer  *analyzer.Analyzer
	Validator *validator.Validator
	Version   string
}

// handlers binds the tool and resource callbacks to their dependencies.
// Kept separate from the MCP server value so tests can invoke callbacks
// directly.
type handlers struct {
	Deps
}

// New assembles the MCP server with every tool and resource registered.
func New(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions),
	)

	h := &handlers{Deps: deps}
	h.registerTools(s)
	h.registerResources(s)
	return s
}
