package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func (h *handlers) registerTools(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("list_available_plugins",
		mcp.WithDescription("List every plugin in the registry with its category, status, and description. Optionally filter by status."),
		mcp.WithString("status",
			mcp.Description("Only return plugins with this status. Omit or pass \"all\" for everything."),
			mcp.Enum("stable", "planned", "community", "all"),
		),
	), h.listAvailablePlugins)

	s.AddTool(mcp.NewTool("get_plugin_details",
		mcp.WithDescription("Return the full manifest entry for one plugin: status, description, location, dependencies, and configurable options."),
		mcp.WithString("plugin_name",
			mcp.Required(),
			mcp.Description("Name of the plugin to look up."),
		),
	), h.getPluginDetails)

	s.AddTool(mcp.NewTool("search_plugins",
		mcp.WithDescription("Case-insensitive substring search over plugin names, descriptions, and categories. An empty query returns every plugin."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search term."),
		),
	), h.searchPlugins)

	s.AddTool(mcp.NewTool("analyze_project",
		mcp.WithDescription("Inspect a project directory: detect languages and tooling, check for the navigation folder, and return an ordered plugin recommendation list."),
		mcp.WithString("project_path",
			mcp.Required(),
			mcp.Description("Absolute path of the project directory to analyze."),
		),
	), h.analyzeProject)

	s.AddTool(mcp.NewTool("check_tool_exists",
		mcp.WithDescription("Check whether an executable is available on the host's command search path."),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Executable name to look up, e.g. \"docker\"."),
		),
	), h.checkToolExists)

	s.AddTool(mcp.NewTool("validate_structured_data",
		mcp.WithDescription("Parse YAML text and report whether it is well formed. Malformed input is a valid=false result, not an error."),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("YAML document text to validate."),
		),
	), h.validateStructuredData)

	s.AddTool(mcp.NewTool("validate_installation",
		mcp.WithDescription("Run the declared installation checks for a plugin against a project directory and report per-check pass/fail results."),
		mcp.WithString("plugin_name",
			mcp.Required(),
			mcp.Description("Plugin whose checks to run."),
		),
		mcp.WithString("project_path",
			mcp.Required(),
			mcp.Description("Absolute path of the project directory to check."),
		),
	), h.validateInstallation)
}

func (h *handlers) listAvailablePlugins(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	switch status {
	case "", "all", "stable", "planned", "community":
	default:
		return toolError(fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)), nil
	}

	plugins, err := h.Engine.List(ctx, status)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(map[string]any{
		"plugins": plugins,
		"count":   len(plugins),
	})
}

func (h *handlers) getPluginDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("plugin_name")
	if err != nil || name == "" {
		return toolError(fmt.Errorf("%w: plugin_name is required", ErrInvalidArgument)), nil
	}

	details, err := h.Engine.Details(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(details)
}

func (h *handlers) searchPlugins(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(fmt.Errorf("%w: query is required", ErrInvalidArgument)), nil
	}

	matches, err := h.Engine.Search(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(map[string]any{
		"query":   query,
		"plugins": matches,
		"count":   len(matches),
	})
}

func (h *handlers) analyzeProject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("project_path")
	if err != nil || path == "" {
		return toolError(fmt.Errorf("%w: project_path is required", ErrInvalidArgument)), nil
	}

	res, err := h.Analyzer.Analyze(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(res)
}

func (h *handlers) checkToolExists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool, err := req.RequireString("tool_name")
	if err != nil || tool == "" {
		return toolError(fmt.Errorf("%w: tool_name is required", ErrInvalidArgument)), nil
	}

	return toolJSON(map[string]any{
		"tool":   tool,
		"exists": h.Validator.ToolExists(ctx, tool),
	})
}

func (h *handlers) validateStructuredData(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return toolError(fmt.Errorf("%w: content is required", ErrInvalidArgument)), nil
	}

	return toolJSON(h.Validator.CheckYAML(content))
}

func (h *handlers) validateInstallation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("plugin_name")
	if err != nil || name == "" {
		return toolError(fmt.Errorf("%w: plugin_name is required", ErrInvalidArgument)), nil
	}
	path, err := req.RequireString("project_path")
	if err != nil || path == "" {
		return toolError(fmt.Errorf("%w: project_path is required", ErrInvalidArgument)), nil
	}

	res, err := h.Validator.ValidateInstallation(ctx, name, path)
	if err != nil {
		return toolError(err), nil
	}
	return toolJSON(res)
}
