package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"github.com/plugreg/plugreg/internal/registry"
)

// Resource URIs. Static URIs are registered directly; the rest are URI
// templates expanded by the calling agent.
const (
	uriHealth     = "plugin-registry://health"
	uriManifest   = "plugin-registry://manifest"
	uriCategories = "plugin-registry://manifest/categories"

	uriCategoryTemplate     = "plugin-registry://manifest/category/{category}"
	uriInstructionsTemplate = "plugin-registry://plugin/{name}/instructions"
	uriReadmeTemplate       = "plugin-registry://plugin/{name}/readme"
	uriTemplateListTemplate = "plugin-registry://plugin/{name}/templates"
	// Reserved expansion: template file paths may contain slashes.
	uriTemplateFileTemplate = "plugin-registry://plugin/{name}/template/{+file}"
	pluginURIPrefix         = "plugin-registry://plugin/"
	categoryURIPrefix       = "plugin-registry://manifest/category/"
)

func (h *handlers) registerResources(s *server.MCPServer) {
	s.AddResource(mcp.NewResource(uriHealth, "Service health",
		mcp.WithResourceDescription("Liveness signal with the service version."),
		mcp.WithMIMEType("application/json"),
	), h.readHealth)

	s.AddResource(mcp.NewResource(uriManifest, "Plugin manifest",
		mcp.WithResourceDescription("The full validated plugin manifest."),
		mcp.WithMIMEType("application/json"),
	), h.readManifest)

	s.AddResource(mcp.NewResource(uriCategories, "Plugin categories",
		mcp.WithResourceDescription("Top-level categories with their shape and plugin counts."),
		mcp.WithMIMEType("application/json"),
	), h.readCategories)

	s.AddResourceTemplate(mcp.NewResourceTemplate(uriCategoryTemplate, "Category entries",
		mcp.WithTemplateDescription("Every plugin entry under one top-level category."),
		mcp.WithTemplateMIMEType("application/json"),
	), h.readCategory)

	s.AddResourceTemplate(mcp.NewResourceTemplate(uriInstructionsTemplate, "Plugin installation instructions",
		mcp.WithTemplateDescription("The plugin's installation instructions document."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), h.readPluginDocument)

	s.AddResourceTemplate(mcp.NewResourceTemplate(uriReadmeTemplate, "Plugin readme",
		mcp.WithTemplateDescription("The plugin's readme document."),
		mcp.WithTemplateMIMEType("text/markdown"),
	), h.readPluginDocument)

	s.AddResourceTemplate(mcp.NewResourceTemplate(uriTemplateListTemplate, "Plugin template files",
		mcp.WithTemplateDescription("Relative paths of the plugin's template files."),
		mcp.WithTemplateMIMEType("application/json"),
	), h.readPluginDocument)

	s.AddResourceTemplate(mcp.NewResourceTemplate(uriTemplateFileTemplate, "Plugin template file",
		mcp.WithTemplateDescription("Raw content of one plugin template file."),
		mcp.WithTemplateMIMEType("text/plain"),
	), h.readPluginDocument)
}

func (h *handlers) readHealth(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, map[string]any{
		"status":  "ok",
		"version": h.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// manifestPayload is the JSON rendering of the manifest. Categories are a
// slice so declaration order survives serialization.
type manifestPayload struct {
	Version    string            `json:"version"`
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	Name          string                                     `json:"name"`
	Plugins       map[string]registry.PluginEntry            `json:"plugins,omitempty"`
	Subcategories map[string]map[string]registry.PluginEntry `json:"subcategories,omitempty"`
}

func (h *handlers) readManifest(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	reg, err := h.Store.Load(ctx, false)
	if err != nil {
		return nil, resourceError(err)
	}

	payload := manifestPayload{Version: reg.Version}
	for i := range reg.Categories {
		cat := &reg.Categories[i]
		payload.Categories = append(payload.Categories, categoryPayload{
			Name:          cat.Name,
			Plugins:       cat.Flat,
			Subcategories: cat.Nested,
		})
	}
	return jsonContents(req.Params.URI, payload)
}

func (h *handlers) readCategories(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	reg, err := h.Store.Load(ctx, false)
	if err != nil {
		return nil, resourceError(err)
	}

	type categorySummary struct {
		Name          string   `json:"name"`
		Nested        bool     `json:"nested"`
		Subcategories []string `json:"subcategories,omitempty"`
		PluginCount   int      `json:"pluginCount"`
	}
	out := []categorySummary{}
	for i := range reg.Categories {
		cat := &reg.Categories[i]
		out = append(out, categorySummary{
			Name:          cat.Name,
			Nested:        cat.IsNested(),
			Subcategories: cat.Subcategories(),
			PluginCount:   len(cat.Names()),
		})
	}
	return jsonContents(req.Params.URI, map[string]any{"categories": out})
}

func (h *handlers) readCategory(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := strings.TrimPrefix(req.Params.URI, categoryURIPrefix)
	if name == "" || name == req.Params.URI {
		return nil, resourceError(fmt.Errorf("%w: malformed category resource URI %q", ErrInvalidArgument, req.Params.URI))
	}

	entries, err := h.Engine.CategoryEntries(ctx, name)
	if err != nil {
		return nil, resourceError(err)
	}
	return jsonContents(req.Params.URI, map[string]any{
		"category": name,
		"plugins":  entries,
	})
}

// readPluginDocument serves every plugin-scoped resource. One handler keeps
// the URI grammar in one place: plugin/<name>/<operation>[/<file>].
func (h *handlers) readPluginDocument(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name, op, file, err := parsePluginURI(req.Params.URI)
	if err != nil {
		return nil, resourceError(err)
	}

	switch op {
	case "instructions":
		data, err := h.Provider.Instructions(ctx, name)
		if err != nil {
			return nil, resourceError(err)
		}
		return textContents(req.Params.URI, "text/markdown", string(data)), nil
	case "readme":
		data, err := h.Provider.Readme(ctx, name)
		if err != nil {
			return nil, resourceError(err)
		}
		return textContents(req.Params.URI, "text/markdown", string(data)), nil
	case "templates":
		files, err := h.Provider.Templates(ctx, name)
		if err != nil {
			return nil, resourceError(err)
		}
		return jsonContents(req.Params.URI, map[string]any{
			"plugin":    name,
			"templates": files,
		})
	case "template":
		data, err := h.Provider.Template(ctx, name, file)
		if err != nil {
			return nil, resourceError(err)
		}
		return textContents(req.Params.URI, "text/plain", string(data)), nil
	default:
		return nil, resourceError(fmt.Errorf("%w: unknown plugin resource %q", ErrInvalidArgument, op))
	}
}

// parsePluginURI splits plugin-registry://plugin/<name>/<op>[/<file>]. The
// file part may itself contain slashes; containment is enforced further
// down, not here.
func parsePluginURI(uri string) (name, op, file string, err error) {
	rest := strings.TrimPrefix(uri, pluginURIPrefix)
	if rest == uri {
		return "", "", "", fmt.Errorf("%w: malformed plugin resource URI %q", ErrInvalidArgument, uri)
	}
	parts := strings.SplitN(rest, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("%w: malformed plugin resource URI %q", ErrInvalidArgument, uri)
	}
	name, op = parts[0], parts[1]
	if len(parts) == 3 {
		file = parts[2]
	}
	if op == "template" && file == "" {
		return "", "", "", fmt.Errorf("%w: template resource URI needs a file path", ErrInvalidArgument)
	}
	return name, op, file, nil
}

// resourceError prefixes the protocol error kind so agents reading a failed
// resource see the same classification tools report.
func resourceError(err error) error {
	kind := classify(err)
	switch kind {
	case kindPathTraversal:
		log.Error().Err(err).Msg("path traversal rejected")
	case kindInternal:
		log.Error().Err(err).Msg("resource read failed")
	}
	return fmt.Errorf("%s: %w", kind, err)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s: encode resource: %w", kindInternal, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func textContents(uri, mimeType, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: uri, MIMEType: mimeType, Text: text},
	}
}
