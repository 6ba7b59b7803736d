package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/plugreg/plugreg/internal/registry"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// manifestPayload renders the manifest with categories as a slice so
// declaration order survives serialization.
type manifestPayload struct {
	Version    string            `json:"version"`
	Categories []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	Name          string                                     `json:"name"`
	Plugins       map[string]registry.PluginEntry            `json:"plugins,omitempty"`
	Subcategories map[string]map[string]registry.PluginEntry `json:"subcategories,omitempty"`
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	reg, err := s.Store.Load(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
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
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	reg, err := s.Store.Load(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
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
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "category")
	entries, err := s.Engine.CategoryEntries(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category": name,
		"plugins":  entries,
	})
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch status {
	case "", "all", "stable", "planned", "community":
	default:
		writeError(w, fmt.Errorf("%w: unknown status %q", errBadRequest, status))
		return
	}

	plugins, err := s.Engine.List(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plugins": plugins,
		"count":   len(plugins),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	matches, err := s.Engine.Search(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"plugins": matches,
		"count":   len(matches),
	})
}

func (s *Server) handlePluginDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.Engine.Details(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleInstructions(w http.ResponseWriter, r *http.Request) {
	data, err := s.Provider.Instructions(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, "text/markdown; charset=utf-8", data)
}

func (s *Server) handleReadme(w http.ResponseWriter, r *http.Request) {
	data, err := s.Provider.Readme(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, "text/markdown; charset=utf-8", data)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	files, err := s.Provider.Templates(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plugin":    name,
		"templates": files,
	})
}

func (s *Server) handleTemplateFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// chi leaves the wildcard segment percent-encoded; decode before the
	// resolver's containment check so encoded traversal is still caught.
	file, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || file == "" {
		writeError(w, fmt.Errorf("%w: template file path is required", errBadRequest))
		return
	}

	data, err := s.Provider.Template(r.Context(), name, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeText(w, "text/plain; charset=utf-8", data)
}
