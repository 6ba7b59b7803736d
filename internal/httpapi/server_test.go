package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugreg/plugreg/internal/discovery"
	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
	"github.com/plugreg/plugreg/internal/resource"
)

const testManifest = `version: "1.0.0"
categories:
  foundation:
    navfolder:
      status: stable
      description: Project navigation folder scaffolding
      location: foundation/navfolder
      installationGuideLocation: INSTRUCTIONS.md
  languages:
    python:
      status: stable
      description: Python tooling and layout conventions
      location: languages/python
      installationGuideLocation: INSTRUCTIONS.md
  infrastructure:
    containers:
      docker:
        status: planned
        description: Container build conventions
        location: infrastructure/containers/docker
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "registry.yaml"), []byte(testManifest), 0o644))

	pythonDir := filepath.Join(root, "languages", "python")
	require.NoError(t, os.MkdirAll(filepath.Join(pythonDir, "templates", "ci"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pythonDir, "INSTRUCTIONS.md"), []byte("# Install Python plugin"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pythonDir, "templates", "ci", "test.yml"), []byte("jobs: {}"), 0o644))

	navDir := filepath.Join(root, "foundation", "navfolder")
	require.NoError(t, os.MkdirAll(navDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(navDir, "INSTRUCTIONS.md"), []byte("# Install"), 0o644))

	store := registry.NewStore(root, registry.WithTTL(time.Minute))
	return New(Deps{
		Store:    store,
		Engine:   discovery.NewEngine(store),
		Provider: resource.NewProvider(resolver.New(store)),
		Version:  "test",
	})
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, into any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into))
}

func errorKindOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload errorPayload
	decodeBody(t, rec, &payload)
	assert.NotEmpty(t, payload.Error.Message)
	return payload.Error.Kind
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "test", out.Version)
}

func TestGetManifest(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/manifest")
	require.Equal(t, http.StatusOK, rec.Code)

	var out manifestPayload
	decodeBody(t, rec, &out)
	assert.Equal(t, "1.0.0", out.Version)
	require.Len(t, out.Categories, 3)
	assert.Equal(t, "foundation", out.Categories[0].Name)
	assert.Contains(t, out.Categories[2].Subcategories, "containers")
}

func TestGetCategories(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/categories")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Categories []struct {
			Name          string   `json:"name"`
			Nested        bool     `json:"nested"`
			Subcategories []string `json:"subcategories"`
		} `json:"categories"`
	}
	decodeBody(t, rec, &out)
	require.Len(t, out.Categories, 3)
	assert.True(t, out.Categories[2].Nested)
	assert.Equal(t, []string{"containers"}, out.Categories[2].Subcategories)
}

func TestGetCategory(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/categories/infrastructure")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Category string                          `json:"category"`
		Plugins  map[string]registry.PluginEntry `json:"plugins"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, "infrastructure", out.Category)
	assert.Contains(t, out.Plugins, "docker")
}

func TestGetCategory_Unknown(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/categories/nonexistent")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "plugin_not_found", errorKindOf(t, rec))
}

func TestGetPlugins(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Plugins []discovery.Summary `json:"plugins"`
		Count   int                 `json:"count"`
	}
	decodeBody(t, rec, &out)
	require.Equal(t, 3, out.Count)
	assert.Equal(t, "navfolder", out.Plugins[0].Name)
}

func TestGetPlugins_StatusFilter(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins?status=planned")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Plugins []discovery.Summary `json:"plugins"`
	}
	decodeBody(t, rec, &out)
	require.Len(t, out.Plugins, 1)
	assert.Equal(t, "docker", out.Plugins[0].Name)
}

func TestGetPlugins_InvalidStatus(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins?status=bogus")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", errorKindOf(t, rec))
}

func TestSearch(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/search?q=container")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Plugins []discovery.Summary `json:"plugins"`
		Count   int                 `json:"count"`
	}
	decodeBody(t, rec, &out)
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "docker", out.Plugins[0].Name)
}

func TestGetPluginDetails(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/docker")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Category    string `json:"category"`
		Subcategory string `json:"subcategory"`
		Name        string `json:"name"`
		Status      string `json:"status"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, "infrastructure", out.Category)
	assert.Equal(t, "containers", out.Subcategory)
	assert.Equal(t, "docker", out.Name)
	assert.Equal(t, "planned", out.Status)
}

func TestGetPluginDetails_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/nonexistent-plugin")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "plugin_not_found", errorKindOf(t, rec))
}

func TestGetInstructions(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/python/instructions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Install Python plugin", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
}

func TestGetReadme_Missing(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/python/readme")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "resource_read", errorKindOf(t, rec))
}

func TestGetTemplates(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/python/templates")
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Templates []string `json:"templates"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, []string{"ci/test.yml"}, out.Templates)
}

func TestGetTemplateFile(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	rec := doGet(t, s, "/api/plugins/python/templates/ci/test.yml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jobs: {}", rec.Body.String())
}

func TestGetTemplateFile_Traversal(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	// The traversal segments must survive routing, so build the request
	// with an escaped path.
	req := httptest.NewRequest(http.MethodGet, "/api/plugins/python/templates/..%2F..%2F..%2Fetc%2Fpasswd", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "path_traversal", errorKindOf(t, rec))
}

func TestManifestLoadFailureIs503(t *testing.T) {
	t.Parallel()

	store := registry.NewStore(t.TempDir())
	s := New(Deps{
		Store:    store,
		Engine:   discovery.NewEngine(store),
		Provider: resource.NewProvider(resolver.New(store)),
		Version:  "test",
	})

	rec := doGet(t, s, "/api/plugins")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "registry_load", errorKindOf(t, rec))
}
