package resource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
)

const testManifest = `version: "1.0.0"
categories:
  languages:
    python:
      status: stable
      description: Python tooling and layout conventions
      location: languages/python
      installationGuideLocation: INSTRUCTIONS.md
    golang:
      status: planned
      description: Go tooling and layout conventions
      location: languages/golang
`

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "registry.yaml"), []byte(testManifest), 0o644))

	pythonDir := filepath.Join(root, "languages", "python")
	require.NoError(t, os.MkdirAll(filepath.Join(pythonDir, "templates"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pythonDir, "INSTRUCTIONS.md"), []byte("# Install Python plugin"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pythonDir, "README.md"), []byte("Python plugin"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pythonDir, "templates", "pyproject.toml"), []byte("[tool.ruff]"), 0o644))

	store := registry.NewStore(root, registry.WithTTL(time.Minute))
	return NewProvider(resolver.New(store))
}

func TestProvider_Instructions(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	ctx := context.Background()

	data, err := p.Instructions(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, "# Install Python plugin", string(data))
}

func TestProvider_Readme(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	data, err := p.Readme(context.Background(), "python")
	require.NoError(t, err)
	assert.Equal(t, "Python plugin", string(data))
}

func TestProvider_Template(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	data, err := p.Template(context.Background(), "python", "pyproject.toml")
	require.NoError(t, err)
	assert.Equal(t, "[tool.ruff]", string(data))
}

func TestProvider_MissingDocumentIsReadError(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	ctx := context.Background()

	// golang is a valid plugin but has no documents on disk: ReadError,
	// not PluginNotFound.
	_, err := p.Instructions(ctx, "golang")
	assert.ErrorIs(t, err, ErrResourceRead)
	assert.NotErrorIs(t, err, registry.ErrPluginNotFound)

	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "golang", re.Plugin)
	assert.Equal(t, KindInstructions, re.Kind)
}

func TestProvider_UnknownPluginIsNotFound(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	_, err := p.Instructions(context.Background(), "nonexistent-plugin")
	assert.ErrorIs(t, err, registry.ErrPluginNotFound)
	assert.NotErrorIs(t, err, ErrResourceRead)
}

func TestProvider_TraversalRejected(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	_, err := p.Template(context.Background(), "python", "../../../etc/passwd")
	assert.ErrorIs(t, err, resolver.ErrPathTraversal)
}
