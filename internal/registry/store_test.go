package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `version: "1.0.0"
categories:
  foundation:
    navfolder:
      status: stable
      description: Project navigation folder scaffolding
      location: foundation/navfolder
      installationGuideLocation: INSTRUCTIONS.md
      required: true
  languages:
    python:
      status: stable
      description: Python tooling and layout conventions
      location: languages/python
      installationGuideLocation: INSTRUCTIONS.md
      dependencies: [foundation/navfolder]
      options:
        formatter:
          available: [black, ruff]
          recommended: ruff
          description: Code formatter choice
    typescript:
      status: planned
      description: TypeScript tooling and layout conventions
      location: languages/typescript
  infrastructure:
    containers:
      docker:
        status: stable
        description: Container build and compose setup
        location: infrastructure/containers/docker
        installationGuideLocation: INSTRUCTIONS.md
    iac:
      terraform:
        status: community
        description: Terraform project skeleton
        location: infrastructure/iac/terraform
  standards:
    pre-commit:
      status: stable
      description: Pre-commit hook configuration
      location: standards/pre-commit
      installationGuideLocation: INSTRUCTIONS.md
      required: recommended
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "registry.yaml"), []byte(content), 0o644))
	return root
}

// writeSampleRegistry lays out sampleManifest with the installation guides
// its stable entries declare, so the registry passes load-time verification.
func writeSampleRegistry(t *testing.T) string {
	t.Helper()
	root := writeManifest(t, sampleManifest)
	for _, location := range []string{
		"foundation/navfolder",
		"languages/python",
		"infrastructure/containers/docker",
		"standards/pre-commit",
	} {
		dir := filepath.Join(root, filepath.FromSlash(location))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "INSTRUCTIONS.md"), []byte("# Install"), 0o644))
	}
	return root
}

func TestParse_Shapes(t *testing.T) {
	t.Parallel()

	reg, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", reg.Version)
	assert.Equal(t, []string{"foundation", "languages", "infrastructure", "standards"}, reg.CategoryNames())

	langs, ok := reg.Category("languages")
	require.True(t, ok)
	assert.False(t, langs.IsNested())
	assert.Equal(t, []string{"python", "typescript"}, langs.Names())

	infra, ok := reg.Category("infrastructure")
	require.True(t, ok)
	assert.True(t, infra.IsNested())
	assert.Equal(t, []string{"containers", "iac"}, infra.Subcategories())

	entry, id, ok := infra.Lookup("docker")
	require.True(t, ok)
	assert.Equal(t, "infrastructure/containers", id.CategoryPath())
	assert.Equal(t, StatusStable, entry.Status)
}

func TestParse_RequirementTriState(t *testing.T) {
	t.Parallel()

	reg, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)

	foundation, _ := reg.Category("foundation")
	entry, _, _ := foundation.Lookup("navfolder")
	assert.Equal(t, Required, entry.Required)

	standards, _ := reg.Category("standards")
	entry, _, _ = standards.Lookup("pre-commit")
	assert.Equal(t, Recommended, entry.Required)
}

func TestParse_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		manifest string
	}{
		{"not yaml", ":\t{nope"},
		{"missing version", "categories:\n  foundation:\n    x:\n      status: planned\n      description: d\n      location: l\n"},
		{"no categories", "version: \"1.0\"\ncategories: {}\n"},
		{"unsupported schema major", "version: \"2.0.0\"\ncategories:\n  foundation:\n    x:\n      status: planned\n      description: d\n      location: l\n"},
		{"invalid status", "version: \"1.0\"\ncategories:\n  foundation:\n    x:\n      status: shiny\n      description: d\n      location: l\n"},
		{"empty description", "version: \"1.0\"\ncategories:\n  foundation:\n    x:\n      status: planned\n      description: \"\"\n      location: l\n"},
		{"stable without guide", "version: \"1.0\"\ncategories:\n  foundation:\n    x:\n      status: stable\n      description: d\n      location: l\n"},
		{"self dependency", "version: \"1.0\"\ncategories:\n  foundation:\n    x:\n      status: planned\n      description: d\n      location: l\n      dependencies: [x]\n"},
		{"recommended not available", "version: \"1.0\"\ncategories:\n  foundation:\n    x:\n      status: planned\n      description: d\n      location: l\n      options:\n        o:\n          available: [a]\n          recommended: b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.manifest))
			assert.ErrorIs(t, err, ErrRegistryLoad)
		})
	}
}

func TestParse_NonSemverVersionAccepted(t *testing.T) {
	t.Parallel()

	manifest := "version: \"draft\"\ncategories:\n  foundation:\n    x:\n      status: planned\n      description: d\n      location: l\n"
	reg, err := Parse([]byte(manifest))
	require.NoError(t, err)
	assert.Equal(t, "draft", reg.Version)
}

func TestStore_CacheIdempotence(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(time.Minute))
	ctx := context.Background()

	first, err := store.Load(ctx, false)
	require.NoError(t, err)
	second, err := store.Load(ctx, false)
	require.NoError(t, err)
	assert.Same(t, first, second, "loads within the TTL window must return the cached instance")

	forced, err := store.Load(ctx, true)
	require.NoError(t, err)
	assert.NotSame(t, first, forced, "force reload must re-parse")
}

func TestStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(10*time.Millisecond))
	ctx := context.Background()

	first, err := store.Load(ctx, false)
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	second, err := store.Load(ctx, false)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "a stale cache entry triggers a reload")
}

func TestStore_FailedReloadKeepsCache(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(time.Minute))
	ctx := context.Background()

	good, err := store.Load(ctx, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "registry.yaml"), []byte(":\t{broken"), 0o644))

	_, err = store.Load(ctx, true)
	assert.ErrorIs(t, err, ErrRegistryLoad)

	cached, err := store.Load(ctx, false)
	require.NoError(t, err)
	assert.Same(t, good, cached, "a failed reload must not discard the previous good cache")
}

func TestStore_Invalidate(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(0))
	ctx := context.Background()

	first, err := store.Load(ctx, false)
	require.NoError(t, err)

	second, err := store.Load(ctx, false)
	require.NoError(t, err)
	assert.Same(t, first, second, "zero TTL disables time-based expiry")

	store.Invalidate()

	third, err := store.Load(ctx, false)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestStore_ConcurrentLoads(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(time.Minute))
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*Registry, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reg, err := store.Load(ctx, false)
			assert.NoError(t, err)
			results[i] = reg
		}(i)
	}
	wg.Wait()

	for _, reg := range results[1:] {
		assert.Same(t, results[0], reg)
	}
}

func TestStore_MissingInstallationGuideFailsLoad(t *testing.T) {
	t.Parallel()

	root := writeSampleRegistry(t)
	store := NewStore(root, WithTTL(time.Minute))
	ctx := context.Background()

	// The declared guide must exist on disk, not just in the manifest.
	require.NoError(t, os.Remove(filepath.Join(root, "languages", "python", "INSTRUCTIONS.md")))

	_, err := store.Load(ctx, false)
	require.ErrorIs(t, err, ErrRegistryLoad)
	assert.Contains(t, err.Error(), "languages/python")

	// Restoring the guide makes the registry loadable again.
	require.NoError(t, os.WriteFile(filepath.Join(root, "languages", "python", "INSTRUCTIONS.md"), []byte("# Install"), 0o644))
	_, err = store.Load(ctx, false)
	assert.NoError(t, err)
}

func TestStore_MissingManifest(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	_, err := store.Load(context.Background(), false)
	assert.ErrorIs(t, err, ErrRegistryLoad)
}
