// Package resolver translates plugin names into concrete on-disk locations.
// All externally supplied path components are validated after
// canonicalization so that no resolved path can escape its plugin
// directory.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/plugreg/plugreg/internal/registry"
)

// Fixed document filenames within a plugin directory.
const (
	InstructionsFile = "INSTRUCTIONS.md"
	ReadmeFile       = "README.md"
	TemplatesDir     = "templates"
)

// CategoryPrecedence is the documented tie-break order used when a plugin
// name appears in more than one category: the first category listed here
// that contains the name wins.
var CategoryPrecedence = []string{"foundation", "languages", "infrastructure", "standards"}

// ErrPathTraversal marks a resolved template path that escaped its plugin
// directory. It is a security violation, never silently corrected.
var ErrPathTraversal = errors.New("path traversal detected")

// TraversalError carries the offending request.
type TraversalError struct {
	Plugin    string
	Requested string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("template path %q escapes plugin %q directory", e.Requested, e.Plugin)
}

// Is lets callers match with errors.Is(err, ErrPathTraversal).
func (e *TraversalError) Is(target error) bool { return target == ErrPathTraversal }

// Resolver locates plugin directories and documents beneath the registry
// root. It is stateless apart from the store it reads from and safe for
// concurrent use.
type Resolver struct {
	store *registry.Store
}

// New creates a Resolver backed by the given store.
func New(store *registry.Store) *Resolver {
	return &Resolver{store: store}
}

// Lookup finds the entry for name using the fixed category precedence.
// Categories not listed in CategoryPrecedence are scanned afterwards in
// declaration order, so a manifest with extra categories still resolves.
func Lookup(reg *registry.Registry, name string) (registry.PluginEntry, registry.Identity, error) {
	scanned := make(map[string]bool, len(reg.Categories))
	var matches []registry.Identity
	var entry registry.PluginEntry
	var id registry.Identity
	found := false

	consider := func(cat *registry.Category) {
		e, i, ok := cat.Lookup(name)
		if !ok {
			return
		}
		matches = append(matches, i)
		if !found {
			entry, id, found = e, i, true
		}
	}

	for _, catName := range CategoryPrecedence {
		if cat, ok := reg.Category(catName); ok {
			scanned[catName] = true
			consider(cat)
		}
	}
	for ci := range reg.Categories {
		cat := &reg.Categories[ci]
		if !scanned[cat.Name] {
			consider(cat)
		}
	}

	if !found {
		return registry.PluginEntry{}, registry.Identity{}, &registry.NotFoundError{Name: name}
	}
	if len(matches) > 1 {
		paths := make([]string, len(matches))
		for i, m := range matches {
			paths[i] = m.CategoryPath()
		}
		log.Warn().Str("plugin", name).Strs("categories", paths).
			Msg("plugin name present in multiple categories; using precedence order")
	}
	return entry, id, nil
}

// PluginDir resolves the plugin's directory beneath the registry root. The
// manifest location is always treated as relative; it is cleaned and
// rejected if it points outside the root.
func (r *Resolver) PluginDir(ctx context.Context, name string) (string, error) {
	reg, err := r.store.Load(ctx, false)
	if err != nil {
		return "", err
	}
	entry, _, err := Lookup(reg, name)
	if err != nil {
		return "", err
	}

	location := filepath.Clean(filepath.FromSlash(entry.Location))
	if filepath.IsAbs(location) || location == ".." || strings.HasPrefix(location, ".."+string(filepath.Separator)) {
		return "", &TraversalError{Plugin: name, Requested: entry.Location}
	}
	return filepath.Join(r.store.Root(), location), nil
}

// InstructionsPath resolves the plugin's instructional document.
func (r *Resolver) InstructionsPath(ctx context.Context, name string) (string, error) {
	dir, err := r.PluginDir(ctx, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, InstructionsFile), nil
}

// ReadmePath resolves the plugin's description document.
func (r *Resolver) ReadmePath(ctx context.Context, name string) (string, error) {
	dir, err := r.PluginDir(ctx, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ReadmeFile), nil
}

// Templates enumerates files under the plugin's templates directory,
// returned as slash-separated paths relative to it. A missing templates
// directory yields an empty slice, not an error.
func (r *Resolver) Templates(ctx context.Context, name string) ([]string, error) {
	dir, err := r.PluginDir(ctx, name)
	if err != nil {
		return nil, err
	}
	templatesDir := filepath.Join(dir, TemplatesDir)
	info, err := os.Stat(templatesDir)
	if err != nil || !info.IsDir() {
		return []string{}, nil
	}

	var files []string
	err = filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(templatesDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enumerate templates for %q: %w", name, err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}

// TemplatePath resolves a caller-supplied template filename within the
// plugin's templates directory. The joined path is canonicalized first and
// rejected unless it remains inside the plugin directory; the raw string is
// never trusted because the input is externally supplied.
func (r *Resolver) TemplatePath(ctx context.Context, name, requestedFile string) (string, error) {
	dir, err := r.PluginDir(ctx, name)
	if err != nil {
		return "", err
	}

	// Absolute paths and null bytes are never legitimate template names.
	if filepath.IsAbs(requestedFile) || strings.HasPrefix(requestedFile, "/") || strings.ContainsRune(requestedFile, 0) {
		return "", &TraversalError{Plugin: name, Requested: requestedFile}
	}

	joined := filepath.Join(dir, TemplatesDir, filepath.FromSlash(requestedFile))
	canonical, err := canonicalize(joined)
	if err != nil {
		return "", fmt.Errorf("resolve template %q for plugin %q: %w", requestedFile, name, err)
	}
	pluginDir, err := canonicalize(dir)
	if err != nil {
		return "", fmt.Errorf("resolve plugin directory for %q: %w", name, err)
	}

	if !contained(pluginDir, canonical) {
		log.Error().Str("plugin", name).Str("requested", requestedFile).
			Msg("template path escaped plugin directory")
		return "", &TraversalError{Plugin: name, Requested: requestedFile}
	}
	return canonical, nil
}

// canonicalize resolves symlinks and relative segments. When the deepest
// path components do not exist yet, the longest existing ancestor is
// resolved and the remainder re-joined, so containment is still checked
// against the real filesystem location.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	dir, base := filepath.Split(filepath.Clean(abs))
	parent, err := canonicalize(filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, base), nil
}

func contained(base, path string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
