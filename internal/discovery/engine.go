// Package discovery answers catalog-style queries over the loaded registry:
// full listings, per-plugin details, and free-text search.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/plugreg/plugreg/internal/registry"
	"github.com/plugreg/plugreg/internal/resolver"
)

// Summary is the flattened per-plugin listing row. Ordering across a
// listing is a contract: category declaration order, then name order within
// a category.
type Summary struct {
	Name            string   `json:"name"`
	Category        string   `json:"category"`
	Status          string   `json:"status"`
	Description     string   `json:"description"`
	Dependencies    []string `json:"dependencies,omitempty"`
	HasInstructions bool     `json:"hasInstructions"`
}

// Details is a plugin's full manifest entry together with its identity.
type Details struct {
	registry.Identity
	registry.PluginEntry
}

// Engine serves discovery queries. Safe for concurrent use.
type Engine struct {
	store *registry.Store
}

// NewEngine creates an Engine backed by the given store.
func NewEngine(store *registry.Store) *Engine {
	return &Engine{store: store}
}

// List flattens every category (including nested subcategories) into one
// ordered slice of summaries. statusFilter narrows the result to entries of
// that status; the empty string or "all" disables filtering. An empty
// result is valid, never an error.
func (e *Engine) List(ctx context.Context, statusFilter string) ([]Summary, error) {
	reg, err := e.store.Load(ctx, false)
	if err != nil {
		return nil, err
	}

	filter := registry.Status(statusFilter)
	if statusFilter == "all" {
		filter = ""
	}

	var out []Summary
	for ci := range reg.Categories {
		cat := &reg.Categories[ci]
		for _, name := range cat.Names() {
			entry, id, _ := cat.Lookup(name)
			if filter != "" && entry.Status != filter {
				continue
			}
			out = append(out, Summary{
				Name:            name,
				Category:        id.CategoryPath(),
				Status:          string(entry.Status),
				Description:     entry.Description,
				Dependencies:    entry.Dependencies,
				HasInstructions: e.hasInstructions(entry),
			})
		}
	}
	if out == nil {
		out = []Summary{}
	}
	return out, nil
}

// Details returns the full manifest entry for a plugin. The lookup uses the
// same category precedence and not-found semantics as the resolver: a name
// resolvable by one is resolvable by the other.
func (e *Engine) Details(ctx context.Context, name string) (Details, error) {
	reg, err := e.store.Load(ctx, false)
	if err != nil {
		return Details{}, err
	}
	entry, id, err := resolver.Lookup(reg, name)
	if err != nil {
		return Details{}, err
	}
	return Details{Identity: id, PluginEntry: entry}, nil
}

// Search performs a case-insensitive substring match against the name,
// description, and category of every summary. An empty query returns every
// plugin. Result order is the same stable order List produces.
func (e *Engine) Search(ctx context.Context, query string) ([]Summary, error) {
	all, err := e.List(ctx, "")
	if err != nil {
		return nil, err
	}
	if query == "" {
		return all, nil
	}

	needle := strings.ToLower(query)
	out := []Summary{}
	for _, s := range all {
		if strings.Contains(strings.ToLower(s.Name), needle) ||
			strings.Contains(strings.ToLower(s.Description), needle) ||
			strings.Contains(strings.ToLower(s.Category), needle) {
			out = append(out, s)
		}
	}
	return out, nil
}

// CategoryEntries returns every entry under one top-level category, keyed
// by plugin name (nested subcategories are flattened into the same map).
func (e *Engine) CategoryEntries(ctx context.Context, category string) (map[string]registry.PluginEntry, error) {
	reg, err := e.store.Load(ctx, false)
	if err != nil {
		return nil, err
	}
	cat, ok := reg.Category(category)
	if !ok {
		return nil, &registry.NotFoundError{Name: category}
	}
	out := make(map[string]registry.PluginEntry)
	for _, name := range cat.Names() {
		entry, _, _ := cat.Lookup(name)
		out[name] = entry
	}
	return out, nil
}

// hasInstructions probes for the fixed instructions document inside the
// plugin directory. A stat failure simply reports false.
func (e *Engine) hasInstructions(entry registry.PluginEntry) bool {
	location := filepath.Clean(filepath.FromSlash(entry.Location))
	if filepath.IsAbs(location) || strings.HasPrefix(location, "..") {
		return false
	}
	path := filepath.Join(e.store.Root(), location, resolver.InstructionsFile)
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
