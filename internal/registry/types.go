// Package registry loads, validates, and caches the plugin manifest that
// drives the rest of the service. The manifest is a YAML document grouping
// plugins into categories; one category level may nest a further
// sub-category level.
package registry

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Status describes the maturity of a plugin entry.
type Status string

// Known plugin statuses.
const (
	StatusStable    Status = "stable"
	StatusPlanned   Status = "planned"
	StatusCommunity Status = "community"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusStable, StatusPlanned, StatusCommunity:
		return true
	}
	return false
}

// Requirement is the tri-state required field: true, false, or "recommended".
type Requirement string

// Requirement values.
const (
	Required    Requirement = "true"
	NotRequired Requirement = "false"
	Recommended Requirement = "recommended"
)

// UnmarshalYAML accepts booleans as well as the literal string "recommended".
func (r *Requirement) UnmarshalYAML(node *yaml.Node) error {
	var b bool
	if err := node.Decode(&b); err == nil {
		if b {
			*r = Required
		} else {
			*r = NotRequired
		}
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("required must be a boolean or %q", Recommended)
	}
	switch Requirement(s) {
	case Required, NotRequired, Recommended:
		*r = Requirement(s)
		return nil
	}
	return fmt.Errorf("invalid required value %q", s)
}

// Option describes one configurable choice a plugin offers.
type Option struct {
	Available   []string `yaml:"available" json:"available,omitempty"`
	Recommended []string `yaml:"recommended" json:"recommended,omitempty"`
	Description string   `yaml:"description" json:"description,omitempty"`
}

// UnmarshalYAML allows recommended to be a single string or a list.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Available   []string  `yaml:"available"`
		Recommended yaml.Node `yaml:"recommended"`
		Description string    `yaml:"description"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	o.Available = raw.Available
	o.Description = raw.Description
	o.Recommended = nil
	if raw.Recommended.Kind == 0 {
		return nil
	}
	var one string
	if err := raw.Recommended.Decode(&one); err == nil {
		o.Recommended = []string{one}
		return nil
	}
	var many []string
	if err := raw.Recommended.Decode(&many); err != nil {
		return fmt.Errorf("recommended must be a string or list of strings")
	}
	o.Recommended = many
	return nil
}

// PluginEntry identifies one installable unit in the manifest.
type PluginEntry struct {
	Status                    Status            `yaml:"status" json:"status"`
	Description               string            `yaml:"description" json:"description"`
	Location                  string            `yaml:"location" json:"location"`
	InstallationGuideLocation string            `yaml:"installationGuideLocation" json:"installationGuideLocation,omitempty"`
	Dependencies              []string          `yaml:"dependencies" json:"dependencies,omitempty"`
	Required                  Requirement       `yaml:"required" json:"required,omitempty"`
	Options                   map[string]Option `yaml:"options" json:"options,omitempty"`
}

// Identity is the derived (category path, name) pair that uniquely
// identifies a plugin across the registry. Subcategory is empty for flat
// categories.
type Identity struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory,omitempty"`
	Name        string `json:"name"`
}

// CategoryPath renders the identity's category path, e.g. "languages" or
// "infrastructure/containers".
func (id Identity) CategoryPath() string {
	if id.Subcategory == "" {
		return id.Category
	}
	return id.Category + "/" + id.Subcategory
}

// Category is the tagged variant for the two category shapes the manifest
// allows: a flat name->entry mapping, or a nested subcategory->(name->entry)
// mapping. Exactly one of Flat and Nested is populated.
type Category struct {
	Name   string
	Flat   map[string]PluginEntry
	Nested map[string]map[string]PluginEntry

	// subOrder preserves subcategory declaration order for nested categories.
	subOrder []string
}

// IsNested reports whether the category carries a sub-category level.
func (c *Category) IsNested() bool { return c.Nested != nil }

// Subcategories returns subcategory names in declaration order. Empty for
// flat categories.
func (c *Category) Subcategories() []string {
	out := make([]string, len(c.subOrder))
	copy(out, c.subOrder)
	return out
}

// Lookup returns the entry for name together with its identity. For nested
// categories subcategories are scanned in declaration order.
func (c *Category) Lookup(name string) (PluginEntry, Identity, bool) {
	if c.Flat != nil {
		if entry, ok := c.Flat[name]; ok {
			return entry, Identity{Category: c.Name, Name: name}, true
		}
		return PluginEntry{}, Identity{}, false
	}
	for _, sub := range c.subOrder {
		if entry, ok := c.Nested[sub][name]; ok {
			return entry, Identity{Category: c.Name, Subcategory: sub, Name: name}, true
		}
	}
	return PluginEntry{}, Identity{}, false
}

// Names returns every plugin name in the category sorted lexically.
func (c *Category) Names() []string {
	var names []string
	if c.Flat != nil {
		for name := range c.Flat {
			names = append(names, name)
		}
	} else {
		for _, sub := range c.subOrder {
			for name := range c.Nested[sub] {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// Registry is the root manifest document.
type Registry struct {
	Version    string
	Categories []Category

	byName map[string]int // category name -> index in Categories
}

// Category returns the category with the given name.
func (r *Registry) Category(name string) (*Category, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return &r.Categories[idx], true
}

// CategoryNames returns top-level category names in declaration order.
func (r *Registry) CategoryNames() []string {
	names := make([]string, len(r.Categories))
	for i := range r.Categories {
		names[i] = r.Categories[i].Name
	}
	return names
}

// UnmarshalYAML decodes the manifest while preserving category declaration
// order, which the discovery ordering contract depends on.
func (r *Registry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("manifest root must be a mapping")
	}
	r.Categories = nil
	r.byName = make(map[string]int)
	for i := 0; i < len(node.Content)-1; i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "version":
			if err := val.Decode(&r.Version); err != nil {
				return fmt.Errorf("version must be a string: %w", err)
			}
		case "categories":
			if err := r.decodeCategories(val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Registry) decodeCategories(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("categories must be a mapping")
	}
	for i := 0; i < len(node.Content)-1; i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		cat, err := decodeCategory(key.Value, val)
		if err != nil {
			return fmt.Errorf("category %q: %w", key.Value, err)
		}
		r.byName[cat.Name] = len(r.Categories)
		r.Categories = append(r.Categories, cat)
	}
	return nil
}

func decodeCategory(name string, node *yaml.Node) (Category, error) {
	if node.Kind != yaml.MappingNode {
		return Category{}, fmt.Errorf("must be a mapping")
	}
	if isNestedCategory(node) {
		cat := Category{Name: name, Nested: make(map[string]map[string]PluginEntry)}
		for i := 0; i < len(node.Content)-1; i += 2 {
			sub, val := node.Content[i].Value, node.Content[i+1]
			entries := make(map[string]PluginEntry)
			if err := val.Decode(&entries); err != nil {
				return Category{}, fmt.Errorf("subcategory %q: %w", sub, err)
			}
			cat.Nested[sub] = entries
			cat.subOrder = append(cat.subOrder, sub)
		}
		return cat, nil
	}
	cat := Category{Name: name, Flat: make(map[string]PluginEntry)}
	if err := node.Decode(&cat.Flat); err != nil {
		return Category{}, err
	}
	return cat, nil
}

// isNestedCategory distinguishes the two category shapes. A plugin entry
// always carries at least one scalar field (status, description), so a
// mapping whose values are all themselves pure mappings of mappings is a
// subcategory level.
func isNestedCategory(node *yaml.Node) bool {
	for i := 1; i < len(node.Content); i += 2 {
		val := node.Content[i]
		if val.Kind != yaml.MappingNode {
			return false
		}
		for j := 1; j < len(val.Content); j += 2 {
			if val.Content[j].Kind != yaml.MappingNode {
				// Scalar field inside the value: the value is an entry,
				// so this level holds plugins, not subcategories.
				return false
			}
		}
	}
	return len(node.Content) > 0
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, &LoadError{Reason: "manifest is not valid YAML", Err: err}
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}
