package registry

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog/log"
)

// supportedSchemaMajor is the newest manifest schema major this build
// understands. Version strings that do not parse as semver are accepted;
// only a parseable version with a higher major is rejected.
const supportedSchemaMajor = 1

const maxDescriptionLen = 1024

// validate checks the structural invariants of a parsed manifest. Fatal
// problems return a LoadError; data-quality concerns (duplicate names
// across categories, dependency cycles) are logged and do not fail the
// load.
func (r *Registry) validate() error {
	if r.Version == "" {
		return &LoadError{Reason: "manifest has no version field"}
	}
	if v, err := semver.NewVersion(r.Version); err == nil && v.Major() > supportedSchemaMajor {
		return &LoadError{Reason: fmt.Sprintf("unsupported schema version %s (supported major: %d)", r.Version, supportedSchemaMajor)}
	}
	if len(r.Categories) == 0 {
		return &LoadError{Reason: "manifest declares no categories"}
	}

	seen := make(map[string]string) // plugin name -> first category path
	for ci := range r.Categories {
		cat := &r.Categories[ci]
		for _, name := range cat.Names() {
			entry, id, _ := cat.Lookup(name)
			if err := validateEntry(name, id, entry); err != nil {
				return err
			}
			if first, dup := seen[name]; dup {
				log.Warn().
					Str("plugin", name).
					Str("category", first).
					Str("also_in", id.CategoryPath()).
					Msg("plugin name declared in multiple categories; precedence order decides resolution")
			} else {
				seen[name] = id.CategoryPath()
			}
		}
	}

	r.warnDependencyCycles()
	return nil
}

func validateEntry(name string, id Identity, entry PluginEntry) error {
	where := id.CategoryPath() + "/" + name
	if !entry.Status.IsValid() {
		return &LoadError{Reason: fmt.Sprintf("plugin %s has invalid status %q", where, entry.Status)}
	}
	if entry.Description == "" {
		return &LoadError{Reason: fmt.Sprintf("plugin %s has an empty description", where)}
	}
	if len(entry.Description) > maxDescriptionLen {
		return &LoadError{Reason: fmt.Sprintf("plugin %s description exceeds %d characters", where, maxDescriptionLen)}
	}
	if entry.Location == "" {
		return &LoadError{Reason: fmt.Sprintf("plugin %s has no location", where)}
	}
	if entry.Status == StatusStable && entry.InstallationGuideLocation == "" {
		return &LoadError{Reason: fmt.Sprintf("stable plugin %s has no installationGuideLocation", where)}
	}
	for _, dep := range entry.Dependencies {
		if dep == name || dep == id.CategoryPath()+"/"+name {
			return &LoadError{Reason: fmt.Sprintf("plugin %s depends on itself", where)}
		}
	}
	for optName, opt := range entry.Options {
		available := make(map[string]bool, len(opt.Available))
		for _, a := range opt.Available {
			available[a] = true
		}
		for _, rec := range opt.Recommended {
			if !available[rec] {
				return &LoadError{Reason: fmt.Sprintf(
					"plugin %s option %q recommends %q which is not in its available set", where, optName, rec)}
			}
		}
	}
	return nil
}

// warnDependencyCycles flags cycles across entries. Dependencies are
// category-qualified identifiers; unqualified names are matched against the
// bare plugin name. Cycles are a data-quality concern, never fatal.
func (r *Registry) warnDependencyCycles() {
	deps := make(map[string][]string)
	for ci := range r.Categories {
		cat := &r.Categories[ci]
		for _, name := range cat.Names() {
			entry, _, _ := cat.Lookup(name)
			for _, dep := range entry.Dependencies {
				deps[name] = append(deps[name], bareName(dep))
			}
		}
	}

	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int)
	var visit func(name string, path []string)
	visit = func(name string, path []string) {
		switch state[name] {
		case done:
			return
		case inStack:
			log.Warn().Strs("cycle", append(path, name)).Msg("dependency cycle detected in manifest")
			return
		}
		state[name] = inStack
		for _, dep := range deps[name] {
			visit(dep, append(path, name))
		}
		state[name] = done
	}
	for name := range deps {
		visit(name, nil)
	}
}

// bareName strips the category qualifier from a dependency identifier,
// e.g. "languages/python" -> "python".
func bareName(dep string) string {
	for i := len(dep) - 1; i >= 0; i-- {
		if dep[i] == '/' {
			return dep[i+1:]
		}
	}
	return dep
}
