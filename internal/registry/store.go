package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTTL is the cache time-to-live used by long-running servers. A TTL
// of zero disables time-based staleness; the cache is then refreshed only by
// explicit force reloads or watcher invalidation.
const DefaultTTL = 30 * time.Second

// Store is the single source of truth for plugin metadata. It holds at most
// one cached Registry and coalesces concurrent reloads into a single
// parse-and-validate pass.
type Store struct {
	root         string
	manifestName string
	ttl          time.Duration

	mu       sync.RWMutex
	cached   *Registry
	loadedAt time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the cache time-to-live. Zero or negative disables
// time-based expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) { s.ttl = ttl }
}

// WithManifestName overrides the manifest filename within the registry root.
func WithManifestName(name string) StoreOption {
	return func(s *Store) { s.manifestName = name }
}

// NewStore creates a Store rooted at the given registry directory. The
// manifest is expected at <root>/registry.yaml unless overridden.
func NewStore(root string, opts ...StoreOption) *Store {
	s := &Store{
		root:         root,
		manifestName: "registry.yaml",
		ttl:          DefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the registry root directory. Plugin locations in the
// manifest are resolved relative to it.
func (s *Store) Root() string { return s.root }

// ManifestPath returns the absolute path of the manifest document.
func (s *Store) ManifestPath() string {
	return filepath.Join(s.root, s.manifestName)
}

// Load returns the cached Registry, re-reading the manifest when force is
// set, when the cache is stale, or on first access. Concurrent reload
// requests coalesce: a caller that blocked behind another reload returns
// the Registry that reload produced instead of parsing again. A failed
// reload returns a LoadError and leaves the previous good cache in place.
func (s *Store) Load(ctx context.Context, force bool) (*Registry, error) {
	s.mu.RLock()
	if !force && s.freshLocked() {
		reg := s.cached
		s.mu.RUnlock()
		return reg, nil
	}
	s.mu.RUnlock()

	entered := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another goroutine completed a reload while we waited for the lock;
	// its result satisfies this request, forced or not.
	if s.cached != nil && s.loadedAt.After(entered) {
		return s.cached, nil
	}
	if !force && s.freshLocked() {
		return s.cached, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg, err := s.loadFromDisk()
	if err != nil {
		if s.cached != nil {
			log.Warn().Err(err).Msg("registry reload failed; serving previous cached manifest")
		}
		return nil, err
	}

	s.cached = reg
	s.loadedAt = time.Now()
	return reg, nil
}

// Invalidate marks the cache stale so the next Load re-parses the manifest.
// The cached Registry is kept until a reload succeeds.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.loadedAt = time.Time{}
	s.mu.Unlock()
}

// freshLocked reports whether the cache entry can be served as-is. Caller
// holds at least a read lock.
func (s *Store) freshLocked() bool {
	if s.cached == nil || s.loadedAt.IsZero() {
		return false
	}
	if s.ttl <= 0 {
		return true
	}
	return time.Since(s.loadedAt) <= s.ttl
}

func (s *Store) loadFromDisk() (*Registry, error) {
	data, err := os.ReadFile(s.ManifestPath())
	if err != nil {
		return nil, &LoadError{Reason: "manifest unreadable", Err: err}
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := s.verifyInstallationGuides(reg); err != nil {
		return nil, err
	}
	log.Debug().
		Str("manifest", s.ManifestPath()).
		Int("categories", len(reg.Categories)).
		Msg("registry manifest loaded")
	return reg, nil
}

// verifyInstallationGuides completes validation that needs the filesystem:
// a stable entry's installation guide must exist under the entry's location
// at load time, not just be declared.
func (s *Store) verifyInstallationGuides(reg *Registry) error {
	for ci := range reg.Categories {
		cat := &reg.Categories[ci]
		for _, name := range cat.Names() {
			entry, id, _ := cat.Lookup(name)
			if entry.Status != StatusStable {
				continue
			}
			guide := filepath.Join(s.root,
				filepath.FromSlash(entry.Location),
				filepath.FromSlash(entry.InstallationGuideLocation))
			info, err := os.Stat(guide)
			if err != nil || !info.Mode().IsRegular() {
				return &LoadError{
					Reason: fmt.Sprintf("stable plugin %s/%s: installation guide %q does not resolve to an existing file",
						id.CategoryPath(), name, entry.InstallationGuideLocation),
					Err: err,
				}
			}
		}
	}
	return nil
}
