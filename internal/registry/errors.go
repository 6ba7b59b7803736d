package registry

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching across packages.
var (
	ErrRegistryLoad   = errors.New("registry load failed")
	ErrPluginNotFound = errors.New("plugin not found")
)

// LoadError reports a manifest that could not be read, parsed, or
// validated. The previous good cache entry, if any, survives it.
type LoadError struct {
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry load failed: %s: %v", e.Reason, e.Err)
	}
	return "registry load failed: " + e.Reason
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets callers match with errors.Is(err, ErrRegistryLoad).
func (e *LoadError) Is(target error) bool { return target == ErrRegistryLoad }

// NotFoundError reports a plugin name absent from every category. It
// carries the name that was searched.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("plugin %q not found in any category", e.Name)
}

// Is lets callers match with errors.Is(err, ErrPluginNotFound).
func (e *NotFoundError) Is(target error) bool { return target == ErrPluginNotFound }
