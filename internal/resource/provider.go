// Package resource returns raw plugin content as opaque payloads. Nothing
// at this layer parses or interprets the bytes, and nothing is cached:
// freshness matters more than latency for instructional content.
package resource

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/plugreg/plugreg/internal/resolver"
)

// Kind names the document being read, for error reporting.
type Kind string

// Document kinds.
const (
	KindInstructions Kind = "instructions"
	KindReadme       Kind = "readme"
	KindTemplate     Kind = "template"
)

// ErrResourceRead marks a document that is missing or unreadable for an
// otherwise valid plugin.
var ErrResourceRead = errors.New("resource read failed")

// ReadError carries the plugin name and document kind alongside the
// underlying I/O failure.
type ReadError struct {
	Plugin string
	Kind   Kind
	File   string
	Err    error
}

func (e *ReadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("plugin %q: cannot read %s %q: %v", e.Plugin, e.Kind, e.File, e.Err)
	}
	return fmt.Sprintf("plugin %q: cannot read %s: %v", e.Plugin, e.Kind, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Is lets callers match with errors.Is(err, ErrResourceRead).
func (e *ReadError) Is(target error) bool { return target == ErrResourceRead }

// Provider reads plugin documents via the resolver.
type Provider struct {
	resolver *resolver.Resolver
}

// NewProvider creates a Provider backed by the given resolver.
func NewProvider(r *resolver.Resolver) *Provider {
	return &Provider{resolver: r}
}

// Instructions returns the plugin's raw instructional document.
func (p *Provider) Instructions(ctx context.Context, name string) ([]byte, error) {
	path, err := p.resolver.InstructionsPath(ctx, name)
	if err != nil {
		return nil, err
	}
	return readDoc(name, KindInstructions, "", path)
}

// Readme returns the plugin's raw description document.
func (p *Provider) Readme(ctx context.Context, name string) ([]byte, error) {
	path, err := p.resolver.ReadmePath(ctx, name)
	if err != nil {
		return nil, err
	}
	return readDoc(name, KindReadme, "", path)
}

// Template returns the raw content of one template file. The file argument
// is externally supplied; the resolver enforces path containment before any
// read happens.
func (p *Provider) Template(ctx context.Context, name, file string) ([]byte, error) {
	path, err := p.resolver.TemplatePath(ctx, name, file)
	if err != nil {
		return nil, err
	}
	return readDoc(name, KindTemplate, file, path)
}

// Templates lists the plugin's template files.
func (p *Provider) Templates(ctx context.Context, name string) ([]string, error) {
	return p.resolver.Templates(ctx, name)
}

func readDoc(plugin string, kind Kind, file, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ReadError{Plugin: plugin, Kind: kind, File: file, Err: err}
	}
	return data, nil
}
