// Package validator runs declarative per-plugin installation checks and
// host-environment probes, reporting structured pass/fail results.
package validator

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/plugreg/plugreg/internal/analyzer"
)

// defaultProbeTimeout caps every host-tool probe independently of caller
// cancellation, so a hung probe can never stall the service.
const defaultProbeTimeout = 5 * time.Second

// CheckResult is the outcome of one declared check.
type CheckResult struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// Result aggregates a validation run. Valid is the AND of all checks; the
// Checks slice preserves declaration order and always has one entry per
// declared check, regardless of how many fail.
type Result struct {
	Plugin string        `json:"plugin"`
	Valid  bool          `json:"valid"`
	Checks []CheckResult `json:"checks"`
}

// YAMLResult reports an attempted parse of caller-supplied structured
// data. Malformed input is an expected, recoverable case: it sets Valid to
// false instead of raising an error.
type YAMLResult struct {
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
	Parsed any    `json:"parsed,omitempty"`
}

// Validator interprets the per-plugin check table. Safe for concurrent
// use.
type Validator struct {
	checks       map[string][]Check
	probeTimeout time.Duration
}

// Option configures a Validator.
type Option func(*Validator)

// WithChecks replaces the built-in check table (used by tests).
func WithChecks(table map[string][]Check) Option {
	return func(v *Validator) { v.checks = table }
}

// WithProbeTimeout overrides the host-probe timeout ceiling.
func WithProbeTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.probeTimeout = d
		}
	}
}

// New creates a Validator over the default check table.
func New(opts ...Option) *Validator {
	v := &Validator{
		checks:       defaultChecks,
		probeTimeout: defaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ToolExists probes the host's command search path for an executable of
// that name. It never returns an error: absence, cancellation, and probe
// timeout all report false.
func (v *Validator) ToolExists(ctx context.Context, toolName string) bool {
	if toolName == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, v.probeTimeout)
	defer cancel()

	found := make(chan bool, 1)
	go func() {
		_, err := exec.LookPath(toolName)
		found <- err == nil
	}()

	select {
	case ok := <-found:
		return ok
	case <-ctx.Done():
		log.Warn().Str("tool", toolName).Msg("tool probe timed out")
		return false
	}
}

// CheckYAML attempts to parse structured-data text.
func (v *Validator) CheckYAML(text string) YAMLResult {
	var parsed any
	if err := yaml.Unmarshal([]byte(text), &parsed); err != nil {
		return YAMLResult{Valid: false, Error: err.Error()}
	}
	return YAMLResult{Valid: true, Parsed: parsed}
}

// ValidateInstallation runs every declared check for the plugin against
// projectPath. Checks are independent: all of them run even after a
// failure, and the result list preserves declaration order. A plugin with
// no declared checks yields Valid=true with an empty list.
func (v *Validator) ValidateInstallation(ctx context.Context, pluginName, projectPath string) (*Result, error) {
	info, err := os.Stat(projectPath)
	if err != nil || !info.IsDir() {
		return nil, &analyzer.InvalidPathError{Path: projectPath}
	}

	res := &Result{
		Plugin: pluginName,
		Valid:  true,
		Checks: []CheckResult{},
	}

	for _, check := range v.checks[pluginName] {
		passed := v.run(ctx, check, projectPath)
		if !passed {
			res.Valid = false
		}
		res.Checks = append(res.Checks, CheckResult{
			Name:    check.Name,
			Passed:  passed,
			Message: check.Message,
		})
	}
	return res, nil
}

func (v *Validator) run(ctx context.Context, check Check, projectPath string) bool {
	switch check.Kind {
	case CheckFileExists:
		_, err := os.Stat(filepath.Join(projectPath, check.Target))
		return err == nil
	case CheckToolExists:
		return v.ToolExists(ctx, check.Target)
	default:
		log.Warn().Str("kind", string(check.Kind)).Msg("unknown check kind; treated as failed")
		return false
	}
}
