// Package analyzer classifies a target project directory and derives plugin
// recommendations from what it finds. Each run is a single stateless pass:
// probe the navigation folder, detect language and tool markers, record
// structural flags, then rank recommendations.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultNavFolder is the marker directory whose absence makes the
// foundation plugin the first recommendation.
const DefaultNavFolder = "navfolder"

// ErrInvalidProjectPath marks a target path that does not exist or is not
// a directory. Everything else (empty project, no markers) is a valid
// result with smaller detected sets.
var ErrInvalidProjectPath = errors.New("invalid project path")

// InvalidPathError carries the offending path.
type InvalidPathError struct {
	Path string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("project path %q does not exist or is not a directory", e.Path)
}

// Is lets callers match with errors.Is(err, ErrInvalidProjectPath).
func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidProjectPath }

// languageMarker maps marker files to the language plugin they indicate.
// Detection is additive: a polyglot project reports every matching
// language. Order here is detection order and therefore recommendation
// order.
type languageMarker struct {
	Language string
	Files    []string
}

var languageMarkers = []languageMarker{
	{Language: "python", Files: []string{"requirements.txt", "pyproject.toml", "setup.py"}},
	{Language: "typescript", Files: []string{"tsconfig.json", "package.json"}},
	{Language: "golang", Files: []string{"go.mod"}},
	{Language: "rust", Files: []string{"Cargo.toml"}},
	{Language: "java", Files: []string{"pom.xml", "build.gradle", "build.gradle.kts"}},
}

// toolMarker maps existing-infrastructure markers to tool identifiers.
type toolMarker struct {
	Tool  string
	Files []string
	Dirs  []string
}

var toolMarkers = []toolMarker{
	{Tool: "docker", Files: []string{"Dockerfile", "docker-compose.yml", "docker-compose.yaml"}},
	{Tool: "terraform", Files: []string{"main.tf"}, Dirs: []string{"terraform"}},
	{Tool: "github-actions", Dirs: []string{filepath.Join(".github", "workflows")}},
}

// alwaysRecommended is the fixed standards tail appended to every
// recommendation list.
var alwaysRecommended = []string{"pre-commit", "security", "documentation"}

// foundationPlugin is recommended first whenever the navigation folder is
// absent.
const foundationPlugin = "navfolder"

// buildManifests are the structural probe targets; informational only,
// never used for recommendations.
var buildManifests = []string{"Makefile", "Taskfile.yml", "justfile", "CMakeLists.txt"}

// Structure holds the informational structural booleans.
type Structure struct {
	HasVersionControl bool `json:"hasVersionControl"`
	HasBuildManifest  bool `json:"hasBuildManifest"`
}

// Result is one analyzer run. Results are created fresh per call and owned
// by the caller; they are never cached.
type Result struct {
	RunID             string    `json:"runId"`
	ProjectPath       string    `json:"projectPath"`
	HasNavFolder      bool      `json:"hasNavFolder"`
	DetectedLanguages []string  `json:"detectedLanguages"`
	DetectedTools     []string  `json:"detectedTools"`
	Structure         Structure `json:"structure"`
	Recommendations   []string  `json:"recommendations"`
}

// Analyzer probes target directories. Stateless and safe for concurrent
// use.
type Analyzer struct {
	navFolder string
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithNavFolder overrides the navigation folder marker name.
func WithNavFolder(name string) Option {
	return func(a *Analyzer) {
		if name != "" {
			a.navFolder = name
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{navFolder: DefaultNavFolder}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze inspects projectPath and produces a fresh Result. It fails only
// when the path is missing or not a directory.
func (a *Analyzer) Analyze(ctx context.Context, projectPath string) (*Result, error) {
	info, err := os.Stat(projectPath)
	if err != nil || !info.IsDir() {
		return nil, &InvalidPathError{Path: projectPath}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:             uuid.NewString(),
		ProjectPath:       projectPath,
		DetectedLanguages: []string{},
		DetectedTools:     []string{},
	}

	res.HasNavFolder = dirExists(filepath.Join(projectPath, a.navFolder))

	for _, marker := range languageMarkers {
		if anyFileExists(projectPath, marker.Files) {
			res.DetectedLanguages = append(res.DetectedLanguages, marker.Language)
		}
	}

	for _, marker := range toolMarkers {
		if anyFileExists(projectPath, marker.Files) || anyDirExists(projectPath, marker.Dirs) {
			res.DetectedTools = append(res.DetectedTools, marker.Tool)
		}
	}

	res.Structure = Structure{
		HasVersionControl: dirExists(filepath.Join(projectPath, ".git")),
		HasBuildManifest:  anyFileExists(projectPath, buildManifests),
	}

	res.Recommendations = a.recommend(res)

	log.Debug().
		Str("run_id", res.RunID).
		Str("path", projectPath).
		Strs("languages", res.DetectedLanguages).
		Strs("tools", res.DetectedTools).
		Bool("nav_folder", res.HasNavFolder).
		Msg("project analyzed")
	return res, nil
}

// recommend derives the ordered recommendation list: foundation first when
// the navigation folder is absent, one entry per detected language in
// detection order, then the fixed standards tail. Each source contributes
// distinct identifiers, but duplicates are dropped defensively anyway.
func (a *Analyzer) recommend(res *Result) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	if !res.HasNavFolder {
		add(foundationPlugin)
	}
	for _, lang := range res.DetectedLanguages {
		add(lang)
	}
	for _, std := range alwaysRecommended {
		add(std)
	}
	return out
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func anyFileExists(base string, files []string) bool {
	for _, f := range files {
		if info, err := os.Stat(filepath.Join(base, f)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}

func anyDirExists(base string, dirs []string) bool {
	for _, d := range dirs {
		if dirExists(filepath.Join(base, d)) {
			return true
		}
	}
	return false
}
