package validator

// CheckKind selects the probe a check descriptor runs.
type CheckKind string

// Supported check kinds.
const (
	CheckFileExists CheckKind = "fileExists"
	CheckToolExists CheckKind = "toolExists"
)

// Check is one declarative validation step for a plugin. FileExists targets
// are relative to the project path; ToolExists targets are executable names
// looked up on the host's command search path.
type Check struct {
	Name    string
	Kind    CheckKind
	Target  string
	Message string
}

// defaultChecks is the per-plugin check table. The validator is an
// interpreter over this table: checks run in declared order, all of them,
// and each contributes exactly one result entry. Plugins without a table
// entry validate trivially.
var defaultChecks = map[string][]Check{
	"navfolder": {
		{Name: "navfolder-present", Kind: CheckFileExists, Target: "navfolder", Message: "navigation folder exists"},
	},
	"python": {
		{Name: "python-interpreter", Kind: CheckToolExists, Target: "python3", Message: "python3 available on PATH"},
		{Name: "project-manifest", Kind: CheckFileExists, Target: "pyproject.toml", Message: "pyproject.toml present"},
	},
	"typescript": {
		{Name: "node-runtime", Kind: CheckToolExists, Target: "node", Message: "node available on PATH"},
		{Name: "package-manifest", Kind: CheckFileExists, Target: "package.json", Message: "package.json present"},
	},
	"golang": {
		{Name: "go-toolchain", Kind: CheckToolExists, Target: "go", Message: "go available on PATH"},
		{Name: "module-manifest", Kind: CheckFileExists, Target: "go.mod", Message: "go.mod present"},
	},
	"rust": {
		{Name: "cargo-toolchain", Kind: CheckToolExists, Target: "cargo", Message: "cargo available on PATH"},
		{Name: "crate-manifest", Kind: CheckFileExists, Target: "Cargo.toml", Message: "Cargo.toml present"},
	},
	"docker": {
		{Name: "docker-cli", Kind: CheckToolExists, Target: "docker", Message: "docker available on PATH"},
		{Name: "dockerfile", Kind: CheckFileExists, Target: "Dockerfile", Message: "Dockerfile present"},
	},
	"terraform": {
		{Name: "terraform-cli", Kind: CheckToolExists, Target: "terraform", Message: "terraform available on PATH"},
	},
	"pre-commit": {
		{Name: "pre-commit-cli", Kind: CheckToolExists, Target: "pre-commit", Message: "pre-commit available on PATH"},
		{Name: "hook-config", Kind: CheckFileExists, Target: ".pre-commit-config.yaml", Message: ".pre-commit-config.yaml present"},
	},
	"security": {
		{Name: "gitignore", Kind: CheckFileExists, Target: ".gitignore", Message: ".gitignore present"},
	},
}
