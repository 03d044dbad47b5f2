// Package assembly implements the rules assembly compiler: it compiles the
// module- and target-rules sources discovered by rulescan for one logical
// layer (engine, enterprise, project, plugin) into a loadable registry of
// rule constructors, caching the compiled artifact to disk and chaining
// layers parent-first (plugin -> project -> enterprise -> engine).
package assembly

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/hashicorp/go-multierror"
	"github.com/zeebo/blake3"
	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/core"
)

var log = logging.MustGetLogger("assembly")

// ModuleConstructor is the single accepted module-rules constructor shape.
// self arrives pre-populated with identity fields (name, file, directory,
// context, plugin); the constructor reads off self the way a subclass
// constructor would read inherited receiver fields, and returns the
// (possibly same, possibly replaced) descriptor.
type ModuleConstructor func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules

// TargetConstructor builds a TargetRules for one target, given the seeded
// defaults the target-rules instantiation package has already applied.
type TargetConstructor func(seed *core.TargetRules) *core.TargetRules

// Assembly is one compiled layer's registry of rule constructors, with a
// pointer to the parent layer for name-lookup chaining.
type Assembly struct {
	Name     string
	Layer    string // "engine", "enterprise", "project", or "plugin"
	Parent   *Assembly
	ReadOnly bool // true if this assembly's sources live under an installed layer
	Scope    *core.Scope

	modules map[string]ModuleConstructor
	targets map[string]TargetConstructor

	sourceFiles []string
}

// NewAssembly creates an empty assembly for the given layer, chained to
// parent. Its scope is a child of the parent's scope (or core.EngineScope
// for the root assembly), matching the layer nesting plugin -> project ->
// enterprise -> engine onto the scope tree.
func NewAssembly(name, layer string, parent *Assembly) *Assembly {
	scope := core.EngineScope
	if parent != nil {
		scope = core.NewScope(name, parent.Scope)
	}
	return &Assembly{
		Name:    name,
		Layer:   layer,
		Parent:  parent,
		Scope:   scope,
		modules: map[string]ModuleConstructor{},
		targets: map[string]TargetConstructor{},
	}
}

// Register adds a module constructor to this assembly. Called by the
// compiled plugin's init-time registration (see Compile).
func (a *Assembly) Register(name string, ctor ModuleConstructor) {
	a.modules[name] = ctor
}

// RegisterTarget adds a target constructor to this assembly.
func (a *Assembly) RegisterTarget(name string, ctor TargetConstructor) {
	a.targets[name] = ctor
}

// FindModule walks the parent chain to find a module constructor, the
// first hit winning.
func (a *Assembly) FindModule(name string) (ModuleConstructor, *Assembly, bool) {
	for asm := a; asm != nil; asm = asm.Parent {
		if ctor, ok := asm.modules[name]; ok {
			return ctor, asm, true
		}
	}
	return nil, nil, false
}

// FindTarget walks the parent chain to find a target constructor.
func (a *Assembly) FindTarget(name string) (TargetConstructor, *Assembly, bool) {
	for asm := a; asm != nil; asm = asm.Parent {
		if ctor, ok := asm.targets[name]; ok {
			return ctor, asm, true
		}
	}
	return nil, nil, false
}

// manifestPath and artifactPath follow the layout:
// <root>/Intermediate/Build/BuildRules/<AssemblyName>.{so,manifest.json}
func manifestPath(root, name string) string {
	return filepath.Join(root, "Intermediate", "Build", "BuildRules", name+".manifest.json")
}

func artifactPath(root, name string) string {
	return filepath.Join(root, "Intermediate", "Build", "BuildRules", name+".so")
}

// NeedsRecompile implements the compilation-avoidance check: the artifact
// is rebuilt iff any of the listed conditions hold.
func NeedsRecompile(root, name string, sourceFiles []string, engineVersion, hostToolVersion string) (bool, string) {
	artifact := artifactPath(root, name)
	artifactInfo, err := os.Stat(artifact)
	if err != nil {
		return true, "artifact missing"
	}
	manifest, err := readManifest(manifestPath(root, name))
	if err != nil {
		return true, "manifest missing or unreadable"
	}
	if manifest.EngineVersion != engineVersion {
		if !compatibleSemver(manifest.EngineVersion, engineVersion) {
			return true, "engine version mismatch"
		}
	}
	if !sameSourceSet(manifest.SourceFiles, sourceFiles) {
		return true, "source file set differs"
	}
	mtimeStale := false
	for _, src := range sourceFiles {
		info, err := os.Stat(src)
		if err != nil || info.ModTime().After(artifactInfo.ModTime()) {
			mtimeStale = true
			break
		}
	}
	if mtimeStale {
		if hashSourceFiles(sourceFiles) == manifest.ContentHash {
			log.Debug("assembly %s: mtimes advanced but content hash unchanged, skipping recompile", name)
		} else {
			return true, "source newer than artifact"
		}
	}
	toolInfo, err := os.Stat(hostToolPath(hostToolVersion))
	if err == nil && toolInfo.ModTime().After(artifactInfo.ModTime()) {
		return true, "host tool newer than artifact"
	}
	return false, ""
}

// hostToolPath is a seam for tests; in production it resolves to the
// orchestrator binary's own path.
var hostToolPath = func(hostToolVersion string) string {
	if p, err := os.Executable(); err == nil {
		return p
	}
	return hostToolVersion
}

// hashSourceFiles digests the contents of sourceFiles, in the given order,
// into a single blake3 hex string. This is a supplementary signal on top
// of the file-set and mtime checks, so an unreadable file contributes its
// path rather than failing the whole digest.
func hashSourceFiles(sourceFiles []string) string {
	h := blake3.New()
	for _, src := range sourceFiles {
		h.Write([]byte(src))
		if data, err := os.ReadFile(src); err == nil {
			h.Write(data)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func compatibleSemver(a, b string) bool {
	va, erra := semver.NewVersion(a)
	vb, errb := semver.NewVersion(b)
	if erra != nil || errb != nil {
		return a == b
	}
	return va.Equal(vb)
}

func sameSourceSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

func readManifest(path string) (*core.RulesAssemblyManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m core.RulesAssemblyManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteManifest atomically (re)writes the manifest next to the artifact,
// via a temp file and rename: the assembly artifact and the manifest must
// be updated as a pair.
func WriteManifest(root, name string, sourceFiles []string, engineVersion string) error {
	m := core.RulesAssemblyManifest{SourceFiles: sourceFiles, EngineVersion: engineVersion, ContentHash: hashSourceFiles(sourceFiles)}
	data, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return err
	}
	path := manifestPath(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0775); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// CompileDiagnostics aggregates rule-compile diagnostics; the first error
// aborts assembly with a structured report.
type CompileDiagnostics struct {
	errs *multierror.Error
}

// Add records a diagnostic.
func (d *CompileDiagnostics) Add(err error) {
	d.errs = multierror.Append(d.errs, err)
}

// Err returns the aggregated error, or nil if nothing was recorded.
func (d *CompileDiagnostics) Err() error {
	if d.errs == nil {
		return nil
	}
	return d.errs.ErrorOrNil()
}
