// Package registry implements the scope and rule registry: a hierarchical
// scope graph plus name -> rule-file and name -> rule-type lookup tables,
// with platform-specialized override resolution. It sits between the
// assembly compiler, which populates it, and the target/module
// instantiation packages, which query it.
package registry

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/core"
)

var log = logging.MustGetLogger("registry")

// RuleFile records where a rule type's source lives, for diagnostics and
// for the read-only propagation rule: if a file lies under an installed
// layer, its rules object is marked non-mutable for the target.
type RuleFile struct {
	Path     string
	Scope    *core.Scope
	ReadOnly bool
	// TypeName is the name the assembly registered the type's constructor
	// under. For a base module it equals the module name; for a
	// specialization it is whatever distinct name the rule file used
	// (e.g. "Core_Windows"), which is what CreateModule must look up in
	// the assembly chain to actually dispatch to the specialized type.
	TypeName string
}

// Registry is the data-driven replacement for deep class-inheritance-based
// platform specialization: it is keyed by (moduleName, platform|group) and
// produces specialization hooks. It is write-once at construction
// (populated while compiling an assembly layer) and read-only thereafter,
// matching the concurrency model.
type Registry struct {
	root *core.Scope

	// moduleFiles maps a base module name to where it's declared.
	moduleFiles map[string]RuleFile
	// targetFiles maps a base target name to where it's declared.
	targetFiles map[string]RuleFile

	// specializations maps "<moduleName>:<platformOrGroup>" to the
	// specialized type's rule file.
	specializations map[string]RuleFile

	// platformGroups maps a platform name to the ordered list of groups it
	// belongs to; order here is the search order used when resolving a
	// specialization.
	platformGroups map[string][]string
}

// New creates an empty registry rooted at the given engine scope.
func New(root *core.Scope) *Registry {
	return &Registry{
		root:            root,
		moduleFiles:     map[string]RuleFile{},
		targetFiles:     map[string]RuleFile{},
		specializations: map[string]RuleFile{},
		platformGroups:  map[string][]string{},
	}
}

// RegisterModule records where a base (non-specialized) module type lives.
func (r *Registry) RegisterModule(name string, file RuleFile) {
	r.moduleFiles[name] = file
}

// RegisterTarget records where a target type lives.
func (r *Registry) RegisterTarget(name string, file RuleFile) {
	r.targetFiles[name] = file
}

// RegisterSpecialization records a platform- or group-specialized override
// for a module, keyed by the platform or group tag it applies to.
func (r *Registry) RegisterSpecialization(moduleName, platformOrGroup string, file RuleFile) {
	r.specializations[specKey(moduleName, platformOrGroup)] = file
}

// SetPlatformGroups declares which groups a platform belongs to, in the
// order group specialization should be searched.
func (r *Registry) SetPlatformGroups(platform string, groups []string) {
	r.platformGroups[platform] = append([]string(nil), groups...)
}

func specKey(moduleName, tag string) string { return moduleName + ":" + tag }

// LookupModule returns the base module rule file for name. Delegation to
// the parent assembly when the name is absent here is handled by the
// caller chaining multiple Registry lookups via assembly.Assembly; this
// method only covers one layer.
func (r *Registry) LookupModule(name string) (RuleFile, bool) {
	f, ok := r.moduleFiles[name]
	return f, ok
}

// LookupTarget returns the target rule file for name.
func (r *Registry) LookupTarget(name string) (RuleFile, bool) {
	f, ok := r.targetFiles[name]
	return f, ok
}

// ResolveSpecialization searches for a platform-specific override first,
// then each platform group in the registered order; more than one group
// match is fatal (ambiguous specialization, reported as a GraphError).
// Returns the resolved file (specialized or base) and whether a
// specialization was applied.
func (r *Registry) ResolveSpecialization(moduleName, platform string) (RuleFile, bool, error) {
	base, ok := r.moduleFiles[moduleName]
	if !ok {
		return RuleFile{}, false, core.NewGraphError([]string{moduleName}, fmt.Sprintf("unknown module %q", moduleName))
	}

	if f, ok := r.specializations[specKey(moduleName, platform)]; ok {
		return f, true, nil
	}

	var matches []RuleFile
	var matchedGroups []string
	for _, group := range r.platformGroups[platform] {
		if f, ok := r.specializations[specKey(moduleName, group)]; ok {
			matches = append(matches, f)
			matchedGroups = append(matchedGroups, group)
		}
	}
	switch len(matches) {
	case 0:
		return base, false, nil
	case 1:
		return matches[0], true, nil
	default:
		slices.Sort(matchedGroups)
		return RuleFile{}, false, core.NewGraphError(
			[]string{moduleName},
			fmt.Sprintf("ambiguous platform-group specialization for module %q: matches groups %v", moduleName, matchedGroups),
		)
	}
}

// Scopes returns the scope tree root this registry was constructed against,
// used by callers enforcing that a declaration may only reference others
// in an equal-or-ancestor scope.
func (r *Registry) Scopes() *core.Scope { return r.root }

// CheckReference enforces the scope-containment rule by delegating to
// core.CanReference, returning a structured GraphError on violation.
func (r *Registry) CheckReference(from, to *core.Scope) error {
	if core.CanReference(from, to) {
		return nil
	}
	return core.NewGraphError([]string{from.String(), to.String()}, fmt.Sprintf("scope %s may not reference scope %s: not an ancestor", from, to))
}
