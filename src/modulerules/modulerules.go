// Package modulerules implements module-rules instantiation: createModule,
// platform/group specialization resolution via the registry, default
// seeding before the user constructor, and the deprecated
// TargetInfo-signature rejection.
package modulerules

import (
	"fmt"

	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/registry"
)

var log = logging.MustGetLogger("modulerules")

// Request bundles createModule's parameters: name, owning target, and the
// reference chain accumulated so far (used for GraphError reporting and
// for the circular-dependency whitelist check upstream in the dependency
// graph).
type Request struct {
	Name          string
	Target        *core.TargetRules
	ReferenceChain []string
	BaseContext   *core.ModuleRulesContext
}

// CreateModule resolves and instantiates a module:
//  1. resolve base module type by name, delegating to the parent assembly chain.
//  2/3. resolve platform/group specialization via the registry.
//  4. populate identity fields before invoking the user constructor.
//  5. no inheritance chain is walked and no directoriesForModuleSubClasses
//     list is collected.
//  6. invoke the single constructor.
func CreateModule(root *assembly.Assembly, reg *registry.Registry, req Request) (*core.ModuleRules, error) {
	specFile, specialized, err := reg.ResolveSpecialization(req.Name, req.Target.Platform)
	if err != nil {
		return nil, err
	}

	// Step 3: the constructor we actually invoke is the specialized one if
	// the registry found one, otherwise the base type.
	lookupName := req.Name
	if specialized && specFile.TypeName != "" {
		lookupName = specFile.TypeName
	}
	ctor, owner, ok := root.FindModule(lookupName)
	if !ok {
		return nil, core.NewGraphError(append(req.ReferenceChain, req.Name),
			fmt.Sprintf("no module-rules type %q found in assembly chain", lookupName))
	}
	if specialized {
		log.Debug("module %s specialized by %s for platform %s", req.Name, specFile.Path, req.Target.Platform)
	}

	ctx := req.BaseContext
	if ctx == nil {
		ctx = &core.ModuleRulesContext{Scope: owner.Scope}
	}
	ctx = ctx.Clone()

	// Step 4: populate identity fields before invoking the user
	// constructor, so the constructor can read them off self the way a
	// subclass constructor reads inherited receiver fields.
	self := &core.ModuleRules{
		Name:                req.Name,
		Context:             ctx,
		Plugin:              ctx.Plugin,
		TreatAsEngineModule: owner.Layer == "engine",
	}
	if specialized {
		self.File = specFile.Path
	}

	module := ctor(self, req.Target)
	if module == nil {
		return nil, core.NewConfigurationError("", req.Name, "module-rules constructor returned nil")
	}

	if errs := module.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return module, nil
}

// RegisterDeprecated is what a rule file calls if it only has the legacy
// two-argument constructor shape. It always fails: the deprecated
// `TargetInfo` signature is rejected outright, not merely warned about,
// since this is a from-scratch orchestrator with no legacy callers to keep
// warm.
func RegisterDeprecated(moduleName string) error {
	return core.NewConfigurationError("", moduleName,
		"module-rules constructor uses the deprecated TargetInfo signature; rewrite it to accept (ReadOnlyTargetRules)")
}
