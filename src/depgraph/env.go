package depgraph

import (
	"fmt"
	"sort"

	"github.com/nbo-build/nbo/src/core"
)

// BuildCompileEnvironment derives env(M,T) in the following order:
//  1. clone the binary-level base environment.
//  2. apply module knobs (unity, optimization, RTTI, AVX, exceptions,
//     warning levels, language standard).
//  3. inject IS_ENGINE_MODULE / PROJECT_NAME / TARGET_NAME.
//  4. concatenate module public+private definitions, then project
//     definitions if non-engine.
//  5. compute the public closure via addModuleToCompileEnvironment.
func (g *Graph) BuildCompileEnvironment(base *core.CompileEnvironment, moduleName, projectName string) (*core.CompileEnvironment, error) {
	m, ok := g.modules[moduleName]
	if !ok {
		return nil, core.NewGraphError([]string{moduleName}, fmt.Sprintf("unknown module %q", moduleName))
	}

	env := base.Clone()
	env.Module = moduleName

	applyModuleKnobs(env, m)

	isEngineModule := m.TreatAsEngineModule
	if isEngineModule {
		env.Definitions.Add("IS_ENGINE_MODULE=1")
	} else {
		env.Definitions.Add("IS_ENGINE_MODULE=0")
		env.Definitions.Add("PROJECT_NAME=" + projectName)
		env.Definitions.Add("TARGET_NAME=" + g.Target.Name)
	}

	env.Definitions.AddAll(m.PublicDefinitions)
	env.Definitions.AddAll(m.PrivateDefinitions)
	if !isEngineModule {
		// Non-engine modules also see the project-wide definitions carried
		// on the target's global definitions list, modeled here as the
		// target's GlobalDefinitions since the data model has no separate
		// per-project definitions record.
		env.Definitions.AddAll(g.Target.GlobalDefinitions)
	}

	if err := g.addPublicClosure(env, m, map[string]bool{moduleName: true}, []string{moduleName}, true); err != nil {
		return nil, err
	}

	return env, nil
}

func applyModuleKnobs(env *core.CompileEnvironment, m *core.ModuleRules) {
	env.UnityEnabled = !m.UnityBuildDisabled
	env.OptimizeCode = ShouldEnableOptimization(m.OptimizationPolicy, env.Config, m.TreatAsEngineModule)
	env.UseRTTI = m.UseRTTI
	env.EnableExceptions = m.EnableExceptions
	env.ShadowVariableWarnings = m.ShadowVariableWarnings
	env.UnsafeCastWarnings = m.UnsafeCastWarnings
	env.UndefinedIdentifierWarnings = m.UndefinedIdentifierWarnings
	if m.CppStandard != "" {
		env.CppStandard = m.CppStandard
	}
	env.UserIncludePaths.AddAll(m.PublicIncludePaths)
	env.UserIncludePaths.AddAll(m.PrivateIncludePaths)
	env.SystemIncludePaths.AddAll(m.SystemIncludePaths)
}

// addPublicClosure implements addModuleToCompileEnvironment: traverse
// public/private dependencies of m, but only recurse into the
// *publicly visible* sub-closure of each dependency -- a dependency's
// private dependencies never leak past it. includePrivate is true only for
// the module whose environment is being built. visiting/chain track the
// whitelist-aware cycle check; non-whitelisted cycles are reported with the
// offending reference chain as a GraphError.
func (g *Graph) addPublicClosure(env *core.CompileEnvironment, m *core.ModuleRules, visiting map[string]bool, chain []string, includePrivate bool) error {
	deps := make([]string, 0, len(m.PublicDependencies)+len(m.PrivateDependencies)+len(m.DynamicDependencies))
	deps = append(deps, m.PublicDependencies...)
	if includePrivate {
		deps = append(deps, m.PrivateDependencies...)
	}
	sort.Strings(deps[:len(m.PublicDependencies)])
	sort.Strings(deps[len(m.PublicDependencies):])

	for _, depName := range deps {
		dep, ok := g.modules[depName]
		if !ok {
			return core.NewGraphError(append(chain, depName), fmt.Sprintf("module %q depends on unknown module %q", m.Name, depName))
		}

		if visiting[depName] {
			if g.isWhitelisted(m.Name, depName) {
				continue
			}
			return core.NewGraphError(append(chain, depName), fmt.Sprintf("circular module dependency: %v", append(chain, depName)))
		}

		env.UserIncludePaths.AddAll(dep.PublicIncludePaths)
		env.SystemIncludePaths.AddAll(dep.SystemIncludePaths)
		env.Definitions.AddAll(dep.PublicDefinitions)
		env.AdditionalPrerequisites = append(env.AdditionalPrerequisites, dep.RuntimeDependencies...)

		visiting[depName] = true
		if err := g.addPublicClosure(env, dep, visiting, append(chain, depName), false); err != nil {
			return err
		}
		visiting[depName] = false
	}

	// Dynamic dependencies contribute nothing to the compile environment:
	// they are resolved at load time, not compile time, so they never add
	// include paths or definitions (only the link/action graph stage cares
	// about them).
	_ = m.DynamicDependencies

	return nil
}
