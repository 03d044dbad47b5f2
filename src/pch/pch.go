// Package pch implements the precompiled-header planner: shared-PCH
// template discovery, compatibility matching against the transitive
// dependency closure, deterministic suffix computation for new instances,
// wrapper header synthesis, and the private/dedicated PCH fallback.
package pch

import (
	"fmt"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/depgraph"
)

var log = logging.MustGetLogger("pch")

// Planner resolves PCH usage for each module against the set of shared-PCH
// templates contributed by modules that declare a public SharedPCHHeader.
type Planner struct {
	Graph     *depgraph.Graph
	templates map[string]*core.PCHTemplate // keyed by owning module name
	// order preserves template discovery order: scanning instances (and,
	// by extension, templates) in a stable order across runs keeps
	// planning idempotent.
	order []string
}

// NewPlanner creates a Planner over the given module graph.
func NewPlanner(g *depgraph.Graph) *Planner {
	return &Planner{Graph: g, templates: map[string]*core.PCHTemplate{}}
}

// DiscoverTemplates scans the graph's registered modules in a caller-given
// deterministic order and contributes a PCHTemplate for each module
// declaring a public SharedPCHHeader.
func (p *Planner) DiscoverTemplates(moduleNames []string, baseEnvFor func(module string) *core.CompileEnvironment, outputDir string) {
	for _, name := range moduleNames {
		m, ok := p.Graph.Module(name)
		if !ok || m.SharedPCHHeader == "" {
			continue
		}
		if _, exists := p.templates[name]; exists {
			continue
		}
		tmpl := &core.PCHTemplate{
			OwningModule:           name,
			BaseCompileEnvironment: baseEnvFor(name),
			PCHHeaderFile:          m.SharedPCHHeader,
			OutputDir:              outputDir,
		}
		p.templates[name] = tmpl
		p.order = append(p.order, name)
	}
}

// Plan resolves how module consumerName should use PCH, given its resolved
// compile environment and the transitive closure of its dependencies:
//  1. collect the transitive direct-dependency closure (already known to
//     the caller via the consumer's ModuleRules dependency lists).
//  2. pick the first template whose owning module is in the closure and
//     whose environment is compatible.
//  3. reuse if found; otherwise synthesize a new instance.
func (p *Planner) Plan(consumer *core.ModuleRules, env *core.CompileEnvironment, closure map[string]bool) (*core.PCHInstance, *core.PCHTemplate, bool, error) {
	if consumer.PCHUsage == core.PCHNone {
		return nil, nil, false, nil
	}
	if consumer.PrivatePCHHeader != "" || consumer.PCHUsage == core.PCHNoShared {
		return nil, nil, false, nil // caller falls back to a private/dedicated PCH
	}

	for _, name := range p.order {
		if !closure[name] {
			continue
		}
		tmpl := p.templates[name]
		if inst := tmpl.FindCompatibleInstance(env); inst != nil {
			env.PCHAction = core.PCHActionInclude
			env.PCHHeader = inst.HeaderFile
			return inst, tmpl, true, nil
		}
	}

	for _, name := range p.order {
		if !closure[name] {
			continue
		}
		tmpl := p.templates[name]
		inst, err := p.synthesizeInstance(tmpl, env)
		if err != nil {
			return nil, nil, false, err
		}
		env.PCHAction = core.PCHActionCreate
		env.PCHHeader = inst.HeaderFile
		return inst, tmpl, false, nil
	}

	if consumer.PCHUsage == core.PCHUseShared {
		return nil, nil, false, core.NewConfigurationError(consumer.File, consumer.Name,
			"module requires a shared PCH but no template is reachable in its dependency closure")
	}
	return nil, nil, false, nil
}

func (p *Planner) synthesizeInstance(tmpl *core.PCHTemplate, env *core.CompileEnvironment) (*core.PCHInstance, error) {
	suffix := Suffix(tmpl.BaseCompileEnvironment, env)
	base := strings.TrimSuffix(tmpl.PCHHeaderFile, ".h")
	wrapperName := fmt.Sprintf("%s%s.h", base, suffix)

	inst := &core.PCHInstance{
		HeaderFile:         wrapperName,
		CompileEnvironment: env.Clone(),
		Output: core.PCHOutput{
			PCHArtifact: fmt.Sprintf("%s%s.pch", base, suffix),
		},
	}
	tmpl.Instances = append(tmpl.Instances, inst)
	return inst, nil
}

// WrapperHeaderContents builds the text of a shared-PCH wrapper header: the
// per-module definitions followed by a single #include of the canonical
// PCH header.
func WrapperHeaderContents(definitions []string, canonicalHeader string) string {
	var b strings.Builder
	for _, d := range definitions {
		name, value, hasValue := strings.Cut(d, "=")
		if hasValue {
			fmt.Fprintf(&b, "#define %s %s\n", name, value)
		} else {
			fmt.Fprintf(&b, "#define %s\n", name)
		}
	}
	fmt.Fprintf(&b, "#include \"%s\"\n", canonicalHeader)
	return b.String()
}

// DefinitionsHeaderContents builds the force-included definitions header
// for private-explicit-PCH or shared-PCH consumers: it first #undefs the
// module's own _API macro, then for non-engine modules
// re-defines DEPRECATED_FORGAME "to defuse circular macro definitions."
func DefinitionsHeaderContents(moduleName string, definitions []string, isEngineModule bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#undef %s_API\n", strings.ToUpper(moduleName))
	if !isEngineModule {
		b.WriteString("#define DEPRECATED_FORGAME DEPRECATED\n")
	}
	for _, d := range definitions {
		name, value, hasValue := strings.Cut(d, "=")
		if hasValue {
			fmt.Fprintf(&b, "#define %s %s\n", name, value)
		} else {
			fmt.Fprintf(&b, "#define %s\n", name)
		}
	}
	return b.String()
}
