// Package depgraph implements the dependency resolver and compile-environment
// builder: the module DAG over public/private/dynamic edges with a
// cycle whitelist, and per-module CompileEnvironment derivation including
// the public-closure traversal.
package depgraph

import (
	"fmt"
	"sort"

	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/core"
)

var log = logging.MustGetLogger("depgraph")

// Graph is the module dependency DAG for one target build. Modules register
// themselves once; edges are derived purely from their PublicDependencies /
// PrivateDependencies fields (DynamicDependencies add no edges).
type Graph struct {
	Target *core.TargetRules

	modules map[string]*core.ModuleRules
	// whitelist externalizes the circular-dependency whitelist as data
	// (Design Notes: "Externalize as data read at assembly load; record
	// provenance; graph construction becomes a pure function of data").
	whitelist map[whitelistEdge]string // edge -> provenance note
}

type whitelistEdge struct{ from, to string }

// NewGraph creates an empty graph for target.
func NewGraph(target *core.TargetRules) *Graph {
	return &Graph{Target: target, modules: map[string]*core.ModuleRules{}, whitelist: map[whitelistEdge]string{}}
}

// AddModule registers a module's descriptor in the graph.
func (g *Graph) AddModule(m *core.ModuleRules) {
	g.modules[m.Name] = m
}

// WhitelistCycle records that the edge from->to is a known, accepted cycle,
// with provenance for diagnostics (e.g. "legacy: Engine/Core <-> Engine/CoreUObject").
func (g *Graph) WhitelistCycle(from, to, provenance string) {
	g.whitelist[whitelistEdge{from, to}] = provenance
	g.whitelist[whitelistEdge{to, from}] = provenance
}

func (g *Graph) isWhitelisted(from, to string) bool {
	_, ok := g.whitelist[whitelistEdge{from, to}]
	return ok
}

// Module looks up a registered module by name.
func (g *Graph) Module(name string) (*core.ModuleRules, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// DetectCycles walks every module's public+private dependency edges looking
// for a cycle that isn't whitelisted. It reports the first offending chain
// found, in alphabetic tie-break order over module names.
func (g *Graph) DetectCycles() error {
	names := g.sortedNames()
	visiting := map[string]bool{}
	visited := map[string]bool{}
	var chain []string

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return core.NewGraphError(append(append([]string(nil), chain...), name),
				fmt.Sprintf("circular module dependency: %v", append(chain, name)))
		}
		visiting[name] = true
		chain = append(chain, name)
		m, ok := g.modules[name]
		if ok {
			for _, dep := range g.sortedEdges(m) {
				if g.isWhitelisted(name, dep) {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		chain = chain[:len(chain)-1]
		visiting[name] = false
		visited[name] = true
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) sortedNames() []string {
	names := make([]string, 0, len(g.modules))
	for n := range g.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (g *Graph) sortedEdges(m *core.ModuleRules) []string {
	edges := append(append([]string(nil), m.PublicDependencies...), m.PrivateDependencies...)
	sort.Strings(edges)
	return edges
}

// ShouldEnableOptimization implements shouldEnableOptimization(policy, config, isEngineModule).
func ShouldEnableOptimization(policy core.OptimizationPolicy, config core.Configuration, isEngineModule bool) bool {
	switch policy {
	case core.OptimizeNever:
		return false
	case core.OptimizeDefault, core.OptimizeInNonDebugBuilds:
		if config == core.Debug {
			return false
		}
		if config == core.DebugGame {
			return isEngineModule
		}
		return true
	case core.OptimizeInShippingBuildsOnly:
		return config == core.Shipping
	case core.OptimizeAlways:
		return true
	default:
		return false
	}
}
