package pch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/depgraph"
)

func newEnv(optimize, rtti bool, undef core.WarningLevel) *core.CompileEnvironment {
	e := core.NewCompileEnvironment()
	e.OptimizeCode = optimize
	e.UseRTTI = rtti
	e.UndefinedIdentifierWarnings = undef
	return e
}

func TestSuffixEmptyWhenIdentical(t *testing.T) {
	a := newEnv(true, false, core.WarnOff)
	b := newEnv(true, false, core.WarnOff)
	assert.Equal(t, "", Suffix(a, b))
}

func TestSuffixSingleAxisRTTI(t *testing.T) {
	a := newEnv(true, false, core.WarnOff)
	b := newEnv(true, true, core.WarnOff)
	assert.Equal(t, ".RTTI", Suffix(a, b))
}

func TestSuffixUndefAxisNaming(t *testing.T) {
	a := newEnv(true, false, core.WarnOff)
	b := newEnv(true, false, core.WarnOn)
	assert.Equal(t, ".Undef", Suffix(a, b))
}

func TestSuffixMultiAxisFixedOrder(t *testing.T) {
	a := newEnv(true, false, core.WarnOff)
	b := newEnv(false, true, core.WarnOn)
	// optimize differs (NonOptimized), rtti differs (RTTI), undef differs (Undef) --
	// fixed order is optimize, rtti, exceptions, shadow, unsafe-cast, undefined-identifier.
	assert.Equal(t, ".NonOptimized.RTTI.Undef", Suffix(a, b))
}

func TestDiscoverTemplatesAndPlanReuse(t *testing.T) {
	g := depgraph.NewGraph(&core.TargetRules{Name: "Game"})
	g.AddModule(&core.ModuleRules{Name: "CoreUI", SharedPCHHeader: "SharedPCH.CoreUI.h", PublicIncludePaths: []string{"CoreUI/Public"}})
	g.AddModule(&core.ModuleRules{Name: "UIa", PublicDependencies: []string{"CoreUI"}})
	g.AddModule(&core.ModuleRules{Name: "UIb", PublicDependencies: []string{"CoreUI"}})

	planner := NewPlanner(g)
	planner.DiscoverTemplates([]string{"CoreUI"}, func(module string) *core.CompileEnvironment {
		return newEnv(true, false, core.WarnOff)
	}, "Intermediate")

	closure := map[string]bool{"CoreUI": true}
	uia, _ := g.Module("UIa")
	uib, _ := g.Module("UIb")

	envA := newEnv(true, false, core.WarnOff)
	instA, tmplA, reusedA, err := planner.Plan(uia, envA, closure)
	require.NoError(t, err)
	assert.False(t, reusedA, "first consumer synthesizes a new instance")
	require.NotNil(t, instA)
	assert.Equal(t, core.PCHActionCreate, envA.PCHAction)

	envB := newEnv(true, false, core.WarnOff)
	instB, tmplB, reusedB, err := planner.Plan(uib, envB, closure)
	require.NoError(t, err)
	assert.True(t, reusedB, "identical environment should reuse the existing instance")
	assert.Same(t, instA, instB)
	assert.Same(t, tmplA, tmplB)
	assert.Equal(t, core.PCHActionInclude, envB.PCHAction)
}

func TestPlanSplitsOnDivergentRTTI(t *testing.T) {
	g := depgraph.NewGraph(&core.TargetRules{Name: "Game"})
	g.AddModule(&core.ModuleRules{Name: "CoreUI", SharedPCHHeader: "SharedPCH.CoreUI.h", PublicIncludePaths: []string{"CoreUI/Public"}})
	g.AddModule(&core.ModuleRules{Name: "UIa", PublicDependencies: []string{"CoreUI"}})
	g.AddModule(&core.ModuleRules{Name: "UIb", PublicDependencies: []string{"CoreUI"}})

	planner := NewPlanner(g)
	planner.DiscoverTemplates([]string{"CoreUI"}, func(module string) *core.CompileEnvironment {
		return newEnv(true, false, core.WarnOff)
	}, "Intermediate")

	closure := map[string]bool{"CoreUI": true}
	uia, _ := g.Module("UIa")
	uib, _ := g.Module("UIb")

	envA := newEnv(true, false, core.WarnOff)
	instA, _, _, err := planner.Plan(uia, envA, closure)
	require.NoError(t, err)

	envB := newEnv(true, true, core.WarnOff) // RTTI diverges
	instB, _, reusedB, err := planner.Plan(uib, envB, closure)
	require.NoError(t, err)
	assert.False(t, reusedB)
	assert.NotEqual(t, instA.HeaderFile, instB.HeaderFile)
	assert.Contains(t, instB.HeaderFile, ".RTTI")
}

func TestPlanMissingTemplateFatalWhenRequired(t *testing.T) {
	g := depgraph.NewGraph(&core.TargetRules{Name: "Game"})
	consumer := &core.ModuleRules{Name: "Game", PCHUsage: core.PCHUseShared}
	g.AddModule(consumer)

	planner := NewPlanner(g)
	env := newEnv(true, false, core.WarnOff)
	_, _, _, err := planner.Plan(consumer, env, map[string]bool{})
	require.Error(t, err)
}

func TestPlanPrivatePCHSkipsSharedLookup(t *testing.T) {
	g := depgraph.NewGraph(&core.TargetRules{Name: "Game"})
	consumer := &core.ModuleRules{Name: "Game", PrivatePCHHeader: "Game/Private/GamePCH.h"}
	g.AddModule(consumer)

	planner := NewPlanner(g)
	env := newEnv(true, false, core.WarnOff)
	inst, tmpl, reused, err := planner.Plan(consumer, env, map[string]bool{})
	require.NoError(t, err)
	assert.Nil(t, inst)
	assert.Nil(t, tmpl)
	assert.False(t, reused)
}

func TestWrapperHeaderContents(t *testing.T) {
	s := WrapperHeaderContents([]string{"WITH_FOO=1", "DEBUG"}, "CoreUI/Public/CoreUI.h")
	assert.Contains(t, s, "#define WITH_FOO 1\n")
	assert.Contains(t, s, "#define DEBUG\n")
	assert.Contains(t, s, `#include "CoreUI/Public/CoreUI.h"`)
}

func TestDefinitionsHeaderContentsUndefsAPIMacro(t *testing.T) {
	s := DefinitionsHeaderContents("Game", []string{"WITH_FOO=1"}, false)
	assert.Contains(t, s, "#undef GAME_API\n")
	assert.Contains(t, s, "#define DEPRECATED_FORGAME DEPRECATED\n")
}

func TestPlanAdaptiveFile(t *testing.T) {
	assert.Equal(t, AdaptiveDisablePCH, PlanAdaptiveFile(core.PCHNone, nil).Kind)
	assert.Equal(t, AdaptiveDisablePCH, PlanAdaptiveFile(core.PCHNoShared, nil).Kind)

	plan := PlanAdaptiveFile(core.PCHNoShared, []string{"Foo.h"})
	assert.Equal(t, AdaptiveDedicatedPCH, plan.Kind)
	assert.Equal(t, "Foo.h", plan.DedicatedHeader)

	plan = PlanAdaptiveFile(core.PCHUseShared, []string{"Foo.h"})
	assert.Equal(t, AdaptiveModulePCHDistinctFlags, plan.Kind)
}
