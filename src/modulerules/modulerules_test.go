package modulerules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/registry"
)

func coreCtor(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules {
	self.Kind = core.CPlusPlus
	self.PublicIncludePaths = []string{"Core/Public"}
	return self
}

func coreWindowsCtor(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules {
	self.Kind = core.CPlusPlus
	self.PublicIncludePaths = []string{"Core/Public"}
	self.UseAVX = true
	return self
}

func newFixture() (*assembly.Assembly, *registry.Registry) {
	engine := assembly.NewAssembly("Engine", "engine", nil)
	engine.Register("Core", coreCtor)
	engine.RegisterTarget("GameTarget", func(seed *core.TargetRules) *core.TargetRules { return seed })

	reg := registry.New(core.EngineScope)
	reg.RegisterModule("Core", registry.RuleFile{Path: "Core.module.rules.go"})
	return engine, reg
}

func TestCreateModuleBasic(t *testing.T) {
	engine, reg := newFixture()
	target := &core.TargetRules{Name: "Game", Platform: "Linux"}

	m, err := CreateModule(engine, reg, Request{Name: "Core", Target: target})
	require.NoError(t, err)
	assert.Equal(t, "Core", m.Name)
	assert.True(t, m.TreatAsEngineModule)
	assert.Equal(t, core.CPlusPlus, m.Kind)
}

func TestCreateModuleUnknownNameIsGraphError(t *testing.T) {
	engine, reg := newFixture()
	target := &core.TargetRules{Name: "Game", Platform: "Linux"}

	_, err := CreateModule(engine, reg, Request{Name: "Missing", Target: target, ReferenceChain: []string{"Game"}})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.GraphError, coreErr.Kind)
	assert.Equal(t, []string{"Game", "Missing"}, coreErr.Chain)
}

func TestCreateModuleUsesPlatformSpecialization(t *testing.T) {
	engine, reg := newFixture()
	engine.Register("Core_Windows", coreWindowsCtor)
	reg.RegisterSpecialization("Core", "Windows", registry.RuleFile{Path: "Core.Windows.module.rules.go", TypeName: "Core_Windows"})

	target := &core.TargetRules{Name: "Game", Platform: "Windows"}
	m, err := CreateModule(engine, reg, Request{Name: "Core", Target: target})
	require.NoError(t, err)
	assert.Equal(t, "Core.Windows.module.rules.go", m.File)
	assert.True(t, m.UseAVX, "should have dispatched to the Windows-specialized constructor, not the base one")
}

func TestCreateModuleSharedPCHWithoutPublicIncludeIsConfigurationError(t *testing.T) {
	engine := assembly.NewAssembly("Engine", "engine", nil)
	engine.Register("Bad", func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules {
		self.SharedPCHHeader = "Bad/SharedPCH.Bad.h"
		return self
	})
	reg := registry.New(core.EngineScope)
	reg.RegisterModule("Bad", registry.RuleFile{Path: "Bad.module.rules.go"})

	target := &core.TargetRules{Name: "Game", Platform: "Linux"}
	_, err := CreateModule(engine, reg, Request{Name: "Bad", Target: target})
	require.Error(t, err)
}

func TestRegisterDeprecatedAlwaysFails(t *testing.T) {
	err := RegisterDeprecated("Legacy")
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ConfigurationError, coreErr.Kind)
}
