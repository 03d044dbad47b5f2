package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbo-build/nbo/src/core"
)

func TestLookupModuleBase(t *testing.T) {
	r := New(core.EngineScope)
	r.RegisterModule("Core", RuleFile{Path: "Core.module.rules.go", Scope: core.EngineScope})

	f, ok := r.LookupModule("Core")
	require.True(t, ok)
	assert.Equal(t, "Core.module.rules.go", f.Path)

	_, ok = r.LookupModule("DoesNotExist")
	assert.False(t, ok)
}

func TestResolveSpecializationPlatformOverridesBase(t *testing.T) {
	r := New(core.EngineScope)
	r.RegisterModule("Core", RuleFile{Path: "Core.module.rules.go"})
	r.RegisterSpecialization("Core", "Windows", RuleFile{Path: "Core.Windows.module.rules.go"})

	f, specialized, err := r.ResolveSpecialization("Core", "Windows")
	require.NoError(t, err)
	assert.True(t, specialized)
	assert.Equal(t, "Core.Windows.module.rules.go", f.Path)

	f, specialized, err = r.ResolveSpecialization("Core", "Linux")
	require.NoError(t, err)
	assert.False(t, specialized)
	assert.Equal(t, "Core.module.rules.go", f.Path)
}

func TestResolveSpecializationFallsBackToGroup(t *testing.T) {
	r := New(core.EngineScope)
	r.RegisterModule("Core", RuleFile{Path: "Core.module.rules.go"})
	r.RegisterSpecialization("Core", "Unix", RuleFile{Path: "Core.Unix.module.rules.go"})
	r.SetPlatformGroups("Linux", []string{"Unix", "Posix"})

	f, specialized, err := r.ResolveSpecialization("Core", "Linux")
	require.NoError(t, err)
	assert.True(t, specialized)
	assert.Equal(t, "Core.Unix.module.rules.go", f.Path)
}

func TestResolveSpecializationAmbiguousGroupsIsFatal(t *testing.T) {
	r := New(core.EngineScope)
	r.RegisterModule("Core", RuleFile{Path: "Core.module.rules.go"})
	r.RegisterSpecialization("Core", "Unix", RuleFile{Path: "Core.Unix.module.rules.go"})
	r.RegisterSpecialization("Core", "Posix", RuleFile{Path: "Core.Posix.module.rules.go"})
	r.SetPlatformGroups("Linux", []string{"Unix", "Posix"})

	_, _, err := r.ResolveSpecialization("Core", "Linux")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestResolveSpecializationUnknownModuleIsGraphError(t *testing.T) {
	r := New(core.EngineScope)
	_, _, err := r.ResolveSpecialization("Missing", "Linux")
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.GraphError, coreErr.Kind)
}

func TestCheckReferenceEnforcesScopeContainment(t *testing.T) {
	r := New(core.EngineScope)
	project := core.NewScope("Game", core.EngineScope)
	plugin := core.NewScope("Plugin", project)

	assert.NoError(t, r.CheckReference(plugin, project))
	assert.NoError(t, r.CheckReference(plugin, core.EngineScope))
	assert.Error(t, r.CheckReference(project, plugin), "a project may not reference its own plugin's scope")
}
