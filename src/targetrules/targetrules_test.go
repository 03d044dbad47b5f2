package targetrules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/core"
)

func gameTargetCtor(seed *core.TargetRules) *core.TargetRules {
	seed.Type = core.Game
	return seed
}

func editorTargetCtor(seed *core.TargetRules) *core.TargetRules {
	seed.Type = core.Editor
	seed.CompileAgainstEngine = true
	return seed
}

func newEngineAssembly() *assembly.Assembly {
	engine := assembly.NewAssembly("Engine", "engine", nil)
	engine.RegisterTarget("GameTarget", gameTargetCtor)
	engine.RegisterTarget("EditorTarget", editorTargetCtor)
	return engine
}

func TestCreateTargetSeedsDefaultsBeforeConstructor(t *testing.T) {
	engine := newEngineAssembly()
	target, err := CreateTarget(engine, Request{Name: "Game", Platform: "Linux", Architecture: "x86_64"}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.Equal(t, "Modern", target.DefaultBuildSettings)
	assert.Equal(t, core.Game, target.Type)
	require.NotNil(t, target.Sub.Linux)
	assert.Equal(t, core.Monolithic, target.EffectiveLinkType())
}

func TestCreateTargetEditorDefaultsToModular(t *testing.T) {
	engine := newEngineAssembly()
	target, err := CreateTarget(engine, Request{Name: "Editor", Platform: "Linux"}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.Equal(t, core.Modular, target.EffectiveLinkType())
	assert.True(t, target.CompileAgainstCoreUObject, "CompileAgainstEngine must force CompileAgainstCoreUObject")
	assert.True(t, target.BuildWithEditorOnlyData, "Editor type must force BuildWithEditorOnlyData")
}

func TestCreateTargetMissingConstructorIsFatal(t *testing.T) {
	engine := newEngineAssembly()
	_, err := CreateTarget(engine, Request{Name: "DoesNotExist", Platform: "Linux"}, CommandLineOverlay{})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ConfigurationError, coreErr.Kind)
}

func TestCreateTargetConstructorFoundInParentAssembly(t *testing.T) {
	engine := newEngineAssembly()
	project := assembly.NewAssembly("Project", "project", engine)

	target, err := CreateTarget(project, Request{Name: "Game", Platform: "Linux"}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.Equal(t, core.Game, target.Type)
}

func TestCreateTargetUniqueEnvironmentUnderInstalledEngineIsFatal(t *testing.T) {
	engine := newEngineAssembly()
	engine.ReadOnly = true
	unique := core.UniqueEnvironment
	_, err := CreateTarget(engine, Request{Name: "Game", Platform: "Linux"}, CommandLineOverlay{BuildEnvironment: &unique})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ConfigurationError, coreErr.Kind)
}

func TestCreateTargetCommandLineOverlayWinsOverConfig(t *testing.T) {
	engine := newEngineAssembly()
	modular := core.Modular
	cfg := &core.ProjectConfig{}
	target, err := CreateTarget(engine,
		Request{Name: "Game", Platform: "Linux", ProjectConfig: cfg},
		CommandLineOverlay{LinkType: &modular})
	require.NoError(t, err)
	assert.Equal(t, core.Modular, target.EffectiveLinkType())
}

func TestCreateTargetExtraArgsAppendDefinitions(t *testing.T) {
	engine := newEngineAssembly()
	target, err := CreateTarget(engine,
		Request{Name: "Game", Platform: "Linux", ExtraArgs: map[string]string{"Define": "WITH_FOO=1"}},
		CommandLineOverlay{})
	require.NoError(t, err)
	assert.Contains(t, target.GlobalDefinitions, "WITH_FOO=1")
}

func TestCreateTargetDebugInfoDefaultsFromConfiguration(t *testing.T) {
	engine := newEngineAssembly()

	debug, err := CreateTarget(engine, Request{Name: "Game", Platform: "Linux", Config: core.Debug}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.True(t, debug.DebugInfo)

	shipping, err := CreateTarget(engine, Request{Name: "Game", Platform: "Linux", Config: core.Shipping}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.False(t, shipping.DebugInfo)
}

func TestCreateTargetDebugInfoOverlayWinsOverDefault(t *testing.T) {
	engine := newEngineAssembly()
	enabled := true

	target, err := CreateTarget(engine,
		Request{Name: "Game", Platform: "Linux", Config: core.Shipping},
		CommandLineOverlay{DebugInfo: &enabled})
	require.NoError(t, err)
	assert.True(t, target.DebugInfo)
}

func TestCreateTargetInstallsTypeDependentGlobalDefinitions(t *testing.T) {
	engine := newEngineAssembly()

	game, err := CreateTarget(engine, Request{Name: "Game", Platform: "Linux"}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.Contains(t, game.GlobalDefinitions, "UE_GAME=1")

	editor, err := CreateTarget(engine, Request{Name: "Editor", Platform: "Linux"}, CommandLineOverlay{})
	require.NoError(t, err)
	assert.Contains(t, editor.GlobalDefinitions, "WITH_EDITOR=1")
}

func TestCreateTargetCommandLineOverlayAppendsRawToolArgs(t *testing.T) {
	engine := newEngineAssembly()
	target, err := CreateTarget(engine,
		Request{Name: "Game", Platform: "Linux"},
		CommandLineOverlay{CompilerArgs: []string{"-Wno-deprecated"}, LinkerArgs: []string{"-Wl,--as-needed"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"-Wno-deprecated"}, target.AdditionalCompilerArguments)
	assert.Equal(t, []string{"-Wl,--as-needed"}, target.AdditionalLinkerArguments)
}
