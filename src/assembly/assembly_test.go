package assembly

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbo-build/nbo/src/core"
)

func TestFindModuleWalksParentChain(t *testing.T) {
	engine := NewAssembly("Engine", "engine", nil)
	engine.Register("Core", func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules { return &core.ModuleRules{Name: "Core"} })

	project := NewAssembly("Project", "project", engine)
	project.Register("Game", func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules { return &core.ModuleRules{Name: "Game"} })

	ctor, owner, ok := project.FindModule("Core")
	require.True(t, ok)
	assert.Same(t, engine, owner)
	assert.Equal(t, "Core", ctor(nil, nil).Name)

	ctor, owner, ok = project.FindModule("Game")
	require.True(t, ok)
	assert.Same(t, project, owner)
	assert.Equal(t, "Game", ctor(nil, nil).Name)

	_, _, ok = project.FindModule("DoesNotExist")
	assert.False(t, ok)
}

func TestFindModuleChildShadowsParent(t *testing.T) {
	engine := NewAssembly("Engine", "engine", nil)
	engine.Register("Core", func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules { return &core.ModuleRules{Name: "EngineCore"} })

	project := NewAssembly("Project", "project", engine)
	project.Register("Core", func(self *core.ModuleRules, target *core.TargetRules) *core.ModuleRules { return &core.ModuleRules{Name: "ProjectCore"} })

	ctor, owner, ok := project.FindModule("Core")
	require.True(t, ok)
	assert.Same(t, project, owner)
	assert.Equal(t, "ProjectCore", ctor(nil, nil).Name)
}

func TestNeedsRecompileMissingArtifact(t *testing.T) {
	root := t.TempDir()
	needs, reason := NeedsRecompile(root, "Project", nil, "1.0.0", "")
	assert.True(t, needs)
	assert.Equal(t, "artifact missing", reason)
}

func TestNeedsRecompileSourceSetChanged(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Core.module.rules.go")
	require.NoError(t, os.WriteFile(src, []byte("package rules"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Dir(artifactPath(root, "Project")), 0755))
	require.NoError(t, os.WriteFile(artifactPath(root, "Project"), []byte("fake-plugin"), 0644))
	require.NoError(t, WriteManifest(root, "Project", []string{src}, "1.0.0"))

	needs, _ := NeedsRecompile(root, "Project", []string{src}, "1.0.0", "")
	assert.False(t, needs, "unchanged source set and fresh artifact should not trigger recompile")

	extra := filepath.Join(root, "Extra.module.rules.go")
	require.NoError(t, os.WriteFile(extra, []byte("package rules"), 0644))
	needs, reason := NeedsRecompile(root, "Project", []string{src, extra}, "1.0.0", "")
	assert.True(t, needs)
	assert.Equal(t, "source file set differs", reason)
}

func TestNeedsRecompileEngineVersionMismatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Dir(artifactPath(root, "Project")), 0755))
	require.NoError(t, os.WriteFile(artifactPath(root, "Project"), []byte("fake-plugin"), 0644))
	require.NoError(t, WriteManifest(root, "Project", nil, "1.0.0"))

	needs, reason := NeedsRecompile(root, "Project", nil, "2.0.0", "")
	assert.True(t, needs)
	assert.Equal(t, "engine version mismatch", reason)
}

func TestWriteManifestIsAtomicRewrite(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, WriteManifest(root, "Project", []string{"a.go"}, "1.0.0"))
	require.NoError(t, WriteManifest(root, "Project", []string{"a.go", "b.go"}, "1.1.0"))

	m, err := readManifest(manifestPath(root, "Project"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, m.SourceFiles)
	assert.Equal(t, "1.1.0", m.EngineVersion)
}

func TestNeedsRecompileSurvivesTouchWithoutContentChange(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Core.module.rules.go")
	require.NoError(t, os.WriteFile(src, []byte("package rules"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Dir(artifactPath(root, "Project")), 0755))
	require.NoError(t, os.WriteFile(artifactPath(root, "Project"), []byte("fake-plugin"), 0644))
	require.NoError(t, WriteManifest(root, "Project", []string{src}, "1.0.0"))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(src, future, future))

	needs, reason := NeedsRecompile(root, "Project", []string{src}, "1.0.0", "")
	assert.False(t, needs, "content hash unchanged despite touched mtime, reason: %s", reason)
}

func TestNeedsRecompileRebuildsOnContentChangeAfterTouch(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Core.module.rules.go")
	require.NoError(t, os.WriteFile(src, []byte("package rules"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Dir(artifactPath(root, "Project")), 0755))
	require.NoError(t, os.WriteFile(artifactPath(root, "Project"), []byte("fake-plugin"), 0644))
	require.NoError(t, WriteManifest(root, "Project", []string{src}, "1.0.0"))

	future := time.Now().Add(time.Hour)
	require.NoError(t, os.WriteFile(src, []byte("package rules // changed"), 0644))
	require.NoError(t, os.Chtimes(src, future, future))

	needs, reason := NeedsRecompile(root, "Project", []string{src}, "1.0.0", "")
	assert.True(t, needs)
	assert.Equal(t, "source newer than artifact", reason)
}

func TestCompileDiagnosticsAggregates(t *testing.T) {
	d := &CompileDiagnostics{}
	assert.NoError(t, d.Err())
	d.Add(core.NewToolchainError("a.go", "boom", nil))
	d.Add(core.NewToolchainError("b.go", "bang", nil))
	require.Error(t, d.Err())
	assert.Contains(t, d.Err().Error(), "boom")
	assert.Contains(t, d.Err().Error(), "bang")
}
