package rulescan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, nil, 0644))
}

func TestScanStopsDescentAtModuleRules(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Core", "Core.module.rules.go"))
	// This nested module file should never be found: the walker must not
	// descend past Core's own module-rules file.
	touch(t, filepath.Join(root, "Core", "Nested", "Nested.module.rules.go"))

	s := NewScanner(4)
	result, err := s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "Core", "Core.module.rules.go")}, result.ModuleRuleFiles)
}

func TestScanDoesNotStopAtTargetRules(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Game.target.rules.go"))
	touch(t, filepath.Join(root, "Sub", "Core.module.rules.go"))

	s := NewScanner(4)
	result, err := s.Scan(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "Game.target.rules.go")}, result.TargetRuleFiles)
	assert.Equal(t, []string{filepath.Join(root, "Sub", "Core.module.rules.go")}, result.ModuleRuleFiles)
}

func TestScanIsMemoized(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "Core.module.rules.go"))

	s := NewScanner(4)
	r1, err := s.Scan(root)
	require.NoError(t, err)

	touch(t, filepath.Join(root, "Extra.module.rules.go"))
	r2, err := s.Scan(root)
	require.NoError(t, err)
	assert.Same(t, r1, r2, "second scan should return the memoized result")

	s.Invalidate(root)
	r3, err := s.Scan(root)
	require.NoError(t, err)
	assert.Len(t, r3.ModuleRuleFiles, 2)
}

func TestScanMissingRootIsFatal(t *testing.T) {
	s := NewScanner(4)
	_, err := s.Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}
