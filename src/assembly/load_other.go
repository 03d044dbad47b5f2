//go:build !(linux || darwin)

package assembly

import "github.com/nbo-build/nbo/src/core"

// LoadArtifact always fails on platforms without Go plugin support.
func LoadArtifact(path string, asm *Assembly) error {
	return core.NewToolchainError(path, "dynamic rules assembly loading is not supported on this platform", nil)
}

// PluginsSupported is false wherever the standard library's plugin package
// is unavailable (everything except linux/darwin).
const PluginsSupported = false
