//go:build linux || darwin

package assembly

import (
	"fmt"
	"plugin"

	"github.com/nbo-build/nbo/src/core"
)

// LoadArtifact opens a compiled assembly artifact and runs its registration
// entrypoint against asm. The plugin is expected to export a function
// `Register(*assembly.Assembly)`.
func LoadArtifact(path string, asm *Assembly) error {
	p, err := plugin.Open(path)
	if err != nil {
		return core.NewToolchainError(path, "failed to open rules assembly plugin", err)
	}
	sym, err := p.Lookup("Register")
	if err != nil {
		return core.NewToolchainError(path, "rules assembly plugin has no Register entrypoint", err)
	}
	register, ok := sym.(func(*Assembly))
	if !ok {
		return core.NewToolchainError(path, fmt.Sprintf("rules assembly plugin Register has wrong signature: %T", sym), nil)
	}
	register(asm)
	return nil
}

// PluginsSupported reports whether this platform can load compiled rule
// assemblies dynamically. Linux and Darwin support Go's plugin package;
// Windows does not.
const PluginsSupported = true
