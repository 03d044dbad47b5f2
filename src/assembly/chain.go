package assembly

import (
	"fmt"

	"github.com/nbo-build/nbo/src/core"
	"github.com/nbo-build/nbo/src/rulescan"
)

// Layer describes one logical assembly layer to build. BuildChain takes
// layers root-first (engine -> enterprise -> project -> plugin): each layer
// becomes the parent of the next.
type Layer struct {
	Name          string
	Kind          string // "engine", "enterprise", "project", or "plugin"
	Root          string
	EngineVersion string
}

// BuildChain compiles (or reuses) each layer in order and links them into a
// single parent chain, returning the leaf (most-derived) assembly. scanner
// and compiler are injected so tests can substitute fakes.
func BuildChain(layers []Layer, scanner *rulescan.Scanner, compiler *Compiler) (*Assembly, error) {
	var parent *Assembly
	diags := &CompileDiagnostics{}
	for _, layer := range layers {
		result, err := scanner.Scan(layer.Root)
		if err != nil {
			return nil, err
		}
		sourceFiles := append(append([]string{}, result.ModuleRuleFiles...), result.TargetRuleFiles...)

		asm := NewAssembly(layer.Name, layer.Kind, parent)
		out := artifactPath(layer.Root, layer.Name)

		if !PluginsSupported {
			return nil, core.NewToolchainError(layer.Root, fmt.Sprintf("cannot assemble layer %q: dynamic rules loading unsupported on this platform", layer.Name), nil)
		}

		needsRecompile, reason := NeedsRecompile(layer.Root, layer.Name, sourceFiles, layer.EngineVersion, "")
		if needsRecompile {
			log.Info("recompiling assembly %s: %s", layer.Name, reason)
			if err := compiler.Compile(sourceFiles, out, diags); err != nil {
				return nil, err
			}
			if err := WriteManifest(layer.Root, layer.Name, sourceFiles, layer.EngineVersion); err != nil {
				return nil, core.NewCacheError("failed to write rules assembly manifest", err)
			}
		} else {
			log.Debug("reusing cached assembly %s", layer.Name)
		}

		if err := LoadArtifact(out, asm); err != nil {
			return nil, err
		}
		asm.sourceFiles = sourceFiles
		parent = asm
	}
	if err := diags.Err(); err != nil {
		return nil, err
	}
	return parent, nil
}
