package assembly

import (
	"bytes"
	"os/exec"

	"github.com/nbo-build/nbo/src/core"
)

// Compiler invokes the host Go toolchain to build a layer's rule sources
// into a loadable plugin artifact. It is a thin wrapper so tests can swap in
// a fake without touching $PATH.
type Compiler struct {
	// GoTool is the path to the go binary, defaulting to "go" on $PATH.
	GoTool string
}

// NewCompiler returns a Compiler using the "go" tool from $PATH.
func NewCompiler() *Compiler {
	return &Compiler{GoTool: "go"}
}

// Compile builds sourceFiles into a single -buildmode=plugin artifact at
// outPath. It is only meaningful where PluginsSupported is true; callers
// should check that first and degrade to ConfigurationError-free "recompile
// required but unsupported" on Windows rather than call this blindly.
func (c *Compiler) Compile(sourceFiles []string, outPath string, diags *CompileDiagnostics) error {
	args := append([]string{"build", "-buildmode=plugin", "-o", outPath}, sourceFiles...)
	cmd := exec.Command(c.GoTool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		toolErr := core.NewToolchainError(outPath, "rules assembly compile failed: "+stderr.String(), err)
		if diags != nil {
			diags.Add(toolErr)
			return diags.Err()
		}
		return toolErr
	}
	return nil
}
