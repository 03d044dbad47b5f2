package rulescan

import "github.com/nbo-build/nbo/src/core"

// NewMissingRootError reports a fatal, missing additional-search root: a
// missing additional-search path is always fatal.
func NewMissingRootError(root string) error {
	return core.NewIOError(root, "additional search root does not exist or is not a directory", nil)
}
