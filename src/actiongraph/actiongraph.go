// Package actiongraph builds the in-memory graph of compile, link, copy and
// self-invocation actions handed to a downstream executor, and materializes
// the intermediate text files (response files, PCH wrappers, definitions
// headers) those actions reference.
package actiongraph

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/alessio/shellescape"
	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/core"
)

var log = logging.MustGetLogger("actiongraph")

// RecursiveMode is the sub-mode name a self-invocation action passes back to
// the orchestrator's own binary, identifying which recursive step to run.
type RecursiveMode string

// ModeStageRuntimeDependency stages one runtime dependency or bundle
// resource (a file or a whole directory) next to a target's linked
// artifact. It's a self-invocation rather than a plain CopyAction because
// staging has to walk directories and preserve symlinks, which a one-line
// shell command can't do portably.
const ModeStageRuntimeDependency RecursiveMode = "StageRuntimeDependency"

// Builder accumulates actions for a single target. A Builder is never
// shared across targets; callers construct one per target build.
type Builder struct {
	mu          sync.Mutex
	actions     []*core.Action
	diagnostics []core.Diagnostic
	selfPath    string
}

// NewBuilder creates a Builder. selfPath is the orchestrator's own
// executable path, used to construct recursive self-invocation actions.
func NewBuilder(selfPath string) *Builder {
	return &Builder{selfPath: selfPath}
}

// CreateAction appends a new action of the given kind to the graph and
// returns it for the caller to populate.
func (b *Builder) CreateAction(kind core.ActionKind) *core.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := &core.Action{Kind: kind}
	b.actions = append(b.actions, a)
	return a
}

// Actions returns the accumulated actions in emission order.
func (b *Builder) Actions() []*core.Action {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*core.Action(nil), b.actions...)
}

// AddDiagnostic records a non-fatal message surfaced to the session, e.g. a
// long-running-task notice or a discarded dependency-cache entry.
func (b *Builder) AddDiagnostic(level core.DiagnosticLevel, source, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.diagnostics = append(b.diagnostics, core.Diagnostic{Level: level, Source: source, Message: message})
	log.Debugf("[%s] %s: %s", source, levelName(level), message)
}

// Diagnostics returns every diagnostic recorded so far.
func (b *Builder) Diagnostics() []core.Diagnostic {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Diagnostic(nil), b.diagnostics...)
}

func levelName(l core.DiagnosticLevel) string {
	switch l {
	case core.DiagWarning:
		return "warning"
	case core.DiagError:
		return "error"
	default:
		return "info"
	}
}

// CreateIntermediateTextFile writes contents to location only if the
// on-disk bytes differ, so a rerun with unchanged generated content never
// perturbs the destination's mtime and therefore never invalidates
// downstream dependents that key off it. Returns whether a write occurred.
func CreateIntermediateTextFile(location string, contents []byte) (bool, error) {
	existing, err := os.ReadFile(location)
	if err == nil && bytes.Equal(existing, contents) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, core.NewIOError(location, "reading intermediate file", err)
	}
	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return false, core.NewIOError(location, "creating directory for intermediate file", err)
	}
	tmp := location + ".tmp"
	if err := os.WriteFile(tmp, contents, 0644); err != nil {
		return false, core.NewIOError(location, "writing intermediate file", err)
	}
	if err := os.Rename(tmp, location); err != nil {
		return false, core.NewIOError(location, "renaming intermediate file", err)
	}
	return true, nil
}

// CompileAction records one translation unit's compile. commandPath and
// commandArgs are whatever the toolchain front-end resolved; this package
// does not interpret them beyond storing them on the action.
func (b *Builder) CompileAction(commandPath string, commandArgs []string, workingDir string, sourceFile, objectFile string, prerequisites []string) *core.Action {
	a := b.CreateAction(core.ActionCompile)
	a.CommandPath = commandPath
	a.CommandArgs = commandArgs
	a.WorkingDir = workingDir
	a.PrerequisiteItems = append([]string{sourceFile}, prerequisites...)
	a.ProducedItems = []string{objectFile}
	a.StatusDescription = fmt.Sprintf("Compile %s", filepath.Base(sourceFile))
	return a
}

// LinkAction records a link step producing one binary/library from a set of
// object files and libraries.
func (b *Builder) LinkAction(commandPath string, commandArgs []string, workingDir string, inputs []string, output string) *core.Action {
	a := b.CreateAction(core.ActionLink)
	a.CommandPath = commandPath
	a.CommandArgs = commandArgs
	a.WorkingDir = workingDir
	a.PrerequisiteItems = append([]string(nil), inputs...)
	a.ProducedItems = []string{output}
	a.StatusDescription = fmt.Sprintf("Link %s", filepath.Base(output))
	return a
}

// CopyAction emits a shell command copying source to destination with
// platform-appropriate quoting. The destination is declared in both
// ProducedItems and DeleteItems, so a clean build removes it and a rebuild
// recreates it.
func (b *Builder) CopyAction(shell, source, destination string) *core.Action {
	a := b.CreateAction(core.ActionCopy)
	a.CommandPath = shell
	a.CommandArgs = []string{"-c", copyCommandLine(source, destination)}
	a.PrerequisiteItems = []string{source}
	a.ProducedItems = []string{destination}
	a.DeleteItems = []string{destination}
	a.StatusDescription = fmt.Sprintf("Copy %s", filepath.Base(destination))
	return a
}

func copyCommandLine(source, destination string) string {
	return fmt.Sprintf("mkdir -p %s && cp %s %s",
		shellescape.Quote(filepath.Dir(destination)),
		shellescape.Quote(source),
		shellescape.Quote(destination))
}

// RecursiveToolAction emits a self-invocation of the orchestrator's own
// binary in a sub-mode, of the form "<self> -Mode=<mode> <args>".
func (b *Builder) RecursiveToolAction(mode RecursiveMode, args []string, workingDir string, prerequisites, produced []string) *core.Action {
	a := b.CreateAction(core.ActionBuildProject)
	a.CommandPath = b.selfPath
	a.CommandArgs = append([]string{fmt.Sprintf("-Mode=%s", mode)}, args...)
	a.WorkingDir = workingDir
	a.PrerequisiteItems = append([]string(nil), prerequisites...)
	a.ProducedItems = append([]string(nil), produced...)
	a.StatusDescription = fmt.Sprintf("Invoke self (%s)", mode)
	return a
}
