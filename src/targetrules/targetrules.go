// Package targetrules implements target-rules instantiation: createTarget,
// the per-type constructor lookup chained through parent assemblies,
// default seeding, and the post-construction normalization order.
package targetrules

import (
	"fmt"
	"strings"

	"gopkg.in/op/go-logging.v1"

	"github.com/nbo-build/nbo/src/assembly"
	"github.com/nbo-build/nbo/src/core"
)

var log = logging.MustGetLogger("targetrules")

// Request bundles the parameters of createTarget's public contract:
// name, platform, config, arch, an optional project file, and extraArgs.
type Request struct {
	Name         string
	Platform     string
	Config       core.Configuration
	Architecture string
	ProjectFile  string
	ProjectConfig *core.ProjectConfig // config-file overlay, keyed by project dir + platform at call site
	ExtraArgs    map[string]string    // parsed -Define:/... style overlay; keys: see applyExtraArgsOverlay
}

// CommandLineOverlay is applied after config-file overlays in the
// normalization order below. Each field maps to a TargetRules field it
// overrides when set.
type CommandLineOverlay struct {
	LinkType         *core.LinkType
	BuildEnvironment *core.BuildEnvironment
	GlobalDefinitions []string
	// CompilerArgs/LinkerArgs are already tokenized (the CLI layer splits the
	// raw -CompilerArgs=/-LinkerArgs= flag value with a shell-style lexer
	// before it reaches here) and are appended verbatim.
	CompilerArgs []string
	LinkerArgs   []string
	// DebugInfo, when set, overrides the configuration-derived default
	// ApplyTypeDefaults computes (true for Debug/DebugGame, false otherwise).
	DebugInfo *bool
}

// CreateTarget instantiates a target, applying overlays in a fixed order:
//
//  1. look up a constructor named name+"Target", walking the assembly's
//     parent chain; exhausting the chain is fatal.
//  2. seed defaults (DefaultBuildSettings, nested platform sub-record)
//     before the constructor runs.
//  3. invoke the constructor.
//  4. apply config-file overlay (keyed by project dir + platform).
//  5. apply command-line overlay.
//  6. enforce linkType != Default.
//  7. enforce buildEnvironment == Unique => !installedEngine.
//  8. force compileAgainstCoreUObject when compileAgainstEngine.
//  9. force buildWithEditorOnlyData when type == Editor.
//  10. apply debug-info overrides, install type-dependent global definitions.
func CreateTarget(root *assembly.Assembly, req Request, overlay CommandLineOverlay) (*core.TargetRules, error) {
	ctorName := req.Name + "Target"
	ctor, owner, ok := root.FindTarget(ctorName)
	if !ok {
		return nil, core.NewConfigurationError("", req.Name,
			fmt.Sprintf("no target-rules constructor %q found in assembly chain", ctorName))
	}
	log.Debug("instantiating target %s from assembly %s", req.Name, owner.Name)

	seed := &core.TargetRules{
		Name:             req.Name,
		Platform:         req.Platform,
		Config:           req.Config,
		Architecture:     req.Architecture,
		ProjectFile:      req.ProjectFile,
		InstalledEngine:  root.ReadOnly,
		DefaultBuildSettings: "Modern",
	}
	seedPlatformSubRules(seed, req.Platform)

	target := ctor(seed)
	if target == nil {
		return nil, core.NewConfigurationError(req.ProjectFile, req.Name, "target-rules constructor returned nil")
	}

	applyProjectConfigOverlay(target, req.ProjectConfig)
	applyExtraArgsOverlay(target, req.ExtraArgs)
	applyCommandLineOverlay(target, overlay)

	target.ApplyTypeDefaults()
	if overlay.DebugInfo != nil {
		target.DebugInfo = *overlay.DebugInfo
	}

	if err := target.Validate(); err != nil {
		return nil, err
	}
	return target, nil
}

func seedPlatformSubRules(t *core.TargetRules, platform string) {
	t.Sub.Platform = platform
	switch strings.ToLower(platform) {
	case "linux":
		t.Sub.Linux = &core.LinuxTargetRules{}
	case "windows":
		t.Sub.Windows = &core.WindowsTargetRules{}
	case "mac", "macos", "darwin":
		t.Sub.MacOS = &core.MacOSTargetRules{}
	}
}

// applyProjectConfigOverlay applies the project's .nboconfig-derived build
// settings onto a target, keyed by project dir and platform. It runs
// before the command-line overlay so flags always win.
func applyProjectConfigOverlay(t *core.TargetRules, cfg *core.ProjectConfig) {
	if cfg == nil {
		return
	}
	if cfg.Build.InstalledEngine {
		t.InstalledEngine = true
	}
}

// applyExtraArgsOverlay maps the "Define", "LinkType" (Monolithic/Modular)
// and "BuildEnvironment" (Shared/Unique) keys onto the target. Any other
// key, "CppStd" included, is ignored.
func applyExtraArgsOverlay(t *core.TargetRules, args map[string]string) {
	if args == nil {
		return
	}
	if v, ok := args["Define"]; ok && v != "" {
		t.GlobalDefinitions = append(t.GlobalDefinitions, v)
	}
	if v, ok := args["LinkType"]; ok {
		switch v {
		case "Monolithic":
			t.LinkType = core.Monolithic
		case "Modular":
			t.LinkType = core.Modular
		}
	}
	if v, ok := args["BuildEnvironment"]; ok {
		switch v {
		case "Shared":
			t.BuildEnvironment = core.SharedEnvironment
		case "Unique":
			t.BuildEnvironment = core.UniqueEnvironment
		}
	}
}

func applyCommandLineOverlay(t *core.TargetRules, overlay CommandLineOverlay) {
	if overlay.LinkType != nil {
		t.LinkType = *overlay.LinkType
	}
	if overlay.BuildEnvironment != nil {
		t.BuildEnvironment = *overlay.BuildEnvironment
	}
	if len(overlay.GlobalDefinitions) > 0 {
		t.GlobalDefinitions = append(t.GlobalDefinitions, overlay.GlobalDefinitions...)
	}
	if len(overlay.CompilerArgs) > 0 {
		t.AdditionalCompilerArguments = append(t.AdditionalCompilerArguments, overlay.CompilerArgs...)
	}
	if len(overlay.LinkerArgs) > 0 {
		t.AdditionalLinkerArguments = append(t.AdditionalLinkerArguments, overlay.LinkerArgs...)
	}
}
