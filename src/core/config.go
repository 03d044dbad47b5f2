// Utilities for reading the orchestrator's project configuration.
package core

import (
	"fmt"
	"os"
	"path"

	gcfg "github.com/please-build/gcfg"
)

// ConfigFileName is the checked-in, per-project config file.
const ConfigFileName = ".nboconfig"

// LocalConfigFileName overrides ConfigFileName for uncommitted, per-checkout settings.
const LocalConfigFileName = ".nboconfig.local"

// ProfileConfigFileName returns the profile-specific overlay file name for
// profile p, e.g. ".nboconfig.ci" for profile "ci".
func ProfileConfigFileName(profile string) string {
	return ConfigFileName + "." + profile
}

// ProjectConfig is the project-wide, ini-style settings file: the base
// layer of the three-stage overlay {config → profile → cli} that feeds
// into target/module instantiation.
type ProjectConfig struct {
	Build struct {
		MaxParallelActions int    `gcfg:"max_parallel_actions"`
		UnityByteBudget     int64  `gcfg:"unity_byte_budget"`
		UnityMinFileCount   int    `gcfg:"unity_min_file_count"`
		DefaultConfig       string `gcfg:"default_config"`
		InstalledEngine     bool   `gcfg:"installed_engine"`
	}
	PCH struct {
		DefaultUsage string `gcfg:"default_usage"`
	}
	Paths struct {
		EngineRoot  string `gcfg:"engine_root"`
		ProjectRoot string `gcfg:"project_root"`
	}
}

// DefaultConfiguration returns a ProjectConfig populated with the
// orchestrator's built-in defaults, prior to any file or flag overlay.
func DefaultConfiguration() *ProjectConfig {
	c := &ProjectConfig{}
	c.Build.MaxParallelActions = 0 // 0 means "number of CPUs"
	c.Build.UnityByteBudget = 384 * 1024
	c.Build.UnityMinFileCount = 4
	c.Build.DefaultConfig = "development"
	c.PCH.DefaultUsage = "Default"
	return c
}

// ReadConfigFiles overlays each file in order onto config: a missing file
// is not an error, but a malformed one is reported as a ConfigurationError.
func ReadConfigFiles(config *ProjectConfig, filenames []string) error {
	for _, filename := range filenames {
		if err := readConfigFile(config, filename); err != nil {
			return err
		}
	}
	return nil
}

func readConfigFile(config *ProjectConfig, filename string) error {
	log.Debug("Reading config from %s...", filename)
	if err := gcfg.ReadFileInto(config, filename); err != nil && os.IsNotExist(err) {
		return nil // Not an error to not have the file at all.
	} else if gcfg.FatalOnly(err) != nil {
		return NewConfigurationError(filename, "", fmt.Sprintf("error reading config file: %s", err))
	} else if err != nil {
		log.Warning("Error in config file %s: %s", filename, err)
	}
	return nil
}

// ConfigOverlayFiles returns the ordered list of config files to apply for
// a project root and optional profiles: base config, then local
// (uncommitted) overrides, then any --profile files.
func ConfigOverlayFiles(root string, profiles []string) []string {
	files := []string{path.Join(root, ConfigFileName), path.Join(root, LocalConfigFileName)}
	for _, p := range profiles {
		files = append(files, path.Join(root, ProfileConfigFileName(p)))
	}
	return files
}

// BuildVersion is the on-disk build-version manifest.
type BuildVersion struct {
	MajorVersion          int
	MinorVersion          int
	PatchVersion          int
	Changelist            int
	CompatibleChangelist  int
	IsLicenseeVersion     int
	IsPromotedBuild       int
	BranchName            string
	BuildID               string
	BuildVersion          string
}

// RulesAssemblyManifest is the side-car manifest the assembly compiler
// uses to decide whether an assembly artifact needs recompiling.
type RulesAssemblyManifest struct {
	SourceFiles   []string
	EngineVersion string
	// ContentHash is a blake3 digest over the paths and contents of
	// SourceFiles, in the same order. NeedsRecompile consults it only when
	// some source's mtime is newer than the artifact: an unchanged hash then
	// skips the recompile (e.g. after a checkout that only touched
	// timestamps). A rewrite that leaves every mtime older than the artifact
	// is not detected by it.
	ContentHash string
}

// PrecompiledManifest is the per-precompiled-module manifest.
type PrecompiledManifest struct {
	OutputFiles []string
}
