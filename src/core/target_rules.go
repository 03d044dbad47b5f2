package core

// TargetType is the kind of top-level artifact a target produces.
type TargetType int

const (
	Game TargetType = iota
	Editor
	Client
	Server
	Program
)

// LinkType controls whether a target's modules link into one binary or many.
type LinkType int

const (
	LinkDefault LinkType = iota
	Monolithic
	Modular
)

// BuildEnvironment controls whether a target shares intermediates with other
// targets of the same configuration, or gets its own private tree.
type BuildEnvironment int

const (
	SharedEnvironment BuildEnvironment = iota
	UniqueEnvironment
)

// Configuration is the build configuration axis (debug/develop/shipping, etc).
type Configuration int

const (
	Debug Configuration = iota
	DebugGame
	Development
	Shipping
	Test
)

// PlatformSubRules is a sum type indexed by platform tag (Design Notes:
// "Platform sub-records held as stub classes per platform... represent as a
// sum type... so missing platforms have no shape at all"). Only the variant
// matching the current build's platform is ever populated.
type PlatformSubRules struct {
	Platform string
	Linux    *LinuxTargetRules
	Windows  *WindowsTargetRules
	MacOS    *MacOSTargetRules
}

type LinuxTargetRules struct {
	UseASan  bool
	UseTSan  bool
	PIE      bool
}

type WindowsTargetRules struct {
	UseCRTSharedLibrary bool
	SubsystemVersion    string
}

type MacOSTargetRules struct {
	MinimumOSVersion string
	CodeSignIdentity  string
}

// TargetRules is the declarative descriptor for a top-level target,
// parameterized by (name, platform, configuration, architecture, project).
type TargetRules struct {
	Name          string
	Platform      string
	ConfigurationName string
	Config        Configuration
	Architecture  string
	ProjectFile   string

	Type          TargetType
	LinkType      LinkType
	BuildEnvironment BuildEnvironment

	InstalledEngine bool

	CompileAgainstEngine     bool
	CompileAgainstCoreUObject bool
	BuildWithEditorOnlyData  bool

	DefaultBuildSettings string

	ExtraModuleNames []string
	GlobalDefinitions []string

	// AdditionalCompilerArguments/AdditionalLinkerArguments carry raw,
	// already-tokenized flags passed straight through to the compiler or
	// linker invocation, bypassing every other knob on this struct.
	AdditionalCompilerArguments []string
	AdditionalLinkerArguments   []string

	DebugInfo bool

	Sub PlatformSubRules
}

// EffectiveLinkType resolves LinkDefault to Modular for Editor, Monolithic
// otherwise.
func (t *TargetRules) EffectiveLinkType() LinkType {
	if t.LinkType != LinkDefault {
		return t.LinkType
	}
	if t.Type == Editor {
		return Modular
	}
	return Monolithic
}

// Validate enforces the TargetRules invariants.
func (t *TargetRules) Validate() error {
	if t.BuildEnvironment == UniqueEnvironment && t.InstalledEngine {
		return NewConfigurationError(t.ProjectFile, t.Name,
			"buildEnvironment == Unique is forbidden under an installed engine")
	}
	if t.EffectiveLinkType() == LinkDefault {
		return NewConfigurationError(t.ProjectFile, t.Name, "link type could not be inferred")
	}
	return nil
}

// ApplyTypeDefaults installs the type-dependent normalization, in a fixed
// order.
func (t *TargetRules) ApplyTypeDefaults() {
	if t.CompileAgainstEngine {
		t.CompileAgainstCoreUObject = true
	}
	if t.Type == Editor {
		t.BuildWithEditorOnlyData = true
	}
	t.DebugInfo = t.Config == Debug || t.Config == DebugGame
	t.GlobalDefinitions = append(t.GlobalDefinitions, typeDefinitions(t.Type)...)
}

// typeDefinitions returns the preprocessor definitions every module of a
// target of this type compiles with, regardless of what any individual
// module requests.
func typeDefinitions(t TargetType) []string {
	switch t {
	case Editor:
		return []string{"WITH_EDITOR=1", "UE_EDITOR=1"}
	case Client:
		return []string{"UE_CLIENT=1"}
	case Server:
		return []string{"UE_SERVER=1", "WITH_SERVER_CODE=1"}
	case Program:
		return []string{"UE_PROGRAM=1"}
	default:
		return []string{"UE_GAME=1"}
	}
}
