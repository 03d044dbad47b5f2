package core

import "golang.org/x/exp/slices"

// ModuleKind distinguishes a module that owns real translation units from one
// that only forwards a prebuilt/external library into the graph.
type ModuleKind int

const (
	CPlusPlus ModuleKind = iota
	External
)

// PCHUsage controls how a module's compile environment is wired into the
// precompiled-header planner.
type PCHUsage int

const (
	// PCHDefault defers to the target's default PCH policy.
	PCHDefault PCHUsage = iota
	// PCHNone disables PCH use entirely for this module.
	PCHNone
	// PCHNoShared forces a private/dedicated PCH even if a shared one would fit.
	PCHNoShared
	// PCHUseShared requires a shared PCH; it is a configuration error if none is available.
	PCHUseShared
	// PCHUseExplicitOrShared prefers the module's own explicit PCH header, falling
	// back to a shared PCH from a dependency if the module declares none.
	PCHUseExplicitOrShared
)

// OptimizationPolicy controls shouldEnableOptimization.
type OptimizationPolicy int

const (
	OptimizeDefault OptimizationPolicy = iota
	OptimizeNever
	OptimizeInNonDebugBuilds
	OptimizeInShippingBuildsOnly
	OptimizeAlways
)

// WarningLevel is the three-way knob shared by the shadow-variable,
// unsafe-cast and undefined-identifier warning settings.
type WarningLevel int

const (
	WarnOff WarningLevel = iota
	WarnOn
	WarnError
)

// ModuleRules is the declarative descriptor a rule file populates.
// Everything here is read-only once the user's constructor returns: the
// instantiation packages (targetrules/modulerules) populate it, and every
// later stage treats it as frozen input.
type ModuleRules struct {
	Name     string
	File     string // rule file location this descriptor was declared in
	BaseDir  string
	Plugin   string // owning plugin, if any
	Context  *ModuleRulesContext
	Kind     ModuleKind

	PublicDependencies  []string
	PrivateDependencies []string
	DynamicDependencies []string
	CircularDependencies []string

	PublicIncludePaths  []string
	PrivateIncludePaths []string
	SystemIncludePaths  []string
	PublicDefinitions   []string
	PrivateDefinitions  []string

	PublicFrameworks []string
	WeakFrameworks   []string
	AdditionalLibraries []string
	BundleResources  []string

	UseRTTI               bool
	UseAVX                bool
	EnableExceptions      bool
	BufferSecurityChecks  bool
	UndefinedIdentifierWarnings WarningLevel
	ShadowVariableWarnings      WarningLevel
	UnsafeCastWarnings          WarningLevel
	CppStandard           string
	UnityBuildDisabled     bool
	PCHUsage              PCHUsage
	OptimizationPolicy     OptimizationPolicy
	PrivatePCHHeader       string
	SharedPCHHeader        string
	TreatAsEngineModule    bool
	SymbolVisibilityHidden bool
	Precompile             bool
	UsePrecompiled         bool

	RuntimeDependencies  []string
	ExtraReceiptProperties map[string]string
	TypeLibraries        []string
	ExternalDependencies []string
}

// Validate checks ModuleRules's invariants. It returns diagnostics rather than
// aborting on the first one so that rule authors see every problem at once;
// the caller decides which are fatal.
func (m *ModuleRules) Validate() []error {
	var errs []error
	if m.SharedPCHHeader != "" && len(m.PublicIncludePaths) == 0 {
		errs = append(errs, NewConfigurationError(m.File, m.Name,
			"module declares a shared PCH header but has no public include path for consumers to find it"))
	}
	for _, c := range m.CircularDependencies {
		if !slices.Contains(m.PublicDependencies, c) && !slices.Contains(m.PrivateDependencies, c) {
			errs = append(errs, NewConfigurationError(m.File, m.Name,
				"circular dependency '"+c+"' is whitelisted but does not appear in public/private dependencies"))
		}
	}
	if m.Context != nil && m.Context.Scope == nil {
		errs = append(errs, NewConfigurationError(m.File, m.Name, "module context has no scope"))
	}
	return errs
}
