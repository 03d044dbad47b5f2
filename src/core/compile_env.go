package core

// PCHAction tags what a compile environment should do about precompiled headers.
type PCHAction int

const (
	PCHActionNone PCHAction = iota
	PCHActionInclude
	PCHActionCreate
)

// OrderedSet is a minimal append-only, dedupe-on-first-seen string collection.
// Include paths and definitions use it so the ordering guarantee
// ("duplicates are suppressed on first-seen... observable and part of the
// contract") is satisfied by construction rather than by callers remembering
// to dedupe.
type OrderedSet struct {
	items []string
	seen  map[string]bool
}

// NewOrderedSet creates an empty OrderedSet.
func NewOrderedSet() *OrderedSet {
	return &OrderedSet{seen: map[string]bool{}}
}

// Add appends s if it hasn't been seen before; returns true if it was added.
func (o *OrderedSet) Add(s string) bool {
	if o.seen[s] {
		return false
	}
	o.seen[s] = true
	o.items = append(o.items, s)
	return true
}

// AddAll appends every element of ss in order, deduping against what's already present.
func (o *OrderedSet) AddAll(ss []string) {
	for _, s := range ss {
		o.Add(s)
	}
}

// Items returns the elements in insertion order. The caller must not mutate it.
func (o *OrderedSet) Items() []string {
	return o.items
}

// Clone returns an independent copy.
func (o *OrderedSet) Clone() *OrderedSet {
	c := NewOrderedSet()
	c.AddAll(o.items)
	return c
}

// CompileEnvironment is the derived, per-module record computed by
// addModuleToCompileEnvironment / the depgraph package.
type CompileEnvironment struct {
	Module       string
	Platform     string
	Config       Configuration
	Architecture string

	UserIncludePaths   *OrderedSet
	SystemIncludePaths *OrderedSet
	Definitions        *OrderedSet
	ForceIncludeFiles  []string

	AdditionalPrerequisites []string

	PCHAction             PCHAction
	PCHHeader             string
	PrecompiledHeaderFile string

	OptimizeCode  bool
	UseRTTI       bool
	EnableExceptions bool
	UnityEnabled  bool

	ShadowVariableWarnings      WarningLevel
	UnsafeCastWarnings          WarningLevel
	UndefinedIdentifierWarnings WarningLevel
	CppStandard                 string

	SharedPCHTemplates []*PCHTemplate

	IsBuildingDLL     bool
	IsBuildingLibrary bool
}

// NewCompileEnvironment returns a zero-value environment with its ordered
// sets ready to use.
func NewCompileEnvironment() *CompileEnvironment {
	return &CompileEnvironment{
		UserIncludePaths:   NewOrderedSet(),
		SystemIncludePaths: NewOrderedSet(),
		Definitions:        NewOrderedSet(),
	}
}

// Clone performs the deep copy required before any mutation: compile
// environments are created per module, cloned before any mutation.
func (e *CompileEnvironment) Clone() *CompileEnvironment {
	clone := *e
	clone.UserIncludePaths = e.UserIncludePaths.Clone()
	clone.SystemIncludePaths = e.SystemIncludePaths.Clone()
	clone.Definitions = e.Definitions.Clone()
	clone.ForceIncludeFiles = append([]string(nil), e.ForceIncludeFiles...)
	clone.AdditionalPrerequisites = append([]string(nil), e.AdditionalPrerequisites...)
	clone.SharedPCHTemplates = append([]*PCHTemplate(nil), e.SharedPCHTemplates...)
	return &clone
}

// IsCompatibleForSharedPCH is the compatibility predicate: two
// environments may share one PCH instance iff they agree on every axis that
// changes generated code shape.
func (e *CompileEnvironment) IsCompatibleForSharedPCH(other *CompileEnvironment) bool {
	return e.OptimizeCode == other.OptimizeCode &&
		e.UseRTTI == other.UseRTTI &&
		e.EnableExceptions == other.EnableExceptions &&
		e.ShadowVariableWarnings == other.ShadowVariableWarnings &&
		e.UnsafeCastWarnings == other.UnsafeCastWarnings &&
		e.UndefinedIdentifierWarnings == other.UndefinedIdentifierWarnings &&
		e.IsBuildingDLL == other.IsBuildingDLL &&
		e.IsBuildingLibrary == other.IsBuildingLibrary
}
