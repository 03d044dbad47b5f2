package pch

import "github.com/nbo-build/nbo/src/core"

// AdaptivePolicyKind enumerates what an adaptive non-unity file may do
// about PCH: (a) disable PCH, (b) synthesize a per-file dedicated PCH
// built from the file's leading #include directives, or (c) compile with
// the module PCH
// but distinct optimization/edit-and-continue flags."
type AdaptivePolicyKind int

const (
	AdaptiveDisablePCH AdaptivePolicyKind = iota
	AdaptiveDedicatedPCH
	AdaptiveModulePCHDistinctFlags
)

// AdaptiveFilePlan is the resolved per-file decision for one adaptive
// (working-set) source file.
type AdaptiveFilePlan struct {
	Kind             AdaptivePolicyKind
	DedicatedHeader  string // first leading #include, when Kind == AdaptiveDedicatedPCH
	DistinctOptimize *bool  // overrides env.OptimizeCode, when Kind == AdaptiveModulePCHDistinctFlags
}

// PlanAdaptiveFile chooses an adaptive policy for one working-set file.
// leadingIncludes are the file's leading #include directives in order,
// already extracted by the input-discovery stage; an empty list forces
// AdaptiveDisablePCH since there is nothing to build a dedicated PCH from.
func PlanAdaptiveFile(moduleUsage core.PCHUsage, leadingIncludes []string) AdaptiveFilePlan {
	switch moduleUsage {
	case core.PCHNone:
		return AdaptiveFilePlan{Kind: AdaptiveDisablePCH}
	case core.PCHNoShared:
		if len(leadingIncludes) == 0 {
			return AdaptiveFilePlan{Kind: AdaptiveDisablePCH}
		}
		return AdaptiveFilePlan{Kind: AdaptiveDedicatedPCH, DedicatedHeader: leadingIncludes[0]}
	default:
		noEdit := false
		return AdaptiveFilePlan{Kind: AdaptiveModulePCHDistinctFlags, DistinctOptimize: &noEdit}
	}
}
