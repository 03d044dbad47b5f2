package pch

import (
	"strings"

	"github.com/nbo-build/nbo/src/core"
)

// suffixAxis names one axis of the shared-PCH suffix diff. Whether the
// order of axis comparison is load-bearing is otherwise undocumented, so
// it's resolved here as a fixed order so suffixes are deterministic
// regardless of how templates were discovered.
type suffixAxis struct {
	name   string
	differ func(a, b *core.CompileEnvironment) bool
	tag    func(env *core.CompileEnvironment) string
}

var suffixAxes = []suffixAxis{
	{
		name:   "optimize",
		differ: func(a, b *core.CompileEnvironment) bool { return a.OptimizeCode != b.OptimizeCode },
		tag: func(e *core.CompileEnvironment) string {
			if e.OptimizeCode {
				return "Optimized"
			}
			return "NonOptimized"
		},
	},
	{
		name:   "rtti",
		differ: func(a, b *core.CompileEnvironment) bool { return a.UseRTTI != b.UseRTTI },
		tag: func(e *core.CompileEnvironment) string {
			if e.UseRTTI {
				return "RTTI"
			}
			return "NoRTTI"
		},
	},
	{
		name:   "exceptions",
		differ: func(a, b *core.CompileEnvironment) bool { return a.EnableExceptions != b.EnableExceptions },
		tag: func(e *core.CompileEnvironment) string {
			if e.EnableExceptions {
				return "Exceptions"
			}
			return "NoExceptions"
		},
	},
	{
		name:   "shadow",
		differ: func(a, b *core.CompileEnvironment) bool { return a.ShadowVariableWarnings != b.ShadowVariableWarnings },
		tag:    func(e *core.CompileEnvironment) string { return "Shadow" + warningTag(e.ShadowVariableWarnings) },
	},
	{
		name:   "unsafe-cast",
		differ: func(a, b *core.CompileEnvironment) bool { return a.UnsafeCastWarnings != b.UnsafeCastWarnings },
		tag:    func(e *core.CompileEnvironment) string { return "Cast" + warningTag(e.UnsafeCastWarnings) },
	},
	{
		name:   "undefined-identifier",
		differ: func(a, b *core.CompileEnvironment) bool { return a.UndefinedIdentifierWarnings != b.UndefinedIdentifierWarnings },
		tag: func(e *core.CompileEnvironment) string {
			if e.UndefinedIdentifierWarnings == core.WarnOff {
				return "NoUndef"
			}
			return "Undef"
		},
	},
}

func warningTag(w core.WarningLevel) string {
	switch w {
	case core.WarnOff:
		return "Off"
	case core.WarnError:
		return "Error"
	default:
		return "Warning"
	}
}

// Suffix computes the deterministic suffix string from the diff between a
// shared-PCH template's base environment and a consumer's environment.
// Every differing axis contributes a tag, compared and appended in the
// fixed order above; environments with no differing axis yield an
// empty suffix, which Plan reaches when the first consumer of a template
// matches the template's base environment.
func Suffix(template, consumer *core.CompileEnvironment) string {
	var parts []string
	for _, axis := range suffixAxes {
		if axis.differ(template, consumer) {
			parts = append(parts, axis.tag(consumer))
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "." + strings.Join(parts, ".")
}
