package core

// PCHTemplate is contributed by every module that declares a public shared
// PCH header. It is attached to the compile environment of every
// binary whose module graph includes the owning module.
type PCHTemplate struct {
	OwningModule         string
	BaseCompileEnvironment *CompileEnvironment
	PCHHeaderFile        string
	OutputDir            string
	Instances            []*PCHInstance
}

// PCHInstance is one concrete, built variant of a PCHTemplate: a specific
// wrapper header plus the environment it was synthesized for.
type PCHInstance struct {
	HeaderFile        string
	CompileEnvironment *CompileEnvironment
	Output             PCHOutput
}

// PCHOutput names the artifacts a PCHInstance's Create action produces.
type PCHOutput struct {
	ObjectFiles      []string
	DebugFiles       []string
	GeneratedHeaders []string
	PCHArtifact      string
}

// FindCompatibleInstance returns the first instance whose environment is
// compatible with env, or nil. Order matters: callers must present
// instances in template-registration order for the scan to be
// deterministic across runs.
func (t *PCHTemplate) FindCompatibleInstance(env *CompileEnvironment) *PCHInstance {
	for _, inst := range t.Instances {
		if inst.CompileEnvironment.IsCompatibleForSharedPCH(env) {
			return inst
		}
	}
	return nil
}
