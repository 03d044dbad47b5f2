package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSharedPCHRequiresPublicInclude(t *testing.T) {
	m := &ModuleRules{Name: "CoreUI", SharedPCHHeader: "SharedPCH.CoreUI.h", Context: &ModuleRulesContext{Scope: EngineScope}}
	errs := m.Validate()
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "shared PCH")
}

func TestValidateSharedPCHWithPublicIncludeOK(t *testing.T) {
	m := &ModuleRules{
		Name:               "CoreUI",
		SharedPCHHeader:    "SharedPCH.CoreUI.h",
		PublicIncludePaths: []string{"CoreUI/Public"},
		Context:            &ModuleRulesContext{Scope: EngineScope},
	}
	assert.Empty(t, m.Validate())
}

func TestValidateCircularDependencyMustBeDeclared(t *testing.T) {
	m := &ModuleRules{
		Name:                 "A",
		CircularDependencies: []string{"B"},
		Context:              &ModuleRulesContext{Scope: EngineScope},
	}
	errs := m.Validate()
	assert.Len(t, errs, 1)

	m.PrivateDependencies = []string{"B"}
	assert.Empty(t, m.Validate())
}

func TestValidateRequiresScope(t *testing.T) {
	m := &ModuleRules{Name: "A", Context: &ModuleRulesContext{}}
	errs := m.Validate()
	assert.Len(t, errs, 1)
}
