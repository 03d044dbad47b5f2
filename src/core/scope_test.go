package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeContains(t *testing.T) {
	engine := EngineScope
	project := NewScope("project", engine)
	plugin := NewScope("plugin", project)

	assert.True(t, engine.Contains(plugin))
	assert.True(t, project.Contains(plugin))
	assert.True(t, plugin.Contains(plugin))
	assert.False(t, plugin.Contains(project))
	assert.False(t, plugin.Contains(engine))
}

func TestScopeString(t *testing.T) {
	engine := EngineScope
	project := NewScope("project", engine)
	assert.Equal(t, "engine", engine.String())
	assert.Equal(t, "engine.project", project.String())
}

func TestCanReference(t *testing.T) {
	engine := EngineScope
	project := NewScope("project", engine)
	other := NewScope("other", engine)

	assert.True(t, CanReference(project, engine), "project may reference an ancestor scope")
	assert.False(t, CanReference(engine, project), "engine may not reference a descendant scope")
	assert.False(t, CanReference(project, other), "sibling scopes may not reference each other")
}
