package tagedit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateTransitions(t *testing.T) {
	var g Gate
	assert.Equal(t, GateClosed, g.State())

	ran := 0
	action := func() { ran++ }

	assert.False(t, g.Confirm(action), "closed gate")
	assert.False(t, g.Cancel())

	g.Open()
	assert.True(t, g.IsOpen())
	assert.True(t, g.Cancel())
	assert.Equal(t, 0, ran)

	g.Open()
	assert.True(t, g.Confirm(action))
	assert.Equal(t, 1, ran)
	assert.Equal(t, GateClosed, g.State())

	// Each cycle is independent.
	g.Open()
	assert.True(t, g.Confirm(action))
	assert.Equal(t, 2, ran)
}
