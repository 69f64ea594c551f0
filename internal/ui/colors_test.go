package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusAndDisable(t *testing.T) {
	assert.Equal(t, ColorGreen+"success"+ColorReset, Status("success"))
	assert.Equal(t, ColorRed+"error"+ColorReset, Status("error"))

	Disable()
	assert.Equal(t, "cancelled", Status("cancelled"))
	assert.Equal(t, "x", Bold("x"))
}
