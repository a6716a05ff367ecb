package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegNextWalksTheWizardForward(t *testing.T) {
	next, ok := RegNext(StateRegSurname)
	assert.True(t, ok)
	assert.Equal(t, StateRegName, next)

	next, ok = RegNext(StateRegGroup)
	assert.True(t, ok)
	assert.Equal(t, StateRegGitHub, next)

	// The last input state has no successor in the table; the wizard moves
	// to confirmation.
	_, ok = RegNext(StateRegGitHub)
	assert.False(t, ok)
}

func TestRegPrevStopsAtTheFirstStep(t *testing.T) {
	prev, ok := RegPrev(StateRegName)
	assert.True(t, ok)
	assert.Equal(t, StateRegSurname, prev)

	_, ok = RegPrev(StateRegSurname)
	assert.False(t, ok)

	_, ok = RegPrev(StateRegConfirm)
	assert.False(t, ok)
}

func TestIsRegInput(t *testing.T) {
	for _, s := range RegOrder {
		assert.True(t, IsRegInput(s), string(s))
	}
	assert.False(t, IsRegInput(StateRegConfirm))
	assert.False(t, IsRegInput(StateAdminLogin))
	assert.False(t, IsRegInput(StateNone))
}
