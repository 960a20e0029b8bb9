package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestockCartridge_SerialsUnique(t *testing.T) {
	a := NewRestockCartridge()
	b := NewRestockCartridge()

	require.NotEmpty(t, a.Serial())
	assert.NotEqual(t, a.Serial(), b.Serial())
}

func TestRestockCartridge_SingleUse(t *testing.T) {
	c := NewRestockCartridge()

	require.False(t, c.Spent())
	assert.True(t, c.Consume())
	assert.True(t, c.Spent())
	assert.False(t, c.Consume(), "second consume must fail")
}

func TestRestockCartridge_IsRestockCapable(t *testing.T) {
	c := NewRestockCartridge()

	var payload InteractionPayload = c
	capable, ok := payload.(RestockCapable)
	require.True(t, ok)
	assert.Same(t, c, capable.RestockCartridge())
}
