package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/sale-engine/engine"
)

func TestActiveSet_AddRemoveContains(t *testing.T) {
	s := engine.NewActiveSet()

	assert.True(t, s.Add("a"))
	assert.True(t, s.Add("b"))
	assert.True(t, s.Add("c"))
	assert.False(t, s.Add("b"), "second insert of same member is a no-op")

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("z"))
	assert.Equal(t, []engine.ItemID{"a", "b", "c"}, s.Items())
}

func TestActiveSet_RemoveSwapsWithLast(t *testing.T) {
	s := engine.NewActiveSet()
	for _, id := range []engine.ItemID{"a", "b", "c", "d"} {
		s.Add(id)
	}

	// Removing from the middle swaps the last member into the hole.
	assert.True(t, s.Remove("b"))
	assert.Equal(t, []engine.ItemID{"a", "d", "c"}, s.Items())
	assert.False(t, s.Contains("b"))
	assert.False(t, s.Remove("b"), "double remove is a no-op")

	// Positions stay consistent after the swap.
	assert.True(t, s.Remove("d"))
	assert.Equal(t, []engine.ItemID{"a", "c"}, s.Items())

	assert.True(t, s.Remove("a"))
	assert.True(t, s.Remove("c"))
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Items())
}

func TestActiveSet_ReAddAfterRemove(t *testing.T) {
	s := engine.NewActiveSet()
	s.Add("a")
	s.Remove("a")
	assert.True(t, s.Add("a"))
	assert.Equal(t, []engine.ItemID{"a"}, s.Items())
}
