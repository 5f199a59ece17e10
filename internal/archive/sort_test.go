package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

func buildTree(t *testing.T, names ...string) (*wznode.Arena, *strtab.Table, [2]uint32) {
	t.Helper()
	arena := wznode.NewArena()
	strs := strtab.New()
	strs.Add("")
	first := arena.Alloc(len(names))
	arena.Nodes[0].Children = first
	arena.Nodes[0].Num = uint16(len(names))
	for i, name := range names {
		arena.Nodes[first+uint32(i)].Name = strs.Add(name)
	}
	return arena, strs, [2]uint32{first, uint32(len(names))}
}

func TestSortNodesOrdersByName(t *testing.T) {
	arena, strs, rg := buildTree(t, "charlie", "alpha", "bravo")
	SortNodes(arena, strs, [][2]uint32{rg})

	var got []string
	for _, n := range arena.Children(0) {
		got = append(got, strs.String(n.Name))
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, got)
}

func TestGetChildFindsSortedEntry(t *testing.T) {
	arena, strs, rg := buildTree(t, "charlie", "alpha", "bravo")
	SortNodes(arena, strs, [][2]uint32{rg})

	// GetChild never searches the root's own children, so reach the
	// sorted range through a non-root parent that shares it.
	box := arena.Alloc(1)
	arena.Nodes[box].Children = rg[0]
	arena.Nodes[box].Num = uint16(rg[1])

	id, ok := GetChild(arena, strs, box, "bravo")
	assert.True(t, ok)
	assert.Equal(t, "bravo", strs.String(arena.Nodes[id].Name))
}

func TestGetChildMissingReturnsFalse(t *testing.T) {
	arena, strs, rg := buildTree(t, "alpha", "bravo")
	SortNodes(arena, strs, [][2]uint32{rg})

	_, ok := GetChild(arena, strs, 0, "nope")
	assert.False(t, ok)
}

func TestGetChildEmptyRange(t *testing.T) {
	arena := wznode.NewArena()
	strs := strtab.New()
	_, ok := GetChild(arena, strs, 0, "anything")
	assert.False(t, ok)
}
