package archive

import (
	"bytes"
	"sort"

	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

// SortNodes orders every child range recorded during parsing by the raw
// bytes of the child's interned name, so that GetChild can binary-search
// them afterwards (§4.7). Ranges are sorted independently and in place;
// node indices inside a range move, but the range boundaries themselves
// never change.
func SortNodes(arena *wznode.Arena, strings *strtab.Table, ranges [][2]uint32) {
	for _, rg := range ranges {
		first, count := rg[0], rg[1]
		if count < 2 {
			continue
		}
		slice := arena.Nodes[first : first+count]
		sort.Slice(slice, func(i, j int) bool {
			return strings.String(slice[i].Name) < strings.String(slice[j].Name)
		})
	}
}

// GetChild looks up the child of parent named name by binary search over
// its (already sorted) child range (§4.8), used by uol path resolution.
// A ".." that pops past the archive root lands back on node 0, and any
// further descent from there fails outright rather than searching
// root's own children.
func GetChild(arena *wznode.Arena, strings *strtab.Table, parent uint32, name string) (uint32, bool) {
	if parent == 0 {
		return 0, false
	}
	return GetChildFull(arena, strings, parent, name)
}

// GetChildFull is GetChild without any special-casing of parent == 0.
func GetChildFull(arena *wznode.Arena, strings *strtab.Table, parent uint32, name string) (uint32, bool) {
	n := &arena.Nodes[parent]
	first, count := n.Children, int(n.Num)
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		childID := first + uint32(mid)
		cmp := bytes.Compare([]byte(strings.String(arena.Nodes[childID].Name)), []byte(name))
		switch {
		case cmp == 0:
			return childID, true
		case cmp < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0, false
}
