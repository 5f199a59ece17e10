package archive

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

func newTestParser() *Parser {
	log := logrus.New()
	log.SetOutput(nopWriter{})
	return &Parser{
		Arena:   wznode.NewArena(),
		Strings: strtab.New(),
		Log:     log,
	}
}

type nopWriter struct{}

func (nopWriter) Write(b []byte) (int, error) { return len(b), nil }

func TestResolveUOLSimpleTarget(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	// GetChild refuses to search the archive root's own children (it
	// treats parent == 0 as a dead end, matching the original's
	// get_child), so a and link must live one level below root.
	rootFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 1
	box := rootFirst
	p.Arena.Nodes[box].Name = p.Strings.Add("box")

	first := p.Arena.Alloc(2)
	p.Arena.Nodes[box].Children = first
	p.Arena.Nodes[box].Num = 2

	a := first
	link := first + 1
	p.Arena.Nodes[a].Name = p.Strings.Add("a")
	p.Arena.Nodes[a].Kind = wznode.KindInteger
	p.Arena.Nodes[a].SetInt64(42)

	p.Arena.Nodes[link].Name = p.Strings.Add("link")
	p.Arena.Nodes[link].Kind = wznode.KindUOL
	p.Arena.Nodes[link].SetStringID(p.Strings.Add("a"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{rootFirst, 1}, {first, 2}})
	parent := buildParentIndex(p.Arena)
	p.resolveUOL(parent)

	linkNode, ok := GetChildFull(p.Arena, p.Strings, box, "link")
	assert.True(t, ok)
	assert.Equal(t, wznode.KindInteger, p.Arena.Nodes[linkNode].Kind)
	assert.Equal(t, int64(42), p.Arena.Nodes[linkNode].Int64())
	assert.Equal(t, "link", p.Strings.String(p.Arena.Nodes[linkNode].Name))
}

func TestResolveUOLDotDotNavigatesUp(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	// root -> box -> {sibling, dir -> link}; the ".." pop lands on box,
	// not on the archive root itself, so GetChild's root guard doesn't
	// come into play here (see TestResolveUOLPastRootFails for that).
	rootFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 1
	box := rootFirst
	p.Arena.Nodes[box].Name = p.Strings.Add("box")

	boxFirst := p.Arena.Alloc(2)
	p.Arena.Nodes[box].Children = boxFirst
	p.Arena.Nodes[box].Num = 2
	sibling := boxFirst
	dir := boxFirst + 1
	p.Arena.Nodes[sibling].Name = p.Strings.Add("sibling")
	p.Arena.Nodes[sibling].Kind = wznode.KindInteger
	p.Arena.Nodes[sibling].SetInt64(7)
	p.Arena.Nodes[dir].Name = p.Strings.Add("dir")

	dirFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[dir].Children = dirFirst
	p.Arena.Nodes[dir].Num = 1
	link := dirFirst
	p.Arena.Nodes[link].Name = p.Strings.Add("link")
	p.Arena.Nodes[link].Kind = wznode.KindUOL
	p.Arena.Nodes[link].SetStringID(p.Strings.Add("../sibling"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{boxFirst, 2}, {dirFirst, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveUOL(parent)

	// Sorting puts "dir" ahead of "sibling", so find dir by name rather
	// than by its pre-sort index.
	dirNode, ok := GetChildFull(p.Arena, p.Strings, box, "dir")
	assert.True(t, ok)
	linkNode, ok := GetChildFull(p.Arena, p.Strings, dirNode, "link")
	assert.True(t, ok)
	assert.Equal(t, wznode.KindInteger, p.Arena.Nodes[linkNode].Kind)
	assert.Equal(t, int64(7), p.Arena.Nodes[linkNode].Int64())
}

func TestResolveUOLPastRootFails(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	first := p.Arena.Alloc(2)
	p.Arena.Nodes[0].Children = first
	p.Arena.Nodes[0].Num = 2

	sibling := first
	link := first + 1
	p.Arena.Nodes[sibling].Name = p.Strings.Add("sibling")
	p.Arena.Nodes[sibling].Kind = wznode.KindInteger
	p.Arena.Nodes[sibling].SetInt64(7)

	p.Arena.Nodes[link].Name = p.Strings.Add("link")
	p.Arena.Nodes[link].Kind = wznode.KindUOL
	// link's parent is already the root, so "../sibling" pops to node 0
	// and GetChild must refuse to search root's own children from there.
	p.Arena.Nodes[link].SetStringID(p.Strings.Add("../sibling"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{first, 2}})
	parent := buildParentIndex(p.Arena)
	p.resolveUOL(parent)

	// Sorting moves "link" ahead of "sibling", so find it by name.
	linkNode, ok := GetChildFull(p.Arena, p.Strings, 0, "link")
	assert.True(t, ok)
	assert.Equal(t, wznode.KindNone, p.Arena.Nodes[linkNode].Kind)
}

func TestResolveUOLUnresolvedBecomesNone(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	first := p.Arena.Alloc(1)
	p.Arena.Nodes[0].Children = first
	p.Arena.Nodes[0].Num = 1
	link := first
	p.Arena.Nodes[link].Name = p.Strings.Add("link")
	p.Arena.Nodes[link].Kind = wznode.KindUOL
	p.Arena.Nodes[link].SetStringID(p.Strings.Add("missing"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{first, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveUOL(parent)

	assert.Equal(t, wznode.KindNone, p.Arena.Nodes[link].Kind)
	assert.Equal(t, [8]byte{}, p.Arena.Nodes[link].Payload)
}

func TestResolveNamedLinkCopiesPayloadOnly(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	rootFirst := p.Arena.Alloc(2)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 2
	target := rootFirst
	box := rootFirst + 1
	p.Arena.Nodes[target].Name = p.Strings.Add("target")
	p.Arena.Nodes[target].Kind = wznode.KindInteger
	p.Arena.Nodes[target].SetInt64(99)
	p.Arena.Nodes[box].Name = p.Strings.Add("box")
	p.Arena.Nodes[box].Kind = wznode.KindVector
	p.Arena.Nodes[box].SetVector(1, 2)

	boxFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[box].Children = boxFirst
	p.Arena.Nodes[box].Num = 1
	outlink := boxFirst
	p.Arena.Nodes[outlink].Name = p.Strings.Add("_outlink")
	p.Arena.Nodes[outlink].Kind = wznode.KindString
	p.Arena.Nodes[outlink].SetStringID(p.Strings.Add("target"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{rootFirst, 2}, {boxFirst, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveNamedLink("_outlink", parent, p.resolveOutlinkTarget)

	// Sorting puts "box" ahead of "target", so find box by name.
	boxNode, ok := GetChildFull(p.Arena, p.Strings, 0, "box")
	assert.True(t, ok)

	// Only the 8-byte payload moves onto the owner; its own kind and
	// children are left exactly as they were.
	assert.Equal(t, wznode.KindVector, p.Arena.Nodes[boxNode].Kind)
	assert.Equal(t, boxFirst, p.Arena.Nodes[boxNode].Children)
	assert.Equal(t, uint16(1), p.Arena.Nodes[boxNode].Num)
	assert.Equal(t, int64(99), p.Arena.Nodes[boxNode].Int64())
	assert.Equal(t, "box", p.Strings.String(p.Arena.Nodes[boxNode].Name))
}

func TestResolveOutlinkMapFirstSegmentIsNoOp(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	rootFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 1
	box := rootFirst
	p.Arena.Nodes[box].Name = p.Strings.Add("box")
	p.Arena.Nodes[box].Kind = wznode.KindVector
	p.Arena.Nodes[box].SetVector(5, 6)

	boxFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[box].Children = boxFirst
	p.Arena.Nodes[box].Num = 1
	outlink := boxFirst
	p.Arena.Nodes[outlink].Name = p.Strings.Add("_outlink")
	p.Arena.Nodes[outlink].Kind = wznode.KindString
	p.Arena.Nodes[outlink].SetStringID(p.Strings.Add("Map/Map0/100000000.img/foo"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{rootFirst, 1}, {boxFirst, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveNamedLink("_outlink", parent, p.resolveOutlinkTarget)

	// A "Map" target lives outside this archive; box is left untouched
	// and no unresolved warning is produced.
	x, y := p.Arena.Nodes[box].Vector()
	assert.Equal(t, int32(5), x)
	assert.Equal(t, int32(6), y)
}

func TestResolveSourceStartsFromArchiveRoot(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	rootFirst := p.Arena.Alloc(2)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 2
	target := rootFirst
	dir := rootFirst + 1
	p.Arena.Nodes[target].Name = p.Strings.Add("target")
	p.Arena.Nodes[target].Kind = wznode.KindInteger
	p.Arena.Nodes[target].SetInt64(123)
	p.Arena.Nodes[dir].Name = p.Strings.Add("dir")

	dirFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[dir].Children = dirFirst
	p.Arena.Nodes[dir].Num = 1
	box := dirFirst
	p.Arena.Nodes[box].Name = p.Strings.Add("box")

	boxFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[box].Children = boxFirst
	p.Arena.Nodes[box].Num = 1
	source := boxFirst
	p.Arena.Nodes[source].Name = p.Strings.Add("source")
	p.Arena.Nodes[source].Kind = wznode.KindString
	// "target" lives at the archive root, not under dir/box, so this
	// only resolves if source descent starts at node 0.
	p.Arena.Nodes[source].SetStringID(p.Strings.Add("target"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{rootFirst, 2}, {dirFirst, 1}, {boxFirst, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveNamedLink("source", parent, p.resolveSourceTarget)

	assert.Equal(t, int64(123), p.Arena.Nodes[box].Int64())
}

func TestResolveInlinkWalksAncestorsInnermostFirst(t *testing.T) {
	p := newTestParser()
	p.Strings.Add("")

	rootFirst := p.Arena.Alloc(2)
	p.Arena.Nodes[0].Children = rootFirst
	p.Arena.Nodes[0].Num = 2
	target := rootFirst
	dir := rootFirst + 1
	p.Arena.Nodes[target].Name = p.Strings.Add("target")
	p.Arena.Nodes[target].Kind = wznode.KindInteger
	p.Arena.Nodes[target].SetInt64(55)
	p.Arena.Nodes[dir].Name = p.Strings.Add("dir")

	dirFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[dir].Children = dirFirst
	p.Arena.Nodes[dir].Num = 1
	box := dirFirst
	p.Arena.Nodes[box].Name = p.Strings.Add("box")

	boxFirst := p.Arena.Alloc(1)
	p.Arena.Nodes[box].Children = boxFirst
	p.Arena.Nodes[box].Num = 1
	inlink := boxFirst
	p.Arena.Nodes[inlink].Name = p.Strings.Add("_inlink")
	p.Arena.Nodes[inlink].Kind = wznode.KindString
	// "target" isn't reachable from box or dir, only from the root that
	// dir's ancestor chain eventually reaches.
	p.Arena.Nodes[inlink].SetStringID(p.Strings.Add("target"))

	SortNodes(p.Arena, p.Strings, [][2]uint32{{rootFirst, 2}, {dirFirst, 1}, {boxFirst, 1}})
	parent := buildParentIndex(p.Arena)
	p.resolveNamedLink("_inlink", parent, p.resolveInlinkTarget)

	assert.Equal(t, int64(55), p.Arena.Nodes[box].Int64())
}
