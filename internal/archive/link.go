package archive

import (
	"strings"

	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

// FinishParse runs node sorting and the four link-resolution passes over
// everything collected while walking the input (§4.7, §4.8): uol nodes
// first, then the "source", "_outlink", and "_inlink" alias properties,
// in that fixed order, since later passes may depend on paths that only
// resolve once an earlier pass has replaced an aliasing node in place.
func (p *Parser) FinishParse() error {
	SortNodes(p.Arena, p.Strings, p.sortRanges)

	parent := buildParentIndex(p.Arena)

	p.resolveUOL(parent)
	p.resolveNamedLink("source", parent, p.resolveSourceTarget)
	p.resolveNamedLink("_outlink", parent, p.resolveOutlinkTarget)
	p.resolveNamedLink("_inlink", parent, p.resolveInlinkTarget)
	return nil
}

// buildParentIndex derives node-to-parent links from the Children/Num
// ranges already stored on every node, since the arena itself only
// records child ranges top-down (§4.4).
func buildParentIndex(arena *wznode.Arena) []uint32 {
	parent := make([]uint32, len(arena.Nodes))
	for i := range arena.Nodes {
		n := &arena.Nodes[i]
		for c := uint32(0); c < uint32(n.Num); c++ {
			parent[n.Children+c] = uint32(i)
		}
	}
	return parent
}

// resolvePath walks the '/'-separated path starting at start, treating
// ".." as a move to the current node's parent and any other segment as
// a named-child lookup through lookup (§4.8). uol resolution uses
// GetChild (root has no children, per the original's get_child guard);
// the named-link passes use GetChildFull.
func resolvePath(arena *wznode.Arena, strs *strtab.Table, parent []uint32, start uint32, path string, lookup func(*wznode.Arena, *strtab.Table, uint32, string) (uint32, bool)) (uint32, bool) {
	cur := start
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			cur = parent[cur]
		default:
			child, ok := lookup(arena, strs, cur, seg)
			if !ok {
				return 0, false
			}
			cur = child
		}
	}
	return cur, true
}

// aliasNode copies target's kind/payload/children onto dst, turning dst
// into an alias of target (§4.8, uol pass only). dst keeps its own Name
// so it stays in place in the tree.
func aliasNode(arena *wznode.Arena, dst, target uint32) {
	if dst == target {
		return
	}
	name := arena.Nodes[dst].Name
	arena.Nodes[dst] = arena.Nodes[target]
	arena.Nodes[dst].Name = name
}

// resolveUOL iterates uol resolution to a fixed point (§4.8 pass 1): a
// uol may point at another still-unresolved uol, so sweeps repeat until
// one makes no further progress. Anything left unresolved becomes an
// empty node.
func (p *Parser) resolveUOL(parent []uint32) {
	for pass := 0; pass < len(p.Arena.Nodes)+1; pass++ {
		progressed := false
		for i := range p.Arena.Nodes {
			n := &p.Arena.Nodes[i]
			if n.Kind != wznode.KindUOL {
				continue
			}
			path := p.Strings.String(n.StringID())
			target, ok := resolvePath(p.Arena, p.Strings, parent, parent[i], path, GetChild)
			if !ok || target == uint32(i) || p.Arena.Nodes[target].Kind == wznode.KindUOL {
				continue
			}
			aliasNode(p.Arena, uint32(i), target)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	for i := range p.Arena.Nodes {
		if p.Arena.Nodes[i].Kind == wznode.KindUOL {
			p.Log.Warnf("uol node %d did not resolve", i)
			p.Arena.Nodes[i].Kind = wznode.KindNone
			p.Arena.Nodes[i].Payload = [8]byte{}
		}
	}
}

// resolveSourceTarget implements the "source" pass (§4.8 pass 2): the
// path always descends from the archive root, regardless of where the
// property lives.
func (p *Parser) resolveSourceTarget(parent []uint32, owner uint32, path string) (uint32, bool, bool) {
	target, ok := resolvePath(p.Arena, p.Strings, parent, 0, path, GetChildFull)
	return target, false, ok
}

// resolveOutlinkTarget implements the "_outlink" pass (§4.8 pass 3): a
// path whose first segment is "Map" is treated as already resolved with
// no copy, since those targets live outside this archive entirely.
// Otherwise the path descends from the archive root, same as source.
func (p *Parser) resolveOutlinkTarget(parent []uint32, owner uint32, path string) (uint32, bool, bool) {
	if first, _, _ := strings.Cut(path, "/"); first == "Map" {
		return 0, true, false
	}
	target, ok := resolvePath(p.Arena, p.Strings, parent, 0, path, GetChildFull)
	return target, false, ok
}

// resolveInlinkTarget implements the "_inlink" pass (§4.8 pass 4): the
// path is tried from the property's own owner first, then from each
// ancestor in turn, innermost first, until one of them contains the
// full path or the chain runs out at the archive root.
func (p *Parser) resolveInlinkTarget(parent []uint32, owner uint32, path string) (uint32, bool, bool) {
	r := owner
	for {
		if target, ok := resolvePath(p.Arena, p.Strings, parent, r, path, GetChildFull); ok {
			return target, false, true
		}
		if r == 0 {
			return 0, false, false
		}
		r = parent[r]
	}
}

// resolveNamedLink resolves every string-valued property named name
// (the "source", "_outlink", and "_inlink" conventions, §4.8 passes
// 2-4). It sweeps the candidates to a fixed point, since a target that
// is itself still an unresolved alias at the start of a pass may
// resolve later in the same pass. attempt returns the resolved target
// node, a "skip" flag for a no-op success (the _outlink "Map" case),
// and whether resolution succeeded at all. On success only the
// owning property's (the Canvas or Property the link annotates)
// payload is overwritten, leaving its kind/children untouched.
func (p *Parser) resolveNamedLink(name string, parent []uint32, attempt func(parent []uint32, owner uint32, path string) (target uint32, skip bool, ok bool)) {
	var pending []uint32
	for i := range p.Arena.Nodes {
		n := &p.Arena.Nodes[i]
		if n.Kind == wznode.KindString && p.Strings.String(n.Name) == name {
			pending = append(pending, uint32(i))
		}
	}

	for {
		var next []uint32
		progressed := false
		for _, i := range pending {
			n := &p.Arena.Nodes[i]
			owner := parent[i]
			path := p.Strings.String(n.StringID())
			target, skip, ok := attempt(parent, owner, path)
			switch {
			case skip:
				progressed = true
			case ok:
				p.Arena.Nodes[owner].Payload = p.Arena.Nodes[target].Payload
				progressed = true
			default:
				next = append(next, i)
			}
		}
		pending = next
		if !progressed {
			break
		}
	}
	for _, i := range pending {
		p.Log.Warnf("%s link on node %d did not resolve", name, i)
	}
}
