// Package wznode is the node arena: one contiguous, growable array of
// fixed-size node records, referenced by index rather than pointer so
// sorting and child-range lookups stay cache-friendly and immune to the
// aliasing/cycle problems a pointer graph would have (spec §9).
package wznode

import (
	"encoding/binary"
	"math"
)

// Kind is a node's closed tagged-variant discriminator (§3).
type Kind uint16

const (
	KindNone Kind = iota
	KindInteger
	KindReal
	KindString
	KindVector
	KindBitmap
	KindAudio
	KindUOL
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindVector:
		return "vector"
	case KindBitmap:
		return "bitmap"
	case KindAudio:
		return "audio"
	case KindUOL:
		return "uol"
	default:
		return "unknown"
	}
}

// Node is the 20-byte packed node record of §3. Payload is an 8-byte
// variant interpreted according to Kind; a switch per kind is used for
// every access, never runtime polymorphism (spec §9).
type Node struct {
	Name     uint32
	Children uint32
	Num      uint16
	Kind     Kind
	Payload  [8]byte
}

func (n *Node) Int64() int64      { return int64(binary.LittleEndian.Uint64(n.Payload[:])) }
func (n *Node) SetInt64(v int64)  { binary.LittleEndian.PutUint64(n.Payload[:], uint64(v)) }
func (n *Node) Float64() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(n.Payload[:]))
}
func (n *Node) SetFloat64(v float64) {
	binary.LittleEndian.PutUint64(n.Payload[:], math.Float64bits(v))
}

func (n *Node) StringID() uint32     { return binary.LittleEndian.Uint32(n.Payload[:4]) }
func (n *Node) SetStringID(id uint32) { binary.LittleEndian.PutUint32(n.Payload[:4], id) }

func (n *Node) Vector() (x, y int32) {
	x = int32(binary.LittleEndian.Uint32(n.Payload[0:4]))
	y = int32(binary.LittleEndian.Uint32(n.Payload[4:8]))
	return
}
func (n *Node) SetVector(x, y int32) {
	binary.LittleEndian.PutUint32(n.Payload[0:4], uint32(x))
	binary.LittleEndian.PutUint32(n.Payload[4:8], uint32(y))
}

func (n *Node) Bitmap() (id uint32, width, height uint16) {
	id = binary.LittleEndian.Uint32(n.Payload[0:4])
	width = binary.LittleEndian.Uint16(n.Payload[4:6])
	height = binary.LittleEndian.Uint16(n.Payload[6:8])
	return
}
func (n *Node) SetBitmap(id uint32, width, height uint16) {
	binary.LittleEndian.PutUint32(n.Payload[0:4], id)
	binary.LittleEndian.PutUint16(n.Payload[4:6], width)
	binary.LittleEndian.PutUint16(n.Payload[6:8], height)
}
func (n *Node) SetBitmapID(id uint32) {
	binary.LittleEndian.PutUint32(n.Payload[0:4], id)
}

func (n *Node) Audio() (id uint32, length uint32) {
	id = binary.LittleEndian.Uint32(n.Payload[0:4])
	length = binary.LittleEndian.Uint32(n.Payload[4:8])
	return
}
func (n *Node) SetAudio(id uint32, length uint32) {
	binary.LittleEndian.PutUint32(n.Payload[0:4], id)
	binary.LittleEndian.PutUint32(n.Payload[4:8], length)
}

// Arena owns every decoded node in one contiguous, growable slice. Node 0
// is always the root.
type Arena struct {
	Nodes []Node
}

// NewArena returns an arena containing only the root node.
func NewArena() *Arena {
	return &Arena{Nodes: make([]Node, 1)}
}

// Alloc appends n zeroed nodes and returns the index of the first one.
func (a *Arena) Alloc(n int) uint32 {
	first := uint32(len(a.Nodes))
	a.Nodes = append(a.Nodes, make([]Node, n)...)
	return first
}

// Children returns the slice of a parent node's children.
func (a *Arena) Children(parent uint32) []Node {
	n := &a.Nodes[parent]
	return a.Nodes[n.Children : n.Children+uint32(n.Num)]
}
