// Package archive implements the container parser (§4.5), the img
// subtree decoder (§4.6), node sorting (§4.7), and link resolution (§4.8)
// of the WZ-to-NX transcoder. The flat, per-concern layering (one file per
// responsibility inside a single package) follows
// flonle-diy-redis/app/diyredis, which keeps rdb.go, resp.go, and
// commands.go side by side in package diyredis rather than splitting into
// sub-packages per command family.
package archive

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nolifestory/wztonx/internal/keys"
	"github.com/nolifestory/wztonx/internal/mmapfile"
	"github.com/nolifestory/wztonx/internal/strtab"
	"github.com/nolifestory/wztonx/internal/wznode"
)

const archiveMagic = 0x31474B50 // "PKG1"

// BitmapDescriptor locates an undecoded bitmap payload in the input
// archive (§3).
type BitmapDescriptor struct {
	InputOffset int
	Key         []byte
}

// AudioDescriptor locates a raw audio payload in the input archive (§3).
type AudioDescriptor struct {
	Length      uint32
	InputOffset int
}

type imgEntry struct {
	node uint32
	size int32
}

// Parser holds all of the mutable state accumulated while walking one
// archive or bare img: the node arena, the string interner, and the
// pending bitmap/audio descriptors and sort ranges.
type Parser struct {
	R       *mmapfile.Reader
	Arena   *wznode.Arena
	Strings *strtab.Table
	Log     *logrus.Logger

	FileStart int
	key       []byte // the current img's deduced keystream

	Bitmaps []BitmapDescriptor
	Audios  []AudioDescriptor

	sortRanges [][2]uint32
	imgs       []imgEntry
}

// NewParser returns a Parser reading from r.
func NewParser(r *mmapfile.Reader, log *logrus.Logger) *Parser {
	return &Parser{
		R:       r,
		Arena:   wznode.NewArena(),
		Strings: strtab.New(),
		Log:     log,
	}
}

// ParseArchive parses a full .wz container: the header, the directory
// tree, then every contained img (§4.5).
func (p *Parser) ParseArchive() error {
	p.Log.Info("parsing input archive")
	magic, err := p.R.ReadU32()
	if err != nil {
		return err
	}
	if magic != archiveMagic {
		return &mmapfile.FormatError{Msg: "not a WZ archive (bad magic)"}
	}
	p.R.Skip(8)
	fileStart, err := p.R.ReadU32()
	if err != nil {
		return err
	}
	p.FileStart = int(fileStart)

	p.R.Seek(p.FileStart + 2)
	if _, err := p.R.ReadCInt(); err != nil {
		return err
	}
	p.R.Skip(1)
	key, err := deduceKey(p.R)
	if err != nil {
		return err
	}
	p.key = key
	p.R.Seek(p.FileStart + 2)

	p.Strings.Add("") // string id 0 is always the empty string

	if err := p.directory(0); err != nil {
		return err
	}
	for _, e := range p.imgs {
		if err := p.img(e.node, e.size); err != nil {
			return err
		}
	}
	p.Log.Info("done parsing archive")
	return p.FinishParse()
}

// ParseBareImg parses a standalone .img file as a single img subtree
// rooted at node 0 (the "imgtonx" mode of the original tool, supplemented
// from original_source/src/wztonx.h's imgtonx::parse_file override).
func (p *Parser) ParseBareImg() error {
	p.Log.Info("parsing bare img input")
	p.Strings.Add("")
	if err := p.img(0, 0); err != nil {
		return err
	}
	p.Log.Info("done parsing img")
	return p.FinishParse()
}

// directory recurses through one directory level, allocating a contiguous
// child range, then recurses into every nested subdirectory (§4.5).
func (p *Parser) directory(dirNode uint32) error {
	count, err := p.R.ReadCInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return &mmapfile.FormatError{Msg: "negative directory entry count"}
	}
	first := p.Arena.Alloc(int(count))
	p.Arena.Nodes[dirNode].Children = first
	p.Arena.Nodes[dirNode].Num = uint16(count)

	var subdirs []uint32
	for i := int32(0); i < count; i++ {
		ni := first + uint32(i)
		typ, err := p.R.ReadU8()
		if err != nil {
			return err
		}
		switch typ {
		case 1:
			return &mmapfile.FormatError{Msg: "found the elusive type 1 directory entry"}
		case 2:
			off, err := p.R.ReadI32()
			if err != nil {
				return err
			}
			saved := p.R.Tell()
			p.R.Seek(p.FileStart + int(off))
			typ, err = p.R.ReadU8()
			if err != nil {
				return err
			}
			nameID, err := readEncString(p.R, p.key, p.Strings)
			if err != nil {
				return err
			}
			p.Arena.Nodes[ni].Name = nameID
			p.R.Seek(saved)
		case 3, 4:
			nameID, err := readEncString(p.R, p.key, p.Strings)
			if err != nil {
				return err
			}
			p.Arena.Nodes[ni].Name = nameID
		default:
			return &mmapfile.FormatError{Msg: fmt.Sprintf("unknown directory entry type %d", typ)}
		}

		size, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		if size < 0 {
			return &mmapfile.FormatError{Msg: "directory/img has invalid size"}
		}
		if _, err := p.R.ReadCInt(); err != nil { // offset, ignored
			return err
		}
		p.R.Skip(4) // checksum, ignored

		switch typ {
		case 3:
			subdirs = append(subdirs, ni)
		case 4:
			p.imgs = append(p.imgs, imgEntry{node: ni, size: size})
		default:
			return &mmapfile.FormatError{Msg: "unknown type 2 directory indirection target"}
		}
	}
	for _, sub := range subdirs {
		if err := p.directory(sub); err != nil {
			return err
		}
	}
	p.sortRanges = append(p.sortRanges, [2]uint32{first, uint32(count)})
	return nil
}

// img decodes the img subtree rooted at imgNode, occupying exactly size
// bytes of the input starting at the current cursor (§4.6).
func (p *Parser) img(imgNode uint32, size int32) error {
	start := p.R.Tell()
	probe, err := p.R.ReadU8()
	if err != nil {
		return err
	}
	if probe == 1 {
		if err := p.luaScript(imgNode); err != nil {
			return err
		}
	} else {
		// The probe byte already consumed above is the prop-string tag,
		// not part of the encrypted string itself; deduce the locale from
		// the type-name string starting right after it, then rewind to
		// start for the real parse.
		key, err := deduceKey(p.R)
		if err != nil {
			return err
		}
		p.key = key
		p.R.Seek(start)
		if err := p.extendedProperty(imgNode, start); err != nil {
			return err
		}
	}
	p.R.Seek(start + int(size))
	return nil
}

// luaScript decodes the "this img is actually a Lua script" branch
// (§4.6): it is XORed with the KMS-scale keystream and no mask term at
// all, unlike every other encrypted string in the format.
func (p *Parser) luaScript(scriptNode uint32) error {
	slen, err := p.R.ReadCInt()
	if err != nil {
		return err
	}
	if slen < 0 || slen > 0x1ffff {
		return &mmapfile.FormatError{Msg: "lua script is too long"}
	}
	raw, err := p.R.Take(int(slen))
	if err != nil {
		return err
	}
	out := make([]byte, slen)
	for i := range out {
		out[i] = raw[i] ^ keys.KMS[i]
	}
	id := p.Strings.Add(string(out))
	p.Arena.Nodes[scriptNode].Kind = wznode.KindString
	p.Arena.Nodes[scriptNode].SetStringID(id)
	return nil
}
