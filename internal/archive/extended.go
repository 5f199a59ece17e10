package archive

import (
	"fmt"

	"github.com/nolifestory/wztonx/internal/mmapfile"
	"github.com/nolifestory/wztonx/internal/wznode"
)

// extendedProperty decodes one extended-property block (§4.6.3): a
// prop-string type name followed by a type-specific payload.
func (p *Parser) extendedProperty(propNode uint32, imgBase int) error {
	nameID, err := readPropString(p.R, imgBase, p.key, p.Strings)
	if err != nil {
		return err
	}
	switch p.Strings.String(nameID) {
	case "Property":
		p.R.Skip(2)
		return p.subProperty(propNode, imgBase)

	case "Canvas":
		p.R.Skip(1)
		flag, err := p.R.ReadU8()
		if err != nil {
			return err
		}
		if flag == 1 {
			p.R.Skip(2)
			if err := p.subProperty(propNode, imgBase); err != nil {
				return err
			}
		}
		bitmapID := uint32(len(p.Bitmaps))
		p.Bitmaps = append(p.Bitmaps, BitmapDescriptor{InputOffset: p.R.Tell(), Key: p.key})
		width, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		height, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		n := &p.Arena.Nodes[propNode]
		n.Kind = wznode.KindBitmap
		n.SetBitmap(bitmapID, uint16(width), uint16(height))
		return nil

	case "Shape2D#Vector2D":
		x, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		y, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		n := &p.Arena.Nodes[propNode]
		n.Kind = wznode.KindVector
		n.SetVector(x, y)
		return nil

	case "Shape2D#Convex2D":
		count, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		if count < 0 {
			return &mmapfile.FormatError{Msg: "negative Convex2D point count"}
		}
		first := p.Arena.Alloc(int(count))
		n := &p.Arena.Nodes[propNode]
		n.Children = first
		n.Num = uint16(count)
		for i := int32(0); i < count; i++ {
			ni := first + uint32(i)
			p.Arena.Nodes[ni].Name = p.Strings.Add(fmt.Sprintf("%d", i))
			if err := p.extendedProperty(ni, imgBase); err != nil {
				return err
			}
		}
		p.sortRanges = append(p.sortRanges, [2]uint32{first, uint32(count)})
		return nil

	case "Sound_DX8":
		p.R.Skip(1) // always 0
		rawLen, err := p.R.ReadCInt()
		if err != nil {
			return err
		}
		length := uint32(rawLen) + 82
		if _, err := p.R.ReadCInt(); err != nil { // ignored
			return err
		}
		audioID := uint32(len(p.Audios))
		p.Audios = append(p.Audios, AudioDescriptor{Length: length, InputOffset: p.R.Tell()})
		n := &p.Arena.Nodes[propNode]
		n.Kind = wznode.KindAudio
		n.SetAudio(audioID, length)
		return nil

	case "UOL":
		p.R.Skip(1)
		strID, err := readPropString(p.R, imgBase, p.key, p.Strings)
		if err != nil {
			return err
		}
		n := &p.Arena.Nodes[propNode]
		n.Kind = wznode.KindUOL
		n.SetStringID(strID)
		return nil

	default:
		return &mmapfile.FormatError{Msg: fmt.Sprintf("unknown extended property type %q", p.Strings.String(nameID))}
	}
}

// subProperty decodes one sub-property block (§4.6.4): a cint count
// followed by that many named, typed entries.
func (p *Parser) subProperty(propNode uint32, imgBase int) error {
	count, err := p.R.ReadCInt()
	if err != nil {
		return err
	}
	if count < 0 {
		return &mmapfile.FormatError{Msg: "negative sub-property entry count"}
	}
	first := p.Arena.Alloc(int(count))
	parent := &p.Arena.Nodes[propNode]
	parent.Children = first
	parent.Num = uint16(count)

	for i := int32(0); i < count; i++ {
		ni := first + uint32(i)
		nameID, err := readPropString(p.R, imgBase, p.key, p.Strings)
		if err != nil {
			return err
		}
		p.Arena.Nodes[ni].Name = nameID

		typ, err := p.R.ReadU8()
		if err != nil {
			return err
		}
		n := &p.Arena.Nodes[ni]
		switch typ {
		case 0x00:
			n.Kind = wznode.KindInteger
			n.SetInt64(int64(i))
		case 0x02, 0x0B:
			v, err := p.R.ReadU16()
			if err != nil {
				return err
			}
			n.Kind = wznode.KindInteger
			n.SetInt64(int64(v))
		case 0x03, 0x13:
			v, err := p.R.ReadCInt()
			if err != nil {
				return err
			}
			n.Kind = wznode.KindInteger
			n.SetInt64(int64(v))
		case 0x04:
			disc, err := p.R.ReadU8()
			if err != nil {
				return err
			}
			n.Kind = wznode.KindReal
			if disc == 0x80 {
				f, err := p.R.ReadF32()
				if err != nil {
					return err
				}
				n.SetFloat64(float64(f))
			} else {
				n.SetFloat64(float64(int8(disc)))
			}
		case 0x05:
			f, err := p.R.ReadF64()
			if err != nil {
				return err
			}
			n.Kind = wznode.KindReal
			n.SetFloat64(f)
		case 0x08:
			strID, err := readPropString(p.R, imgBase, p.key, p.Strings)
			if err != nil {
				return err
			}
			n.Kind = wznode.KindString
			n.SetStringID(strID)
		case 0x09:
			length, err := p.R.ReadI32()
			if err != nil {
				return err
			}
			resume := p.R.Tell() + int(length)
			if err := p.extendedProperty(ni, imgBase); err != nil {
				return err
			}
			p.R.Seek(resume)
		case 0x14:
			disc, err := p.R.ReadU8()
			if err != nil {
				return err
			}
			n.Kind = wznode.KindInteger
			if disc == 0x80 {
				v, err := p.R.ReadI64()
				if err != nil {
					return err
				}
				n.SetInt64(v)
			} else {
				n.SetInt64(int64(int8(disc)))
			}
		default:
			return &mmapfile.FormatError{Msg: fmt.Sprintf("unknown sub-property type %#x", typ)}
		}
	}
	p.sortRanges = append(p.sortRanges, [2]uint32{first, uint32(count)})
	return nil
}
