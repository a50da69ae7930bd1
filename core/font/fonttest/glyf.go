package fonttest

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// glyfStreams are the sub-streams of a transformed glyf table.
type glyfStreams struct {
	nContours    bytes.Buffer
	nPoints      bytes.Buffer
	flags        bytes.Buffer
	glyphs       bytes.Buffer
	composites   bytes.Buffer
	bboxes       bytes.Buffer
	instructions bytes.Buffer
}

// transformGlyf encodes tables glyf and loca with the WOFF2 glyf transform.
// Composite glyphs get an explicit bounding box, bounding boxes of simple
// glyphs are left to the decoder.
func transformGlyf(tables []sfntTable) ([]byte, error) {
	table := func(tag string) []byte {
		for _, t := range tables {
			if t.tag == tag {
				return t.data
			}
		}
		return nil
	}
	head, maxp, glyf, loca := table("head"), table("maxp"), table("glyf"), table("loca")
	if len(head) < 54 || len(maxp) < 6 || glyf == nil {
		return nil, fmt.Errorf("%w: tables head, maxp, glyf and loca are required", errGlyf)
	}
	indexFormat := binary.BigEndian.Uint16(head[50:])
	numGlyphs := int(binary.BigEndian.Uint16(maxp[4:]))
	entry := 2
	if indexFormat != 0 {
		entry = 4
	}
	if len(loca) < (numGlyphs+1)*entry {
		return nil, fmt.Errorf("%w: loca too short for %d glyphs", errGlyf, numGlyphs)
	}
	offset := func(i int) int {
		if indexFormat == 0 {
			return 2 * int(binary.BigEndian.Uint16(loca[2*i:]))
		}
		return int(binary.BigEndian.Uint32(loca[4*i:]))
	}
	s := &glyfStreams{}
	bitmap := make([]byte, 4*((numGlyphs+31)/32))
	for gid := 0; gid < numGlyphs; gid++ {
		start, end := offset(gid), offset(gid+1)
		if start > end || end > len(glyf) {
			return nil, fmt.Errorf("%w: glyph %d out of bounds", errGlyf, gid)
		}
		g := glyf[start:end]
		if len(g) == 0 {
			binary.Write(&s.nContours, binary.BigEndian, int16(0))
			continue
		}
		if len(g) < 10 {
			return nil, fmt.Errorf("%w: glyph %d truncated", errGlyf, gid)
		}
		n := int16(binary.BigEndian.Uint16(g))
		binary.Write(&s.nContours, binary.BigEndian, n)
		var err error
		if n < 0 {
			bitmap[gid>>3] |= 0x80 >> (gid & 7)
			s.bboxes.Write(g[2:10])
			err = s.composite(g[10:])
		} else if n > 0 {
			err = s.simple(g[10:], int(n))
		}
		if err != nil {
			return nil, fmt.Errorf("glyph %d: %w", gid, err)
		}
	}
	out := &bytes.Buffer{}
	binary.Write(out, binary.BigEndian, []uint16{0, 0, uint16(numGlyphs), indexFormat})
	binary.Write(out, binary.BigEndian, []uint32{
		uint32(s.nContours.Len()),
		uint32(s.nPoints.Len()),
		uint32(s.flags.Len()),
		uint32(s.glyphs.Len()),
		uint32(s.composites.Len()),
		uint32(len(bitmap) + s.bboxes.Len()),
		uint32(s.instructions.Len()),
	})
	out.Write(s.nContours.Bytes())
	out.Write(s.nPoints.Bytes())
	out.Write(s.flags.Bytes())
	out.Write(s.glyphs.Bytes())
	out.Write(s.composites.Bytes())
	out.Write(bitmap)
	out.Write(s.bboxes.Bytes())
	out.Write(s.instructions.Bytes())
	return out.Bytes(), nil
}

// simple splits the description of a simple glyph (following the glyph
// header) into the streams.
func (s *glyfStreams) simple(data []byte, n int) error {
	if len(data) < 2*n+2 {
		return errGlyf
	}
	last := -1
	for c := 0; c < n; c++ {
		endPt := int(binary.BigEndian.Uint16(data[2*c:]))
		if endPt <= last {
			return fmt.Errorf("%w: contour end points not ascending", errGlyf)
		}
		u255(&s.nPoints, endPt-last)
		last = endPt
	}
	numPoints := last + 1
	p := 2 * n
	ilen := int(binary.BigEndian.Uint16(data[p:]))
	p += 2
	if p+ilen > len(data) {
		return errGlyf
	}
	instructions := data[p : p+ilen]
	p += ilen
	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints {
		if p >= len(data) {
			return errGlyf
		}
		f := data[p]
		p++
		flags = append(flags, f)
		if f&0x08 != 0 {
			if p >= len(data) {
				return errGlyf
			}
			for r := int(data[p]); r > 0; r-- {
				flags = append(flags, f)
			}
			p++
		}
	}
	if len(flags) > numPoints {
		return fmt.Errorf("%w: flag repeat exceeds point count", errGlyf)
	}
	coords := func(short, same byte) ([]int, error) {
		deltas := make([]int, numPoints)
		for i, f := range flags {
			switch {
			case f&short != 0:
				if p >= len(data) {
					return nil, errGlyf
				}
				deltas[i] = int(data[p])
				if f&same == 0 {
					deltas[i] = -deltas[i]
				}
				p++
			case f&same != 0:
				deltas[i] = 0
			default:
				if p+2 > len(data) {
					return nil, errGlyf
				}
				deltas[i] = int(int16(binary.BigEndian.Uint16(data[p:])))
				p += 2
			}
		}
		return deltas, nil
	}
	xs, err := coords(0x02, 0x10)
	if err != nil {
		return err
	}
	ys, err := coords(0x04, 0x20)
	if err != nil {
		return err
	}
	for i, f := range flags {
		s.triplet(f&0x01 != 0, xs[i], ys[i])
	}
	u255(&s.glyphs, ilen)
	s.instructions.Write(instructions)
	return nil
}

// composite copies the component records of a composite glyph to the
// composite stream.
func (s *glyfStreams) composite(data []byte) error {
	p, haveInstructions := 0, false
	for more := true; more; {
		if p+4 > len(data) {
			return errGlyf
		}
		flags := binary.BigEndian.Uint16(data[p:])
		p += 4
		if flags&0x0001 != 0 { // arguments are words
			p += 4
		} else {
			p += 2
		}
		switch {
		case flags&0x0008 != 0: // scale
			p += 2
		case flags&0x0040 != 0: // x and y scale
			p += 4
		case flags&0x0080 != 0: // 2 by 2
			p += 8
		}
		haveInstructions = haveInstructions || flags&0x0100 != 0
		more = flags&0x0020 != 0
	}
	if p > len(data) {
		return errGlyf
	}
	s.composites.Write(data[:p])
	if haveInstructions {
		if p+2 > len(data) {
			return errGlyf
		}
		ilen := int(binary.BigEndian.Uint16(data[p:]))
		if p+2+ilen > len(data) {
			return errGlyf
		}
		u255(&s.glyphs, ilen)
		s.instructions.Write(data[p+2 : p+2+ilen])
	}
	return nil
}

// triplet writes a point delta in the shortest triplet encoding.
func (s *glyfStreams) triplet(onCurve bool, dx, dy int) {
	var flag byte
	if !onCurve {
		flag = 128
	}
	absX, absY := abs(dx), abs(dy)
	var xSign, ySign byte
	if dx >= 0 {
		xSign = 1
	}
	if dy >= 0 {
		ySign = 1
	}
	xySigns := xSign + 2*ySign
	switch {
	case dx == 0 && absY < 1280:
		s.flags.WriteByte(flag + byte((absY&0xf00)>>7) + ySign)
		s.glyphs.WriteByte(byte(absY))
	case dy == 0 && absX < 1280:
		s.flags.WriteByte(flag + 10 + byte((absX&0xf00)>>7) + xSign)
		s.glyphs.WriteByte(byte(absX))
	case absX < 65 && absY < 65:
		s.flags.WriteByte(flag + 20 + byte((absX-1)&0x30) + byte(((absY-1)&0x30)>>2) + xySigns)
		s.glyphs.WriteByte(byte(((absX-1)&0xf)<<4 | (absY-1)&0xf))
	case absX < 769 && absY < 769:
		s.flags.WriteByte(flag + 84 + byte(12*(((absX-1)&0x300)>>8)) + byte(((absY-1)&0x300)>>6) + xySigns)
		s.glyphs.Write([]byte{byte(absX - 1), byte(absY - 1)})
	case absX < 4096 && absY < 4096:
		s.flags.WriteByte(flag + 120 + xySigns)
		s.glyphs.Write([]byte{byte(absX >> 4), byte((absX&0xf)<<4 | absY>>8), byte(absY)})
	default:
		s.flags.WriteByte(flag + 124 + xySigns)
		s.glyphs.Write([]byte{byte(absX >> 8), byte(absX), byte(absY >> 8), byte(absY)})
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
