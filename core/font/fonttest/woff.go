package fonttest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"

	"github.com/andybalholm/brotli"
)

var errGlyf = errors.New("malformed glyf table")

type sfntTable struct {
	tag      string
	checksum uint32
	data     []byte
}

func sfntTables(sfnt []byte) (uint32, []sfntTable, error) {
	if len(sfnt) < 12 {
		return 0, nil, errors.New("SFNT header truncated")
	}
	flavor := binary.BigEndian.Uint32(sfnt)
	n := int(binary.BigEndian.Uint16(sfnt[4:]))
	if 12+16*n > len(sfnt) {
		return 0, nil, errors.New("SFNT table directory truncated")
	}
	tables := make([]sfntTable, n)
	for i := range tables {
		rec := sfnt[12+16*i:]
		offset := binary.BigEndian.Uint32(rec[8:])
		length := binary.BigEndian.Uint32(rec[12:])
		if uint64(offset)+uint64(length) > uint64(len(sfnt)) {
			return 0, nil, errors.New("SFNT table out of bounds")
		}
		tables[i] = sfntTable{
			tag:      string(rec[0:4]),
			checksum: binary.BigEndian.Uint32(rec[4:]),
			data:     sfnt[offset : offset+length],
		}
	}
	return flavor, tables, nil
}

// WOFF wraps an SFNT binary into a WOFF 1.0 container. Tables are
// zlib-compressed if this saves space.
func WOFF(sfnt []byte) ([]byte, error) {
	flavor, tables, err := sfntTables(sfnt)
	if err != nil {
		return nil, err
	}
	const headerSize, entrySize = 44, 20
	dir := &bytes.Buffer{}
	body := &bytes.Buffer{}
	offset := headerSize + entrySize*len(tables)
	for _, t := range tables {
		stored := t.data
		z := &bytes.Buffer{}
		zw := zlib.NewWriter(z)
		zw.Write(t.data)
		zw.Close()
		if z.Len() < len(t.data) {
			stored = z.Bytes()
		}
		dir.WriteString(t.tag)
		binary.Write(dir, binary.BigEndian, []uint32{
			uint32(offset + body.Len()), uint32(len(stored)), uint32(len(t.data)), t.checksum,
		})
		body.Write(stored)
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
	}
	out := &bytes.Buffer{}
	binary.Write(out, binary.BigEndian, []uint32{0x774f4646, flavor, uint32(offset + body.Len())})
	binary.Write(out, binary.BigEndian, []uint16{uint16(len(tables)), 0})
	binary.Write(out, binary.BigEndian, uint32(len(sfnt)))
	binary.Write(out, binary.BigEndian, []uint16{1, 0})
	binary.Write(out, binary.BigEndian, make([]uint32, 5))
	out.Write(dir.Bytes())
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// WOFF2 wraps an SFNT binary into a WOFF 2.0 container. All tables are stored
// with the null transform.
func WOFF2(sfnt []byte) ([]byte, error) {
	return woff2(sfnt, false)
}

// WOFF2Transformed wraps an SFNT binary into a WOFF 2.0 container, with tables
// glyf and loca stored in transformed form. This is what font tools produce
// by default.
func WOFF2Transformed(sfnt []byte) ([]byte, error) {
	return woff2(sfnt, true)
}

// Indices of glyf and loca in the WOFF2 table of known tags.
const (
	knownTagGlyf = 10
	knownTagLoca = 11
)

func woff2(sfnt []byte, transform bool) ([]byte, error) {
	flavor, tables, err := sfntTables(sfnt)
	if err != nil {
		return nil, err
	}
	tables = locaAfterGlyf(tables)
	var glyf []byte
	if transform {
		if glyf, err = transformGlyf(tables); err != nil {
			return nil, err
		}
	}
	dir := &bytes.Buffer{}
	raw := &bytes.Buffer{}
	for _, t := range tables {
		switch {
		case transform && t.tag == "glyf":
			dir.WriteByte(knownTagGlyf) // transform version 0
			dir.Write(base128(uint32(len(t.data))))
			dir.Write(base128(uint32(len(glyf))))
			raw.Write(glyf)
		case transform && t.tag == "loca":
			dir.WriteByte(knownTagLoca)
			dir.Write(base128(uint32(len(t.data))))
			dir.Write(base128(0)) // loca is re-created from glyf
		default:
			var flags byte = 0x3f
			if t.tag == "glyf" || t.tag == "loca" {
				flags |= 3 << 6 // null transform
			}
			dir.WriteByte(flags)
			dir.WriteString(t.tag)
			dir.Write(base128(uint32(len(t.data))))
			raw.Write(t.data)
		}
	}
	compressed := &bytes.Buffer{}
	bw := brotli.NewWriter(compressed)
	if _, err := bw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := bw.Close(); err != nil {
		return nil, err
	}
	const headerSize = 48
	length := headerSize + dir.Len() + compressed.Len()
	out := &bytes.Buffer{}
	binary.Write(out, binary.BigEndian, []uint32{0x774f4632, flavor, uint32(length)})
	binary.Write(out, binary.BigEndian, []uint16{uint16(len(tables)), 0})
	binary.Write(out, binary.BigEndian, []uint32{uint32(len(sfnt)), uint32(compressed.Len())})
	binary.Write(out, binary.BigEndian, []uint16{1, 0})
	binary.Write(out, binary.BigEndian, make([]uint32, 5))
	out.Write(dir.Bytes())
	out.Write(compressed.Bytes())
	return out.Bytes(), nil
}

// locaAfterGlyf moves table loca directly behind table glyf.
func locaAfterGlyf(tables []sfntTable) []sfntTable {
	var loca *sfntTable
	for i := range tables {
		if tables[i].tag == "loca" {
			loca = &tables[i]
		}
	}
	if loca == nil {
		return tables
	}
	sorted := make([]sfntTable, 0, len(tables))
	for _, t := range tables {
		if t.tag == "loca" {
			continue
		}
		sorted = append(sorted, t)
		if t.tag == "glyf" {
			sorted = append(sorted, *loca)
		}
	}
	return sorted
}

func base128(v uint32) []byte {
	var b []byte
	for {
		b = append([]byte{byte(v & 0x7f)}, b...)
		v >>= 7
		if v == 0 {
			break
		}
	}
	for i := 0; i < len(b)-1; i++ {
		b[i] |= 0x80
	}
	return b
}

// u255 appends v in WOFF2's 255UInt16 encoding.
func u255(b *bytes.Buffer, v int) {
	switch {
	case v < 253:
		b.WriteByte(byte(v))
	case v < 506:
		b.Write([]byte{255, byte(v - 253)})
	case v < 762:
		b.Write([]byte{254, byte(v - 506)})
	default:
		b.Write([]byte{253, byte(v >> 8), byte(v)})
	}
}
