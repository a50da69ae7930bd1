package fonttest

import (
	"bytes"
	"encoding/binary"
)

// EOT wraps an SFNT binary into an uncompressed EOT 1.0 container, as
// produced for Internet Explorer. If xor is set, the font data is obfuscated
// with key 0x50.
func EOT(sfnt []byte, xor bool) []byte {
	const headerSize = 96
	var flags uint32
	data := append([]byte(nil), sfnt...)
	if xor {
		flags |= 0x10000000
		for i := range data {
			data[i] ^= 0x50
		}
	}
	out := &bytes.Buffer{}
	le := func(v any) { binary.Write(out, binary.LittleEndian, v) }
	le([]uint32{uint32(headerSize + len(data)), uint32(len(data)), 0x00010000, flags})
	out.Write(make([]byte, 10)) // PANOSE
	out.Write([]byte{1, 0})     // charset, italic
	le(uint32(400))             // weight
	le([]uint16{0, 0x504c})     // fsType, magic
	out.Write(make([]byte, 24)) // Unicode and code page ranges
	le(uint32(0))               // checksum adjustment
	out.Write(make([]byte, 16)) // reserved
	le(make([]uint16, 8))       // padding and empty names
	out.Write(data)
	return out.Bytes()
}
