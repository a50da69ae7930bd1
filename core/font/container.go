package font

import (
	"encoding/binary"
	"errors"
	"fmt"

	tdfont "github.com/tdewolff/font"
)

// Format is the container format of a font payload.
type Format int

// Container formats we know about. Web fonts are usually served as WOFF or WOFF2,
// which wrap the tables of a plain SFNT font (TrueType or OpenType/CFF). EOT is
// found on pages targeting old versions of Internet Explorer.
const (
	FormatUnknown Format = iota
	FormatTrueType
	FormatOpenType
	FormatWOFF
	FormatWOFF2
	FormatEOT
	FormatCollection
)

func (f Format) String() string {
	switch f {
	case FormatTrueType:
		return "TrueType"
	case FormatOpenType:
		return "OpenType (CFF)"
	case FormatWOFF:
		return "WOFF"
	case FormatWOFF2:
		return "WOFF2"
	case FormatEOT:
		return "EOT"
	case FormatCollection:
		return "font collection"
	}
	return "<unknown>"
}

// Scaler types and container signatures, as found in the first 4 bytes of a payload.
const (
	scalerTrueType = 0x00010000
	scalerOTTO     = 0x4f54544f // 'OTTO'
	scalerTrue     = 0x74727565 // 'true', Mac legacy
	sigWOFF        = 0x774f4646 // 'wOFF'
	sigWOFF2       = 0x774f4632 // 'wOF2'
	sigCollection  = 0x74746366 // 'ttcf'
	eotMagic       = 0x504c     // little endian, at offset 34 of the EOT header
)

// DetectFormat sniffs the container format of a font payload.
func DetectFormat(payload []byte) Format {
	if len(payload) < 4 {
		return FormatUnknown
	}
	switch binary.BigEndian.Uint32(payload) {
	case scalerTrueType, scalerTrue:
		return FormatTrueType
	case scalerOTTO:
		return FormatOpenType
	case sigWOFF:
		return FormatWOFF
	case sigWOFF2:
		return FormatWOFF2
	case sigCollection:
		return FormatCollection
	}
	if len(payload) >= 36 && binary.LittleEndian.Uint16(payload[34:]) == eotMagic {
		return FormatEOT
	}
	return FormatUnknown
}

var errFontFormat = errors.New("unsupported or malformed font payload")

// Unwrap returns the plain SFNT binary for a font payload. TrueType and OpenType
// payloads are returned as-is, WOFF, WOFF2 and EOT payloads are decoded into an
// SFNT binary. Font collections are not supported.
//
// The payload itself is never modified.
func Unwrap(payload []byte) ([]byte, Format, error) {
	format := DetectFormat(payload)
	var sfnt []byte
	var err error
	switch format {
	case FormatTrueType, FormatOpenType:
		sfnt = payload
	case FormatWOFF, FormatWOFF2:
		sfnt, err = tdfont.ToSFNT(payload)
	case FormatEOT:
		// XOR-obfuscated EOT font data is decoded in place
		sfnt, err = tdfont.ToSFNT(append([]byte(nil), payload...))
	case FormatCollection:
		err = fmt.Errorf("%w: font collections are not supported", errFontFormat)
	default:
		err = errFontFormat
	}
	if err != nil {
		if !errors.Is(err, errFontFormat) {
			err = fmt.Errorf("%w: %s: %v", errFontFormat, format, err)
		}
		return nil, format, err
	}
	tracer().Debugf("unwrapped %s payload of %d bytes to %d bytes", format, len(payload), len(sfnt))
	return sfnt, format, nil
}
