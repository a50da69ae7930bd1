/*
Package charmap extracts the character map of a font payload.

A character map tells which glyph a font will draw for a Unicode codepoint.
Fonts usually carry more than one map (for different platforms and
encodings), of which we select the best Unicode one. For obfuscating web
fonts, the character map is the only honest part: it lists every codepoint
the font will draw a shape for, but the shapes are shuffled.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package charmap

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font"
	"github.com/npillmayer/schuko/tracing"
	xsfnt "golang.org/x/image/font/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/header"
)

// tracer writes to trace with key 'glyphocr.fonts'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.fonts")
}

// GlyphEntry is an entry of a font's character map.
type GlyphEntry struct {
	Code    rune   // Unicode codepoint
	GlyphID uint16 // index of the glyph within the font
	Name    string // glyph name, or "gid<N>" if the font does not name its glyphs
}

func (e GlyphEntry) String() string {
	return fmt.Sprintf("U+%04X→%s", e.Code, e.Name)
}

// maxScan limits the number of codepoints looked up for subtable formats which
// we cannot enumerate directly.
const maxScan = utf8.MaxRune + 1

// Reader extracts character maps from font payloads. The zero value is ready
// to use.
type Reader struct{}

// BestCharacterMap returns the entries of the best Unicode character map of a
// font payload. See package function BestCharacterMap.
func (Reader) BestCharacterMap(payload []byte) ([]GlyphEntry, error) {
	return BestCharacterMap(payload)
}

// BestCharacterMap returns the entries of the best Unicode character map of a
// font payload, sorted by codepoint. Subtables are preferred in the order
// full Unicode, Unicode BMP, Mac Roman. Codepoints mapped to .notdef are
// not entries.
//
// Payloads may be WOFF, WOFF2, TrueType or OpenType. If the payload cannot be
// parsed or does not contain a usable character map, a font parse error is
// returned (see core.EFONTPARSE).
func BestCharacterMap(payload []byte) ([]GlyphEntry, error) {
	bin, format, err := font.Unwrap(payload)
	if err != nil {
		return nil, core.FontParseError(err, "cannot unwrap font payload")
	}
	r := bytes.NewReader(bin)
	info, err := header.Read(r)
	if err != nil {
		return nil, core.FontParseError(err, "cannot read %s table directory", format)
	}
	data, err := info.ReadTableBytes(r, "cmap")
	if err != nil {
		return nil, core.FontParseError(err, "font has no character map")
	}
	table, err := cmap.Decode(data)
	if err != nil {
		return nil, core.FontParseError(err, "cannot decode character map")
	}
	subtable, err := table.GetBest()
	if err != nil {
		return nil, core.FontParseError(err, "font has no usable character map")
	}
	entries := collect(subtable)
	if len(entries) == 0 {
		tracer().Infof("character map of %s font is empty", format)
		return entries, nil
	}
	names, err := newNamer(bin)
	if err != nil {
		return nil, core.FontParseError(err, "cannot parse %s font", format)
	}
	for i := range entries {
		entries[i].Name = names.name(entries[i].GlyphID)
	}
	tracer().Debugf("character map of %s font has %d entries, U+%04X…U+%04X",
		format, len(entries), entries[0].Code, entries[len(entries)-1].Code)
	return entries, nil
}

// collect enumerates the codepoints of a subtable. Format 4 subtables are
// maps and may be iterated, for all other formats we look up every codepoint
// in the subtable's code range.
func collect(subtable cmap.Subtable) []GlyphEntry {
	var entries []GlyphEntry
	if f4, ok := subtable.(cmap.Format4); ok {
		entries = make([]GlyphEntry, 0, len(f4))
		for c, gid := range f4 {
			if gid != 0 {
				entries = append(entries, GlyphEntry{Code: rune(c), GlyphID: uint16(gid)})
			}
		}
	} else {
		low, high := subtable.CodeRange()
		if low < 0 {
			low = 0
		}
		if high >= maxScan {
			high = maxScan - 1
		}
		for c := low; c <= high; c++ {
			if gid := subtable.Lookup(c); gid != 0 {
				entries = append(entries, GlyphEntry{Code: c, GlyphID: uint16(gid)})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries
}

// namer looks up glyph names from a font's 'post' or 'CFF ' table.
type namer struct {
	f   *xsfnt.Font
	buf xsfnt.Buffer
}

func newNamer(bin []byte) (*namer, error) {
	f, err := xsfnt.Parse(bin)
	if err != nil {
		return nil, err
	}
	return &namer{f: f}, nil
}

func (n *namer) name(gid uint16) string {
	name, err := n.f.GlyphName(&n.buf, xsfnt.GlyphIndex(gid))
	if err != nil || name == "" {
		if err != nil && !errors.Is(err, xsfnt.ErrNotFound) {
			tracer().Debugf("glyph name of %d: %v", gid, err)
		}
		return fmt.Sprintf("gid%d", gid)
	}
	return name
}
