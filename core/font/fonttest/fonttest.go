/*
Package fonttest creates font payloads for tests.

Substitution fonts are derived from Go Regular: the character map of the
derived font maps arbitrary codepoints (usually from a Private Use Area) to
the outlines Go Regular uses for other characters. This is what obfuscating
web fonts do as well.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package fonttest

import (
	"bytes"
	"fmt"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
	"seehuhn.de/go/sfnt"
	"seehuhn.de/go/sfnt/cmap"
	"seehuhn.de/go/sfnt/glyf"
	"seehuhn.de/go/sfnt/glyph"
)

// Substitution creates a TrueType payload whose character map contains exactly
// the entries of subst. Each codepoint c is mapped to the glyph Go Regular uses
// for subst[c]. Codepoints must be from the BMP.
//
// Mapping a codepoint to ' ' yields a glyph without outline.
func Substitution(subst map[rune]rune) ([]byte, error) {
	return substitution(subst, false)
}

// CompositeSubstitution is like Substitution, but maps each codepoint c to a
// new composite glyph. The composite has a single component, the glyph Go
// Regular uses for subst[c]. Codepoints mapped to ' ' keep the empty glyph.
func CompositeSubstitution(subst map[rune]rune) ([]byte, error) {
	return substitution(subst, true)
}

func substitution(subst map[rune]rune, composite bool) ([]byte, error) {
	base, err := sfnt.Read(bytes.NewReader(goregular.TTF))
	if err != nil {
		return nil, err
	}
	orig, err := base.CMapTable.GetBest()
	if err != nil {
		return nil, err
	}
	outlines, ok := base.Outlines.(*glyf.Outlines)
	if !ok {
		return nil, fmt.Errorf("Go Regular has no glyf outlines")
	}
	enc := cmap.Format4{}
	for c, target := range subst {
		if c < 0 || c > 0xffff {
			return nil, fmt.Errorf("codepoint %#x outside of BMP", c)
		}
		gid := orig.Lookup(target)
		if gid == 0 && target != 0 {
			return nil, fmt.Errorf("Go Regular has no glyph for %q", target)
		}
		if composite && outlines.Glyphs[gid] != nil {
			gid = addComposite(outlines, gid)
		}
		enc[uint16(c)] = gid
	}
	base.CMapTable = cmap.Table{
		{PlatformID: 3, EncodingID: 1}: enc.Encode(0),
	}
	buf := &bytes.Buffer{}
	if _, err = base.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// addComposite appends a composite glyph referencing component at offset
// (0,0) and returns its glyph ID.
func addComposite(outlines *glyf.Outlines, component glyph.ID) glyph.ID {
	gid := glyph.ID(len(outlines.Glyphs))
	outlines.Glyphs = append(outlines.Glyphs, &glyf.Glyph{
		Rect16: outlines.Glyphs[component].Rect16,
		Data: glyf.CompositeGlyph{
			Components: []glyf.GlyphComponent{{
				Flags:      glyf.FlagArgsAreXYValues | glyf.FlagUseMyMetrics,
				GlyphIndex: component,
				Data:       []byte{0, 0},
			}},
		},
	})
	outlines.Widths = append(outlines.Widths, outlines.Widths[component])
	if len(outlines.Names) == int(gid) {
		outlines.Names = append(outlines.Names, fmt.Sprintf("%s.alt%d", outlines.Names[component], gid))
	}
	if outlines.Maxp != nil {
		outlines.Maxp.MaxComponentElements = max(outlines.Maxp.MaxComponentElements, 1)
		outlines.Maxp.MaxComponentDepth = max(outlines.Maxp.MaxComponentDepth, 1)
	}
	return gid
}

// MustSubstitution is like Substitution, but fails the test on error.
func MustSubstitution(t testing.TB, subst map[rune]rune) []byte {
	t.Helper()
	payload, err := Substitution(subst)
	if err != nil {
		t.Fatalf("cannot create substitution font: %v", err)
	}
	return payload
}

// MustCompositeSubstitution is like CompositeSubstitution, but fails the test
// on error.
func MustCompositeSubstitution(t testing.TB, subst map[rune]rune) []byte {
	t.Helper()
	payload, err := CompositeSubstitution(subst)
	if err != nil {
		t.Fatalf("cannot create substitution font: %v", err)
	}
	return payload
}

// GlyphOf returns the glyph ID of r in Go Regular.
func GlyphOf(r rune) (glyph.ID, error) {
	base, err := sfnt.Read(bytes.NewReader(goregular.TTF))
	if err != nil {
		return 0, err
	}
	orig, err := base.CMapTable.GetBest()
	if err != nil {
		return 0, err
	}
	return orig.Lookup(r), nil
}

// Corrupt returns a copy of payload with its table directory overwritten,
// such that no parser will accept it.
func Corrupt(payload []byte) []byte {
	c := make([]byte, len(payload))
	copy(c, payload)
	for i := 4; i < len(c) && i < 64; i++ {
		c[i] = 0xff
	}
	return c
}
