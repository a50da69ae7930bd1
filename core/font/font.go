package font

import (
	"fmt"

	"github.com/npillmayer/glyphocr/core"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// ScalableFont is a parsed font payload.
type ScalableFont struct {
	Fontname string
	Format   Format     // container format of the original payload
	Binary   []byte     // plain SFNT data
	SFNT     *sfnt.Font // the font's container, not safe for concurrent use
}

// TypeCase is a scalable font at a certain size.
type TypeCase struct {
	scalableFontParent *ScalableFont
	face               font.Face // Go uses 'face' and 'font' in an inverse manner
	size               float64
}

// ParseFontPayload parses a font payload in any of the supported container
// formats. Failures are reported as font parse errors (see core.EFONTPARSE).
// The payload itself is never modified.
func ParseFontPayload(payload []byte) (f *ScalableFont, err error) {
	bin, format, err := Unwrap(payload)
	if err != nil {
		return nil, core.FontParseError(err, "cannot unwrap font payload")
	}
	f = &ScalableFont{Binary: bin, Format: format}
	if f.SFNT, err = sfnt.Parse(f.Binary); err != nil {
		return nil, core.FontParseError(err, "cannot parse %s font", format)
	}
	f.Fontname, _ = f.SFNT.Name(nil, sfnt.NameIDFull)
	tracer().Debugf("parsed %s font %q with %d glyphs", format, f.Fontname, f.SFNT.NumGlyphs())
	return f, nil
}

// HasGlyph is a predicate: does the font map r to a glyph other than .notdef?
func (sf *ScalableFont) HasGlyph(r rune) bool {
	var buf sfnt.Buffer
	gid, err := sf.SFNT.GlyphIndex(&buf, r)
	return err == nil && gid != 0
}

// PrepareCase creates a typecase for a font size in pixels. Faces are created
// at 72 DPI, i.e. points and pixels coincide. Glyphs are rendered without hinting.
func (sf *ScalableFont) PrepareCase(fontsize float64) (*TypeCase, error) {
	if fontsize < 1.0 || fontsize > 2000.0 {
		return nil, core.Error(core.EINVALID, "font size must be 1 <= size <= 2000, is %g", fontsize)
	}
	options := &opentype.FaceOptions{
		Size:    fontsize,
		DPI:     72,
		Hinting: font.HintingNone,
	}
	f, err := opentype.NewFace(sf.SFNT, options)
	if err != nil {
		return nil, core.FontParseError(err, "cannot create face for %q at %g", sf.Fontname, fontsize)
	}
	return &TypeCase{
		scalableFontParent: sf,
		face:               f,
		size:               fontsize,
	}, nil
}

// Face returns the Go font face of a typecase.
func (tc *TypeCase) Face() font.Face {
	return tc.face
}

func (tc *TypeCase) ScalableFontParent() *ScalableFont {
	return tc.scalableFontParent
}

func (tc *TypeCase) PtSize() float64 {
	return tc.size
}

func (tc *TypeCase) String() string {
	return fmt.Sprintf("%s@%.1f", tc.scalableFontParent.Fontname, tc.size)
}
