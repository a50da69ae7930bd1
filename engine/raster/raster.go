/*
Package raster draws single glyphs of a font payload onto square canvases.

Every glyph is drawn black on white, centered by its ink bounding box. The
canvases are meant to be handed to an OCR engine, which expects a single
character in the middle of an image with a generous margin.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package raster

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"
	"unicode/utf8"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font"
	"github.com/npillmayer/schuko/tracing"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// tracer writes to trace with key 'glyphocr.fonts'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.fonts")
}

// Defaults for canvas geometry.
const (
	DefaultCanvasSize     = 128
	DefaultFontScale      = 0.7
	DefaultFallbackOffset = 10
)

// Rasterizer prepares painters for font payloads.
type Rasterizer struct {
	// FallbackOffset is the distance in pixels of the top of the ascent and of
	// the pen position from the canvas' top left corner, for glyphs without
	// ink. Zero means DefaultFallbackOffset.
	FallbackOffset int
}

// Prepare parses a font payload and creates a painter for canvases of
// canvasSize × canvasSize pixels. Glyphs will be drawn at a font size of
// int(fontScale × canvasSize) pixels.
//
// If the payload cannot be loaded as a scalable font, a font parse error is
// returned (see core.EFONTPARSE).
func (r Rasterizer) Prepare(payload []byte, canvasSize int, fontScale float64) (*Painter, error) {
	if canvasSize <= 0 {
		canvasSize = DefaultCanvasSize
	}
	if fontScale <= 0 {
		fontScale = DefaultFontScale
	}
	f, err := font.ParseFontPayload(payload)
	if err != nil {
		return nil, err
	}
	fontsize := float64(int(fontScale * float64(canvasSize)))
	tc, err := f.PrepareCase(fontsize)
	if err != nil {
		return nil, core.FontParseError(err, "cannot scale font to %g px", fontsize)
	}
	offset := r.FallbackOffset
	if offset <= 0 {
		offset = DefaultFallbackOffset
	}
	tracer().Debugf("prepared painter for %s on %d×%d canvas", tc, canvasSize, canvasSize)
	return &Painter{
		font:     f,
		typecase: tc,
		size:     canvasSize,
		fallback: offset,
	}, nil
}

// Painter draws glyphs of one font at one size. A Painter is not safe for
// concurrent use.
type Painter struct {
	font     *font.ScalableFont
	typecase *font.TypeCase
	size     int
	fallback int
}

// CanvasSize is the width and height of the canvases in pixels.
func (p *Painter) CanvasSize() int {
	return p.size
}

// Render draws the glyph for codepoint r. Codepoints which are invalid or
// which the font does not map to a glyph result in a render error (see
// core.ERENDER).
func (p *Painter) Render(r rune) (*image.Gray, error) {
	if r <= 0 || !utf8.ValidRune(r) {
		return nil, core.RenderError(nil, "invalid codepoint %#x", r)
	}
	if !p.font.HasGlyph(r) {
		return nil, core.RenderError(nil, "font has no glyph for U+%04X", r)
	}
	face := p.typecase.Face()
	img := image.NewGray(image.Rect(0, 0, p.size, p.size))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	s := string(r)
	d := xfont.Drawer{
		Dst:  img,
		Src:  image.Black,
		Face: face,
		Dot:  p.origin(face, s),
	}
	d.DrawString(s)
	return img, nil
}

// origin calculates the pen position (on the baseline) for a glyph string.
// The glyph's bounding box is centered on the canvas, taking into account that
// the box usually does not start at the pen position. Glyphs without ink are
// placed at a fixed offset from the top left corner.
func (p *Painter) origin(face xfont.Face, s string) fixed.Point26_6 {
	bounds, _ := xfont.BoundString(face, s)
	if bounds.Empty() {
		tracer().Debugf("glyph %q has no bounding box, using fallback offset", s)
		off := fixed.I(p.fallback)
		return fixed.Point26_6{X: off, Y: off + face.Metrics().Ascent}
	}
	size := fixed.I(p.size)
	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y
	return fixed.Point26_6{
		X: (size-w)/2 - bounds.Min.X,
		Y: (size-h)/2 - bounds.Min.Y,
	}
}

// EncodePNG encodes a canvas as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// InkBounds returns the bounding box of all non-white pixels of a canvas.
// For a blank canvas the result is empty.
func InkBounds(img *image.Gray) image.Rectangle {
	var ink image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.GrayAt(x, y).Y == 0xff {
				continue
			}
			ink = ink.Union(image.Rect(x, y, x+1, y+1))
		}
	}
	return ink
}
