package mapping

import (
	"context"
	"fmt"
	"image"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font/charmap"
	"github.com/npillmayer/glyphocr/engine/ocr"
	"github.com/npillmayer/glyphocr/engine/raster"
)

// FontReader extracts the character map of a font payload.
// charmap.Reader is the default implementation.
type FontReader interface {
	BestCharacterMap(payload []byte) ([]charmap.GlyphEntry, error)
}

// GlyphRasterizer loads a font payload for drawing glyphs on square canvases.
type GlyphRasterizer interface {
	Prepare(payload []byte, canvasSize int, fontScale float64) (GlyphPainter, error)
}

// GlyphPainter draws the glyph of a single codepoint, black on white.
type GlyphPainter interface {
	Render(r rune) (*image.Gray, error)
}

// Builder creates substitution tables from font payloads. A Builder may be
// re-used for any number of payloads, but builds tables sequentially: it
// must not be used by more than one goroutine at a time. To build tables for
// different payloads concurrently, use one Builder per goroutine and share
// the classifier (see ocr.Serialize).
type Builder struct {
	classifier     ocr.Classifier
	reader         FontReader
	rasterizer     GlyphRasterizer
	canvasSize     int
	fontScale      float64
	fallbackOffset int
	debugDir       string
}

// NewBuilder creates a builder which recognizes glyphs with classifier.
func NewBuilder(classifier ocr.Classifier, opts ...Option) *Builder {
	b := &Builder{
		classifier:     classifier,
		reader:         charmap.Reader{},
		canvasSize:     raster.DefaultCanvasSize,
		fontScale:      raster.DefaultFontScale,
		fallbackOffset: raster.DefaultFallbackOffset,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildMapping creates a substitution table for a font payload.
// It is a shortcut for
//
//	NewBuilder(classifier, opts...).Build(ctx, payload)
func BuildMapping(ctx context.Context, payload []byte, classifier ocr.Classifier, opts ...Option) (*Table, error) {
	return NewBuilder(classifier, opts...).Build(ctx, payload)
}

// Build creates the substitution table for a font payload. Every codepoint
// of the font's best character map is rendered and classified exactly once,
// in ascending order. Codepoints which cannot be rendered, or which the
// classifier fails to recognize, do not get an entry.
//
// If the payload cannot be read as a font, Build returns a font parse error
// (see core.EFONTPARSE) and no table. If ctx is cancelled, Build stops
// between codepoints and returns the entries found so far together with
// ctx.Err().
func (b *Builder) Build(ctx context.Context, payload []byte) (*Table, error) {
	if b.classifier == nil {
		return nil, core.Error(core.EINVALID, "mapping builder has no classifier")
	}
	entries, err := b.reader.BestCharacterMap(payload)
	if err != nil {
		return nil, asFontParseError(err, "cannot read character map")
	}
	painter, err := b.glyphRasterizer().Prepare(payload, b.canvasSize, b.fontScale)
	if err != nil {
		return nil, asFontParseError(err, "cannot load font for rendering")
	}
	tracer().Infof("loading font with %d characters", len(entries))
	sink := openDebugSink(b.debugDir)
	defer sink.close()
	table := newTable()
	seen := make(map[rune]bool, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			tracer().Infof("mapping cancelled: %s", table.stats)
			return table, err
		}
		if e.Code == 0 || seen[e.Code] {
			table.stats.Skipped++
			continue
		}
		seen[e.Code] = true
		table.stats.Attempted++
		b.mapGlyph(ctx, painter, sink, table, e)
	}
	tracer().Infof("font loaded, %d mappings (%s)", table.Len(), table.stats)
	if sink != nil {
		tracer().Infof("debug images saved to %s", sink.dir)
	}
	return table, nil
}

func (b *Builder) mapGlyph(ctx context.Context, painter GlyphPainter, sink *debugSink,
	table *Table, e charmap.GlyphEntry) {
	//
	png, err := renderPNG(painter, e.Code)
	if err != nil {
		table.stats.RenderFailures++
		tracer().Errorf("skipping %#x (%s): %v", e.Code, e.Name, err)
		return
	}
	sink.submit(e.Code, png)
	text, err := b.classifier.Classify(ctx, png)
	if err != nil {
		table.stats.OCRFailures++
		if core.Code(err) != core.ECLASSIFY {
			err = core.ClassificationError(err, "OCR failed for %#x", e.Code)
		}
		tracer().Errorf("%v", err)
		return
	}
	if text == "" {
		table.stats.Unresolved++
		tracer().Debugf("%#x (%s) not recognized", e.Code, e.Name)
		return
	}
	if !table.put(e.Code, text) {
		return
	}
	table.stats.Mapped++
	if text != string(e.Code) {
		tracer().Infof("mapped %#x (%c) → %s", e.Code, e.Code, text)
	}
}

// renderPNG draws a glyph and encodes it as PNG. Panics of the painter are
// converted to render errors.
func renderPNG(painter GlyphPainter, r rune) (png []byte, err error) {
	defer func() {
		if x := recover(); x != nil {
			png, err = nil, core.RenderError(fmt.Errorf("%v", x), "rasterizer panicked for %#x", r)
		}
	}()
	img, err := painter.Render(r)
	if err != nil {
		if core.Code(err) != core.ERENDER {
			err = core.RenderError(err, "cannot render %#x", r)
		}
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, core.RenderError(nil, "empty canvas for %#x", r)
	}
	if png, err = raster.EncodePNG(img); err != nil {
		return nil, core.RenderError(err, "cannot encode canvas for %#x", r)
	}
	return png, nil
}

func asFontParseError(err error, msg string) error {
	if core.IsFontParseError(err) {
		return err
	}
	return core.FontParseError(err, msg)
}

func (b *Builder) glyphRasterizer() GlyphRasterizer {
	if b.rasterizer != nil {
		return b.rasterizer
	}
	return rasterAdapter{raster.Rasterizer{FallbackOffset: b.fallbackOffset}}
}

// rasterAdapter lets a raster.Rasterizer act as a GlyphRasterizer.
type rasterAdapter struct {
	r raster.Rasterizer
}

func (ra rasterAdapter) Prepare(payload []byte, canvasSize int, fontScale float64) (GlyphPainter, error) {
	p, err := ra.r.Prepare(payload, canvasSize, fontScale)
	if err != nil {
		return nil, err
	}
	return p, nil
}
