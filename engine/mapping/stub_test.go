package mapping

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/npillmayer/glyphocr/engine/raster"
	"golang.org/x/image/font/gofont/goregular"
)

// referenceOCR recognizes glyphs by comparing them to reference renderings of
// Go Regular glyphs. Images which do not resemble any reference are not
// recognized.
type referenceOCR struct {
	mu     sync.Mutex
	refs   map[string]*image.Gray
	calls  int
	failOn map[int]bool // fail the n-th call (1-based)
}

func newReferenceOCR(t *testing.T, candidates string) *referenceOCR {
	t.Helper()
	p, err := raster.Rasterizer{}.Prepare(goregular.TTF, raster.DefaultCanvasSize, raster.DefaultFontScale)
	if err != nil {
		t.Fatal(err)
	}
	ocr := &referenceOCR{refs: make(map[string]*image.Gray)}
	for _, r := range candidates {
		img, err := p.Render(r)
		if err != nil {
			t.Fatal(err)
		}
		ocr.refs[string(r)] = img
	}
	return ocr
}

func (ocr *referenceOCR) Classify(ctx context.Context, b []byte) (string, error) {
	ocr.mu.Lock()
	ocr.calls++
	n := ocr.calls
	ocr.mu.Unlock()
	if ocr.failOn[n] {
		return "", errOCR
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	gray, ok := img.(*image.Gray)
	if !ok || raster.InkBounds(gray).Empty() {
		return "", nil
	}
	best, bestDiff := "", -1
	for text, ref := range ocr.refs {
		d := difference(gray, ref)
		if bestDiff < 0 || d < bestDiff {
			best, bestDiff = text, d
		}
	}
	// mean difference per pixel must be small
	if bestDiff > 2*len(gray.Pix) {
		return "", nil
	}
	return best, nil
}

func (ocr *referenceOCR) Calls() int {
	ocr.mu.Lock()
	defer ocr.mu.Unlock()
	return ocr.calls
}

func difference(a, b *image.Gray) int {
	if !a.Bounds().Eq(b.Bounds()) {
		return int(^uint(0) >> 1)
	}
	d := 0
	for i := range a.Pix {
		x := int(a.Pix[i]) - int(b.Pix[i])
		if x < 0 {
			x = -x
		}
		d += x
	}
	return d
}

type ocrError string

func (e ocrError) Error() string { return string(e) }

const errOCR = ocrError("OCR engine crashed")

// countingRasterizer wraps the default rasterizer and records render calls.
type countingRasterizer struct {
	mu      sync.Mutex
	renders map[rune]int
	fail    map[rune]bool
	panicOn map[rune]bool
}

func (cr *countingRasterizer) Prepare(payload []byte, size int, scale float64) (GlyphPainter, error) {
	p, err := raster.Rasterizer{}.Prepare(payload, size, scale)
	if err != nil {
		return nil, err
	}
	if cr.renders == nil {
		cr.renders = make(map[rune]int)
	}
	return countingPainter{cr: cr, p: p}, nil
}

type countingPainter struct {
	cr *countingRasterizer
	p  *raster.Painter
}

func (cp countingPainter) Render(r rune) (*image.Gray, error) {
	cp.cr.mu.Lock()
	cp.cr.renders[r]++
	cp.cr.mu.Unlock()
	if cp.cr.panicOn[r] {
		panic("rasterizer exploded")
	}
	if cp.cr.fail[r] {
		return nil, ocrError("degenerate glyph")
	}
	return cp.p.Render(r)
}
