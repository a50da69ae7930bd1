package mapping

import (
	"strconv"

	"github.com/npillmayer/schuko"
)

// Option configures a Builder.
type Option func(*Builder)

// WithCanvasSize sets the width and height of glyph images in pixels.
// The default is 128.
func WithCanvasSize(pixels int) Option {
	return func(b *Builder) {
		if pixels > 0 {
			b.canvasSize = pixels
		}
	}
}

// WithFontScale sets the font size relative to the canvas size.
// The default is 0.7.
func WithFontScale(scale float64) Option {
	return func(b *Builder) {
		if scale > 0 {
			b.fontScale = scale
		}
	}
}

// WithFallbackOffset sets the offset from the top left corner in pixels, at
// which glyphs without a bounding box are drawn. The default is 10.
func WithFallbackOffset(pixels int) Option {
	return func(b *Builder) {
		if pixels > 0 {
			b.fallbackOffset = pixels
		}
	}
}

// WithDebugDir makes the builder save every glyph image as a PNG file in
// directory dir, which is created if necessary. Files are named after the
// hexadecimal codepoint, e.g. "0xe001.png". An empty dir switches debug
// images off.
func WithDebugDir(dir string) Option {
	return func(b *Builder) {
		b.debugDir = dir
	}
}

// WithFontReader replaces the extraction of character maps.
func WithFontReader(r FontReader) Option {
	return func(b *Builder) {
		if r != nil {
			b.reader = r
		}
	}
}

// WithRasterizer replaces the rendering of glyphs. A custom rasterizer makes
// WithFallbackOffset ineffective.
func WithRasterizer(r GlyphRasterizer) Option {
	return func(b *Builder) {
		if r != nil {
			b.rasterizer = r
		}
	}
}

// Configuration keys read by OptionsFromConfig.
const (
	ConfCanvasSize     = "glyphocr.canvas-size"
	ConfFontScale      = "glyphocr.font-scale"
	ConfFallbackOffset = "glyphocr.fallback-offset"
	ConfDebugDir       = "glyphocr.debug-dir"
)

// DefaultDebugDir is the conventional location for debug images, relative to
// the working directory.
const DefaultDebugDir = "logs/debug_fonts"

// OptionsFromConfig creates builder options from an application configuration.
// Keys which are not set leave the defaults untouched, malformed values are
// traced and ignored.
func OptionsFromConfig(conf schuko.Configuration) []Option {
	var opts []Option
	if conf == nil {
		return opts
	}
	if n, ok := confInt(conf, ConfCanvasSize); ok {
		opts = append(opts, WithCanvasSize(n))
	}
	if s := conf.GetString(ConfFontScale); conf.IsSet(ConfFontScale) && s != "" {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
			opts = append(opts, WithFontScale(f))
		} else {
			tracer().Errorf("ignoring invalid %s = %q", ConfFontScale, s)
		}
	}
	if n, ok := confInt(conf, ConfFallbackOffset); ok {
		opts = append(opts, WithFallbackOffset(n))
	}
	if dir := conf.GetString(ConfDebugDir); conf.IsSet(ConfDebugDir) && dir != "" {
		opts = append(opts, WithDebugDir(dir))
	}
	return opts
}

func confInt(conf schuko.Configuration, key string) (int, bool) {
	if !conf.IsSet(key) {
		return 0, false
	}
	s := conf.GetString(key)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		tracer().Errorf("ignoring invalid %s = %q", key, s)
		return 0, false
	}
	return n, true
}
