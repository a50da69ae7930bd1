/*
Package mapping learns the substitution table of an obfuscating font.

Web sites sometimes protect their text by serving a custom font with a
shuffled character map: the glyph drawn for codepoint X is the shape of a
different character Y. Copying the text yields X, while readers see Y.

A Builder reverses the shuffling for one font payload. It draws the glyph for
every codepoint of the font's character map, lets an OCR engine recognize the
character shown, and records codepoint → recognized text in a Table. A Table
is then used to rewrite obfuscated text (see package rewrite).

	table, err := mapping.BuildMapping(ctx, payload, classifier)
	if err != nil {
		return err // font payload unusable
	}
	fmt.Println(rewrite.Decode(text, table))

Failures for single glyphs are traced and skipped. Build fails only if the
font payload cannot be used at all.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package mapping

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'glyphocr.mapping'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.mapping")
}
