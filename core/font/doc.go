/*
Package font is for font payload and font handling.

We will stick to the following definitions:

* A "font payload" is the binary of a font as delivered by a web server,
i.e. a WOFF, WOFF2, TrueType or OpenType file.

* A "scalable font" is a parsed font, independent of a size.

* A "typecase" is a scaled font, i.e. a font in a certain size, ready for
drawing glyphs. The name is reminiscent of the wooden boxes of typesetters
in the era of metal type.

Please note that Go (Golang) does use the terms "font" and "face"
differently, actually more or less in an opposite manner.

Web fonts are wrapped in containers (WOFF and WOFF2) which golang.org/x/image
cannot read. Unwrap will convert these to plain SFNT binaries.

Useful references:

https://docs.microsoft.com/en-us/typography/opentype/

https://www.w3.org/TR/WOFF2/

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package font

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'glyphocr.fonts'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.fonts")
}
