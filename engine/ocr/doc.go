/*
Package ocr defines the contract for optical character recognition of single
glyph images.

A Classifier receives a PNG-encoded image showing exactly one glyph, and
returns its best guess for the character shown. An empty result means "not
recognized" and is not an error. Classifiers are long-lived: they are
created once per process and handed to every consumer which needs one.

Tesseract

Two classifiers wrapping Tesseract are provided. Type Tesseract runs the
tesseract command line tool for every image and has no build requirements.
Type Gosseract links against libtesseract and is available with build tag
"gosseract" only.

Tesseract must be installed on the system:

	Ubuntu/Debian: apt-get install tesseract-ocr
	macOS: brew install tesseract

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package ocr

import "github.com/npillmayer/schuko/tracing"

// tracer writes to trace with key 'glyphocr.ocr'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.ocr")
}
