/*
Package resources resolves font payloads for an application.

Fonts may be given as a file path, as the name of a font installed on the
system, or as a family name known to fontconfig. As font lookup may be a
time-consuming task (walking the system's font directories, running fc-list),
resolving works in an async/await fashion by returning a promise.
Functions named

   Resolve…(…)

will return a resource-specific promise type, which the client will call later
to receive the loaded resource. The call to the promise-function will then block
until loading has completed.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package resources

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces to tracing key 'glyphocr.resources'.
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.resources")
}
