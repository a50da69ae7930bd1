/*
Package html finds fonts embedded into HTML pages.

Pages which obfuscate their text by glyph substitution ship the substituting
font along with the page, usually as a data URL in a CSS @font-face rule:

	<style>
	@font-face {
	    font-family: "secret";
	    src: url(data:font/woff2;base64,d09GMgABAAAAA...) format("woff2");
	}
	</style>

Package html parses a page which the caller already fetched, collects the
@font-face rules of all its <style> elements and decodes the payloads of
data URLs. Fonts referenced by ordinary URLs are reported, but not fetched.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package html

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// tracer writes to trace with key 'glyphocr.html'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.html")
}

// FontFace is a font source of a @font-face rule.
// Payload is set for data URLs only.
type FontFace struct {
	Family    string // unquoted font-family, may be empty
	Format    string // format hint or media type, e.g. "woff2"
	URL       string // the URL as found in the source, truncated for data URLs
	Payload   []byte
	Important bool
}

// IsEmbedded is true for sources which carry their font data inline.
func (ff FontFace) IsEmbedded() bool {
	return ff.Payload != nil
}

func (ff FontFace) String() string {
	if ff.IsEmbedded() {
		return fmt.Sprintf("@font-face(%q, %s, %d bytes)", ff.Family, ff.Format, len(ff.Payload))
	}
	return fmt.Sprintf("@font-face(%q, %s, %s)", ff.Family, ff.Format, ff.URL)
}

// Document is a parsed HTML page.
type Document struct {
	root *html.Node
}

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, core.WrapError(err, core.EINVALID, "cannot parse HTML input")
	}
	return &Document{root: root}, nil
}

var styleSelector = cascadia.MustCompile("style")

// FontFaces returns the font sources of all @font-face rules in the document's
// style elements, in document order. Style sheets which fail to parse are
// traced and skipped.
func (doc *Document) FontFaces() []FontFace {
	var faces []FontFace
	for i, style := range styleSelector.MatchAll(doc.root) {
		sheet, err := parser.Parse(nodeText(style))
		if err != nil {
			tracer().Errorf("style element #%d: %v", i, err)
			continue
		}
		faces = appendFontFaces(faces, sheet.Rules)
	}
	tracer().Debugf("found %d @font-face sources", len(faces))
	return faces
}

// FirstEmbeddedFont returns the payload of the first @font-face data URL.
// It returns an EMISSING error if the document does not embed any font.
func (doc *Document) FirstEmbeddedFont() (FontFace, error) {
	for _, ff := range doc.FontFaces() {
		if ff.IsEmbedded() {
			return ff, nil
		}
	}
	return FontFace{}, core.Error(core.EMISSING, "no embedded font in HTML document")
}

// Text returns the text content of the document's body, without scripts and
// style sheets. Block-level elements and line breaks start a new line.
func (doc *Document) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Head, atom.Noscript, atom.Template:
				return
			case atom.Br:
				b.WriteByte('\n')
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			b.WriteByte('\n')
		}
	}
	walk(doc.root)
	return collapseLines(b.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.H1, atom.H2, atom.H3,
		atom.H4, atom.H5, atom.H6, atom.Pre, atom.Blockquote, atom.Section,
		atom.Article, atom.Table, atom.Ul, atom.Ol, atom.Dd, atom.Dt:
		return true
	}
	return false
}

// collapseLines trims every line and drops empty ones.
func collapseLines(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.Join(strings.Fields(l), " "); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// --- CSS -------------------------------------------------------------------

func appendFontFaces(faces []FontFace, rules []*css.Rule) []FontFace {
	for _, rule := range rules {
		if rule.Kind != css.AtRule {
			continue
		}
		if rule.EmbedsRules() { // @media, @supports
			faces = appendFontFaces(faces, rule.Rules)
			continue
		}
		if strings.ToLower(rule.Name) != "@font-face" {
			continue
		}
		var family string
		var srcs []*css.Declaration
		for _, decl := range rule.Declarations {
			switch strings.ToLower(decl.Property) {
			case "font-family":
				family = unquote(decl.Value)
			case "src":
				srcs = append(srcs, decl)
			}
		}
		for _, decl := range srcs {
			for _, src := range splitSources(decl.Value) {
				ff, err := fontSource(src)
				if errors.Is(err, errNoURL) {
					tracer().Debugf("@font-face %q: skipping %s", family, src)
					continue
				} else if err != nil {
					tracer().Errorf("@font-face %q: %v", family, err)
					continue
				}
				ff.Family = family
				ff.Important = decl.Important
				faces = append(faces, ff)
			}
		}
	}
	return faces
}

// splitSources splits the value of a src descriptor at top-level commas.
// Commas inside url(…) and format(…) do not count.
func splitSources(value string) []string {
	var srcs []string
	depth, start := 0, 0
	var quote rune
	for i, c := range value {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case c == ',' && depth == 0:
			srcs = append(srcs, strings.TrimSpace(value[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(value[start:]); last != "" {
		srcs = append(srcs, last)
	}
	return srcs
}

var errNoURL = errors.New("source is not a url()")

// fontSource interprets one entry of a src descriptor, e.g.
// `url("a.woff2") format("woff2")`. local() sources are not fonts we can use.
func fontSource(src string) (FontFace, error) {
	ref, rest, ok := function(src, "url")
	if !ok {
		return FontFace{}, errNoURL
	}
	ff := FontFace{URL: ref}
	if hint, _, ok := function(strings.TrimSpace(rest), "format"); ok {
		ff.Format = strings.ToLower(hint)
	}
	if !strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ff, nil
	}
	mediatype, payload, err := decodeDataURL(ref)
	if err != nil {
		return FontFace{}, err
	}
	if ff.Format == "" {
		ff.Format = mediatype
	}
	ff.Payload = payload
	if len(ff.URL) > 40 {
		ff.URL = ff.URL[:40] + "…"
	}
	return ff, nil
}

// function matches a CSS functional notation name(arg) at the start of s and
// returns the unquoted argument and the remainder of s. A quoted argument may
// contain parentheses.
func function(s, name string) (arg, rest string, ok bool) {
	if len(s) < len(name)+2 || !strings.EqualFold(s[:len(name)+1], name+"(") {
		return "", s, false
	}
	inner := s[len(name)+1:]
	from := 0
	if q := strings.TrimLeft(inner, " \t\n\r\f"); q != "" && (q[0] == '"' || q[0] == '\'') {
		quote := len(inner) - len(q)
		n := strings.IndexByte(inner[quote+1:], q[0])
		if n < 0 {
			return "", s, false
		}
		from = quote + n + 2
	}
	end := strings.IndexByte(inner[from:], ')')
	if end < 0 {
		return "", s, false
	}
	end += from
	return unquote(inner[:end]), inner[end+1:], true
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// decodeDataURL decodes a data URL of form
//
//	data:[<mediatype>][;base64],<data>
//
// Whitespace within base64 data is ignored, padding is optional.
func decodeDataURL(ref string) (mediatype string, payload []byte, err error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return "", nil, core.Error(core.EINVALID, "data URL without data")
	}
	header, data := ref[len("data:"):comma], ref[comma+1:]
	params := strings.Split(header, ";")
	mediatype = strings.ToLower(strings.TrimSpace(params[0]))
	isBase64 := strings.EqualFold(strings.TrimSpace(params[len(params)-1]), "base64")
	if !isBase64 {
		s, err := url.PathUnescape(data)
		if err != nil {
			return "", nil, core.WrapError(err, core.EINVALID, "malformed data URL")
		}
		return mediatype, []byte(s), nil
	}
	data = strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' {
			return -1
		}
		return r
	}, data)
	data = strings.TrimRight(data, "=")
	payload, err = base64.RawStdEncoding.DecodeString(data)
	if err != nil {
		return "", nil, core.WrapError(err, core.EINVALID, "malformed base64 in data URL")
	}
	return mediatype, payload, nil
}
