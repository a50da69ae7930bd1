package html

import (
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font"
	"github.com/npillmayer/glyphocr/core/font/fonttest"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<!DOCTYPE html>
<html><head>
<style>
body { font-family: "secret", serif; }
@font-face {
  font-family: "secret";
  src: local("Secret Sans"), url(data:font/woff2;base64,%s) format("woff2"),
       url("/fonts/secret.woff") format("woff");
}
</style>
<script>var x = "not text";</script>
</head>
<body>
<h1>Title</h1>
<p>First <b>para</b>graph.</p>
<div>Second<br>line</div>
</body></html>`

func embeddingPage(t *testing.T) (string, []byte) {
	sfnt := fonttest.MustSubstitution(t, map[rune]rune{0xe001: 'A'})
	woff2, err := fonttest.WOFF2(sfnt)
	require.NoError(t, err)
	return fmt.Sprintf(page, base64.StdEncoding.EncodeToString(woff2)), woff2
}

func TestFontFaces(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.html")
	defer teardown()
	//
	src, woff2 := embeddingPage(t)
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	faces := doc.FontFaces()
	require.Len(t, faces, 2, "local() source is not a font face")
	assert.Equal(t, "secret", faces[0].Family)
	assert.Equal(t, "woff2", faces[0].Format)
	assert.True(t, faces[0].IsEmbedded())
	assert.Equal(t, woff2, faces[0].Payload)
	assert.Equal(t, font.FormatWOFF2, font.DetectFormat(faces[0].Payload))
	assert.False(t, faces[1].IsEmbedded())
	assert.Equal(t, "/fonts/secret.woff", faces[1].URL)
	assert.Equal(t, "woff", faces[1].Format)
	//
	ff, err := doc.FirstEmbeddedFont()
	require.NoError(t, err)
	assert.Equal(t, woff2, ff.Payload)
	t.Logf("embedded font = %s", ff)
}

func TestFontFaceInMediaRule(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.html")
	defer teardown()
	//
	src := `<style>@media screen { @font-face { font-family: m; src: url('data:font/ttf;base64,AAEAAA'); } }</style>`
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	faces := doc.FontFaces()
	require.Len(t, faces, 1)
	assert.Equal(t, "m", faces[0].Family)
	assert.Equal(t, "font/ttf", faces[0].Format, "media type is used without format hint")
	assert.Equal(t, []byte{0, 1, 0, 0}, faces[0].Payload)
}

func TestNoEmbeddedFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.html")
	defer teardown()
	//
	doc, err := Parse(strings.NewReader(`<html><body><p>plain</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, doc.FontFaces())
	_, err = doc.FirstEmbeddedFont()
	assert.Equal(t, core.EMISSING, core.Code(err))
}

func TestMalformedDataURLIsSkipped(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.html")
	defer teardown()
	//
	src := `<style>@font-face { font-family: x; src: url(data:font/woff2;base64,@@@@), url(data:font/woff;base64,d09GRg==); }</style>`
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	faces := doc.FontFaces()
	require.Len(t, faces, 1)
	assert.Equal(t, []byte("wOFF"), faces[0].Payload)
}

func TestText(t *testing.T) {
	src, _ := embeddingPage(t)
	doc, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Title\nFirst paragraph.\nSecond\nline", doc.Text())
}

func TestSplitSources(t *testing.T) {
	srcs := splitSources(`url("a,b.woff") format("woff"), local(x) ,url(c)`)
	assert.Equal(t, []string{`url("a,b.woff") format("woff")`, `local(x)`, `url(c)`}, srcs)
	assert.Empty(t, splitSources("  "))
}

func TestFontSourceWithParenInURL(t *testing.T) {
	for _, c := range []struct {
		src, url, format string
	}{
		{`url("a).woff") format("woff")`, "a).woff", "woff"},
		{`url( 'fonts/b(1).woff2' ) format('woff2')`, "fonts/b(1).woff2", "woff2"},
		{`url(c.ttf) format("truetype")`, "c.ttf", "truetype"},
	} {
		ff, err := fontSource(c.src)
		require.NoError(t, err, c.src)
		assert.Equal(t, c.url, ff.URL, c.src)
		assert.Equal(t, c.format, ff.Format, c.src)
		assert.False(t, ff.IsEmbedded())
	}
	_, _, ok := function(`url("never closed)`, "url")
	assert.False(t, ok)
}

func TestDecodeDataURL(t *testing.T) {
	for _, c := range []struct {
		ref, mediatype, payload string
		ok                      bool
	}{
		{"data:font/woff2;base64,d09GMg==", "font/woff2", "wOF2", true},
		{"data:application/font-woff;charset=utf-8;base64,d09G\n Rg", "application/font-woff", "wOFF", true},
		{"data:,a%20b", "", "a b", true},
		{"data:font/ttf;base64", "", "", false},
		{"data:font/ttf;base64,***", "", "", false},
	} {
		mediatype, payload, err := decodeDataURL(c.ref)
		if !c.ok {
			assert.Error(t, err, c.ref)
			continue
		}
		require.NoError(t, err, c.ref)
		assert.Equal(t, c.mediatype, mediatype)
		assert.Equal(t, c.payload, string(payload))
	}
}
