package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func writeFontFile(t *testing.T) string {
	fpath := filepath.Join(t.TempDir(), "SecretSans-Regular.ttf")
	require.NoError(t, os.WriteFile(fpath, goregular.TTF, 0644))
	return fpath
}

func TestResolveFontFile(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	fpath := writeFontFile(t)
	payload, err := ResolveFontPayload(nil, fpath).Payload()
	require.NoError(t, err)
	assert.Equal(t, fpath, payload.Path)
	assert.Equal(t, font.FormatTrueType, payload.Format)
	assert.Equal(t, goregular.TTF, payload.Data)
	t.Logf("payload = %s", payload)
}

func TestResolveMissingFont(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	_, err := ResolveFontPayload(nil, "no-such-font-Qx7Zk").Payload()
	require.Error(t, err)
	assert.Equal(t, core.EMISSING, core.Code(err))
	_, err = ResolveFontPayload(testconfig.Conf{}, "").Payload()
	assert.Equal(t, core.EMISSING, core.Code(err))
}

func TestAwaitCancelled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ResolveFontPayload(nil, "no-such-font-Qx7Zk").Await(ctx)
	assert.Error(t, err)
}

func TestPromiseDeliversSameResult(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	fpath := writeFontFile(t)
	promise := ResolveFontPayload(nil, fpath)
	first, err := promise.Payload()
	require.NoError(t, err)
	second, err := promise.Payload()
	require.NoError(t, err)
	third, err := promise.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, goregular.TTF, first.Data)
	assert.Equal(t, first, second)
	assert.Equal(t, first, third)
	//
	missing := ResolveFontPayload(nil, "no-such-font-Qx7Zk")
	_, err = missing.Payload()
	assert.Equal(t, core.EMISSING, core.Code(err))
	_, err = missing.Payload()
	assert.Equal(t, core.EMISSING, core.Code(err))
}

func TestAwaitAfterCancel(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	fpath := writeFontFile(t)
	promise := ResolveFontPayload(nil, fpath)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	promise.Await(ctx) // may or may not see the result, but must not consume it
	payload, err := promise.Payload()
	require.NoError(t, err)
	assert.Equal(t, fpath, payload.Path)
}

const fcOutput = `
/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf: DejaVu Sans:style=Bold
/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf: DejaVu Sans:style=Book
/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf: DejaVu Sans Mono,DejaVu Sans Mono Book:style=Book,Regular
/usr/share/fonts/noto/NotoSansCJK.ttc: Noto Sans CJK JP:style=Regular
/usr/share/fonts/misc/.hidden.otf: .Hidden
broken line
`

func TestParseFontConfigList(t *testing.T) {
	descs, ttc, err := parseFontConfigList(strings.NewReader(fcOutput))
	require.NoError(t, err)
	assert.Equal(t, 1, ttc)
	require.Len(t, descs, 4)
	assert.Equal(t, []string{"DejaVu Sans"}, descs[0].Families)
	assert.Equal(t, "bold", descs[0].Style)
	assert.Equal(t, "book", descs[1].Style)
	assert.Equal(t, []string{"DejaVu Sans Mono", "DejaVu Sans Mono Book"}, descs[2].Families)
	assert.Equal(t, "book", descs[2].Style)
	assert.Equal(t, []string{"Hidden"}, descs[3].Families)
	assert.Equal(t, "regular", descs[3].Style)
}

func TestClosestFontConfigMatch(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	descs, _, err := parseFontConfigList(strings.NewReader(fcOutput))
	require.NoError(t, err)
	for _, c := range []struct{ pattern, path string }{
		{"DejaVu Sans", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"},
		{"dejavu-sans", "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"},
		{"dejavusansmono", "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"},
		{"Mono", "/usr/share/fonts/truetype/dejavu/DejaVuSansMono.ttf"},
	} {
		desc, ok := closestFontConfigMatch(descs, c.pattern)
		if assert.True(t, ok, c.pattern) {
			assert.Equal(t, c.path, desc.Path, c.pattern)
		}
	}
	_, ok := closestFontConfigMatch(descs, "Garamond")
	assert.False(t, ok)
	_, ok = closestFontConfigMatch(descs, " ")
	assert.False(t, ok)
}

func TestResolveWithFontConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	tmp := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(tmp, "cache"))
	t.Setenv("HOME", tmp)
	fpath := writeFontFile(t)
	fclist := filepath.Join(tmp, "fc-list")
	script := fmt.Sprintf("#!/bin/sh\necho '%s: Qx7Zk Secret Sans:style=Regular'\n", fpath)
	require.NoError(t, os.WriteFile(fclist, []byte(script), 0755))
	conf := testconfig.Conf{
		"fontconfig": fclist,
		"app-key":    "glyphocr-test",
	}
	payload, err := ResolveFontPayload(conf, "Qx7Zk Secret Sans").Payload()
	require.NoError(t, err)
	assert.Equal(t, fpath, payload.Path)
	assert.Equal(t, goregular.TTF, payload.Data)
	//
	cachedir, err := CacheDirPath(conf)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cachedir, "fontlist.txt"))
}

func TestFontConfigNotConfigured(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.resources")
	defer teardown()
	//
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	_, ok := findFontConfigFont(testconfig.Conf{}, "DejaVu Sans")
	assert.False(t, ok)
	_, ok = findFontConfigFont(testconfig.Conf{"fontconfig": "fc-list"}, "DejaVu Sans")
	assert.False(t, ok, "relative fc-list path is rejected")
}
