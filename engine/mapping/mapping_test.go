package mapping

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font/fonttest"
	"github.com/npillmayer/glyphocr/engine/ocr"
	"github.com/npillmayer/glyphocr/engine/rewrite"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/suite"
)

// --- Test Suite Preparation ------------------------------------------------

type MappingTestEnviron struct {
	suite.Suite
	abc []byte // U+E001…U+E003 show 'A', 'B', 'C'
}

func TestMapping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.mapping")
	defer teardown()
	suite.Run(t, new(MappingTestEnviron))
}

func (env *MappingTestEnviron) SetupSuite() {
	tracing.Select("glyphocr.mapping").SetTraceLevel(tracing.LevelInfo)
	env.abc = fonttest.MustSubstitution(env.T(), map[rune]rune{
		0xe001: 'A',
		0xe002: 'B',
		0xe003: 'C',
	})
}

// --- Tests -----------------------------------------------------------------

func (env *MappingTestEnviron) TestSingleGlyph() {
	payload := fonttest.MustSubstitution(env.T(), map[rune]rune{0xe001: 'A'})
	stub := newReferenceOCR(env.T(), "ABC")
	table, err := BuildMapping(context.Background(), payload, stub)
	env.Require().NoError(err)
	env.Equal(map[rune]string{0xe001: "A"}, table.Map())
	env.Equal("ABC", rewrite.Decode("\ue001BC", table))
	env.Equal(1, stub.Calls())
}

func (env *MappingTestEnviron) TestShuffledFont() {
	payload := fonttest.MustSubstitution(env.T(), map[rune]rune{
		'a': 'C', 'b': 'A', 'c': 'B', 0xe000: 'D',
	})
	stub := newReferenceOCR(env.T(), "ABCD")
	table, err := NewBuilder(stub).Build(context.Background(), payload)
	env.Require().NoError(err)
	want := map[rune]string{'a': "C", 'b': "A", 'c': "B", 0xe000: "D"}
	if diff := cmp.Diff(want, table.Map()); diff != "" {
		env.Failf("table mismatch", "(-want +got):\n%s", diff)
	}
	env.Equal("BAD CAB", rewrite.Decode("cb\ue000 abc", table))
	stats := table.Stats()
	env.Equal(Stats{Attempted: 4, Mapped: 4}, stats)
}

func (env *MappingTestEnviron) TestUnrecognizedGlyphPassesThrough() {
	payload := fonttest.MustSubstitution(env.T(), map[rune]rune{
		0xe001: 'A', 0xe002: 'Z', 0xe003: ' ',
	})
	stub := newReferenceOCR(env.T(), "AB")
	table, err := BuildMapping(context.Background(), payload, stub)
	env.Require().NoError(err)
	env.Equal(map[rune]string{0xe001: "A"}, table.Map())
	_, found := table.Lookup(0xe002)
	env.False(found)
	env.Equal("A\ue002\ue003", rewrite.Decode("\ue001\ue002\ue003", table))
	env.Equal(2, table.Stats().Unresolved)
}

func (env *MappingTestEnviron) TestCorruptPayload() {
	stub := newReferenceOCR(env.T(), "A")
	for _, payload := range [][]byte{nil, []byte("garbage"), fonttest.Corrupt(env.abc)} {
		table, err := BuildMapping(context.Background(), payload, stub)
		env.Nil(table)
		env.True(core.IsFontParseError(err), "expected font parse error, got %v", err)
	}
	env.Zero(stub.Calls(), "classifier must not be called for corrupt payloads")
}

func (env *MappingTestEnviron) TestEveryCodepointAttemptedOnce() {
	stub := newReferenceOCR(env.T(), "ABC")
	stub.failOn = map[int]bool{1: true, 2: true}
	cr := &countingRasterizer{fail: map[rune]bool{0xe002: true}}
	table, err := NewBuilder(stub, WithRasterizer(cr)).Build(context.Background(), env.abc)
	env.Require().NoError(err)
	env.Equal(map[rune]int{0xe001: 1, 0xe002: 1, 0xe003: 1}, cr.renders)
	env.Equal(2, stub.Calls())
	env.Zero(table.Len(), "both classifications failed")
	stats := table.Stats()
	env.Equal(3, stats.Attempted)
	env.Equal(1, stats.RenderFailures)
	env.Equal(2, stats.OCRFailures)
}

func (env *MappingTestEnviron) TestAllClassificationsFail() {
	failing := ocr.ClassifierFunc(func(context.Context, []byte) (string, error) {
		return "", errOCR
	})
	table, err := BuildMapping(context.Background(), env.abc, failing)
	env.Require().NoError(err)
	env.NotNil(table)
	env.Zero(table.Len())
	env.Equal("\ue001", rewrite.Decode("\ue001", table))
}

func (env *MappingTestEnviron) TestRasterizerPanicIsLocal() {
	stub := newReferenceOCR(env.T(), "ABC")
	cr := &countingRasterizer{panicOn: map[rune]bool{0xe001: true}}
	table, err := BuildMapping(context.Background(), env.abc, stub, WithRasterizer(cr))
	env.Require().NoError(err)
	env.Equal(map[rune]string{0xe002: "B", 0xe003: "C"}, table.Map())
	env.Equal(1, table.Stats().RenderFailures)
}

func (env *MappingTestEnviron) TestDebugImages() {
	dir := filepath.Join(env.T().TempDir(), "debug", "fonts")
	stub := newReferenceOCR(env.T(), "ABC")
	_, err := BuildMapping(context.Background(), env.abc, stub, WithDebugDir(dir))
	env.Require().NoError(err)
	for _, name := range []string{"0xe001.png", "0xe002.png", "0xe003.png"} {
		fi, err := os.Stat(filepath.Join(dir, name))
		if env.NoError(err) {
			env.Greater(fi.Size(), int64(0))
		}
	}
}

func (env *MappingTestEnviron) TestUnwritableDebugDirIsHarmless() {
	file := filepath.Join(env.T().TempDir(), "file")
	env.Require().NoError(os.WriteFile(file, []byte{}, 0644))
	stub := newReferenceOCR(env.T(), "ABC")
	table, err := BuildMapping(context.Background(), env.abc, stub, WithDebugDir(filepath.Join(file, "sub")))
	env.Require().NoError(err)
	env.Equal(3, table.Len())
}

func (env *MappingTestEnviron) TestCancellationReturnsPartialTable() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	cancelling := ocr.ClassifierFunc(func(context.Context, []byte) (string, error) {
		calls++
		cancel()
		return "X", nil
	})
	table, err := BuildMapping(ctx, env.abc, cancelling)
	env.ErrorIs(err, context.Canceled)
	env.Require().NotNil(table)
	env.Equal(map[rune]string{0xe001: "X"}, table.Map())
	env.Equal(1, calls)
}

func (env *MappingTestEnviron) TestSharedSerializedClassifier() {
	stub := newReferenceOCR(env.T(), "ABC")
	shared := ocr.Serialize(stub)
	defer shared.Close()
	results := make(chan *Table, 4)
	for i := 0; i < 4; i++ {
		go func() {
			table, err := BuildMapping(context.Background(), env.abc, shared)
			if err != nil {
				results <- nil
				return
			}
			results <- table
		}()
	}
	for i := 0; i < 4; i++ {
		table := <-results
		if env.NotNil(table) {
			env.Equal(3, table.Len())
		}
	}
	env.Equal(12, stub.Calls())
}

func (env *MappingTestEnviron) TestMissingClassifier() {
	_, err := BuildMapping(context.Background(), env.abc, nil)
	env.Equal(core.EINVALID, core.Code(err))
}

// --- Configuration ---------------------------------------------------------

func TestOptionsFromConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "glyphocr.mapping")
	defer teardown()
	//
	conf := testconfig.Conf{
		ConfCanvasSize:     64,
		ConfFontScale:      "0.5",
		ConfFallbackOffset: "4",
		ConfDebugDir:       "/tmp/glyphs",
	}
	b := NewBuilder(nil, OptionsFromConfig(conf)...)
	if b.canvasSize != 64 || b.fontScale != 0.5 || b.fallbackOffset != 4 || b.debugDir != "/tmp/glyphs" {
		t.Errorf("configuration not applied: %+v", b)
	}
	conf = testconfig.Conf{
		ConfCanvasSize: "huge",
		ConfFontScale:  "1.7",
	}
	b = NewBuilder(nil, OptionsFromConfig(conf)...)
	if b.canvasSize != 128 || b.fontScale != 0.7 || b.fallbackOffset != 10 || b.debugDir != "" {
		t.Errorf("expected defaults for malformed configuration, have %+v", b)
	}
	if len(OptionsFromConfig(nil)) != 0 {
		t.Errorf("expected no options without configuration")
	}
}

// --- Table -----------------------------------------------------------------

func TestTable(t *testing.T) {
	var nilTable *Table
	if nilTable.Len() != 0 {
		t.Errorf("nil table should be empty")
	}
	if _, ok := nilTable.Lookup('x'); ok {
		t.Errorf("nil table should not contain entries")
	}
	table := newTable()
	table.put('z', "1")
	table.put('a', "2")
	if table.put('a', "3") {
		t.Errorf("entries must not be overwritten")
	}
	var keys []rune
	table.Range(func(r rune, _ string) bool {
		keys = append(keys, r)
		return true
	})
	if diff := cmp.Diff([]rune{'a', 'z'}, keys); diff != "" {
		t.Errorf("range order (-want +got):\n%s", diff)
	}
	if s := table.String(); s != `{U+0061→"2", U+007A→"1"}` {
		t.Errorf("unexpected string representation %s", s)
	}
}

func TestDebugFileName(t *testing.T) {
	for r, name := range map[rune]string{0xe001: "0xe001.png", 'A': "0x41.png", 0x1f600: "0x1f600.png"} {
		if got := debugFileName(r); got != name {
			t.Errorf("expected %s, got %s", name, got)
		}
	}
}
