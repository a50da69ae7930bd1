/*
Command mapcli builds the substitution table of an obfuscating font and
decodes text with it.

Usage:

	mapcli -font SecretSans.woff2 -text "…"
	mapcli -html saved-page.html -debug
	mapcli -font "DejaVu Sans" < obfuscated.txt

The font is given either as a font file, as the name of an installed font,
or as a saved HTML page embedding the font as a @font-face data URL. Glyphs
are classified by Tesseract, which has to be installed.

Text to decode is taken from flag -text, from the body of the HTML page, or
from stdin. If stdin is a terminal, mapcli starts an interactive session.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/locate/resources"
	"github.com/npillmayer/glyphocr/engine/mapping"
	"github.com/npillmayer/glyphocr/engine/ocr"
	"github.com/npillmayer/glyphocr/engine/rewrite"
	"github.com/npillmayer/glyphocr/input/html"
	"github.com/npillmayer/schuko"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"
	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// tracer traces with key 'glyphocr.mapping'
func tracer() tracing.Trace {
	return tracing.Select("glyphocr.mapping")
}

func main() {
	initDisplay()

	// command line flags
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	fontname := flag.String("font", "", "Font file or name of an installed font")
	htmlfile := flag.String("html", "", "Saved HTML page embedding the font")
	text := flag.String("text", "", "Text to decode")
	debug := flag.Bool("debug", false, "Write glyph images to debug directory")
	debugdir := flag.String("debugdir", mapping.DefaultDebugDir, "Debug directory")
	canvas := flag.Int("canvas", 0, "Canvas size of glyph images in pixels")
	scale := flag.Float64("scale", 0, "Font size relative to canvas size")
	tessbin := flag.String("tesseract", "", "Path of the tesseract executable")
	lang := flag.String("lang", "", "Tesseract languages, e.g. eng+chi_sim")
	fc := flag.String("fontconfig", "", "Absolute path of the fc-list binary")
	flag.Parse()

	conf := configure(*tlevel)
	setIf(conf, mapping.ConfDebugDir, *debugdir, *debug)
	setIf(conf, mapping.ConfCanvasSize, strconv.Itoa(*canvas), *canvas > 0)
	setIf(conf, mapping.ConfFontScale, strconv.FormatFloat(*scale, 'f', -1, 64), *scale > 0)
	setIf(conf, "ocr.tesseract", *tessbin, *tessbin != "")
	setIf(conf, "ocr.lang", *lang, *lang != "")
	setIf(conf, "fontconfig", *fc, *fc != "")
	pterm.Info.Println("Welcome to the glyph mapping CLI") // colored welcome message
	tracer().Infof("Trace level is %s", *tlevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	//
	// load font to use
	src, err := loadSource(ctx, conf, *fontname, *htmlfile)
	if err != nil {
		exitWith(err, 3)
	}
	pterm.Info.Printfln("using font %s", src.name)
	//
	// set up OCR
	tess := ocr.TesseractFromConfig(conf)
	if err := tess.Available(); err != nil {
		exitWith(err, 4)
	}
	classifier := ocr.Serialize(ocr.Normalize(tess, true))
	defer classifier.Close()
	//
	// build the substitution table
	spinner, _ := pterm.DefaultSpinner.Start("classifying glyphs")
	table, err := mapping.BuildMapping(ctx, src.payload, classifier, mapping.OptionsFromConfig(conf)...)
	if err != nil && table == nil {
		spinner.Fail(core.UserMessage(err))
		exitWith(err, 5)
	} else if err != nil {
		spinner.Warning("interrupted, table is incomplete")
	} else {
		spinner.Success(table.Stats())
	}
	printTable(table)
	if !rewrite.IsIdempotent(table) {
		pterm.Warning.Println("table maps characters to keys of the table, decoding twice will differ")
	}
	rw := rewrite.New(table)
	//
	// decode text
	switch {
	case *text != "":
		fmt.Println(rw.Decode(*text))
	case src.text != "":
		fmt.Println(rw.Decode(src.text))
	case term.IsTerminal(int(os.Stdin.Fd())):
		if err := repl(rw); err != nil {
			exitWith(err, 6)
		}
	default:
		if _, err := rw.DecodeLines(os.Stdout, os.Stdin); err != nil {
			exitWith(err, 6)
		}
	}
}

// configure sets up configuration and tracing.
func configure(tlevel string) testconfig.Conf {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	level := tracing.TraceLevelFromString(tlevel).String()
	conf := testconfig.Conf{
		"tracing.adapter":          "go",
		"trace.glyphocr.mapping":   level,
		"trace.glyphocr.fonts":     "Error",
		"trace.glyphocr.ocr":       level,
		"trace.glyphocr.html":      level,
		"trace.glyphocr.resources": level,
		"app-key":                  resources.DefaultAppKey,
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Printf("error configuring tracing")
		os.Exit(1)
	}
	tracing.SetTraceSelector(trace2go.Selector())
	return conf
}

func setIf(conf testconfig.Conf, key, value string, cond bool) {
	if cond {
		conf[key] = value
	}
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  " !  ",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  " Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func exitWith(err error, code int) {
	pterm.Error.Println(err.Error())
	os.Exit(code)
}

// source is a font payload plus, for HTML pages, the page's text.
type source struct {
	name    string
	payload []byte
	text    string
}

func loadSource(ctx context.Context, conf schuko.Configuration, fontname, htmlfile string) (source, error) {
	switch {
	case htmlfile != "":
		return loadHTML(htmlfile)
	case fontname != "":
		payload, err := resources.ResolveFontPayload(conf, fontname).Await(ctx)
		if err != nil {
			return source{}, err
		}
		return source{name: payload.String(), payload: payload.Data}, nil
	}
	return source{}, core.Error(core.EINVALID, "either -font or -html is required")
}

func loadHTML(htmlfile string) (source, error) {
	f, err := os.Open(htmlfile)
	if err != nil {
		return source{}, core.WrapError(err, core.EMISSING, "cannot open HTML file %s", htmlfile)
	}
	defer f.Close()
	doc, err := html.Parse(f)
	if err != nil {
		return source{}, err
	}
	ff, err := doc.FirstEmbeddedFont()
	if err != nil {
		return source{}, err
	}
	return source{name: ff.String(), payload: ff.Payload, text: doc.Text()}, nil
}

func printTable(table *mapping.Table) {
	if table.Len() == 0 {
		pterm.Warning.Println("substitution table is empty")
		return
	}
	data := pterm.TableData{{"Code", "Char", "Text"}}
	table.Range(func(r rune, text string) bool {
		data = append(data, []string{fmt.Sprintf("U+%04X", r), string(r), text})
		return true
	})
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

// repl decodes lines typed by the user.
func repl(rw *rewrite.Rewriter) error {
	rl, err := readline.New("decode > ")
	if err != nil {
		return err
	}
	defer rl.Close()
	pterm.Info.Println("Quit with <ctrl>D") // inform user how to stop the CLI
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			return err
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		fmt.Fprintln(rl.Stdout(), rw.Decode(line))
	}
	pterm.Info.Println("Good bye!")
	return nil
}
