package ocr

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/schuko"
)

// Page segmentation mode of Tesseract for "treat the image as a single character".
const PSMSingleChar = 10

// Tesseract is a classifier which runs the tesseract command line tool for
// every image. Images are piped to tesseract's stdin and the recognized text is
// read from its stdout. Results are not normalized, wrap a Tesseract with
// Normalize to get clean results.
//
// The zero value calls "tesseract" from the PATH, with language "eng" and in
// single character mode.
type Tesseract struct {
	Binary    string // path of the tesseract executable
	Languages string // Tesseract language codes, joined by '+'
	PSM       int    // page segmentation mode
}

// TesseractFromConfig creates a Tesseract from configuration keys
//
//	ocr.tesseract   path of the executable
//	ocr.lang        languages, e.g. "eng+chi_sim"
//	ocr.psm         page segmentation mode
//
// Missing keys select defaults.
func TesseractFromConfig(conf schuko.Configuration) *Tesseract {
	t := &Tesseract{}
	if conf == nil {
		return t
	}
	t.Binary = conf.GetString("ocr.tesseract")
	t.Languages = conf.GetString("ocr.lang")
	if s := conf.GetString("ocr.psm"); s != "" {
		if psm, err := strconv.Atoi(s); err == nil && psm >= 0 && psm <= 13 {
			t.PSM = psm
		} else {
			tracer().Errorf("ignoring invalid page segmentation mode %q", s)
		}
	}
	return t
}

func (t *Tesseract) binary() string {
	if t.Binary == "" {
		return "tesseract"
	}
	return t.Binary
}

func (t *Tesseract) args() []string {
	lang, psm := t.Languages, t.PSM
	if lang == "" {
		lang = "eng"
	}
	if psm == 0 {
		psm = PSMSingleChar
	}
	return []string{"stdin", "stdout", "-l", lang, "--psm", strconv.Itoa(psm)}
}

// Available checks if the tesseract executable can be found.
func (t *Tesseract) Available() error {
	if _, err := exec.LookPath(t.binary()); err != nil {
		return core.WrapError(err, core.EMISSING, "tesseract executable not found")
	}
	return nil
}

// Classify runs tesseract on a PNG image. Failures of the tool are reported as
// classification errors (see core.ECLASSIFY).
func (t *Tesseract) Classify(ctx context.Context, png []byte) (string, error) {
	cmd := exec.CommandContext(ctx, t.binary(), t.args()...)
	cmd.Stdin = bytes.NewReader(png)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		return "", core.ClassificationError(err, "tesseract failed: %s", msg)
	}
	return stdout.String(), nil
}
