//go:build gosseract

package ocr

import (
	"context"

	"github.com/npillmayer/glyphocr/core"
	"github.com/otiai10/gosseract/v2"
)

// Gosseract is a classifier using libtesseract through cgo. A Gosseract is not
// safe for concurrent use, use Serialize to share it.
type Gosseract struct {
	client *gosseract.Client
}

// NewGosseract creates a classifier for single characters of the given
// languages (default "eng"). Clients have to call Close after use.
func NewGosseract(languages ...string) (*Gosseract, error) {
	client := gosseract.NewClient()
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if err := client.SetLanguage(languages...); err != nil {
		client.Close()
		return nil, core.WrapError(err, core.EINVALID, "cannot set OCR languages %v", languages)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_CHAR); err != nil {
		client.Close()
		return nil, core.WrapError(err, core.EINTERNAL, "cannot set page segmentation mode")
	}
	tracer().Infof("using libtesseract %s", gosseract.Version())
	return &Gosseract{client: client}, nil
}

// Classify recognizes the character on a PNG image.
func (g *Gosseract) Classify(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := g.client.SetImageFromBytes(png); err != nil {
		return "", core.ClassificationError(err, "cannot hand image to tesseract")
	}
	text, err := g.client.Text()
	if err != nil {
		return "", core.ClassificationError(err, "tesseract failed")
	}
	return text, nil
}

// Close releases the underlying Tesseract client.
func (g *Gosseract) Close() error {
	return g.client.Close()
}
