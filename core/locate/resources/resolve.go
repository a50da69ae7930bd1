package resources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/npillmayer/glyphocr/core"
	"github.com/npillmayer/glyphocr/core/font"
	"github.com/npillmayer/schuko"
)

// NotFound returns an application error for a missing font.
func NotFound(name string) error {
	e := fmt.Errorf("resource missing: %v", name)
	return core.WrapError(e, core.EMISSING, "font not found: %s", name)
}

// FontPayload is the raw content of a font file, together with its origin.
type FontPayload struct {
	Name   string      // name the font has been requested with
	Path   string      // file the payload has been loaded from
	Format font.Format // container format, sniffed from the data
	Data   []byte
}

func (fp FontPayload) String() string {
	return fmt.Sprintf("%s (%s, %d bytes) from %s", fp.Name, fp.Format, len(fp.Data), fp.Path)
}

type payloadPlusErr struct {
	payload FontPayload
	err     error
}

// PayloadPromise is returned by ResolveFontPayload. Clients call Payload or
// Await to receive the loaded font, which will block until loading completed.
type PayloadPromise interface {
	Payload() (FontPayload, error)
	Await(ctx context.Context) (FontPayload, error)
}

type payloadLoader struct {
	await func(ctx context.Context) (FontPayload, error)
}

func (loader payloadLoader) Payload() (FontPayload, error) {
	return loader.await(context.Background())
}

func (loader payloadLoader) Await(ctx context.Context) (FontPayload, error) {
	return loader.await(ctx)
}

// payloadResult receives the result of a loader goroutine exactly once.
// Every caller of get sees the same result.
type payloadResult struct {
	ch   <-chan payloadPlusErr
	once sync.Once
	done chan struct{}
	r    payloadPlusErr
}

func newPayloadResult(ch <-chan payloadPlusErr) *payloadResult {
	return &payloadResult{ch: ch, done: make(chan struct{})}
}

func (res *payloadResult) get(ctx context.Context) (FontPayload, error) {
	res.once.Do(func() {
		go func() {
			res.r = <-res.ch
			close(res.done)
		}()
	})
	select {
	case <-ctx.Done():
		return FontPayload{}, ctx.Err()
	case <-res.done:
		return res.r.payload, res.r.err
	}
}

// ResolveFontPayload locates a font and loads its raw payload. name may be
//
//   - the path of a font file (TrueType, OpenType, WOFF, WOFF2 or EOT),
//   - the file name of a font installed in the user's or system's font
//     directories, with or without extension, e.g. "DejaVuSans",
//   - a family name fontconfig knows about, if key 'fontconfig' of conf
//     points to the fc-list binary.
//
// conf may be nil, which disables the fontconfig lookup.
// Resolving a name which matches nothing results in an EMISSING error.
func ResolveFontPayload(conf schuko.Configuration, name string) PayloadPromise {
	ch := make(chan payloadPlusErr, 1)
	go func(ch chan<- payloadPlusErr) {
		result := payloadPlusErr{}
		fpath := locateFont(conf, name)
		if fpath == "" {
			result.err = NotFound(name)
			ch <- result
			return
		}
		data, err := os.ReadFile(fpath)
		if err != nil {
			result.err = core.WrapError(err, core.EMISSING, "cannot read font file %s", fpath)
			ch <- result
			return
		}
		result.payload = FontPayload{
			Name:   name,
			Path:   fpath,
			Format: font.DetectFormat(data),
			Data:   data,
		}
		tracer().Debugf("resolved font %s", result.payload)
		ch <- result
	}(ch)
	return payloadLoader{await: newPayloadResult(ch).get}
}

func locateFont(conf schuko.Configuration, name string) string {
	if name == "" {
		return ""
	}
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		return name
	}
	if fpath, err := findfont.Find(name); err == nil && fpath != "" {
		if strings.EqualFold(filepath.Ext(fpath), ".ttc") {
			tracer().Infof("skipping system font %s: font collections are not supported", fpath)
		} else {
			tracer().Debugf("%s is a system font", name)
			return fpath
		}
	}
	if conf == nil {
		return ""
	}
	if desc, ok := findFontConfigFont(conf, name); ok {
		tracer().Debugf("%s found by fontconfig: %s", name, desc.Path)
		return desc.Path
	}
	return ""
}
