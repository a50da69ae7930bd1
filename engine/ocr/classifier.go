package ocr

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Classifier recognizes the character shown on a PNG image.
type Classifier interface {
	Classify(ctx context.Context, png []byte) (string, error)
}

// ClassifierFunc is an adapter to use ordinary functions as classifiers.
type ClassifierFunc func(ctx context.Context, png []byte) (string, error)

// Classify calls f(ctx, png).
func (f ClassifierFunc) Classify(ctx context.Context, png []byte) (string, error) {
	return f(ctx, png)
}

// --- Normalization ---------------------------------------------------------

type normalizer struct {
	c         Classifier
	foldWidth bool
}

// Normalize decorates a classifier with clean-up of its results: surrounding
// white space and control characters are removed and the result is converted
// to Unicode normalization form NFC. If foldWidth is set, full-width and
// half-width forms are mapped to their canonical equivalents, e.g. 'Ａ' → 'A'.
func Normalize(c Classifier, foldWidth bool) Classifier {
	return normalizer{c: c, foldWidth: foldWidth}
}

func (n normalizer) Classify(ctx context.Context, png []byte) (string, error) {
	text, err := n.c.Classify(ctx, png)
	if err != nil {
		return "", err
	}
	return NormalizeText(text, n.foldWidth), nil
}

// NormalizeText cleans up the raw output of an OCR engine. See Normalize.
func NormalizeText(text string, foldWidth bool) string {
	text = strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	if text == "" {
		return ""
	}
	text = norm.NFC.String(text)
	if foldWidth {
		text = width.Fold.String(text)
	}
	return text
}

// --- Serialization ---------------------------------------------------------

// ErrClosed is returned by a serialized classifier after Close.
var ErrClosed = errors.New("classifier is closed")

// Serialized is a classifier which forwards classification requests to an
// underlying classifier, one at a time. It is safe for concurrent use, even if
// the underlying classifier is not.
type Serialized struct {
	requests chan request
	done     chan struct{}
	once     sync.Once
}

type request struct {
	ctx   context.Context
	png   []byte
	reply chan<- result
}

type result struct {
	text string
	err  error
}

// Serialize puts a classifier behind a request queue, served by a single
// goroutine. Clients have to call Close to stop the goroutine.
func Serialize(c Classifier) *Serialized {
	s := &Serialized{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	go s.serve(c)
	return s
}

func (s *Serialized) serve(c Classifier) {
	for {
		select {
		case req := <-s.requests:
			if err := req.ctx.Err(); err != nil {
				req.reply <- result{err: err}
				continue
			}
			text, err := c.Classify(req.ctx, req.png)
			req.reply <- result{text: text, err: err}
		case <-s.done:
			tracer().Debugf("serialized classifier stopped")
			return
		}
	}
}

// Classify enqueues a classification request and waits for its result.
func (s *Serialized) Classify(ctx context.Context, png []byte) (string, error) {
	select {
	case <-s.done:
		return "", ErrClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	reply := make(chan result, 1)
	select {
	case s.requests <- request{ctx: ctx, png: png, reply: reply}:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
		return "", ErrClosed
	}
	select {
	case res := <-reply:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops serving requests. Requests in flight will be completed.
func (s *Serialized) Close() error {
	s.once.Do(func() {
		close(s.done)
	})
	return nil
}
