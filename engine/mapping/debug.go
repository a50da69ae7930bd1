package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const debugQueueSize = 64

type debugImage struct {
	code rune
	png  []byte
}

// debugSink writes glyph images to a directory, asynchronously. Images are
// dropped if the writer cannot keep up. A nil sink discards everything.
type debugSink struct {
	dir     string
	queue   chan debugImage
	wg      sync.WaitGroup
	dropped int
}

func openDebugSink(dir string) *debugSink {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		tracer().Errorf("debug images disabled: %v", err)
		return nil
	}
	sink := &debugSink{
		dir:   dir,
		queue: make(chan debugImage, debugQueueSize),
	}
	sink.wg.Add(1)
	go sink.run()
	return sink
}

func (sink *debugSink) run() {
	defer sink.wg.Done()
	for img := range sink.queue {
		path := filepath.Join(sink.dir, debugFileName(img.code))
		if err := os.WriteFile(path, img.png, 0644); err != nil {
			tracer().Errorf("cannot save debug image: %v", err)
		}
	}
}

func (sink *debugSink) submit(code rune, png []byte) {
	if sink == nil {
		return
	}
	select {
	case sink.queue <- debugImage{code: code, png: png}:
	default:
		sink.dropped++
	}
}

// close waits for pending images to be written.
func (sink *debugSink) close() {
	if sink == nil {
		return
	}
	close(sink.queue)
	sink.wg.Wait()
	if sink.dropped > 0 {
		tracer().Infof("%d debug images dropped", sink.dropped)
	}
}

// debugFileName is the hexadecimal codepoint, e.g. "0xe001.png".
func debugFileName(code rune) string {
	return fmt.Sprintf("%#x.png", code)
}
