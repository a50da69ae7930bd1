package mapping

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// Table maps obfuscated characters to the text an OCR engine recognized for
// their glyphs. Characters without an entry are to be left unchanged.
//
// A Table is immutable once returned by a Builder and may be shared between
// goroutines. The nil Table is empty.
type Table struct {
	entries *treemap.Map // rune → string, ordered by codepoint
	stats   Stats
}

// Stats counts the outcome of building a table.
type Stats struct {
	Attempted      int // codepoints for which rendering was attempted
	Mapped         int // codepoints with a table entry
	Unresolved     int // codepoints the classifier did not recognize
	RenderFailures int // codepoints which could not be rendered
	OCRFailures    int // codepoints for which the classifier failed
	Skipped        int // codepoints not attempted (codepoint zero)
}

func (s Stats) String() string {
	return fmt.Sprintf("%d attempted: %d mapped, %d unresolved, %d render failures, %d OCR failures",
		s.Attempted, s.Mapped, s.Unresolved, s.RenderFailures, s.OCRFailures)
}

func newTable() *Table {
	return &Table{entries: treemap.NewWith(utils.RuneComparator)}
}

// put inserts an entry. Existing entries are never overwritten.
func (t *Table) put(r rune, text string) bool {
	if _, found := t.entries.Get(r); found {
		return false
	}
	t.entries.Put(r, text)
	return true
}

// Lookup returns the recognized text for an obfuscated character.
func (t *Table) Lookup(r rune) (string, bool) {
	if t == nil || t.entries == nil {
		return "", false
	}
	v, found := t.entries.Get(r)
	if !found {
		return "", false
	}
	return v.(string), true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil || t.entries == nil {
		return 0
	}
	return t.entries.Size()
}

// Range calls f for every entry, in ascending order of codepoints, until f
// returns false.
func (t *Table) Range(f func(r rune, text string) bool) {
	if t.Len() == 0 {
		return
	}
	it := t.entries.Iterator()
	for it.Next() {
		if !f(it.Key().(rune), it.Value().(string)) {
			return
		}
	}
}

// Map returns a copy of the entries as a Go map.
func (t *Table) Map() map[rune]string {
	m := make(map[rune]string, t.Len())
	t.Range(func(r rune, text string) bool {
		m[r] = text
		return true
	})
	return m
}

// Stats returns the statistics of the build which produced t.
func (t *Table) Stats() Stats {
	if t == nil {
		return Stats{}
	}
	return t.stats
}

func (t *Table) String() string {
	var b strings.Builder
	b.WriteString("{")
	first := true
	t.Range(func(r rune, text string) bool {
		if !first {
			b.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&b, "U+%04X→%q", r, text)
		return true
	})
	b.WriteString("}")
	return b.String()
}
