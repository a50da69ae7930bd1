/*
Package rewrite translates obfuscated text with a substitution table.

Rewriting is a plain per-character lookup: every character found in the
table is replaced by its table value, everything else (white space,
punctuation, characters of other scripts, invalid UTF-8) is copied
unchanged.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package rewrite

import (
	"bufio"
	"io"
	"strings"
	"unicode/utf8"
)

// Lookup is the read side of a substitution table. *mapping.Table implements
// Lookup.
type Lookup interface {
	Lookup(r rune) (string, bool)
	Len() int
}

// Ranger is a Lookup which may enumerate its entries.
type Ranger interface {
	Lookup
	Range(f func(r rune, text string) bool)
}

// Map is a substitution table backed by a Go map.
type Map map[rune]string

func (m Map) Lookup(r rune) (string, bool) {
	s, ok := m[r]
	return s, ok
}

func (m Map) Len() int {
	return len(m)
}

// Range calls f for every entry, in unspecified order, until f returns false.
func (m Map) Range(f func(r rune, text string) bool) {
	for r, s := range m {
		if !f(r, s) {
			return
		}
	}
}

// Decode replaces every character of text which is a key of table by its
// value. All other characters are kept as they are. A nil or empty table
// returns text unchanged.
func Decode(text string, table Lookup) string {
	if table == nil || table.Len() == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if s, ok := table.Lookup(r); ok && !(r == utf8.RuneError && size == 1) {
			b.WriteString(s)
		} else {
			b.WriteString(text[i : i+size])
		}
		i += size
	}
	return b.String()
}

// IsIdempotent is a predicate: does decoding a second time leave decoded text
// unchanged? This is the case if no table value contains a character which is
// a key of the table.
func IsIdempotent(table Ranger) bool {
	if table == nil || table.Len() == 0 {
		return true
	}
	idempotent := true
	table.Range(func(_ rune, text string) bool {
		for _, r := range text {
			if _, ok := table.Lookup(r); ok {
				idempotent = false
				return false
			}
		}
		return true
	})
	return idempotent
}

// Rewriter decodes text with a fixed table.
type Rewriter struct {
	table Lookup
}

// New creates a rewriter for a table.
func New(table Lookup) *Rewriter {
	return &Rewriter{table: table}
}

// Decode decodes text, see package function Decode.
func (rw *Rewriter) Decode(text string) string {
	return Decode(text, rw.table)
}

// DecodeLines decodes r line by line and writes the results to w, each
// terminated by a newline. It returns the number of lines written.
func (rw *Rewriter) DecodeLines(w io.Writer, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	out := bufio.NewWriter(w)
	n := 0
	for scanner.Scan() {
		if _, err := out.WriteString(rw.Decode(scanner.Text())); err != nil {
			return n, err
		}
		if err := out.WriteByte('\n'); err != nil {
			return n, err
		}
		n++
	}
	if err := scanner.Err(); err != nil {
		out.Flush()
		return n, err
	}
	return n, out.Flush()
}
