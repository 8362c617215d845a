package ir

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Key returns the canonical encoding of t.
// CRITICAL: This is the ONLY encoding that should be used for set
// membership, goal dedup and content-addressed hashes.
//
// Key differences from String():
// 1. Every node is tagged with its kind, so `"a"` and `a` never collide
// 2. Names and strings are NFC normalized
// 3. Integral floats encode as ints (1.0 and 1 share a key)
// 4. No whitespace
func Key(t Term) string {
	var b strings.Builder
	writeKey(&b, t)
	return b.String()
}

// KeyAll returns the canonical encoding of an ordered conjunction.
func KeyAll(terms []Term) string {
	var b strings.Builder
	for i, t := range terms {
		if i > 0 {
			b.WriteByte(';')
		}
		writeKey(&b, t)
	}
	return b.String()
}

// Equal reports structural equality under the canonical encoding.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return Key(a) == Key(b)
}

func writeKey(b *strings.Builder, t Term) {
	switch v := t.(type) {
	case nil:
		b.WriteString("[]")
	case Var:
		b.WriteByte('?')
		b.WriteString(v.Name)
	case Const:
		writeConstKey(b, v)
	case Functor:
		b.WriteByte('f')
		writeName(b, v.Name)
		b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, a)
		}
		b.WriteByte(')')
	case List:
		b.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				b.WriteByte(',')
			}
			writeKey(b, e)
		}
		if v.Tail != nil {
			b.WriteByte('|')
			writeKey(b, v.Tail)
		}
		b.WriteByte(']')
	case BinaryOp:
		b.WriteByte('b')
		writeName(b, v.Op)
		b.WriteByte('(')
		writeKey(b, v.Left)
		b.WriteByte(',')
		writeKey(b, v.Right)
		b.WriteByte(')')
	case UnaryOp:
		b.WriteByte('u')
		writeName(b, v.Op)
		b.WriteByte('(')
		writeKey(b, v.Operand)
		b.WriteByte(')')
	case Timable:
		b.WriteString("t(")
		writeKey(b, v.Goal)
		b.WriteByte(',')
		writeKey(b, v.Start)
		b.WriteByte(',')
		writeKey(b, v.End)
		b.WriteByte(')')
	}
}

func writeConstKey(b *strings.Builder, c Const) {
	switch c.kind {
	case ConstInt:
		b.WriteByte('i')
		b.WriteString(strconv.FormatInt(c.i, 10))
	case ConstFloat:
		if c.f == math.Trunc(c.f) && math.Abs(c.f) < 1<<53 {
			b.WriteByte('i')
			b.WriteString(strconv.FormatInt(int64(c.f), 10))
			return
		}
		b.WriteByte('d')
		b.WriteString(strconv.FormatFloat(c.f, 'g', -1, 64))
	default:
		b.WriteByte('s')
		b.Write(canonicalString(c.text))
	}
}

// writeName writes a length-prefixed NFC name so that names containing
// delimiters cannot collide.
func writeName(b *strings.Builder, name string) {
	n := norm.NFC.String(name)
	b.WriteString(strconv.Itoa(len(n)))
	b.WriteByte(':')
	b.WriteString(n)
}

// canonicalString produces a JSON string with NFC normalization and no HTML
// escaping.
func canonicalString(s string) []byte {
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		// Encoding a Go string cannot fail.
		return []byte(strconv.Quote(normalized))
	}

	// json.Encoder adds trailing newline, remove it
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
}
