package artifact

import (
	"math"
	"strconv"
	"strings"

	"github.com/skylift/rotoreval/internal/errs"
)

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// escapeJSON escapes the JSON specials and control characters.
func escapeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 {
				const hex = "0123456789abcdef"
				b.WriteString(`\u00`)
				b.WriteByte(hex[(c>>4)&0xF])
				b.WriteByte(hex[c&0xF])
			} else {
				b.WriteByte(c)
			}
		}
	}
	return b.String()
}

// formatJSONNumber renders a float in the canonical shortest form that
// round-trips. Integral values within the safe range render without an
// exponent or decimal point.
func formatJSONNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriterOptions configure the JSON writer.
type WriterOptions struct {
	Pretty string // indent unit; empty means compact
	// EmitNullForUnset writes NaN/Inf numerics as null instead of failing.
	EmitNullForUnset bool
}

type writerScope struct {
	isObject bool
	count    int
}

// Writer is a streaming JSON writer with a stable key order (the caller's
// call order) that refuses to emit NaN or Inf.
type Writer struct {
	b       strings.Builder
	opt     WriterOptions
	scopes  []writerScope
	pending bool
	err     error
}

// NewWriter returns a writer with the given options.
func NewWriter(opt WriterOptions) *Writer {
	return &Writer{opt: opt}
}

func (w *Writer) pretty() bool { return w.opt.Pretty != "" }

func (w *Writer) indent() {
	if !w.pretty() {
		return
	}
	w.b.WriteByte('\n')
	for range w.scopes {
		w.b.WriteString(w.opt.Pretty)
	}
}

func (w *Writer) beforeValue() {
	if len(w.scopes) == 0 {
		return
	}
	top := &w.scopes[len(w.scopes)-1]
	if w.pending {
		// Key already wrote the separator.
		w.pending = false
		return
	}
	if top.count > 0 {
		w.b.WriteByte(',')
	}
	w.indent()
}

func (w *Writer) afterValue() {
	if len(w.scopes) > 0 {
		w.scopes[len(w.scopes)-1].count++
	}
}

// BeginObject opens an object scope.
func (w *Writer) BeginObject() *Writer {
	w.beforeValue()
	w.b.WriteByte('{')
	w.scopes = append(w.scopes, writerScope{isObject: true})
	return w
}

// EndObject closes the current object.
func (w *Writer) EndObject() *Writer {
	top := w.scopes[len(w.scopes)-1]
	w.scopes = w.scopes[:len(w.scopes)-1]
	if top.count > 0 {
		w.indent()
	}
	w.b.WriteByte('}')
	w.afterValue()
	return w
}

// BeginArray opens an array scope.
func (w *Writer) BeginArray() *Writer {
	w.beforeValue()
	w.b.WriteByte('[')
	w.scopes = append(w.scopes, writerScope{})
	return w
}

// EndArray closes the current array.
func (w *Writer) EndArray() *Writer {
	top := w.scopes[len(w.scopes)-1]
	w.scopes = w.scopes[:len(w.scopes)-1]
	if top.count > 0 {
		w.indent()
	}
	w.b.WriteByte(']')
	w.afterValue()
	return w
}

// Key writes an object member key; the next call writes its value.
func (w *Writer) Key(k string) *Writer {
	top := &w.scopes[len(w.scopes)-1]
	if top.count > 0 {
		w.b.WriteByte(',')
	}
	w.indent()
	w.b.WriteByte('"')
	w.b.WriteString(escapeJSON(k))
	w.b.WriteString(`":`)
	if w.pretty() {
		w.b.WriteByte(' ')
	}
	w.pending = true
	return w
}

// String writes a string value.
func (w *Writer) String(v string) *Writer {
	w.beforeValue()
	w.b.WriteByte('"')
	w.b.WriteString(escapeJSON(v))
	w.b.WriteByte('"')
	w.afterValue()
	return w
}

// Float writes a numeric value. NaN/Inf become null under the
// EmitNullForUnset policy and an error otherwise.
func (w *Writer) Float(v float64) *Writer {
	if !isFinite(v) {
		if w.opt.EmitNullForUnset {
			return w.Null()
		}
		if w.err == nil {
			w.err = errs.New(errs.InvalidInput, "json writer: non-finite number")
		}
		return w.Null()
	}
	w.beforeValue()
	w.b.WriteString(formatJSONNumber(v))
	w.afterValue()
	return w
}

// Int writes an integer value.
func (w *Writer) Int(v int) *Writer {
	w.beforeValue()
	w.b.WriteString(strconv.Itoa(v))
	w.afterValue()
	return w
}

// Bool writes a boolean value.
func (w *Writer) Bool(v bool) *Writer {
	w.beforeValue()
	if v {
		w.b.WriteString("true")
	} else {
		w.b.WriteString("false")
	}
	w.afterValue()
	return w
}

// Null writes a null value.
func (w *Writer) Null() *Writer {
	w.beforeValue()
	w.b.WriteString("null")
	w.afterValue()
	return w
}

// Result returns the document, or the first recorded error.
func (w *Writer) Result() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	if len(w.scopes) != 0 {
		return "", errs.New(errs.InvalidInput, "json writer: unbalanced scopes")
	}
	return w.b.String(), nil
}
