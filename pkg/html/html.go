// Package html is the runtime half of the compiler: the output sink that
// generated view functions write into, and the composable Node value they
// return. It owns runtime escaping; everything escaped at compile time
// arrives here as a pre-escaped literal through Raw.
package html

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/godwitml/godwit/pkg/escape"
)

// Writer accumulates rendered output. The zero value is ready to use.
type Writer struct {
	buf bytes.Buffer
}

// Raw appends s verbatim. Generated code uses it for literals that were
// escaped at compile time; user code uses the Raw node type instead.
func (w *Writer) Raw(s string) {
	w.buf.WriteString(s)
}

// Text escapes s and appends it.
func (w *Writer) Text(s string) {
	w.buf.WriteString(escape.String(s))
}

// Value renders a dynamic value with runtime escaping. Nodes and Raw embed
// their own output, nil writes nothing, everything else is formatted and
// escaped.
func (w *Writer) Value(v any) {
	if v == nil {
		return
	}
	switch v := v.(type) {
	case Node:
		v.Render(w)
	case string:
		w.Text(v)
	default:
		w.Text(stringify(v))
	}
}

// Unescaped renders a dynamic value without escaping. Nodes still embed
// their own output.
func (w *Writer) Unescaped(v any) {
	if v == nil {
		return
	}
	switch v := v.(type) {
	case Node:
		v.Render(w)
	case string:
		w.buf.WriteString(v)
	default:
		w.buf.WriteString(stringify(v))
	}
}

// Attr renders one attribute, space included. A true value renders the bare
// name, false and nil omit the attribute entirely, anything else renders
// name="escaped value".
func (w *Writer) Attr(name string, value any) {
	if value == nil {
		return
	}
	if b, ok := value.(bool); ok {
		if b {
			w.buf.WriteString(" ")
			w.buf.WriteString(name)
		}
		return
	}
	w.buf.WriteString(" ")
	w.buf.WriteString(name)
	w.buf.WriteString(`="`)
	switch v := value.(type) {
	case string:
		w.Text(v)
	default:
		w.Text(stringify(v))
	}
	w.buf.WriteString(`"`)
}

// String returns everything written so far.
func (w *Writer) String() string {
	return w.buf.String()
}

// WriteTo copies the accumulated output to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	return w.buf.WriteTo(dst)
}

func stringify(v any) string {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Node is a renderable fragment. View functions return Nodes; Nodes compose
// by rendering each other into the same Writer.
type Node interface {
	Render(w *Writer)
}

// Func adapts a function to the Node interface. Generated view bodies are
// Funcs.
type Func func(w *Writer)

func (f Func) Render(w *Writer) { f(w) }

// Raw is a string rendered without escaping. The caller vouches for it.
type Raw string

func (r Raw) Render(w *Writer) { w.Raw(string(r)) }

// Text is a string rendered with escaping.
type Text string

func (t Text) Render(w *Writer) { w.Text(string(t)) }

// Group renders its members in order.
type Group []Node

func (g Group) Render(w *Writer) {
	for _, n := range g {
		if n != nil {
			n.Render(w)
		}
	}
}

// Render renders n into a fresh Writer and returns the output.
func Render(n Node) string {
	var w Writer
	if n != nil {
		n.Render(&w)
	}
	return w.String()
}
