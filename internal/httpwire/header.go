package httpwire

import "strings"

// Field is one header line, in the order it appeared on the wire.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered header-name -> header-value mapping. Names are kept
// verbatim for emission but compared case-insensitively by Get.
type Header struct {
	fields []Field
}

// Add appends a header field, preserving arrival order.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the value of the first header matching name, compared
// case-insensitively, and whether it was found.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Fields returns the header fields in wire order.
func (h Header) Fields() []Field {
	return h.fields
}

// Len reports the number of header fields.
func (h Header) Len() int {
	return len(h.fields)
}
