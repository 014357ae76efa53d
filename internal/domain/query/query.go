package query

import (
	"reflect"
	"sort"
)

// Params holds the values a template is formatted with. Keys are bare
// identifiers; values are nil, a scalar, or a slice of scalars (nil allowed).
type Params map[string]any

// Binds maps a bind marker (":name") to the scalar it stands for.
type Binds map[string]any

// Names returns the bind markers in lexical order.
func (b Binds) Names() []string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a shallow copy of p; hooks get a copy so the caller's map
// stays untouched.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func (p Params) sortedNames() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column describes one result column as reported by the driver.
type Column struct {
	Name         string `json:"name"`
	DatabaseType string `json:"database_type"`
}

// Rows is a raw result set: column metadata plus row values in column order.
type Rows struct {
	Columns []Column
	Values  [][]any
}

// sequence reports whether v is a multi-valued parameter and returns its items.
// []byte is a scalar.
func sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case nil, []byte, string:
		return nil, false
	case []any:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// isBlank reports whether a parameter neutralizes the clause it drives.
func isBlank(v any, ok bool) bool {
	if !ok || v == nil {
		return true
	}
	if s, isString := v.(string); isString {
		return s == ""
	}
	if items, isSeq := sequence(v); isSeq {
		return len(items) == 0
	}
	return false
}
