package binskema

import (
	"fmt"
	"sort"
	"strings"
)

// Object is the logical value of a record: decode assigns fields onto it and
// encode reads fields from it.
type Object interface {
	Get(name string) (any, bool)
	Set(name string, v any)
}

// Record is the default Object produced by decoding. It keeps fields in
// declaration order; fields decoded by the owning schema are addressed by
// position, everything else falls back to a lookup by name.
type Record struct {
	keys []string
	vals []any
}

// NewRecord builds a Record from alternating name/value pairs.
//
//	binskema.NewRecord("tag", 0, "data", 12345678)
func NewRecord(kv ...any) *Record {
	r := &Record{keys: make([]string, 0, len(kv)/2), vals: make([]any, 0, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

func (r *Record) index(name string) int {
	for i, k := range r.keys {
		if k == name {
			return i
		}
	}
	return -1
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (any, bool) {
	if i := r.index(name); i >= 0 {
		return r.vals[i], true
	}
	return nil, false
}

// Set stores v under name, appending the name when it is new.
func (r *Record) Set(name string, v any) {
	if i := r.index(name); i >= 0 {
		r.vals[i] = v
		return
	}
	r.keys = append(r.keys, name)
	r.vals = append(r.vals, v)
}

// getSlot reads a field through its compiled position when the layout
// matches, otherwise by name.
func (r *Record) getSlot(slot int, name string) (any, bool) {
	if slot >= 0 && slot < len(r.keys) && r.keys[slot] == name {
		return r.vals[slot], true
	}
	return r.Get(name)
}

// setSlot is only used on records created by the decoder, whose keys are
// appended in field order.
func (r *Record) setSlot(slot int, name string, v any) {
	switch {
	case slot >= 0 && slot < len(r.keys) && r.keys[slot] == name:
		r.vals[slot] = v
	case slot >= 0 && slot == len(r.keys):
		r.keys = append(r.keys, name)
		r.vals = append(r.vals, v)
	default:
		r.Set(name, v)
	}
}

// Len reports the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// Keys returns the field names in order.
func (r *Record) Keys() []string { return append([]string(nil), r.keys...) }

// Range calls fn for each field in order until fn returns false.
func (r *Record) Range(fn func(name string, v any) bool) {
	for i, k := range r.keys {
		if !fn(k, r.vals[i]) {
			return
		}
	}
}

// Map converts the record, and nested records, to plain maps.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		out[k] = plain(r.vals[i])
	}
	return out
}

func plain(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Map()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

func (r *Record) String() string {
	b := &strings.Builder{}
	b.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(b, "%s:%v", k, r.vals[i])
	}
	b.WriteByte('}')
	return b.String()
}

// Map is an unordered Object backed by a Go map.
type Map map[string]any

func (m Map) Get(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

func (m Map) Set(name string, v any) { m[name] = v }

// Overlay returns an Object that reports v for name and defers every other
// field to obj. A deformatter deriving its value from the encoded record (a
// checksum, for instance) encodes Overlay(obj, field, placeholder) so that
// the nested encode sees the placeholder instead of deriving it again.
func Overlay(obj Object, name string, v any) Object {
	return &overlay{base: obj, name: name, v: v}
}

type overlay struct {
	base Object
	name string
	v    any
}

func (o *overlay) Get(name string) (any, bool) {
	if name == o.name {
		return o.v, true
	}
	return o.base.Get(name)
}

func (o *overlay) Set(name string, v any) {
	if name == o.name {
		o.v = v
		return
	}
	o.base.Set(name, v)
}

func asObject(v any) (Object, bool) {
	switch t := v.(type) {
	case Object:
		return t, true
	case map[string]any:
		return Map(t), true
	}
	return nil, false
}

// getField reads a field, using its compiled slot on decoder-made records.
func getField(obj Object, slot int, name string) (any, bool) {
	if r, ok := obj.(*Record); ok {
		return r.getSlot(slot, name)
	}
	return obj.Get(name)
}

// entries lists a mapping's values in iteration order: declaration order for
// records, sorted keys for maps.
func entries(v any) ([]string, []any, bool) {
	switch t := v.(type) {
	case *Record:
		return t.Keys(), append([]any(nil), t.vals...), true
	case Map:
		return sortedEntries(t)
	case map[string]any:
		return sortedEntries(t)
	}
	return nil, nil, false
}

func sortedEntries(m map[string]any) ([]string, []any, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = m[k]
	}
	return keys, vals, true
}
