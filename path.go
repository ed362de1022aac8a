package binskema

import (
	"strings"
)

// pointer renders field segments as a JSON Pointer. Empty segments (flattened
// fields) are skipped; no segments render as "".
func pointer(segs []string) string {
	b := &strings.Builder{}
	for _, s := range segs {
		if s == "" {
			continue
		}
		// escape '~' -> '~0', '/' -> '~1' per RFC6901
		b.WriteByte('/')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1"))
	}
	return b.String()
}

// lookupPath walks nested objects along path and returns the final value.
func lookupPath(obj Object, path []string) (any, bool) {
	cur := obj
	for i, name := range path {
		v, ok := cur.Get(name)
		if !ok {
			return nil, false
		}
		if i == len(path)-1 {
			return v, true
		}
		if cur, ok = asObject(v); !ok {
			return nil, false
		}
	}
	return nil, false
}

// assignPath sets the value at path, creating intermediate records when a
// parent object is missing.
func assignPath(obj Object, path []string, v any) {
	cur := obj
	for _, name := range path[:len(path)-1] {
		child, ok := cur.Get(name)
		next, isObj := asObject(child)
		if !ok || !isObj {
			rec := NewRecord()
			cur.Set(name, rec)
			next = rec
		}
		cur = next
	}
	cur.Set(path[len(path)-1], v)
}
