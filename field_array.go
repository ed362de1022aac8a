package binskema

import (
	"fmt"
	"reflect"
	"strconv"
)

// arrayOp is a sequence of elements of one type, optionally exposed as a
// mapping keyed by an element field.
type arrayOp struct {
	elem   *node
	length lengthSpec
	until  Until
	key    string
}

func (o *arrayOp) fixedSize() int {
	n, ok := o.length.fixed()
	if !ok || o.elem.fixed < 0 {
		return -1
	}
	return n * o.elem.fixed
}

// items lists the elements of v in encode order, with their path segments.
func (o *arrayOp) items(v any) ([]string, []any, error) {
	if o.key != "" {
		keys, vals, ok := entries(v)
		if !ok {
			return nil, nil, encodeError(CodeInvalidMapping, fmt.Errorf("unexpected %T", v))
		}
		for i, k := range keys {
			eo, ok := asObject(vals[i])
			if !ok {
				return nil, nil, withPath(PhaseEncode, encodeError(CodeInvalidMapping, nil), k)
			}
			kv, ok := eo.Get(o.key)
			if !ok || mapKey(kv) != k {
				return nil, nil, withPath(PhaseEncode, encodeError(CodeInvalidMapping, nil), k)
			}
		}
		return keys, vals, nil
	}
	var vals []any
	switch t := v.(type) {
	case []any:
		vals = t
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, nil, invalidValue(v)
		}
		vals = make([]any, rv.Len())
		for i := range vals {
			vals[i] = rv.Index(i).Interface()
		}
	}
	segs := make([]string, len(vals))
	for i := range segs {
		segs[i] = strconv.Itoa(i)
	}
	return segs, vals, nil
}

func (o *arrayOp) checkCount(n int) error {
	if want, ok := o.length.fixed(); ok && want != n {
		return encodeError(CodeInvalidValue, fmt.Errorf("array of %d elements, want %d", n, want))
	}
	return nil
}

func (o *arrayOp) size(v any, _ Object) (int, error) {
	segs, vals, err := o.items(v)
	if err != nil {
		return 0, err
	}
	if err := o.checkCount(len(vals)); err != nil {
		return 0, err
	}
	total := 0
	for i, e := range vals {
		n, err := o.elem.size(e)
		if err != nil {
			return 0, withPath(PhaseEncode, err, segs[i])
		}
		total += n
	}
	return total, nil
}

func (o *arrayOp) encode(v any, _ Object, buf []byte) (int, error) {
	segs, vals, err := o.items(v)
	if err != nil {
		return 0, err
	}
	if err := o.checkCount(len(vals)); err != nil {
		return 0, err
	}
	off := 0
	for i, e := range vals {
		n, err := o.elem.encode(e, buf[off:])
		if err != nil {
			return 0, withPath(PhaseEncode, err, segs[i])
		}
		off += n
	}
	return off, nil
}

func (o *arrayOp) decode(_ *decoder, fr *recordFrame) (any, frame, error) {
	count := -1
	if o.length.IsSet() {
		n, err := o.length.resolve(PhaseDecode, fr.obj)
		if err != nil {
			return nil, nil, err
		}
		count = n
	}
	items := make([]any, 0, min(max(count, 0), 1024))
	return nil, &arrayFrame{op: o, count: count, items: items}, nil
}

// arrayFrame decodes elements until the count is reached, the input ends or
// the predicate matches.
type arrayFrame struct {
	op    *arrayOp
	count int // -1 when bounded by ReadUntil
	items []any
	done  bool
	start int
}

func (a *arrayFrame) step(d *decoder) (any, frame, error) {
	for {
		if a.done || (a.count >= 0 && len(a.items) >= a.count) {
			v, err := a.result()
			return v, nil, err
		}
		if a.count < 0 && a.op.until.eof {
			end, err := d.cur.atEnd()
			if err != nil {
				return nil, nil, err
			}
			if end {
				v, err := a.result()
				return v, nil, err
			}
		}
		a.start = d.cur.off
		v, child, err := d.open(a.op.elem, nil)
		if err != nil {
			return nil, nil, err
		}
		if child != nil {
			return nil, child, nil
		}
		if err := a.accept(d, v); err != nil {
			return nil, nil, err
		}
	}
}

func (a *arrayFrame) accept(d *decoder, v any) error {
	if a.count < 0 && a.op.until.eof && d.cur.off == a.start {
		return decodeError(CodeNoProgress, nil)
	}
	a.items = append(a.items, v)
	if a.count < 0 && a.op.until.fn != nil && a.op.until.fn(v) {
		a.done = true
	}
	return nil
}

func (a *arrayFrame) segment() string { return strconv.Itoa(len(a.items)) }

func (a *arrayFrame) result() (any, error) {
	if a.op.key == "" {
		return a.items, nil
	}
	rec := NewRecord()
	for i, it := range a.items {
		var k any
		if obj, ok := asObject(it); ok {
			k, _ = obj.Get(a.op.key)
		}
		key := mapKey(k)
		if _, dup := rec.Get(key); dup {
			// segment reports the duplicate's index
			a.items = a.items[:i]
			return nil, decodeError(CodeInvalidMapping, fmt.Errorf("duplicate key %q", key))
		}
		rec.Set(key, it)
	}
	return rec, nil
}
