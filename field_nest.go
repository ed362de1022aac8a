package binskema

import "fmt"

// nestOp is a sub-record (or primitive) stored under one field, or merged
// into the parent when flattened.
type nestOp struct {
	sub     *node
	flatten bool
}

func (o *nestOp) fixedSize() int { return o.sub.fixed }

func (o *nestOp) size(v any, _ Object) (int, error) { return o.sub.size(v) }

func (o *nestOp) encode(v any, _ Object, buf []byte) (int, error) { return o.sub.encode(v, buf) }

func (o *nestOp) decode(d *decoder, fr *recordFrame) (any, frame, error) {
	if o.flatten {
		return d.open(o.sub, fr.obj)
	}
	return d.open(o.sub, nil)
}

// fixedNestOp reserves exactly length bytes for its sub-type.
type fixedNestOp struct {
	sub    *node
	length lengthSpec
}

func (o *fixedNestOp) fixedSize() int {
	if n, ok := o.length.fixed(); ok {
		return n
	}
	return -1
}

func (o *fixedNestOp) size(_ any, obj Object) (int, error) {
	return o.length.resolve(PhaseEncode, obj)
}

func (o *fixedNestOp) encode(v any, obj Object, buf []byte) (int, error) {
	n, err := o.length.resolve(PhaseEncode, obj)
	if err != nil {
		return 0, err
	}
	if err := reserve(buf, n); err != nil {
		return 0, err
	}
	need, err := o.sub.size(v)
	if err != nil {
		return 0, err
	}
	if need > n {
		return 0, encodeError(CodeNestedOverflow, fmt.Errorf("needs %d bytes, reserved %d", need, n))
	}
	w, err := o.sub.encode(v, buf[:n])
	if err != nil {
		return 0, err
	}
	clear(buf[w:n])
	return n, nil
}

// decode reads the whole reservation at once and decodes the sub-type from
// it; bytes the sub-type leaves unread are skipped.
func (o *fixedNestOp) decode(d *decoder, fr *recordFrame) (any, frame, error) {
	n, err := o.length.resolve(PhaseDecode, fr.obj)
	if err != nil {
		return nil, nil, err
	}
	start := d.base + int64(d.cur.off)
	b, err := d.cur.take(n)
	if err != nil {
		return nil, nil, err
	}
	v, err := decodeAll(o.sub, b, start)
	if err != nil {
		return nil, nil, err
	}
	return v, nil, nil
}
