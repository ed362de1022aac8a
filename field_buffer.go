package binskema

import "fmt"

// bufferOp is a run of raw bytes.
type bufferOp struct {
	length   lengthSpec
	untilEOF bool
	clone    bool
}

func (o *bufferOp) fixedSize() int {
	if n, ok := o.length.fixed(); ok {
		return n
	}
	return -1
}

func rawBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	}
	return nil, invalidValue(v)
}

// size is the declared length for literal lengths and the value's own length
// otherwise.
func (o *bufferOp) size(v any, _ Object) (int, error) {
	b, err := rawBytes(v)
	if err != nil {
		return 0, err
	}
	if n, ok := o.length.fixed(); ok {
		if len(b) > n {
			return 0, encodeError(CodeInvalidValue, fmt.Errorf("buffer of %d bytes exceeds length %d", len(b), n))
		}
		return n, nil
	}
	return len(b), nil
}

func (o *bufferOp) encode(v any, obj Object, buf []byte) (int, error) {
	n, err := o.size(v, obj)
	if err != nil {
		return 0, err
	}
	if err := reserve(buf, n); err != nil {
		return 0, err
	}
	b, _ := rawBytes(v)
	w := copy(buf, b)
	clear(buf[w:n])
	return n, nil
}

func (o *bufferOp) decode(d *decoder, fr *recordFrame) (any, frame, error) {
	var (
		b   []byte
		err error
	)
	if o.untilEOF || o.length.kind == lengthRemainder {
		b, err = d.cur.rest()
	} else {
		var n int
		if n, err = o.length.resolve(PhaseDecode, fr.obj); err != nil {
			return nil, nil, err
		}
		b, err = d.cur.take(n)
	}
	if err != nil {
		return nil, nil, err
	}
	if o.clone {
		b = append([]byte(nil), b...)
	}
	return b, nil, nil
}
