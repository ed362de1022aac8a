package binskema

import (
	"fmt"

	"github.com/reoring/binskema/primitive"
)

// size returns the encoded size of v.
func (n *node) size(v any) (int, error) {
	if n.prim != nil {
		return n.prim.Size, nil
	}
	obj, ok := asObject(v)
	if !ok {
		return 0, invalidValue(v)
	}
	total := 0
	for _, f := range n.fields {
		fv, err := f.value(obj)
		if err != nil {
			return 0, withPath(PhaseEncode, err, f.seg())
		}
		s, err := f.op.size(fv, obj)
		if err != nil {
			return 0, withPath(PhaseEncode, err, f.seg())
		}
		total += s
	}
	return total, nil
}

// encode writes v at the start of buf and returns the number of bytes
// written.
func (n *node) encode(v any, buf []byte) (int, error) {
	if n.prim != nil {
		return encodePrimitive(n.prim, v, buf)
	}
	obj, ok := asObject(v)
	if !ok {
		return 0, invalidValue(v)
	}
	off := 0
	for _, f := range n.fields {
		fv, err := f.value(obj)
		if err != nil {
			return 0, withPath(PhaseEncode, err, f.seg())
		}
		w, err := f.op.encode(fv, obj, buf[off:])
		if err != nil {
			return 0, withPath(PhaseEncode, err, f.seg())
		}
		off += w
	}
	return off, nil
}

func encodePrimitive(c *primitive.Codec, v any, buf []byte) (int, error) {
	if len(buf) < c.Size {
		return 0, encodeError(CodeShortBuffer, nil)
	}
	if err := c.Encode(v, buf[:c.Size]); err != nil {
		return 0, encodeError(CodeInvalidValue, err)
	}
	return c.Size, nil
}

// reserve checks that buf can hold n more bytes.
func reserve(buf []byte, n int) error {
	if len(buf) < n {
		return encodeError(CodeShortBuffer, nil)
	}
	return nil
}

func invalidValue(v any) *Error {
	return encodeError(CodeInvalidValue, fmt.Errorf("unexpected %T", v))
}
