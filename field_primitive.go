package binskema

import "github.com/reoring/binskema/primitive"

// primitiveOp is a fixed-width number.
type primitiveOp struct{ c *primitive.Codec }

func (p primitiveOp) fixedSize() int { return p.c.Size }

func (p primitiveOp) size(any, Object) (int, error) { return p.c.Size, nil }

func (p primitiveOp) encode(v any, _ Object, buf []byte) (int, error) {
	return encodePrimitive(p.c, v, buf)
}

func (p primitiveOp) decode(d *decoder, _ *recordFrame) (any, frame, error) {
	b, err := d.cur.take(p.c.Size)
	if err != nil {
		return nil, nil, err
	}
	return p.c.Decode(b), nil, nil
}
