package binskema

import (
	"errors"

	"github.com/reoring/binskema/internal/textenc"
)

// errSuspend signals that the input ran out before a field was complete. It
// never leaves the package: one-shot decoding runs with eof set and the
// stream decoder turns it into an awaiting state.
var errSuspend = errors.New("binskema: need more input")

// cursor is the read position over the buffered input. Every read either
// consumes exactly what it asked for or leaves the cursor untouched.
type cursor struct {
	buf  []byte
	off  int
	eof  bool // no more input will arrive
	need int  // bytes missing at the last suspension
}

func (c *cursor) avail() int { return len(c.buf) - c.off }

func (c *cursor) short(n int) error {
	if c.eof {
		return decodeError(CodeUnexpectedEOF, nil)
	}
	c.need = n
	return errSuspend
}

// take consumes n bytes.
func (c *cursor) take(n int) ([]byte, error) {
	if c.avail() < n {
		return nil, c.short(n - c.avail())
	}
	b := c.buf[c.off : c.off+n : c.off+n]
	c.off += n
	return b, nil
}

// rest consumes everything up to the end of input.
func (c *cursor) rest() ([]byte, error) {
	if !c.eof {
		return nil, c.short(0)
	}
	b := c.buf[c.off:len(c.buf):len(c.buf)]
	c.off = len(c.buf)
	return b, nil
}

// untilZero consumes a run terminated by a zero unit and returns it without
// the terminator.
func (c *cursor) untilZero(unit int) ([]byte, error) {
	i := textenc.IndexNUL(c.buf[c.off:], unit)
	if i < 0 {
		return nil, c.short(unit - c.avail()%unit)
	}
	b := c.buf[c.off : c.off+i : c.off+i]
	c.off += i + unit
	return b, nil
}

// atEnd reports whether the input is exhausted; it suspends while more input
// may still arrive.
func (c *cursor) atEnd() (bool, error) {
	if c.avail() > 0 {
		return false, nil
	}
	if c.eof {
		return true, nil
	}
	return false, c.short(0)
}

// frame is a suspended composite value: a record or an array.
type frame interface {
	// step advances until the frame completes (child == nil) or needs a
	// child frame decoded first.
	step(d *decoder) (v any, child frame, err error)
	// accept receives the value of the child frame pushed by step.
	accept(d *decoder, v any) error
	// segment is the path segment of the element being decoded.
	segment() string
}

// decoder drives an explicit stack of frames over a cursor.
type decoder struct {
	cur   cursor
	stack []frame
	base  int64 // input offset of cur.buf[0]
}

func (d *decoder) push(f frame) { d.stack = append(d.stack, f) }

// run resumes the frame stack until the bottom frame completes.
func (d *decoder) run() (any, error) {
	for len(d.stack) > 0 {
		top := d.stack[len(d.stack)-1]
		v, child, err := top.step(d)
		if err != nil {
			return nil, d.fail(err)
		}
		if child != nil {
			d.push(child)
			continue
		}
		d.stack = d.stack[:len(d.stack)-1]
		if len(d.stack) == 0 {
			return v, nil
		}
		if err := d.stack[len(d.stack)-1].accept(d, v); err != nil {
			return nil, d.fail(err)
		}
	}
	return nil, nil
}

// fail decorates err with the current path and input offset.
func (d *decoder) fail(err error) error {
	if err == errSuspend {
		return err
	}
	segs := make([]string, 0, len(d.stack))
	for _, f := range d.stack {
		segs = append(segs, f.segment())
	}
	e := *asError(PhaseDecode, err)
	e.Phase = PhaseDecode
	e.Path = pointer(segs) + e.Path
	if e.Offset < 0 {
		e.Offset = d.base + int64(d.cur.off)
	}
	return &e
}

// open starts decoding a value of type n: primitives complete at once,
// records return a frame. into merges the record's fields into an existing
// object.
func (d *decoder) open(n *node, into Object) (any, frame, error) {
	if n.prim != nil {
		b, err := d.cur.take(n.prim.Size)
		if err != nil {
			return nil, nil, err
		}
		return n.prim.Decode(b), nil, nil
	}
	if into != nil {
		return nil, &recordFrame{n: n, obj: into}, nil
	}
	obj, fresh := n.newObject()
	return nil, &recordFrame{n: n, obj: obj, fresh: fresh}, nil
}

// decodeAll decodes one value of type n from a complete buffer.
func decodeAll(n *node, buf []byte, base int64) (any, error) {
	d := &decoder{cur: cursor{buf: buf, eof: true}, base: base}
	v, f, err := d.open(n, nil)
	if err != nil {
		return nil, d.fail(err)
	}
	if f == nil {
		return v, nil
	}
	d.push(f)
	return d.run()
}

// recordFrame decodes the fields of a record node in order.
type recordFrame struct {
	n     *node
	obj   Object
	i     int
	fresh bool // obj is a decoder-made *Record filled in field order
}

func (f *recordFrame) step(d *decoder) (any, frame, error) {
	for f.i < len(f.n.fields) {
		v, child, err := f.n.fields[f.i].op.decode(d, f)
		if err != nil {
			return nil, nil, err
		}
		if child != nil {
			return nil, child, nil
		}
		if err := f.accept(d, v); err != nil {
			return nil, nil, err
		}
	}
	return f.obj, nil, nil
}

func (f *recordFrame) accept(_ *decoder, v any) error {
	if err := f.n.fields[f.i].apply(f, v); err != nil {
		return err
	}
	f.i++
	return nil
}

func (f *recordFrame) segment() string {
	if f.i < len(f.n.fields) {
		return f.n.fields[f.i].seg()
	}
	return ""
}

func (f *recordFrame) set(slot int, name string, v any) {
	if r, ok := f.obj.(*Record); ok && f.fresh {
		r.setSlot(slot, name, v)
		return
	}
	f.obj.Set(name, v)
}

// apply stores a decoded field value: formatter, then assignment, then
// assertion.
func (f *field) apply(fr *recordFrame, v any) error {
	if f.bits != nil {
		return f.bits.assign(fr, v.([]uint32))
	}
	if !f.flatten {
		if f.formatter != nil {
			out, err := f.formatter(v)
			if err != nil {
				return asError(PhaseDecode, err)
			}
			v = out
		}
		fr.set(f.slot, f.name, v)
	}
	if f.assert.set && !f.assert.check(v, fr.obj) {
		return decodeError(CodeAssertionFailed, nil)
	}
	return nil
}
