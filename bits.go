package binskema

import (
	"slices"

	"github.com/reoring/binskema/primitive"
)

// bitReq is a pending bit field. path locates the value, possibly inside
// nested objects when the field came from a nest of bit fields.
type bitReq struct {
	width       int
	path        []string
	slot        int
	formatter   func(any) (any, error)
	deformatter func(any, Object) (any, error)
	assert      Assertion
}

func (r *bitReq) name() string { return r.path[len(r.path)-1] }

// bitGroup is a flushed run of bit fields packed MSB-first into whole bytes.
type bitGroup struct {
	reqs  []bitReq
	bytes int
}

// compileBits flushes pending requests into a bit group field. Little endian
// reverses the order of the fields; values stay MSB-first. Slots are handed
// out in assignment order starting at next.
func compileBits(pending []bitReq, endian Endian, next int, slotsOK bool) (*field, int) {
	reqs := slices.Clone(pending)
	if endian == LittleEndian {
		slices.Reverse(reqs)
	}
	total := 0
	seen := map[string]bool{}
	for i := range reqs {
		total += reqs[i].width
		reqs[i].slot = -1
		if !slotsOK {
			continue
		}
		if len(reqs[i].path) == 1 {
			reqs[i].slot = next
			next++
		} else if head := reqs[i].path[0]; !seen[head] {
			seen[head] = true
			next++
		}
	}
	g := &bitGroup{reqs: reqs, bytes: (total + 7) / 8}
	return &field{op: g, bits: g, slot: -1}, next
}

func (g *bitGroup) fixedSize() int { return g.bytes }

func (g *bitGroup) size(any, Object) (int, error) { return g.bytes, nil }

// value reads the wire value of r from the root object.
func (r *bitReq) value(root Object) (any, error) {
	parent := root
	if len(r.path) > 1 {
		p, ok := lookupPath(root, r.path[:len(r.path)-1])
		if po, isObj := asObject(p); ok && isObj {
			parent = po
		} else {
			parent = nil
		}
	}
	var (
		v  any
		ok bool
	)
	if parent != nil {
		v, ok = getField(parent, r.slot, r.name())
	}
	if r.deformatter != nil {
		if parent == nil {
			parent = root
		}
		out, err := r.deformatter(v, parent)
		if err != nil {
			return nil, asError(PhaseEncode, err)
		}
		return out, nil
	}
	if !ok {
		return nil, missingField(PhaseEncode, r.name())
	}
	return v, nil
}

func (g *bitGroup) encode(v any, _ Object, buf []byte) (int, error) {
	root, ok := asObject(v)
	if !ok {
		return 0, invalidValue(v)
	}
	if err := reserve(buf, g.bytes); err != nil {
		return 0, err
	}
	out := buf[:g.bytes]
	clear(out)
	pos := 0
	for i := range g.reqs {
		r := &g.reqs[i]
		raw, err := r.value(root)
		if err != nil {
			return 0, withPath(PhaseEncode, err, r.path...)
		}
		u, err := bitValue(raw, r.width)
		if err != nil {
			return 0, withPath(PhaseEncode, err, r.path...)
		}
		pack(out, pos, u, r.width)
		pos += r.width
	}
	return g.bytes, nil
}

func (g *bitGroup) decode(d *decoder, _ *recordFrame) (any, frame, error) {
	b, err := d.cur.take(g.bytes)
	if err != nil {
		return nil, nil, err
	}
	vals := make([]uint32, len(g.reqs))
	pos := 0
	for i := range g.reqs {
		vals[i] = unpack(b, pos, g.reqs[i].width)
		pos += g.reqs[i].width
	}
	return vals, nil, nil
}

// assign stores decoded bit values on the frame's object, applying each
// field's formatter and assertion.
func (g *bitGroup) assign(fr *recordFrame, vals []uint32) error {
	for i := range g.reqs {
		r := &g.reqs[i]
		var v any = int64(vals[i])
		if r.formatter != nil {
			out, err := r.formatter(v)
			if err != nil {
				return withPath(PhaseDecode, err, r.path...)
			}
			v = out
		}
		if len(r.path) == 1 {
			fr.set(r.slot, r.name(), v)
		} else {
			assignPath(fr.obj, r.path, v)
		}
		if r.assert.set && !r.assert.check(v, fr.obj) {
			return withPath(PhaseDecode, decodeError(CodeAssertionFailed, nil), r.path...)
		}
	}
	return nil
}

func bitValue(v any, width int) (uint32, error) {
	n, ok := primitive.ToInt64(v)
	if !ok {
		return 0, encodeError(CodeInvalidValue, &primitive.TypeError{Value: v})
	}
	hi := int64(1)<<width - 1
	if n < 0 || n > hi {
		return 0, encodeError(CodeInvalidValue, &primitive.RangeError{Value: v, Min: 0, Max: hi})
	}
	return uint32(n), nil
}

// pack writes the low width bits of u at bit position pos, highest bit first.
func pack(buf []byte, pos int, u uint32, width int) {
	for rem := width; rem > 0; {
		used := pos % 8
		n := min(rem, 8-used)
		chunk := (u >> (rem - n)) & (1<<n - 1)
		buf[pos/8] |= byte(chunk << (8 - used - n))
		rem -= n
		pos += n
	}
}

// unpack is the inverse of pack.
func unpack(buf []byte, pos, width int) uint32 {
	var u uint32
	for rem := width; rem > 0; {
		used := pos % 8
		n := min(rem, 8-used)
		chunk := uint32(buf[pos/8]>>(8-used-n)) & (1<<n - 1)
		u = u<<n | chunk
		rem -= n
		pos += n
	}
	return u
}
