package binskema

import (
	"errors"

	"github.com/reoring/binskema/internal/textenc"
)

// stringOp is a text field: fixed or referenced length, remainder of input,
// or NUL-terminated.
type stringOp struct {
	length    lengthSpec
	enc       textenc.Encoding
	zeroTerm  bool
	stripNull bool
}

func (s *stringOp) fixedSize() int {
	if n, ok := s.length.fixed(); ok {
		return n
	}
	return -1
}

func (s *stringOp) bytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		b, err := s.enc.Encode(t)
		if err != nil {
			return nil, encodeError(CodeInvalidEncoding, err)
		}
		return b, nil
	case []byte:
		return t, nil
	}
	return nil, invalidValue(v)
}

func (s *stringOp) size(v any, obj Object) (int, error) {
	b, err := s.bytes(v)
	if err != nil {
		return 0, err
	}
	switch s.length.kind {
	case lengthRemainder:
		return len(b), nil
	case lengthNone:
		return len(b) + s.enc.Unit(), nil
	}
	return s.length.resolve(PhaseEncode, obj)
}

func (s *stringOp) encode(v any, obj Object, buf []byte) (int, error) {
	b, err := s.bytes(v)
	if err != nil {
		return 0, err
	}
	unit := s.enc.Unit()
	if s.zeroTerm && s.length.kind != lengthRemainder && textenc.IndexNUL(b, unit) >= 0 {
		return 0, encodeError(CodeInvalidValue, errors.New("NUL inside zero-terminated string"))
	}
	switch s.length.kind {
	case lengthRemainder:
		if err := reserve(buf, len(b)); err != nil {
			return 0, err
		}
		return copy(buf, b), nil
	case lengthNone:
		if err := reserve(buf, len(b)+unit); err != nil {
			return 0, err
		}
		copy(buf, b)
		clear(buf[len(b) : len(b)+unit])
		return len(b) + unit, nil
	}
	n, err := s.length.resolve(PhaseEncode, obj)
	if err != nil {
		return 0, err
	}
	if err := reserve(buf, n); err != nil {
		return 0, err
	}
	k := len(b)
	if k > n {
		k = s.enc.Boundary(b, n)
	}
	copy(buf, b[:k])
	clear(buf[k:n])
	return n, nil
}

func (s *stringOp) decode(d *decoder, fr *recordFrame) (any, frame, error) {
	var (
		b   []byte
		err error
	)
	switch s.length.kind {
	case lengthRemainder:
		b, err = d.cur.rest()
	case lengthNone:
		b, err = d.cur.untilZero(s.enc.Unit())
	default:
		var n int
		if n, err = s.length.resolve(PhaseDecode, fr.obj); err != nil {
			return nil, nil, err
		}
		if b, err = d.cur.take(n); err != nil {
			return nil, nil, err
		}
		if s.zeroTerm {
			if i := textenc.IndexNUL(b, s.enc.Unit()); i >= 0 {
				b = b[:i]
			}
		}
		if s.stripNull {
			b = textenc.TrimNUL(b, s.enc.Unit())
		}
	}
	if err != nil {
		return nil, nil, err
	}
	str, err := s.enc.Decode(b)
	if err != nil {
		return nil, nil, decodeError(CodeInvalidEncoding, err)
	}
	return str, nil, nil
}
