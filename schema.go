package binskema

// Schema is a finished, immutable layout. All methods are safe for
// concurrent use.
type Schema struct {
	root *node
}

func (s *Schema) typeNode() (*node, error) { return s.root, nil }

// FixedSize returns the encoded size when it does not depend on the value.
func (s *Schema) FixedSize() (int, bool) {
	if s.root.fixed < 0 {
		return 0, false
	}
	return s.root.fixed, true
}

// SizeOf returns the number of bytes Encode would produce for v.
func (s *Schema) SizeOf(v any) (int, error) {
	n, err := s.root.size(v)
	if err != nil {
		return 0, withPath(PhaseEncode, err)
	}
	return n, nil
}

// Encode serializes v, which must be an Object or a map[string]any.
func (s *Schema) Encode(v any) ([]byte, error) {
	n, err := s.SizeOf(v)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	w, err := s.root.encode(v, buf)
	if err != nil {
		return nil, withPath(PhaseEncode, err)
	}
	return buf[:w], nil
}

// EncodeTo serializes v into buf and returns the number of bytes written.
// It fails with ErrShortBuffer when buf is too small.
func (s *Schema) EncodeTo(v any, buf []byte) (int, error) {
	n, err := s.SizeOf(v)
	if err != nil {
		return 0, err
	}
	if len(buf) < n {
		return 0, encodeError(CodeShortBuffer, nil)
	}
	w, err := s.root.encode(v, buf)
	if err != nil {
		return 0, withPath(PhaseEncode, err)
	}
	return w, nil
}

// Decode decodes one record from the start of buf. Bytes after the record
// are ignored. Unless Clone is set, buffer fields alias buf.
func (s *Schema) Decode(buf []byte) (Object, error) {
	v, err := decodeAll(s.root, buf, 0)
	if err != nil {
		return nil, err
	}
	obj, _ := v.(Object)
	return obj, nil
}

// DecodeStream starts an incremental decoding session.
func (s *Schema) DecodeStream() *StreamDecoder {
	return &StreamDecoder{root: s.root}
}
