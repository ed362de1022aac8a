package codec

import (
	"bytes"
	"encoding/base64"
	"io"
	"strconv"

	j "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/reoring/binskema"
)

// bytesKey marks a JSON object holding a base64 byte string.
const bytesKey = "$base64"

// JSON returns the JSON codec backed by goccy/go-json. Objects keep their key
// order and byte strings are written as {"$base64": "..."}.
func JSON() Codec { return jsonCodec{} }

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, errors.Wrap(err, "codec/json: marshal failed")
	}
	return buf.Bytes(), nil
}

func (jsonCodec) Unmarshal(data []byte) (any, error) {
	dec := newJSONDecoder(bytes.NewReader(data))
	v, err := dec.Decode()
	if err == io.EOF {
		return nil, errors.New("codec/json: empty input")
	}
	return v, err
}

func (c jsonCodec) NewEncoder(w io.Writer) Encoder {
	return &sepEncoder{w: w, c: c, sep: []byte("\n"), after: true}
}

func (jsonCodec) NewDecoder(r io.Reader) Decoder { return newJSONDecoder(r) }

func writeJSON(buf *bytes.Buffer, v any) error {
	if keys, vals, ok := entries(v); ok {
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, vals[i]); err != nil {
				return errors.Wrapf(err, "field %s", k)
			}
		}
		buf.WriteByte('}')
		return nil
	}
	switch t := v.(type) {
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case []byte:
		buf.WriteString(`{"` + bytesKey + `":"`)
		buf.WriteString(base64.StdEncoding.EncodeToString(t))
		buf.WriteString(`"}`)
		return nil
	}
	return writeScalar(buf, v)
}

func writeScalar(buf *bytes.Buffer, v any) error {
	b, err := j.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

type jsonDecoder struct {
	dec *j.Decoder
}

func newJSONDecoder(r io.Reader) *jsonDecoder {
	dec := j.NewDecoder(r)
	dec.UseNumber()
	return &jsonDecoder{dec: dec}
}

func (d *jsonDecoder) Decode() (any, error) {
	tok, err := d.dec.Token()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.Wrap(err, "codec/json: read failed")
	}
	return d.value(tok)
}

func (d *jsonDecoder) next() (any, error) {
	tok, err := d.dec.Token()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, errors.Wrap(err, "codec/json: read failed")
	}
	return d.value(tok)
}

func (d *jsonDecoder) value(tok j.Token) (any, error) {
	switch t := tok.(type) {
	case j.Delim:
		switch t {
		case '{':
			return d.object()
		case '[':
			return d.array()
		}
		return nil, errors.Errorf("codec/json: unexpected %q", rune(t))
	case j.Number:
		return number(t.String())
	}
	return tok, nil
}

func (d *jsonDecoder) object() (any, error) {
	r := binskema.NewRecord()
	for d.dec.More() {
		kt, err := d.dec.Token()
		if err != nil {
			return nil, errors.Wrap(err, "codec/json: read key failed")
		}
		k, ok := kt.(string)
		if !ok {
			return nil, errors.Errorf("codec/json: unexpected key %v", kt)
		}
		v, err := d.next()
		if err != nil {
			return nil, err
		}
		r.Set(k, v)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, errors.Wrap(err, "codec/json: read failed")
	}
	if r.Len() == 1 {
		if s, ok := r.Get(bytesKey); ok {
			str, _ := s.(string)
			b, err := base64.StdEncoding.DecodeString(str)
			if err != nil {
				return nil, errors.Wrap(err, "codec/json: bad byte string")
			}
			return b, nil
		}
	}
	return r, nil
}

func (d *jsonDecoder) array() (any, error) {
	items := []any{}
	for d.dec.More() {
		v, err := d.next()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, errors.Wrap(err, "codec/json: read failed")
	}
	return items, nil
}

// number keeps integers exact: int64 first, then uint64, then float64.
func number(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "codec/json: bad number %q", s)
	}
	return f, nil
}
