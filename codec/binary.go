package codec

import (
	"fmt"
	"io"
	"reflect"

	"github.com/pkg/errors"
	ugorji "github.com/ugorji/go/codec"

	"github.com/reoring/binskema"
)

// MessagePack returns the MessagePack codec backed by ugorji/go/codec.
// Strings and byte strings use the distinct str and bin types.
func MessagePack() Codec {
	h := &ugorji.MsgpackHandle{}
	h.WriteExt = true
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.Canonical = true
	return &binaryCodec{name: "msgpack", h: h}
}

// CBOR returns the CBOR codec backed by ugorji/go/codec.
func CBOR() Codec {
	h := &ugorji.CborHandle{}
	h.MapType = reflect.TypeOf(map[string]any(nil))
	h.Canonical = true
	return &binaryCodec{name: "cbor", h: h}
}

type binaryCodec struct {
	name string
	h    ugorji.Handle
}

// pairs encodes as a map in slice order.
type pairs []any

func (pairs) MapBySlice() {}

func (c *binaryCodec) Name() string { return c.name }

func (c *binaryCodec) Marshal(v any) ([]byte, error) {
	var out []byte
	if err := ugorji.NewEncoderBytes(&out, c.h).Encode(ordered(v)); err != nil {
		return nil, errors.Wrapf(err, "codec/%s: marshal failed", c.name)
	}
	return out, nil
}

func (c *binaryCodec) Unmarshal(data []byte) (any, error) {
	var v any
	if err := ugorji.NewDecoderBytes(data, c.h).Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "codec/%s: unmarshal failed", c.name)
	}
	return plain(v), nil
}

func (c *binaryCodec) NewEncoder(w io.Writer) Encoder {
	return &binaryEncoder{name: c.name, enc: ugorji.NewEncoder(w, c.h)}
}

func (c *binaryCodec) NewDecoder(r io.Reader) Decoder {
	return &binaryDecoder{name: c.name, dec: ugorji.NewDecoder(r, c.h)}
}

type binaryEncoder struct {
	name string
	enc  *ugorji.Encoder
}

func (e *binaryEncoder) Encode(v any) error {
	if err := e.enc.Encode(ordered(v)); err != nil {
		return errors.Wrapf(err, "codec/%s: write failed", e.name)
	}
	return nil
}

type binaryDecoder struct {
	name string
	dec  *ugorji.Decoder
}

func (d *binaryDecoder) Decode() (any, error) {
	var v any
	if err := d.dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "codec/%s: read failed", d.name)
	}
	return plain(v), nil
}

// ordered rewrites records into pairs so the encoded map keeps field order.
func ordered(v any) any {
	if _, ok := v.(*binskema.Record); !ok {
		switch t := v.(type) {
		case []any:
			out := make([]any, len(t))
			for i, e := range t {
				out[i] = ordered(e)
			}
			return out
		case binskema.Map, map[string]any:
		default:
			return v
		}
	}
	keys, vals, _ := entries(v)
	out := make(pairs, 0, 2*len(keys))
	for i, k := range keys {
		out = append(out, k, ordered(vals[i]))
	}
	return out
}

// plain turns decoded maps into binskema.Map and narrows integers.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(binskema.Map, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case map[any]any:
		out := make(binskema.Map, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = plain(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = plain(e)
		}
		return t
	}
	return integer(v)
}
