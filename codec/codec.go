// Package codec converts decoded records to and from interchange formats:
// JSON, YAML, MessagePack and CBOR.
//
// Marshal accepts the values produced by binskema decoding (*binskema.Record,
// binskema.Map, []any, []byte and scalars). Unmarshal returns values the
// schemas can encode again: JSON and YAML keep key order and yield
// *binskema.Record, the binary formats yield binskema.Map.
package codec

import (
	"bytes"
	"io"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/reoring/binskema"
)

// Codec marshals single values and builds stream encoders and decoders.
type Codec interface {
	Name() string

	// Marshal encodes a single value and returns the serialized byte slice.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes and returns the value stored in data.
	Unmarshal(data []byte) (any, error)

	NewDecoder(io.Reader) Decoder
	NewEncoder(io.Writer) Encoder
}

// Decoder reads a sequence of values. Decode returns io.EOF after the last one.
type Decoder interface {
	Decode() (any, error)
}

// Encoder writes a sequence of values.
type Encoder interface {
	Encode(v any) error
}

var registry = map[string]Codec{}

func register(c Codec) { registry[c.Name()] = c }

func init() {
	register(JSON())
	register(YAML())
	register(MessagePack())
	register(CBOR())
}

// Lookup returns the codec registered under name.
func Lookup(name string) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}

// Names lists the registered codec names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// sepEncoder writes Marshal output with a separator between values.
type sepEncoder struct {
	w     io.Writer
	c     Codec
	sep   []byte
	after bool // separator follows each value instead of preceding the next
	n     int
}

func (e *sepEncoder) Encode(v any) error {
	b, err := e.c.Marshal(v)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if !e.after && e.n > 0 {
		buf.Write(e.sep)
	}
	buf.Write(b)
	if e.after {
		buf.Write(e.sep)
	}
	e.n++
	if _, err := e.w.Write(buf.Bytes()); err != nil {
		return errors.Wrapf(err, "codec/%s: write failed", e.c.Name())
	}
	return nil
}

// entries lists a mapping in output order: declaration order for records,
// sorted keys for maps.
func entries(v any) ([]string, []any, bool) {
	switch t := v.(type) {
	case *binskema.Record:
		keys := t.Keys()
		vals := make([]any, 0, len(keys))
		t.Range(func(_ string, v any) bool {
			vals = append(vals, v)
			return true
		})
		return keys, vals, true
	case binskema.Map:
		return sortedEntries(t)
	case map[string]any:
		return sortedEntries(t)
	}
	return nil, nil, false
}

func sortedEntries(m map[string]any) ([]string, []any, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]any, len(keys))
	for i, k := range keys {
		vals[i] = m[k]
	}
	return keys, vals, true
}

// integer narrows the integer kinds of the format libraries to the int64
// the decoder produces, keeping uint64 only above math.MaxInt64.
func integer(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return integer(uint64(n))
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		if n <= math.MaxInt64 {
			return int64(n)
		}
		return n
	case float32:
		return float64(n)
	}
	return v
}
