// Package primitive is the static registry of fixed-width numeric types used by
// binskema: each entry maps a name to its byte width and raw decode/encode.
package primitive

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind classifies the Go value a primitive decodes into.
type Kind int

const (
	Signed   Kind = iota // int64
	Unsigned             // int64, except 64-bit values which decode as uint64
	Float                // float64
)

// Codec describes one primitive type.
type Codec struct {
	Name string
	Size int
	Kind Kind
	// Decode reads exactly Size bytes.
	Decode func(b []byte) any
	// Encode writes exactly Size bytes; it fails when v is not a number or
	// does not fit the type.
	Encode func(v any, b []byte) error
}

var registry = map[string]Codec{}

func register(c Codec, aliases ...string) {
	registry[c.Name] = c
	for _, a := range aliases {
		registry[a] = c
	}
}

// Lookup returns the codec registered under name (case-insensitive).
func Lookup(name string) (Codec, bool) {
	c, ok := registry[strings.ToLower(name)]
	return c, ok
}

// Names lists every registered name, including aliases, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	register(Codec{Name: "int8", Size: 1, Kind: Signed,
		Decode: func(b []byte) any { return int64(int8(b[0])) },
		Encode: func(v any, b []byte) error {
			n, err := signed(v, math.MinInt8, math.MaxInt8)
			b[0] = byte(int8(n))
			return err
		}})
	register(Codec{Name: "uint8", Size: 1, Kind: Unsigned,
		Decode: func(b []byte) any { return int64(b[0]) },
		Encode: func(v any, b []byte) error {
			n, err := unsigned(v, math.MaxUint8)
			b[0] = byte(n)
			return err
		}})

	for _, o := range []struct {
		suffix string
		order  binary.ByteOrder
	}{{"le", binary.LittleEndian}, {"be", binary.BigEndian}} {
		order := o.order
		register(Codec{Name: "int16" + o.suffix, Size: 2, Kind: Signed,
			Decode: func(b []byte) any { return int64(int16(order.Uint16(b))) },
			Encode: func(v any, b []byte) error {
				n, err := signed(v, math.MinInt16, math.MaxInt16)
				order.PutUint16(b, uint16(int16(n)))
				return err
			}})
		register(Codec{Name: "uint16" + o.suffix, Size: 2, Kind: Unsigned,
			Decode: func(b []byte) any { return int64(order.Uint16(b)) },
			Encode: func(v any, b []byte) error {
				n, err := unsigned(v, math.MaxUint16)
				order.PutUint16(b, uint16(n))
				return err
			}})
		register(Codec{Name: "int32" + o.suffix, Size: 4, Kind: Signed,
			Decode: func(b []byte) any { return int64(int32(order.Uint32(b))) },
			Encode: func(v any, b []byte) error {
				n, err := signed(v, math.MinInt32, math.MaxInt32)
				order.PutUint32(b, uint32(int32(n)))
				return err
			}})
		register(Codec{Name: "uint32" + o.suffix, Size: 4, Kind: Unsigned,
			Decode: func(b []byte) any { return int64(order.Uint32(b)) },
			Encode: func(v any, b []byte) error {
				n, err := unsigned(v, math.MaxUint32)
				order.PutUint32(b, uint32(n))
				return err
			}})
		register(Codec{Name: "int64" + o.suffix, Size: 8, Kind: Signed,
			Decode: func(b []byte) any { return int64(order.Uint64(b)) },
			Encode: func(v any, b []byte) error {
				n, err := signed(v, math.MinInt64, math.MaxInt64)
				order.PutUint64(b, uint64(n))
				return err
			}}, "bigint64"+o.suffix)
		register(Codec{Name: "uint64" + o.suffix, Size: 8, Kind: Unsigned,
			Decode: func(b []byte) any { return order.Uint64(b) },
			Encode: func(v any, b []byte) error {
				n, err := unsigned(v, math.MaxUint64)
				order.PutUint64(b, n)
				return err
			}}, "biguint64"+o.suffix)
		register(Codec{Name: "float" + o.suffix, Size: 4, Kind: Float,
			Decode: func(b []byte) any { return float64(math.Float32frombits(order.Uint32(b))) },
			Encode: func(v any, b []byte) error {
				f, err := float(v)
				order.PutUint32(b, math.Float32bits(float32(f)))
				return err
			}}, "float32"+o.suffix)
		register(Codec{Name: "double" + o.suffix, Size: 8, Kind: Float,
			Decode: func(b []byte) any { return math.Float64frombits(order.Uint64(b)) },
			Encode: func(v any, b []byte) error {
				f, err := float(v)
				order.PutUint64(b, math.Float64bits(f))
				return err
			}}, "float64"+o.suffix)
	}
}

// RangeError reports a value that does not fit the target primitive.
type RangeError struct {
	Value any
	Min   any
	Max   any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %v out of range [%v, %v]", e.Value, e.Min, e.Max)
}

// TypeError reports a non-numeric value.
type TypeError struct{ Value any }

func (e *TypeError) Error() string { return fmt.Sprintf("not a number: %T", e.Value) }

func signed(v any, lo, hi int64) (int64, error) {
	switch n := v.(type) {
	case uint64:
		if n > uint64(hi) {
			return 0, &RangeError{Value: v, Min: lo, Max: hi}
		}
		return int64(n), nil
	case uint:
		if uint64(n) > uint64(hi) {
			return 0, &RangeError{Value: v, Min: lo, Max: hi}
		}
		return int64(n), nil
	}
	n, ok := ToInt64(v)
	if !ok {
		return 0, &TypeError{Value: v}
	}
	if n < lo || n > hi {
		return 0, &RangeError{Value: v, Min: lo, Max: hi}
	}
	return n, nil
}

func unsigned(v any, hi uint64) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		if n > hi {
			return 0, &RangeError{Value: v, Min: 0, Max: hi}
		}
		return n, nil
	case uint:
		if uint64(n) > hi {
			return 0, &RangeError{Value: v, Min: 0, Max: hi}
		}
		return uint64(n), nil
	}
	n, ok := ToInt64(v)
	if !ok {
		return 0, &TypeError{Value: v}
	}
	if n < 0 || uint64(n) > hi {
		return 0, &RangeError{Value: v, Min: 0, Max: hi}
	}
	return uint64(n), nil
}

func float(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	}
	n, ok := ToInt64(v)
	if !ok {
		return 0, &TypeError{Value: v}
	}
	return float64(n), nil
}

// ToInt64 converts any Go integer, or an integral float, to int64. uint64
// values above math.MaxInt64 are rejected.
func ToInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		if float32(int64(n)) != n {
			return 0, false
		}
		return int64(n), true
	case float64:
		if math.Trunc(n) != n || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}
