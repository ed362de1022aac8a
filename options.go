package binskema

import (
	"bytes"
	"fmt"
	"reflect"
	"strconv"

	"github.com/reoring/binskema/primitive"
)

// Options describes one field. Which options apply depends on the combinator;
// options that make no sense for a combinator are rejected by Build.
type Options struct {
	// Type is the element type of arrays, the sub-type of nests and the
	// primitive of Builder.Primitive when given as Options.
	Type Type
	// Length of strings, buffers, arrays and fixed-size nests.
	Length Length
	// Encoding of strings: utf8 (default), ascii, latin1, hex, base64, utf16le.
	Encoding string
	// ZeroTerminated strings end at the first NUL.
	ZeroTerminated bool
	// StripNull removes trailing NULs of fixed-length strings on decode.
	StripNull bool

	// Formatter maps the decoded wire value to the logical value.
	Formatter func(v any) (any, error)
	// Deformatter maps the logical value back to the wire value. It receives
	// nil when the object has no such field, and the object itself for
	// flattened fields.
	Deformatter func(v any, obj Object) (any, error)
	// Assert checks the formatted value after decoding.
	Assert Assertion

	// Clone copies decoded buffers instead of aliasing the input.
	Clone bool
	// Flatten merges a nest or choice into the parent object.
	Flatten bool

	// Tag, Choices and DefaultChoice configure Builder.Choice.
	Tag           Tag
	Choices       map[any]Type
	DefaultChoice Type

	// Key turns an array into a mapping keyed by this element field.
	Key string
	// ReadUntil bounds arrays (and buffers) without a Length.
	ReadUntil Until
}

type lengthKind int

const (
	lengthNone lengthKind = iota
	lengthFixed
	lengthField
	lengthFunc
	lengthRemainder
)

// Length is a literal, a reference to an earlier field, a function of the
// in-progress object, or the remainder of the input.
type Length struct {
	kind  lengthKind
	n     int
	field string
	fn    func(Object) (int, error)
}

// Len is a literal length.
func Len(n int) Length { return Length{kind: lengthFixed, n: n} }

// LenField takes the length from a field decoded earlier.
func LenField(name string) Length { return Length{kind: lengthField, field: name} }

// LenFunc computes the length from the in-progress object.
func LenFunc(fn func(Object) (int, error)) Length { return Length{kind: lengthFunc, fn: fn} }

// Remainder reads strings and buffers to the end of the input.
func Remainder() Length { return Length{kind: lengthRemainder} }

// IsSet reports whether a length was given.
func (l Length) IsSet() bool { return l.kind != lengthNone }

// lengthSpec is a Length bound to the field slot of its reference.
type lengthSpec struct {
	Length
	slot int
}

func (l lengthSpec) fixed() (int, bool) {
	if l.kind == lengthFixed {
		return l.n, true
	}
	return 0, false
}

// resolve evaluates a finite length against obj.
func (l lengthSpec) resolve(phase Phase, obj Object) (int, error) {
	switch l.kind {
	case lengthFixed:
		return l.n, nil
	case lengthField:
		v, ok := getField(obj, l.slot, l.field)
		if !ok {
			return 0, missingField(phase, l.field)
		}
		n, ok := primitive.ToInt64(v)
		if !ok || n < 0 {
			return 0, newError(phase, CodeInvalidLength, nil, nil)
		}
		return int(n), nil
	case lengthFunc:
		n, err := l.fn(obj)
		if err != nil {
			return 0, asError(phase, err)
		}
		if n < 0 {
			return 0, newError(phase, CodeInvalidLength, nil, nil)
		}
		return n, nil
	}
	return 0, newError(phase, CodeInvalidLength, nil, nil)
}

// Assertion checks a decoded value.
type Assertion struct {
	set  bool
	want any
	fn   func(v any, obj Object) bool
}

// Equals asserts the decoded value equals want. Numbers compare by value
// whatever their Go type.
func Equals(want any) Assertion { return Assertion{set: true, want: want} }

// AssertFunc asserts fn returns true for the decoded value.
func AssertFunc(fn func(v any, obj Object) bool) Assertion { return Assertion{set: true, fn: fn} }

func (a Assertion) check(v any, obj Object) bool {
	if a.fn != nil {
		return a.fn(v, obj)
	}
	return equalValues(a.want, v)
}

func equalValues(a, b any) bool {
	if x, ok := primitive.ToInt64(a); ok {
		y, ok := primitive.ToInt64(b)
		return ok && x == y
	}
	if x, ok := a.([]byte); ok {
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return reflect.DeepEqual(a, b)
}

// Tag selects the arm of a choice.
type Tag struct {
	field string
	fn    func(Object) (any, error)
}

// TagField reads the tag from a field decoded earlier.
func TagField(name string) Tag { return Tag{field: name} }

// TagFunc computes the tag from the in-progress object.
func TagFunc(fn func(Object) (any, error)) Tag { return Tag{fn: fn} }

func (t Tag) isSet() bool { return t.field != "" || t.fn != nil }

// Until bounds an array (or buffer) that has no Length.
type Until struct {
	eof bool
	fn  func(v any) bool
}

// UntilEOF reads elements until the input ends.
func UntilEOF() Until { return Until{eof: true} }

// UntilFunc reads elements up to and including the first one for which fn
// returns true.
func UntilFunc(fn func(v any) bool) Until { return Until{fn: fn} }

func (u Until) isSet() bool { return u.eof || u.fn != nil }

// choiceKey normalizes tags and choice keys: integers and integral floats
// compare as int64.
func choiceKey(v any) any {
	if n, ok := primitive.ToInt64(v); ok {
		return n
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	if v != nil && !reflect.TypeOf(v).Comparable() {
		return fmt.Sprint(v)
	}
	return v
}

// mapKey is the key of a keyed array element.
func mapKey(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	}
	if n, ok := primitive.ToInt64(v); ok {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprint(v)
}
