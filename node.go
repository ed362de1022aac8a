package binskema

import (
	"strings"

	"github.com/reoring/binskema/primitive"
)

// Type is anything usable as a field type: a Primitive, a *Builder (used
// through a snapshot of its current fields) or a built *Schema.
type Type interface {
	typeNode() (*node, error)
}

// Primitive names an entry of the primitive registry.
type Primitive string

const (
	Int8     Primitive = "int8"
	Uint8    Primitive = "uint8"
	Int16LE  Primitive = "int16le"
	Int16BE  Primitive = "int16be"
	Uint16LE Primitive = "uint16le"
	Uint16BE Primitive = "uint16be"
	Int32LE  Primitive = "int32le"
	Int32BE  Primitive = "int32be"
	Uint32LE Primitive = "uint32le"
	Uint32BE Primitive = "uint32be"
	Int64LE  Primitive = "int64le"
	Int64BE  Primitive = "int64be"
	Uint64LE Primitive = "uint64le"
	Uint64BE Primitive = "uint64be"
	FloatLE  Primitive = "floatle"
	FloatBE  Primitive = "floatbe"
	DoubleLE Primitive = "doublele"
	DoubleBE Primitive = "doublebe"
)

func (p Primitive) typeNode() (*node, error) {
	c, ok := primitive.Lookup(string(p))
	if !ok {
		return nil, schemaError(CodeUnsupportedPrimitive, map[string]string{"type": string(p)})
	}
	return &node{prim: &c, fixed: c.Size}, nil
}

// PrimitiveFor resolves a registry name, or an endian-following base name
// such as "uint16" or "float64", to the Primitive for byte order e.
func PrimitiveFor(name string, e Endian) (Primitive, bool) {
	if _, ok := primitive.Lookup(name); ok {
		return Primitive(name), true
	}
	p := Primitive(name + e.suffix())
	_, ok := primitive.Lookup(string(p))
	return p, ok
}

// Endian selects the byte order of multi-byte shortcuts and the order in
// which bit fields are laid out.
type Endian int

const (
	BigEndian Endian = iota
	LittleEndian
)

func (e Endian) String() string {
	if e == LittleEndian {
		return "little"
	}
	return "big"
}

func (e Endian) suffix() string {
	if e == LittleEndian {
		return "le"
	}
	return "be"
}

// ParseEndian accepts "big"/"be" and "little"/"le".
func ParseEndian(s string) (Endian, bool) {
	switch strings.ToLower(s) {
	case "big", "be":
		return BigEndian, true
	case "little", "le":
		return LittleEndian, true
	}
	return BigEndian, false
}

// node is a compiled type: either a primitive leaf or an ordered list of
// field operations. Nodes are never mutated once built.
type node struct {
	prim   *primitive.Codec
	fields []*field
	fixed  int // encoded size, -1 when it depends on the value
	ctor   func() Object
	open   bool // the last field runs to the end of input
}

func (n *node) newObject() (Object, bool) {
	if n.ctor != nil {
		return n.ctor(), false
	}
	return &Record{keys: make([]string, 0, len(n.fields)), vals: make([]any, 0, len(n.fields))}, true
}

// field is one named operation of a record node.
type field struct {
	name        string
	op          fieldOp
	formatter   func(any) (any, error)
	deformatter func(any, Object) (any, error)
	assert      Assertion
	flatten     bool
	slot        int // position in decoder-made records, -1 when unknown
	bits        *bitGroup
}

// fieldOp is the per-kind logic shared by the size, encode and decode
// interpreters. v is the wire value of the field, obj the enclosing object.
type fieldOp interface {
	// fixedSize is the encoded size when it does not depend on the value.
	fixedSize() int
	size(v any, obj Object) (int, error)
	encode(v any, obj Object, buf []byte) (int, error)
	// decode either returns a complete value or a frame to push.
	decode(d *decoder, fr *recordFrame) (any, frame, error)
}

// seg is the path segment of the field in error paths.
func (f *field) seg() string {
	if f.flatten {
		return ""
	}
	return f.name
}

// value reads the wire value of f from obj.
func (f *field) value(obj Object) (any, error) {
	if f.bits != nil {
		return obj, nil
	}
	var v any
	ok := true
	if f.flatten {
		v = obj
	} else {
		v, ok = getField(obj, f.slot, f.name)
	}
	if f.deformatter != nil {
		out, err := f.deformatter(v, obj)
		if err != nil {
			return nil, asError(PhaseEncode, err)
		}
		return out, nil
	}
	if !ok {
		return nil, missingField(PhaseEncode, f.name)
	}
	return v, nil
}

func fixedOf(fields []*field) int {
	total := 0
	for _, f := range fields {
		n := f.op.fixedSize()
		if n < 0 {
			return -1
		}
		total += n
	}
	return total
}
