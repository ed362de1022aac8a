package binskema

import (
	"slices"

	"github.com/reoring/binskema/internal/textenc"
)

// Builder accumulates fields in declaration order. Combinators return the
// builder for chaining; the first error is kept and reported by Build.
//
// A Builder used as a Type (array element, choice arm, nest) is snapshotted at
// that point, so chaining more fields onto it later does not change the
// schemas that already use it.
//
// A field bounded by the end of input (Remainder, UntilEOF, or a sub-type
// ending in one) must be the last field; FixedSizeNest bounds its sub-type.
type Builder struct {
	fields   []*field
	names    map[string]bool
	endian   Endian
	pending  []bitReq
	ctor     func() Object
	nextSlot int
	noSlots  bool // positions are unreliable after a flattened field
	open     bool // a field bounded by the end of input was declared
	err      error
}

// Start returns an empty big-endian Builder.
func Start() *Builder { return &Builder{names: map[string]bool{}} }

// New is an alias of Start.
func New() *Builder { return Start() }

func (b *Builder) fail(code, name string, data map[string]string) *Builder {
	if b.err == nil {
		e := schemaError(code, data)
		e.Path = pointer([]string{name})
		b.err = e
	}
	return b
}

func (b *Builder) failErr(name string, err error) *Builder {
	if b.err == nil {
		b.err = withPath(PhaseSchema, err, name)
	}
	return b
}

// claim registers name, failing on duplicates.
func (b *Builder) claim(name string) bool {
	if b.names == nil {
		b.names = map[string]bool{}
	}
	if b.names[name] {
		b.fail(CodeDuplicateFieldName, name, map[string]string{"field": name})
		return false
	}
	b.names[name] = true
	return true
}

// declare runs the checks shared by every combinator.
func (b *Builder) declare(name string, o Options, flattenable bool) bool {
	if b.err != nil {
		return false
	}
	if name == "" {
		b.fail(CodeInvalidOption, name, nil)
		return false
	}
	if b.open {
		b.fail(CodeInvalidLength, name, nil)
		return false
	}
	if !b.claim(name) {
		return false
	}
	if o.Formatter != nil && o.Deformatter == nil {
		b.fail(CodeFormatterWithoutDeformatter, name, nil)
		return false
	}
	if o.Flatten && (!flattenable || o.Formatter != nil) {
		b.fail(CodeInvalidOption, name, nil)
		return false
	}
	return true
}

// flush compiles pending bit fields into one byte-aligned group.
func (b *Builder) flush() {
	if len(b.pending) == 0 {
		return
	}
	f, next := compileBits(b.pending, b.endian, b.nextSlot, !b.noSlots)
	b.fields = append(b.fields, f)
	b.nextSlot = next
	b.pending = nil
}

func (b *Builder) add(name string, op fieldOp, o Options) *Builder {
	f := &field{
		name:        name,
		op:          op,
		formatter:   o.Formatter,
		deformatter: o.Deformatter,
		assert:      o.Assert,
		flatten:     o.Flatten,
		slot:        -1,
	}
	switch {
	case o.Flatten:
		b.noSlots = true
	case !b.noSlots:
		f.slot = b.nextSlot
		b.nextSlot++
	}
	b.fields = append(b.fields, f)
	return b
}

// slotOf finds the record position of an earlier field, or -1.
func (b *Builder) slotOf(name string) int {
	for _, f := range b.fields {
		if f.name == name {
			return f.slot
		}
		if f.bits != nil {
			for _, r := range f.bits.reqs {
				if len(r.path) == 1 && r.path[0] == name {
					return r.slot
				}
			}
		}
	}
	return -1
}

func (b *Builder) bind(l Length) lengthSpec {
	s := lengthSpec{Length: l, slot: -1}
	if l.kind == lengthField {
		s.slot = b.slotOf(l.field)
	}
	return s
}

func validFinite(l Length) bool {
	switch l.kind {
	case lengthFixed:
		return l.n >= 0
	case lengthField:
		return l.field != ""
	case lengthFunc:
		return l.fn != nil
	}
	return false
}

func first(opts []Options) Options {
	if len(opts) > 0 {
		return opts[0]
	}
	return Options{}
}

// Primitive appends a fixed-width number from the primitive registry.
func (b *Builder) Primitive(name string, p Primitive, opts ...Options) *Builder {
	o := first(opts)
	if !b.declare(name, o, false) {
		return b
	}
	b.flush()
	n, err := p.typeNode()
	if err != nil {
		return b.failErr(name, err)
	}
	return b.add(name, primitiveOp{c: n.prim}, o)
}

func (b *Builder) sized(name, base string, opts []Options) *Builder {
	return b.Primitive(name, Primitive(base+b.endian.suffix()), opts...)
}

// Int8 appends a signed byte.
func (b *Builder) Int8(name string, opts ...Options) *Builder { return b.Primitive(name, Int8, opts...) }

// Uint8 appends an unsigned byte.
func (b *Builder) Uint8(name string, opts ...Options) *Builder { return b.Primitive(name, Uint8, opts...) }

// Int16 appends an int16 in the builder's byte order. The same holds for the
// other multi-byte shortcuts.
func (b *Builder) Int16(name string, opts ...Options) *Builder { return b.sized(name, "int16", opts) }

func (b *Builder) Uint16(name string, opts ...Options) *Builder { return b.sized(name, "uint16", opts) }

func (b *Builder) Int32(name string, opts ...Options) *Builder { return b.sized(name, "int32", opts) }

func (b *Builder) Uint32(name string, opts ...Options) *Builder { return b.sized(name, "uint32", opts) }

func (b *Builder) Int64(name string, opts ...Options) *Builder { return b.sized(name, "int64", opts) }

func (b *Builder) Uint64(name string, opts ...Options) *Builder { return b.sized(name, "uint64", opts) }

func (b *Builder) Float32(name string, opts ...Options) *Builder { return b.sized(name, "float", opts) }

func (b *Builder) Float64(name string, opts ...Options) *Builder { return b.sized(name, "double", opts) }

// String appends a text field. It needs a Length, ZeroTerminated, or both.
func (b *Builder) String(name string, o Options) *Builder {
	if !b.declare(name, o, false) {
		return b
	}
	b.flush()
	if !o.Length.IsSet() && !o.ZeroTerminated {
		return b.fail(CodeInvalidLength, name, nil)
	}
	if o.Length.IsSet() && o.Length.kind != lengthRemainder && !validFinite(o.Length) {
		return b.fail(CodeInvalidLength, name, nil)
	}
	enc, ok := textenc.Lookup(o.Encoding)
	if !ok {
		return b.fail(CodeInvalidOption, name, nil)
	}
	b.open = o.Length.kind == lengthRemainder
	return b.add(name, &stringOp{
		length:    b.bind(o.Length),
		enc:       enc,
		zeroTerm:  o.ZeroTerminated,
		stripNull: o.StripNull,
	}, o)
}

// Buffer appends raw bytes. It needs a Length or ReadUntil: UntilEOF().
func (b *Builder) Buffer(name string, o Options) *Builder {
	if !b.declare(name, o, false) {
		return b
	}
	b.flush()
	if o.ReadUntil.fn != nil {
		return b.fail(CodeInvalidOption, name, nil)
	}
	switch {
	case o.ReadUntil.eof, o.Length.kind == lengthRemainder:
	case !validFinite(o.Length):
		return b.fail(CodeInvalidLength, name, nil)
	}
	b.open = o.ReadUntil.eof || o.Length.kind == lengthRemainder
	return b.add(name, &bufferOp{length: b.bind(o.Length), untilEOF: o.ReadUntil.eof, clone: o.Clone}, o)
}

// Array appends a sequence of o.Type bounded by Length or ReadUntil.
func (b *Builder) Array(name string, o Options) *Builder {
	if !b.declare(name, o, false) {
		return b
	}
	b.flush()
	if o.Type == nil {
		return b.fail(CodeInvalidOption, name, nil)
	}
	elem, err := o.Type.typeNode()
	if err != nil {
		return b.failErr(name, err)
	}
	if o.Length.IsSet() == o.ReadUntil.isSet() || (o.Length.IsSet() && !validFinite(o.Length)) {
		return b.fail(CodeInvalidLength, name, nil)
	}
	if o.Key != "" && elem.prim != nil {
		return b.fail(CodeInvalidOption, name, nil)
	}
	b.open = o.ReadUntil.eof || elem.open
	return b.add(name, &arrayOp{elem: elem, length: b.bind(o.Length), until: o.ReadUntil, key: o.Key}, o)
}

// Nest appends a sub-record of type o.Type. A sub-builder holding only bit
// fields joins the parent's pending bits, so they pack together with the
// parent's bit fields.
func (b *Builder) Nest(name string, o Options) *Builder {
	if !b.declare(name, o, true) {
		return b
	}
	if o.Type == nil {
		return b.fail(CodeInvalidOption, name, nil)
	}
	if sub, ok := o.Type.(*Builder); ok && sub.err == nil && len(sub.fields) == 0 && len(sub.pending) > 0 {
		for _, r := range sub.pending {
			r.path = slices.Clone(r.path)
			if o.Flatten {
				if !b.claim(r.path[0]) {
					return b
				}
			} else {
				r.path = append([]string{name}, r.path...)
			}
			b.pending = append(b.pending, r)
		}
		if o.Flatten {
			b.noSlots = true
		}
		return b
	}
	b.flush()
	n, err := o.Type.typeNode()
	if err != nil {
		return b.failErr(name, err)
	}
	if o.Flatten {
		if n.prim != nil {
			return b.fail(CodeInvalidOption, name, nil)
		}
		for _, f := range n.fields {
			if f.name != "" && !f.flatten && !b.claim(f.name) {
				return b
			}
		}
	}
	b.open = n.open
	return b.add(name, &nestOp{sub: n, flatten: o.Flatten}, o)
}

// FixedSizeNest appends o.Type inside a reservation of exactly o.Length
// bytes.
func (b *Builder) FixedSizeNest(name string, o Options) *Builder {
	if !b.declare(name, o, false) {
		return b
	}
	b.flush()
	if o.Type == nil {
		return b.fail(CodeInvalidOption, name, nil)
	}
	if !validFinite(o.Length) {
		return b.fail(CodeInvalidLength, name, nil)
	}
	n, err := o.Type.typeNode()
	if err != nil {
		return b.failErr(name, err)
	}
	return b.add(name, &fixedNestOp{sub: n, length: b.bind(o.Length)}, o)
}

// Choice appends a tagged union: the arm is o.Choices[tag], else
// o.DefaultChoice.
func (b *Builder) Choice(name string, o Options) *Builder {
	if !b.declare(name, o, true) {
		return b
	}
	b.flush()
	if !o.Tag.isSet() || (len(o.Choices) == 0 && o.DefaultChoice == nil) {
		return b.fail(CodeInvalidOption, name, nil)
	}
	arms := make(map[any]*node, len(o.Choices))
	for k, t := range o.Choices {
		if t == nil {
			return b.fail(CodeInvalidOption, name, nil)
		}
		key := choiceKey(k)
		if _, dup := arms[key]; dup {
			return b.fail(CodeInvalidOption, name, nil)
		}
		n, err := t.typeNode()
		if err != nil {
			return b.failErr(name, err)
		}
		if o.Flatten && n.prim != nil {
			return b.fail(CodeInvalidOption, name, nil)
		}
		arms[key] = n
		b.open = b.open || n.open
	}
	var def *node
	if o.DefaultChoice != nil {
		n, err := o.DefaultChoice.typeNode()
		if err != nil {
			return b.failErr(name, err)
		}
		if o.Flatten && n.prim != nil {
			return b.fail(CodeInvalidOption, name, nil)
		}
		def = n
		b.open = b.open || n.open
	}
	op := &choiceOp{tag: o.Tag, tagSlot: -1, arms: arms, def: def, flatten: o.Flatten}
	if o.Tag.field != "" {
		op.tagSlot = b.slotOf(o.Tag.field)
	}
	return b.add(name, op, o)
}

// Bits queues a bit field of 1 to 32 bits. Consecutive bit fields are packed
// together when the next non-bit field, Endianness or Build flushes them.
func (b *Builder) Bits(name string, width int, opts ...Options) *Builder {
	o := first(opts)
	if !b.declare(name, o, false) {
		return b
	}
	if width < 1 || width > 32 {
		return b.fail(CodeInvalidBitWidth, name, nil)
	}
	b.pending = append(b.pending, bitReq{
		width:       width,
		path:        []string{name},
		formatter:   o.Formatter,
		deformatter: o.Deformatter,
		assert:      o.Assert,
	})
	return b
}

// Endianness sets the byte order of the multi-byte shortcuts and the bit
// field layout for fields declared afterwards.
func (b *Builder) Endianness(e Endian) *Builder {
	b.flush()
	b.endian = e
	return b
}

// Create sets the constructor of decoded objects.
func (b *Builder) Create(fn func() Object) *Builder {
	b.ctor = fn
	return b
}

// typeNode snapshots the current fields, flushing pending bits on the copy.
func (b *Builder) typeNode() (*node, error) {
	if b.err != nil {
		return nil, b.err
	}
	fields := slices.Clone(b.fields)
	if len(b.pending) > 0 {
		f, _ := compileBits(b.pending, b.endian, b.nextSlot, !b.noSlots)
		fields = append(fields, f)
	}
	return &node{fields: fields, fixed: fixedOf(fields), ctor: b.ctor, open: b.open}, nil
}

// Build finalizes the schema. The builder stays usable.
func (b *Builder) Build() (*Schema, error) {
	n, err := b.typeNode()
	if err != nil {
		return nil, err
	}
	return &Schema{root: n}, nil
}

// MustBuild is like Build but panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
