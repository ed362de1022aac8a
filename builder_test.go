package binskema_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/binskema"
)

func TestBuilder_SchemaErrors(t *testing.T) {
	identity := func(v any) (any, error) { return v, nil }
	elem := binskema.Start().Uint8("v")

	cases := []struct {
		name string
		b    *binskema.Builder
		code string
		path string
	}{
		{"duplicate", binskema.Start().Uint8("a").Uint16("a"), binskema.CodeDuplicateFieldName, "/a"},
		{"duplicate bit", binskema.Start().Bits("a", 1).Bits("a", 2), binskema.CodeDuplicateFieldName, "/a"},
		{"duplicate across kinds", binskema.Start().Bits("a", 1).String("a", binskema.Options{ZeroTerminated: true}), binskema.CodeDuplicateFieldName, "/a"},
		{"formatter without deformatter", binskema.Start().Uint8("a", binskema.Options{Formatter: identity}), binskema.CodeFormatterWithoutDeformatter, "/a"},
		{"unsupported primitive", binskema.Start().Primitive("a", "int24le"), binskema.CodeUnsupportedPrimitive, "/a"},
		{"string without length", binskema.Start().String("s", binskema.Options{}), binskema.CodeInvalidLength, "/s"},
		{"negative length", binskema.Start().String("s", binskema.Options{Length: binskema.Len(-1)}), binskema.CodeInvalidLength, "/s"},
		{"buffer without length", binskema.Start().Buffer("b", binskema.Options{}), binskema.CodeInvalidLength, "/b"},
		{"array without bound", binskema.Start().Array("x", binskema.Options{Type: binskema.Uint8}), binskema.CodeInvalidLength, "/x"},
		{"array with remainder", binskema.Start().Array("x", binskema.Options{Type: binskema.Uint8, Length: binskema.Remainder()}), binskema.CodeInvalidLength, "/x"},
		{"array without type", binskema.Start().Array("x", binskema.Options{Length: binskema.Len(1)}), binskema.CodeInvalidOption, "/x"},
		{"keyed primitive array", binskema.Start().Array("x", binskema.Options{Type: binskema.Uint8, Length: binskema.Len(1), Key: "k"}), binskema.CodeInvalidOption, "/x"},
		{"fixed nest without length", binskema.Start().FixedSizeNest("n", binskema.Options{Type: elem}), binskema.CodeInvalidLength, "/n"},
		{"flatten string", binskema.Start().String("s", binskema.Options{Length: binskema.Len(1), Flatten: true}), binskema.CodeInvalidOption, "/s"},
		{"flatten primitive arm", binskema.Start().Uint8("t").Choice("c", binskema.Options{
			Tag: binskema.TagField("t"), Choices: map[any]binskema.Type{1: binskema.Uint8}, Flatten: true,
		}), binskema.CodeInvalidOption, "/c"},
		{"choice without tag", binskema.Start().Choice("c", binskema.Options{Choices: map[any]binskema.Type{1: elem}}), binskema.CodeInvalidOption, "/c"},
		{"choice without arms", binskema.Start().Uint8("t").Choice("c", binskema.Options{Tag: binskema.TagField("t")}), binskema.CodeInvalidOption, "/c"},
		{"conflicting choice keys", binskema.Start().Uint8("t").Choice("c", binskema.Options{
			Tag: binskema.TagField("t"), Choices: map[any]binskema.Type{1: elem, int64(1): elem},
		}), binskema.CodeInvalidOption, "/c"},
		{"unknown encoding", binskema.Start().String("s", binskema.Options{Length: binskema.Len(1), Encoding: "ebcdic"}), binskema.CodeInvalidOption, "/s"},
		{"field after remainder string", binskema.Start().String("a", binskema.Options{Length: binskema.Remainder()}).Uint8("b"), binskema.CodeInvalidLength, "/b"},
		{"field after remainder buffer", binskema.Start().Buffer("a", binskema.Options{Length: binskema.Remainder()}).String("b", binskema.Options{Length: binskema.Len(1)}), binskema.CodeInvalidLength, "/b"},
		{"field after until eof buffer", binskema.Start().Buffer("a", binskema.Options{ReadUntil: binskema.UntilEOF()}).Bits("b", 1), binskema.CodeInvalidLength, "/b"},
		{"field after until eof array", binskema.Start().Array("a", binskema.Options{Type: binskema.Uint8, ReadUntil: binskema.UntilEOF()}).Uint8("b"), binskema.CodeInvalidLength, "/b"},
		{"field after open nest", binskema.Start().Nest("a", binskema.Options{
			Type: binskema.Start().Uint8("n").Buffer("rest", binskema.Options{ReadUntil: binskema.UntilEOF()}),
		}).Uint8("b"), binskema.CodeInvalidLength, "/b"},
		{"field after open choice arm", binskema.Start().Uint8("t").Choice("a", binskema.Options{
			Tag:     binskema.TagField("t"),
			Choices: map[any]binskema.Type{1: binskema.Start().String("s", binskema.Options{Length: binskema.Remainder()})},
		}).Uint8("b"), binskema.CodeInvalidLength, "/b"},
		{"error inside element type", binskema.Start().Array("x", binskema.Options{
			Type: binskema.Start().Uint8("a").Uint8("a"), Length: binskema.Len(1),
		}), binskema.CodeDuplicateFieldName, "/x/a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.Build()
			e := requireCode(t, err, tc.code)
			assert.Equal(t, binskema.PhaseSchema, e.Phase)
			assert.Equal(t, tc.path, e.Path)
			assert.Panics(t, func() { tc.b.MustBuild() })
		})
	}
}

func TestBuilder_FirstErrorSticks(t *testing.T) {
	_, err := binskema.Start().
		Uint8("a").
		Uint8("a").
		String("s", binskema.Options{}).
		Build()
	assert.ErrorIs(t, err, binskema.ErrDuplicateFieldName)
	assert.False(t, errors.Is(err, binskema.ErrInvalidLength))
}

func TestBuilder_FixedSizeNestBoundsRemainder(t *testing.T) {
	_, err := binskema.Start().
		FixedSizeNest("a", binskema.Options{
			Type:   binskema.Start().Buffer("rest", binskema.Options{Length: binskema.Remainder()}),
			Length: binskema.Len(2),
		}).
		Uint8("b").
		Build()
	require.NoError(t, err)
}

func TestBuilder_NestedNamesAreScoped(t *testing.T) {
	_, err := binskema.Start().
		Uint8("v").
		Nest("inner", binskema.Options{Type: binskema.Start().Uint8("v")}).
		Build()
	require.NoError(t, err)
}

func TestBuilder_SnapshotIsolation(t *testing.T) {
	b := binskema.Start().Uint8("a")
	first := b.MustBuild()
	b.Uint8("b")
	second := b.MustBuild()

	n, _ := first.FixedSize()
	assert.Equal(t, 1, n)
	n, _ = second.FixedSize()
	assert.Equal(t, 2, n)

	// Pending bits are flushed on the built copy only.
	bits := binskema.Start().Bits("x", 4)
	s := bits.MustBuild()
	bits.Bits("y", 4)
	checkResult(t, s, []byte{0xa0}, rec("x", 10))
	checkResult(t, bits.MustBuild(), []byte{0xab}, rec("x", 10, "y", 11))
}

func TestBuilder_New(t *testing.T) {
	s := binskema.New().Uint8("a").MustBuild()
	checkResult(t, s, []byte{1}, rec("a", 1))
}

type point struct{ x, y int64 }

func (p *point) Get(name string) (any, bool) {
	switch name {
	case "x":
		return p.x, true
	case "y":
		return p.y, true
	}
	return nil, false
}

func (p *point) Set(name string, v any) {
	switch name {
	case "x":
		p.x = v.(int64)
	case "y":
		p.y = v.(int64)
	}
}

func TestBuilder_Create(t *testing.T) {
	s := binskema.Start().
		Create(func() binskema.Object { return &point{} }).
		Int8("x").
		Int8("y").
		MustBuild()
	checkResult(t, s, []byte{3, 0xfc}, &point{x: 3, y: -4})

	m := binskema.Start().
		Create(func() binskema.Object { return binskema.Map{} }).
		Uint8("n").
		MustBuild()
	got, err := m.Decode([]byte{7})
	require.NoError(t, err)
	assert.Equal(t, binskema.Map{"n": int64(7)}, got)
}
