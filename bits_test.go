package binskema_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/binskema"
)

func fourFields(e binskema.Endian) *binskema.Schema {
	return binskema.Start().
		Endianness(e).
		Bits("a", 1).
		Bits("b", 2).
		Bits("c", 4).
		Bits("d", 1).
		MustBuild()
}

func TestBits_OneByte(t *testing.T) {
	// 1 10 1010 0
	checkResult(t, fourFields(binskema.BigEndian), []byte{0xd4}, rec("a", 1, "b", 2, "c", 10, "d", 0))
}

func TestBits_OneByteLittleEndian(t *testing.T) {
	// Little endian lays the fields out last to first: d c b a.
	checkResult(t, fourFields(binskema.LittleEndian), []byte{0xd4}, rec("d", 1, "c", 10, "b", 2, "a", 0))
}

func TestBits_AcrossBytesLittleEndian(t *testing.T) {
	s := binskema.Start().
		Endianness(binskema.LittleEndian).
		Bits("a", 3).
		Bits("b", 9).
		Bits("c", 4).
		MustBuild()
	// 1011 110001110 111
	checkResult(t, s, []byte{0xbc, 0x77}, rec("c", 11, "b", 398, "a", 7))
}

func TestBits_ThirtyTwo(t *testing.T) {
	s := binskema.Start().Bits("a", 32).MustBuild()
	checkResult(t, s, []byte{49, 204, 205, 255}, rec("a", 835505663))
}

func TestBits_FlushOnPrimitive(t *testing.T) {
	for i := 17; i <= 24; i++ {
		t.Run(fmt.Sprintf("bit%d", i), func(t *testing.T) {
			s := binskema.Start().Bits("a", i).Uint8("b").MustBuild()
			checkResult(t, s, []byte{0, 1, 0, 4}, rec("a", 1<<(i-16), "b", 4))
		})
	}
}

func TestBits_PaddingIsZero(t *testing.T) {
	s := binskema.Start().Bits("a", 3).Bits("b", 2).Uint8("c").MustBuild()
	got, err := s.Decode([]byte{0xff, 9})
	require.NoError(t, err)
	assert.Equal(t, rec("a", 7, "b", 3, "c", 9), got)

	out, err := s.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf8, 9}, out)

	size, ok := s.FixedSize()
	require.True(t, ok)
	assert.Equal(t, 2, size)
}

func TestBits_NestedBitFields(t *testing.T) {
	s := binskema.Start().
		Bits("a", 1).
		Nest("x", binskema.Options{Type: binskema.Start().Bits("b", 2).Bits("c", 4).Bits("d", 1)}).
		MustBuild()
	checkResult(t, s, []byte{0xd4}, rec("a", 1, "x", rec("b", 2, "c", 10, "d", 0)))
}

func TestBits_EndiannessFlushes(t *testing.T) {
	s := binskema.Start().
		Bits("a", 4).
		Endianness(binskema.LittleEndian).
		Bits("b", 4).
		Bits("c", 4).
		MustBuild()
	// a alone fills the first byte; b and c swap places in the second.
	checkResult(t, s, []byte{0x50, 0x21}, rec("a", 5, "c", 2, "b", 1))
}

func TestBits_FormatterAndAssert(t *testing.T) {
	s := binskema.Start().
		Bits("flag", 1, binskema.Options{
			Formatter:   func(v any) (any, error) { return v == int64(1), nil },
			Deformatter: func(v any, _ binskema.Object) (any, error) { return map[bool]int{false: 0, true: 1}[v.(bool)], nil },
		}).
		Bits("version", 7, binskema.Options{Assert: binskema.Equals(2)}).
		MustBuild()
	checkResult(t, s, []byte{0x82}, rec("flag", true, "version", 2))

	_, err := s.Decode([]byte{0x83})
	e := requireCode(t, err, binskema.CodeAssertionFailed)
	assert.Equal(t, "/version", e.Path)
}

func TestBits_ValueTooWide(t *testing.T) {
	_, err := fourFields(binskema.BigEndian).Encode(binskema.Map{"a": 1, "b": 4, "c": 0, "d": 0})
	e := requireCode(t, err, binskema.CodeInvalidValue)
	assert.Equal(t, "/b", e.Path)
}

func TestBits_Width(t *testing.T) {
	for _, w := range []int{0, 33, -1} {
		_, err := binskema.Start().Bits("a", w).Build()
		requireCode(t, err, binskema.CodeInvalidBitWidth)
	}
}
