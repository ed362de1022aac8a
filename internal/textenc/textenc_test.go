package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, n := range []string{"", "utf8", "UTF-8", "ascii", "latin1", "binary", "hex", "base64", "ucs2", "utf16le"} {
		_, ok := Lookup(n)
		assert.True(t, ok, n)
	}
	_, ok := Lookup("ebcdic")
	assert.False(t, ok)
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		enc  string
		text string
		raw  []byte
	}{
		{"ascii", "hello, world", []byte("hello, world")},
		{"utf8", "こんにちは", []byte("こんにちは")},
		{"hex", "cafebabe", []byte{0xca, 0xfe, 0xba, 0xbe}},
		{"base64", "3q2+7w==", []byte{0xde, 0xad, 0xbe, 0xef}},
		{"latin1", "café", []byte{'c', 'a', 'f', 0xe9}},
		{"utf16le", "AB", []byte{'A', 0, 'B', 0}},
	}
	for _, tc := range cases {
		t.Run(tc.enc, func(t *testing.T) {
			e, _ := Lookup(tc.enc)
			b, err := e.Encode(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.raw, b)
			s, err := e.Decode(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.text, s)
		})
	}
}

func TestInvalid(t *testing.T) {
	e, _ := Lookup("utf8")
	_, err := e.Decode([]byte{0xff, 0xfe})
	assert.ErrorIs(t, err, ErrInvalid)

	e, _ = Lookup("ascii")
	_, err = e.Encode("é")
	assert.ErrorIs(t, err, ErrInvalid)

	e, _ = Lookup("hex")
	_, err = e.Encode("zz")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestBoundary(t *testing.T) {
	e, _ := Lookup("utf8")
	b := []byte("aé") // 'a', 0xc3, 0xa9
	assert.Equal(t, 1, e.Boundary(b, 2))
	assert.Equal(t, 3, e.Boundary(b, 3))
	assert.Equal(t, 3, e.Boundary(b, 10))
}

func TestNUL(t *testing.T) {
	cases := []struct {
		name  string
		b     []byte
		unit  int
		index int
		trim  []byte
	}{
		{"bytes", []byte{'a', 0, 'b', 0, 0}, 1, 1, []byte{'a', 0, 'b'}},
		{"units", []byte{'a', 0, 'b', 0, 0, 0}, 2, 4, []byte{'a', 0, 'b', 0}},
		{"zero byte inside a unit", []byte{0, 1, 0, 0}, 2, 2, []byte{0, 1}},
		{"odd length", []byte{'a', 0, 0}, 2, -1, []byte{'a', 0, 0}},
		{"none", []byte("abc"), 1, -1, []byte("abc")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.index, IndexNUL(tc.b, tc.unit))
			assert.Equal(t, tc.trim, TrimNUL(tc.b, tc.unit))
		})
	}

	utf16, _ := Lookup("utf16le")
	assert.Equal(t, 2, utf16.Unit())
	utf8, _ := Lookup("utf8")
	assert.Equal(t, 1, utf8.Unit())
}
