package schemafile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/binskema"
	"github.com/reoring/binskema/schemafile"
)

const packetYAML = `
endian: big
fields:
  - {name: magic, type: uint16, assert: 0xcafe}
  - {name: kind, type: uint8}
  - {name: flags, type: bits, width: 3}
  - {name: level, type: bits, width: 5}
  - {name: count, type: uint8}
  - {name: points, type: array, of: point, length: count}
  - name: body
    type: choice
    tag: kind
    choices:
      1: {fields: [{name: code, type: uint16}]}
      2: text
    default: uint8
  - {name: endianness, type: endianness, value: little}
  - {name: crc, type: uint16}
types:
  point:
    fields:
      - {name: x, type: int8}
      - {name: y, type: int8}
  text:
    fields:
      - {name: s, type: string, zeroTerminated: true}
`

const packetJSON = `{
  "endian": "big",
  "fields": [
    {"name": "magic", "type": "uint16", "assert": 51966},
    {"name": "kind", "type": "uint8"},
    {"name": "flags", "type": "bits", "width": 3},
    {"name": "level", "type": "bits", "width": 5},
    {"name": "count", "type": "uint8"},
    {"name": "points", "type": "array", "of": "point", "length": "count"},
    {"name": "body", "type": "choice", "tag": "kind",
     "choices": {"1": {"fields": [{"name": "code", "type": "uint16"}]}, "2": "text"},
     "default": "uint8"},
    {"type": "endianness", "value": "little"},
    {"name": "crc", "type": "uint16"}
  ],
  "types": {
    "point": {"fields": [{"name": "x", "type": "int8"}, {"name": "y", "type": "int8"}]},
    "text": {"fields": [{"name": "s", "type": "string", "zeroTerminated": true}]}
  }
}`

func point(x, y int64) *binskema.Record { return binskema.NewRecord("x", x, "y", y) }

func checkPacket(t *testing.T, s *binskema.Schema) {
	t.Helper()
	wire := []byte{0xca, 0xfe, 2, 0x45, 2, 1, 0xff, 3, 4, 'h', 'i', 0, 0x34, 0x12}
	got, err := s.Decode(wire)
	require.NoError(t, err)
	want := binskema.NewRecord(
		"magic", int64(0xcafe),
		"kind", int64(2),
		"flags", int64(2),
		"level", int64(5),
		"count", int64(2),
		"points", []any{point(1, -1), point(3, 4)},
		"body", binskema.NewRecord("s", "hi"),
		"crc", int64(0x1234),
	)
	assert.Equal(t, want, got)

	out, err := s.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, wire, out)

	code, err := s.Decode([]byte{0xca, 0xfe, 1, 0, 0, 0x01, 0x02, 0, 0})
	require.NoError(t, err)
	body, _ := code.Get("body")
	assert.Equal(t, binskema.NewRecord("code", int64(0x0102)), body)

	other, err := s.Decode([]byte{0xca, 0xfe, 9, 0, 0, 7, 0, 0})
	require.NoError(t, err)
	body, _ = other.Get("body")
	assert.Equal(t, int64(7), body)

	_, err = s.Decode([]byte{0xca, 0xff, 0, 0, 0})
	assert.ErrorIs(t, err, binskema.ErrAssertionFailed)
}

func TestLoadYAML(t *testing.T) {
	s, err := schemafile.LoadYAML([]byte(packetYAML))
	require.NoError(t, err)
	checkPacket(t, s)
}

func TestLoadJSON(t *testing.T) {
	s, err := schemafile.LoadJSON([]byte(packetJSON))
	require.NoError(t, err)
	checkPacket(t, s)
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "packet.yaml")
	js := filepath.Join(dir, "packet.json")
	require.NoError(t, os.WriteFile(yml, []byte(packetYAML), 0o644))
	require.NoError(t, os.WriteFile(js, []byte(packetJSON), 0o644))

	for _, p := range []string{yml, js} {
		s, err := schemafile.Load(p)
		require.NoError(t, err, p)
		checkPacket(t, s)
	}

	_, err := schemafile.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLengths(t *testing.T) {
	s, err := schemafile.LoadYAML([]byte(`
fields:
  - {name: tag, type: string, length: 2}
  - {name: rest, type: buffer, length: remainder}
`))
	require.NoError(t, err)
	got, err := s.Decode([]byte("ab\x01\x02"))
	require.NoError(t, err)
	assert.Equal(t, binskema.NewRecord("tag", "ab", "rest", []byte{1, 2}), got)
}

func TestErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"unknown type", `fields: [{name: a, type: int24}]`},
		{"unknown reference", `fields: [{name: a, type: array, of: nope, length: 1}]`},
		{"self reference", `
fields: [{name: a, type: nest, of: loop}]
types:
  loop:
    fields: [{name: b, type: nest, of: loop}]
`},
		{"bad endian", `endian: middle`},
		{"bad readUntil", `fields: [{name: a, type: buffer, readUntil: never}]`},
		{"choice without tag", `fields: [{name: a, type: choice, choices: {1: uint8}}]`},
		{"bad yaml", `fields: [`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := schemafile.LoadYAML([]byte(tc.doc))
			assert.Error(t, err)
		})
	}

	_, err := schemafile.LoadYAML([]byte(`fields: [{name: a, type: uint8}, {name: a, type: uint8}]`))
	assert.ErrorIs(t, err, binskema.ErrDuplicateFieldName)
}
