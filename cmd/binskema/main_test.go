package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pointYAML = `
endian: little
fields:
  - {name: x, type: int16}
  - {name: y, type: int16}
`

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestDecodeCmd(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))
	a := writeFile(t, dir, "a.bin", []byte{1, 0, 2, 0, 3, 0, 0xfc, 0xff})
	b := writeFile(t, dir, "b.bin", []byte{5, 0, 6, 0})

	var out bytes.Buffer
	err := decodeCmd(context.Background(), []string{"-schema", schema, "-chunk", "3", a, b}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"y":2}
{"x":3,"y":-4}
{"x":5,"y":6}
`, out.String())
}

func TestDecodeCmd_StdinAndOutputFile(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))
	dst := filepath.Join(dir, "out.yaml")

	err := decodeCmd(context.Background(), []string{"-schema", schema, "-format", "yaml", "-o", dst},
		bytes.NewReader([]byte{1, 0, 2, 0, 3, 0, 4, 0}), nil)
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "x: 1\ny: 2\n---\nx: 3\ny: 4\n", string(got))
}

func TestDecodeCmd_Truncated(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))
	err := decodeCmd(context.Background(), []string{"-schema", schema}, bytes.NewReader([]byte{1, 0, 2}), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "truncated_stream")
}

func TestEncodeCmd(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))

	for _, format := range []string{"json", "yaml", "msgpack", "cbor"} {
		t.Run(format, func(t *testing.T) {
			var text bytes.Buffer
			wire := []byte{1, 0, 2, 0, 0xfd, 0xff, 4, 0}
			require.NoError(t, decodeCmd(context.Background(), []string{"-schema", schema, "-format", format}, bytes.NewReader(wire), &text))

			var out bytes.Buffer
			require.NoError(t, encodeCmd([]string{"-schema", schema, "-format", format}, &text, &out))
			assert.Equal(t, wire, out.Bytes())
		})
	}
}

func TestEncodeCmd_MissingField(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))
	err := encodeCmd([]string{"-schema", schema}, strings.NewReader(`{"x":1}`), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_field")
}

func TestSizeCmd(t *testing.T) {
	dir := t.TempDir()
	fixed := writeFile(t, dir, "point.yaml", []byte(pointYAML))
	variable := writeFile(t, dir, "text.json", []byte(`{"fields":[{"name":"s","type":"string","zeroTerminated":true}]}`))

	var out bytes.Buffer
	require.NoError(t, sizeCmd([]string{"-schema", fixed}, &out))
	require.NoError(t, sizeCmd([]string{"-schema", variable}, &out))
	assert.Equal(t, "4\nvariable\n", out.String())
}

func TestCommandErrors(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "point.yaml", []byte(pointYAML))

	assert.Error(t, sizeCmd(nil, &bytes.Buffer{}))
	assert.Error(t, decodeCmd(context.Background(), []string{"-schema", schema, "-format", "xml"}, nil, &bytes.Buffer{}))
	assert.Error(t, decodeCmd(context.Background(), []string{"-schema", schema, "-log-format", "logfmt"}, nil, &bytes.Buffer{}))
	assert.Error(t, decodeCmd(context.Background(), []string{"-schema", schema, filepath.Join(dir, "nope.bin")}, nil, &bytes.Buffer{}))
	assert.Error(t, encodeCmd([]string{"-schema", filepath.Join(dir, "nope.yaml")}, nil, &bytes.Buffer{}))
}
