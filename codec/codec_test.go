package codec_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/binskema"
	"github.com/reoring/binskema/codec"
)

func sample() *binskema.Record {
	return binskema.NewRecord(
		"id", int64(7),
		"name", "gopher",
		"ratio", 0.25,
		"raw", []byte{0, 1, 0xfe},
		"items", []any{int64(1), binskema.NewRecord("k", "v")},
		"big", uint64(1<<63),
	)
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"cbor", "json", "msgpack", "yaml"}, codec.Names())
	c, ok := codec.Lookup("json")
	require.True(t, ok)
	assert.Equal(t, "json", c.Name())
	_, ok = codec.Lookup("xml")
	assert.False(t, ok)
}

func TestJSON(t *testing.T) {
	c := codec.JSON()
	out, err := c.Marshal(sample())
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":7,"name":"gopher","ratio":0.25,"raw":{"$base64":"AAH+"},"items":[1,{"k":"v"}],"big":9223372036854775808}`,
		string(out))

	back, err := c.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, sample(), back)

	_, err = c.Unmarshal([]byte(" "))
	assert.Error(t, err)
}

func TestYAML(t *testing.T) {
	c := codec.YAML()
	out, err := c.Marshal(sample())
	require.NoError(t, err)
	assert.Contains(t, string(out), "raw: !!binary AAH+")

	back, err := c.Unmarshal(out)
	require.NoError(t, err)
	assert.Equal(t, sample(), back)
}

func TestBinaryFormats(t *testing.T) {
	want := binskema.Map{
		"id":    int64(7),
		"name":  "gopher",
		"ratio": 0.25,
		"raw":   []byte{0, 1, 0xfe},
		"items": []any{int64(1), binskema.Map{"k": "v"}},
		"big":   uint64(1 << 63),
	}
	for _, c := range []codec.Codec{codec.MessagePack(), codec.CBOR()} {
		t.Run(c.Name(), func(t *testing.T) {
			out, err := c.Marshal(sample())
			require.NoError(t, err)
			back, err := c.Unmarshal(out)
			require.NoError(t, err)
			assert.Equal(t, want, back)
		})
	}
}

func TestMessagePack_KeepsFieldOrder(t *testing.T) {
	out, err := codec.MessagePack().Marshal(binskema.NewRecord("b", int64(1), "a", int64(2)))
	require.NoError(t, err)
	// fixmap(2) "b" 1 "a" 2
	assert.Equal(t, []byte{0x82, 0xa1, 'b', 0x01, 0xa1, 'a', 0x02}, out)
}

func TestStreams(t *testing.T) {
	values := []any{
		binskema.NewRecord("n", int64(1)),
		binskema.NewRecord("n", int64(2)),
	}
	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			c, _ := codec.Lookup(name)
			var buf bytes.Buffer
			enc := c.NewEncoder(&buf)
			for _, v := range values {
				require.NoError(t, enc.Encode(v))
			}

			dec := c.NewDecoder(&buf)
			var got []any
			for {
				v, err := dec.Decode()
				if err == io.EOF {
					break
				}
				require.NoError(t, err)
				got = append(got, v)
			}
			require.Len(t, got, 2)
			for i, v := range got {
				o, ok := v.(binskema.Object)
				require.True(t, ok)
				n, _ := o.Get("n")
				assert.Equal(t, int64(i+1), n)
			}
		})
	}
}

func TestRoundTripThroughSchema(t *testing.T) {
	s := binskema.Start().
		Uint16("port").
		Uint8("n").
		Buffer("payload", binskema.Options{Length: binskema.LenField("n")}).
		MustBuild()
	wire := []byte{0x1f, 0x90, 2, 0xca, 0xfe}
	rec, err := s.Decode(wire)
	require.NoError(t, err)

	for _, name := range codec.Names() {
		t.Run(name, func(t *testing.T) {
			c, _ := codec.Lookup(name)
			text, err := c.Marshal(rec)
			require.NoError(t, err)
			v, err := c.Unmarshal(text)
			require.NoError(t, err)
			out, err := s.Encode(v)
			require.NoError(t, err)
			assert.Equal(t, wire, out)
		})
	}
}
