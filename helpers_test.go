package binskema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reoring/binskema"
)

// rec builds an expected record; plain ints become int64 like decoded values.
func rec(kv ...any) *binskema.Record {
	for i := 1; i < len(kv); i += 2 {
		if n, ok := kv[i].(int); ok {
			kv[i] = int64(n)
		}
	}
	return binskema.NewRecord(kv...)
}

func ints(ns ...int) []any {
	out := make([]any, len(ns))
	for i, n := range ns {
		out[i] = int64(n)
	}
	return out
}

// checkResult asserts that buf decodes to want one-shot and byte by byte,
// that want encodes back to buf and that SizeOf agrees.
func checkResult(t *testing.T, s *binskema.Schema, buf []byte, want binskema.Object) {
	t.Helper()
	r := require.New(t)

	got, err := s.Decode(buf)
	r.NoError(err)
	r.Equal(want, got)

	out, err := s.Encode(got)
	r.NoError(err)
	r.Equal(buf, out)

	n, err := s.SizeOf(got)
	r.NoError(err)
	r.Equal(len(buf), n)

	dec := s.DecodeStream()
	var recs []binskema.Object
	for i := range buf {
		got, err := dec.Write(buf[i : i+1])
		r.NoError(err)
		recs = append(recs, got...)
	}
	got2, err := dec.End()
	r.NoError(err)
	recs = append(recs, got2...)
	r.Len(recs, 1)
	r.Equal(want, recs[0])
	r.Equal(binskema.StateEnded, dec.State())
}

func requireCode(t *testing.T, err error, code string) *binskema.Error {
	t.Helper()
	require.Error(t, err)
	e, ok := binskema.AsError(err)
	require.True(t, ok, "not a *binskema.Error: %v", err)
	require.Equal(t, code, e.Code, err.Error())
	return e
}
