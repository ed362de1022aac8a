// Package binskema is a declarative binary schema engine.
//
// A schema describes the byte layout of a record once; size, encode and
// decode are derived from that single description and stay byte-for-byte
// inverses of each other:
//
// - Field combinators: primitives, strings, buffers, arrays, nested records,
// fixed-size nests, tagged unions (choices) and bit fields of 1..32 bits.
// - Lengths and tags may refer to fields decoded earlier in the same record.
// - Formatter/Deformatter pairs expose a logical value while keeping the wire
// shape; Assert checks decoded values.
// - Decoding is either one-shot (Schema.Decode) or incremental over arbitrary
// chunks (Schema.DecodeStream) with an explicit suspend/resume state machine.
// - A stable error model via *Error (phase, code, JSON Pointer path, offset).
//
// Design policy:
// - Fields are evaluated strictly in declaration order on both sides.
// - A built *Schema is immutable and safe for concurrent use.
// - Primitive types come from the primitive registry; transports, value
// renderers and schema files live in stream/, codec/ and schemafile/.
//
// Typical usage:
//
//	s := binskema.Start().
//		Uint8("len").
//		String("msg", binskema.Options{Length: binskema.LenField("len")}).
//		MustBuild()
//
//	rec, err := s.Decode(data)
//	out, err := s.Encode(binskema.Map{"len": 5, "msg": "hello"})
//
//	dec := s.DecodeStream()
//	recs, err := dec.Write(chunk)
//	recs, err = dec.End()
//
// File layout:
// - builder.go, options.go: Builder and its combinators.
// - node.go: compiled Type Nodes and field operations shared by both engines.
// - encode.go / decode.go: the size/encode and decode interpreters.
// - field_*.go, bits.go: per-kind size/encode/decode logic and the bit packer.
// - schema.go: Schema entry points (FixedSize, SizeOf, Encode, Decode).
// - path.go: JSON Pointer rendering and nested path lookups for bit groups.
// - stream.go: the streaming decoder.
// - record.go: the Object/Record value model.
// - errors.go: the *Error model and its sentinels.
package binskema
