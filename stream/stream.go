// Package stream connects schemas to readers, writers and luigi pipelines.
//
// A Source decodes records from an io.Reader, a DecodeSink decodes byte
// chunks poured into it, and an EncodeSink writes poured records to an
// io.Writer. Records are *binskema.Record values unless the schema sets a
// constructor.
package stream

import (
	"context"
	"io"

	"github.com/pkg/errors"
	luigi "github.com/ssbc/go-luigi"
	"go.uber.org/zap"

	"github.com/reoring/binskema"
)

// Source is a luigi.Source of the records decoded from a reader.
type Source struct {
	r       io.Reader
	dec     *binskema.StreamDecoder
	cfg     config
	buf     []byte
	pending []binskema.Object
	done    bool
	read    int64
}

var _ luigi.Source = (*Source)(nil)

// NewSource decodes the records of s from r.
func NewSource(r io.Reader, s *binskema.Schema, opts ...Option) *Source {
	cfg := newConfig(opts)
	return &Source{r: r, dec: s.DecodeStream(), cfg: cfg, buf: make([]byte, cfg.chunkSize)}
}

// Next returns the next record, or luigi.EOS{} after the last one.
func (s *Source) Next(ctx context.Context) (any, error) {
	for len(s.pending) == 0 {
		if s.done {
			return nil, luigi.EOS{}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.fill(); err != nil {
			return nil, err
		}
	}
	v := s.pending[0]
	s.pending = s.pending[1:]
	return v, nil
}

func (s *Source) fill() error {
	n, rerr := s.r.Read(s.buf)
	if n > 0 {
		s.read += int64(n)
		recs, err := s.dec.Write(s.buf[:n])
		s.pending = append(s.pending, recs...)
		s.cfg.log.Debug("chunk decoded", zap.Int("bytes", n), zap.Int("records", len(recs)), zap.Int("buffered", s.dec.Buffered()))
		if err != nil {
			return errors.Wrap(err, "stream/source: decode failed")
		}
	}
	if rerr == io.EOF {
		recs, err := s.dec.End()
		s.pending = append(s.pending, recs...)
		s.done = true
		s.cfg.log.Debug("input ended", zap.Int64("bytes", s.read), zap.Int("records", len(recs)))
		if err != nil {
			return errors.Wrap(err, "stream/source: decode failed")
		}
		return nil
	}
	if rerr != nil {
		return errors.Wrap(rerr, "stream/source: read failed")
	}
	return nil
}

// DecodeSink is a luigi.Sink of byte chunks. It decodes them and pours the
// completed records into the next sink.
type DecodeSink struct {
	dec  *binskema.StreamDecoder
	next luigi.Sink
	cfg  config
}

var _ luigi.Sink = (*DecodeSink)(nil)

// NewDecodeSink decodes records of s and forwards them to next.
func NewDecodeSink(s *binskema.Schema, next luigi.Sink, opts ...Option) *DecodeSink {
	return &DecodeSink{dec: s.DecodeStream(), next: next, cfg: newConfig(opts)}
}

// Pour accepts a []byte chunk.
func (d *DecodeSink) Pour(ctx context.Context, v any) error {
	chunk, ok := v.([]byte)
	if !ok {
		return errors.Errorf("stream/decode: expected []byte, got %T", v)
	}
	recs, err := d.dec.Write(chunk)
	d.cfg.log.Debug("chunk decoded", zap.Int("bytes", len(chunk)), zap.Int("records", len(recs)))
	if perr := d.forward(ctx, recs); perr != nil {
		return perr
	}
	return errors.Wrap(err, "stream/decode: decode failed")
}

// Close ends the input, forwards the last records and closes the next sink.
func (d *DecodeSink) Close() error {
	recs, err := d.dec.End()
	if perr := d.forward(context.Background(), recs); perr != nil {
		return perr
	}
	if err != nil {
		return errors.Wrap(err, "stream/decode: decode failed")
	}
	return d.next.Close()
}

func (d *DecodeSink) forward(ctx context.Context, recs []binskema.Object) error {
	for _, r := range recs {
		if err := d.next.Pour(ctx, r); err != nil {
			return errors.Wrap(err, "stream/decode: forward failed")
		}
	}
	return nil
}

// EncodeSink is a luigi.Sink of records. It writes each one encoded with the
// schema.
type EncodeSink struct {
	w   io.Writer
	s   *binskema.Schema
	cfg config
	n   int
}

var _ luigi.Sink = (*EncodeSink)(nil)

// NewEncodeSink writes records encoded with s to w.
func NewEncodeSink(w io.Writer, s *binskema.Schema, opts ...Option) *EncodeSink {
	return &EncodeSink{w: w, s: s, cfg: newConfig(opts)}
}

// Pour encodes v, an Object or a map[string]any.
func (e *EncodeSink) Pour(_ context.Context, v any) error {
	b, err := e.s.Encode(v)
	if err != nil {
		return errors.Wrapf(err, "stream/encode: record %d", e.n)
	}
	if _, err := e.w.Write(b); err != nil {
		return errors.Wrap(err, "stream/encode: write failed")
	}
	e.n++
	e.cfg.log.Debug("record encoded", zap.Int("index", e.n-1), zap.Int("bytes", len(b)))
	return nil
}

// Close closes w when it is an io.Closer.
func (e *EncodeSink) Close() error {
	if c, ok := e.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Pump decodes every record of s from r into dst. It does not close dst.
func Pump(ctx context.Context, r io.Reader, s *binskema.Schema, dst luigi.Sink, opts ...Option) error {
	return luigi.Pump(ctx, dst, NewSource(r, s, opts...))
}
