package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reoring/binskema"
	"github.com/reoring/binskema/codec"
	"github.com/reoring/binskema/schemafile"
	"github.com/reoring/binskema/stream"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch sub := os.Args[1]; sub {
	case "decode":
		err = decodeCmd(context.Background(), os.Args[2:], os.Stdin, os.Stdout)
	case "encode":
		err = encodeCmd(os.Args[2:], os.Stdin, os.Stdout)
	case "size":
		err = sizeCmd(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err == flag.ErrHelp {
		os.Exit(2)
	}
	if err != nil {
		fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "binskema CLI\n\nUsage:\n  binskema decode -schema file.yaml [-format json|yaml|msgpack|cbor] [-o out] [input...]\n  binskema encode -schema file.yaml [-format json|yaml|msgpack|cbor] [-o out] [input...]\n  binskema size -schema file.yaml\n\nNotes:\n  - Inputs default to stdin. Several decode inputs are read concurrently and written in order.\n  - -v enables debug logs, -log-format picks json or console.")
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// common holds the flags every subcommand shares.
type common struct {
	schema    string
	format    string
	out       string
	chunk     int
	verbose   bool
	logFormat string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.schema, "schema", "", "schema declaration file (.yaml, .yml or .json)")
	fs.StringVar(&c.format, "format", "json", "record format: json, yaml, msgpack or cbor")
	fs.StringVar(&c.out, "o", "", "output file (default stdout)")
	fs.IntVar(&c.chunk, "chunk", 32*1024, "read size in bytes")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logs")
	fs.StringVar(&c.logFormat, "log-format", "console", "log encoding: console or json")
}

func (c *common) load() (*binskema.Schema, codec.Codec, error) {
	if c.schema == "" {
		return nil, nil, errors.New("-schema is required")
	}
	s, err := schemafile.Load(c.schema)
	if err != nil {
		return nil, nil, err
	}
	cd, ok := codec.Lookup(c.format)
	if !ok {
		return nil, nil, errors.Errorf("unknown format %q (have %v)", c.format, codec.Names())
	}
	return s, cd, nil
}

// output opens -o, or returns stdout with a no-op close.
func (c *common) output(stdout io.Writer) (io.Writer, func() error, error) {
	if c.out == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(c.out)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open output")
	}
	return f, f.Close, nil
}

func parse(name string, args []string, c *common) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs, nil
}

// recordSink writes every poured record with the codec encoder.
type recordSink struct {
	enc codec.Encoder
	n   int
}

func (r *recordSink) Pour(_ context.Context, v any) error {
	r.n++
	return r.enc.Encode(v)
}

func (r *recordSink) Close() error { return nil }

func decodeCmd(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	var c common
	fs, err := parse("decode", args, &c)
	if err != nil {
		return err
	}
	s, cd, err := c.load()
	if err != nil {
		return err
	}
	log, err := newLogger(c.verbose, c.logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	// One schema serves every input; each gets its own stream decoder and
	// output buffer so results keep input order.
	results := make([]bytes.Buffer, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			r, closeIn, err := open(in, stdin)
			if err != nil {
				return err
			}
			defer closeIn()
			sink := &recordSink{enc: cd.NewEncoder(&results[i])}
			l := log.With(zap.String("input", in))
			if err := stream.Pump(gctx, r, s, sink, stream.WithChunkSize(c.chunk), stream.WithLogger(l)); err != nil {
				return errors.Wrapf(err, "decode %s", in)
			}
			l.Info("decoded", zap.Int("records", sink.n))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w, closeOut, err := c.output(stdout)
	if err != nil {
		return err
	}
	for i := range results {
		if _, err := results[i].WriteTo(w); err != nil {
			_ = closeOut()
			return errors.Wrap(err, "write output")
		}
	}
	return closeOut()
}

func encodeCmd(args []string, stdin io.Reader, stdout io.Writer) error {
	var c common
	fs, err := parse("encode", args, &c)
	if err != nil {
		return err
	}
	s, cd, err := c.load()
	if err != nil {
		return err
	}
	log, err := newLogger(c.verbose, c.logFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	w, closeOut, err := c.output(stdout)
	if err != nil {
		return err
	}
	sink := stream.NewEncodeSink(w, s, stream.WithLogger(log))

	inputs := fs.Args()
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}
	for _, in := range inputs {
		if err := encodeInput(in, stdin, cd, sink); err != nil {
			_ = closeOut()
			return err
		}
	}
	return closeOut()
}

func encodeInput(in string, stdin io.Reader, cd codec.Codec, sink *stream.EncodeSink) error {
	r, closeIn, err := open(in, stdin)
	if err != nil {
		return err
	}
	defer closeIn()
	dec := cd.NewDecoder(r)
	for i := 0; ; i++ {
		v, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "%s: value %d", in, i)
		}
		if err := sink.Pour(context.Background(), v); err != nil {
			return errors.Wrapf(err, "%s", in)
		}
	}
}

func sizeCmd(args []string, stdout io.Writer) error {
	var c common
	if _, err := parse("size", args, &c); err != nil {
		return err
	}
	s, _, err := c.load()
	if err != nil {
		return err
	}
	if n, ok := s.FixedSize(); ok {
		fmt.Fprintln(stdout, n)
		return nil
	}
	fmt.Fprintln(stdout, "variable")
	return nil
}

func open(name string, stdin io.Reader) (io.Reader, func(), error) {
	if name == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input")
	}
	return f, func() { _ = f.Close() }, nil
}
