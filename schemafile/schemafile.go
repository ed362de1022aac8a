// Package schemafile builds schemas from YAML or JSON declarations.
//
//	endian: big
//	fields:
//	  - {name: len, type: uint8}
//	  - {name: name, type: string, length: len}
//	  - {name: points, type: array, of: point, readUntil: eof}
//	types:
//	  point:
//	    fields:
//	      - {name: x, type: int16}
//	      - {name: y, type: int16}
//
// Declarations map one to one onto builder calls; formatters and other
// functions cannot be declared.
package schemafile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/reoring/binskema"
)

// Load reads a declaration file, choosing the format by extension: .json is
// JSON, anything else YAML.
func Load(path string) (*binskema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "schemafile: read failed")
	}
	var s *binskema.Schema
	if strings.EqualFold(filepath.Ext(path), ".json") {
		s, err = LoadJSON(data)
	} else {
		s, err = LoadYAML(data)
	}
	return s, errors.Wrapf(err, "schemafile: %s", path)
}

// LoadYAML builds a schema from a YAML declaration.
func LoadYAML(data []byte) (*binskema.Schema, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "schemafile: bad yaml")
	}
	return f.Build()
}

// LoadJSON builds a schema from a JSON declaration.
func LoadJSON(data []byte) (*binskema.Schema, error) {
	var f File
	if err := j.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "schemafile: bad json")
	}
	return f.Build()
}

// Build compiles the declaration.
func (f *File) Build() (*binskema.Schema, error) {
	c := &compiler{file: f, done: map[string]*binskema.Builder{}, busy: map[string]bool{}}
	b, err := c.record(&f.TypeDecl)
	if err != nil {
		return nil, err
	}
	return b.Build()
}

type compiler struct {
	file *File
	done map[string]*binskema.Builder
	busy map[string]bool
}

func (c *compiler) record(d *TypeDecl) (*binskema.Builder, error) {
	b := binskema.Start()
	endian := binskema.BigEndian
	if d.Endian != "" {
		e, ok := binskema.ParseEndian(d.Endian)
		if !ok {
			return nil, errors.Errorf("schemafile: unknown endian %q", d.Endian)
		}
		endian = e
		b.Endianness(e)
	}
	for i := range d.Fields {
		fd := &d.Fields[i]
		if fd.Type == "endianness" {
			e, ok := binskema.ParseEndian(fd.Value)
			if !ok {
				return nil, errors.Errorf("schemafile: unknown endian %q", fd.Value)
			}
			endian = e
			b.Endianness(e)
			continue
		}
		if err := c.field(b, fd, endian); err != nil {
			return nil, errors.Wrapf(err, "field %s", fd.Name)
		}
	}
	return b, nil
}

func (c *compiler) field(b *binskema.Builder, fd *FieldDecl, endian binskema.Endian) error {
	o := binskema.Options{
		Encoding:       fd.Encoding,
		ZeroTerminated: fd.ZeroTerminated,
		StripNull:      fd.StripNull,
		Clone:          fd.Clone,
		Flatten:        fd.Flatten,
		Key:            fd.Key,
	}
	if fd.Length != nil {
		o.Length = fd.Length.length()
	}
	if fd.Assert != nil {
		o.Assert = binskema.Equals(fd.Assert)
	}
	switch fd.ReadUntil {
	case "":
	case "eof":
		o.ReadUntil = binskema.UntilEOF()
	default:
		return errors.Errorf("unknown readUntil %q", fd.ReadUntil)
	}
	if fd.Of != nil {
		t, err := c.resolve(fd.Of, endian)
		if err != nil {
			return err
		}
		o.Type = t
	}

	switch fd.Type {
	case "string":
		b.String(fd.Name, o)
	case "buffer":
		b.Buffer(fd.Name, o)
	case "array":
		b.Array(fd.Name, o)
	case "nest":
		b.Nest(fd.Name, o)
	case "fixedSizeNest":
		b.FixedSizeNest(fd.Name, o)
	case "bits":
		b.Bits(fd.Name, fd.Width, o)
	case "choice":
		if fd.Tag == "" {
			return errors.New("choice needs a tag")
		}
		o.Tag = binskema.TagField(fd.Tag)
		o.Choices = make(map[any]binskema.Type, len(fd.Choices))
		for k, ref := range fd.Choices {
			ref := ref
			t, err := c.resolve(&ref, endian)
			if err != nil {
				return errors.Wrapf(err, "choice %s", k)
			}
			o.Choices[choiceKey(k)] = t
		}
		if fd.Default != nil {
			t, err := c.resolve(fd.Default, endian)
			if err != nil {
				return errors.Wrap(err, "default choice")
			}
			o.DefaultChoice = t
		}
		b.Choice(fd.Name, o)
	default:
		p, ok := binskema.PrimitiveFor(fd.Type, endian)
		if !ok {
			return errors.Errorf("unknown type %q", fd.Type)
		}
		b.Primitive(fd.Name, p, o)
	}
	return nil
}

// resolve turns a reference into a field type: a primitive, a named type or
// an inline record.
func (c *compiler) resolve(r *TypeRef, endian binskema.Endian) (binskema.Type, error) {
	if r.Inline != nil {
		return c.record(r.Inline)
	}
	if b, ok := c.done[r.Name]; ok {
		return b, nil
	}
	if d, ok := c.file.Types[r.Name]; ok {
		if c.busy[r.Name] {
			return nil, errors.Errorf("type %s refers to itself", r.Name)
		}
		c.busy[r.Name] = true
		b, err := c.record(&d)
		delete(c.busy, r.Name)
		if err != nil {
			return nil, errors.Wrapf(err, "type %s", r.Name)
		}
		c.done[r.Name] = b
		return b, nil
	}
	if p, ok := binskema.PrimitiveFor(r.Name, endian); ok {
		return p, nil
	}
	return nil, errors.Errorf("unknown type %q", r.Name)
}

func (l *LengthDecl) length() binskema.Length {
	switch {
	case l.Rest:
		return binskema.Remainder()
	case l.Field != "":
		return binskema.LenField(l.Field)
	}
	return binskema.Len(l.N)
}

// choiceKey reads integer-looking keys as numbers so they match decoded
// tags.
func choiceKey(k string) any {
	if n, err := strconv.ParseInt(k, 0, 64); err == nil {
		return n
	}
	return k
}
