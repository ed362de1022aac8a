package schemafile

import (
	"fmt"
	"strconv"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// File is a schema declaration: the root record plus named record types the
// fields may refer to.
type File struct {
	TypeDecl `yaml:",inline"`
	Types    map[string]TypeDecl `yaml:"types" json:"types"`
}

// TypeDecl declares a record.
type TypeDecl struct {
	Endian string      `yaml:"endian" json:"endian"`
	Fields []FieldDecl `yaml:"fields" json:"fields"`
}

// FieldDecl declares one field. Type is a primitive name (endian-following
// base names like "uint16" allowed) or one of string, buffer, array, nest,
// fixedSizeNest, choice, bits and endianness.
type FieldDecl struct {
	Name           string             `yaml:"name" json:"name"`
	Type           string             `yaml:"type" json:"type"`
	Width          int                `yaml:"width" json:"width"`
	Length         *LengthDecl        `yaml:"length" json:"length"`
	Encoding       string             `yaml:"encoding" json:"encoding"`
	ZeroTerminated bool               `yaml:"zeroTerminated" json:"zeroTerminated"`
	StripNull      bool               `yaml:"stripNull" json:"stripNull"`
	Clone          bool               `yaml:"clone" json:"clone"`
	Flatten        bool               `yaml:"flatten" json:"flatten"`
	Assert         any                `yaml:"assert" json:"assert"`
	Of             *TypeRef           `yaml:"of" json:"of"`
	ReadUntil      string             `yaml:"readUntil" json:"readUntil"`
	Key            string             `yaml:"key" json:"key"`
	Tag            string             `yaml:"tag" json:"tag"`
	Choices        map[string]TypeRef `yaml:"choices" json:"choices"`
	Default        *TypeRef           `yaml:"default" json:"default"`
	Value          string             `yaml:"value" json:"value"`
}

// TypeRef is either a type name (primitive or entry of File.Types) or an
// inline record declaration.
type TypeRef struct {
	Name   string
	Inline *TypeDecl
}

func (r *TypeRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		r.Name = n.Value
		return nil
	}
	r.Inline = &TypeDecl{}
	return n.Decode(r.Inline)
}

func (r *TypeRef) UnmarshalJSON(b []byte) error {
	var name string
	if err := j.Unmarshal(b, &name); err == nil {
		r.Name = name
		return nil
	}
	r.Inline = &TypeDecl{}
	return j.Unmarshal(b, r.Inline)
}

// LengthDecl is a literal count, the name of an earlier field, or
// "remainder".
type LengthDecl struct {
	N     int
	Field string
	Rest  bool
}

func (l *LengthDecl) set(s string) {
	if n, err := strconv.Atoi(s); err == nil {
		l.N = n
		return
	}
	if s == "remainder" {
		l.Rest = true
		return
	}
	l.Field = s
}

func (l *LengthDecl) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: length must be a scalar", n.Line)
	}
	l.set(n.Value)
	return nil
}

func (l *LengthDecl) UnmarshalJSON(b []byte) error {
	var n int
	if err := j.Unmarshal(b, &n); err == nil {
		l.N = n
		return nil
	}
	var s string
	if err := j.Unmarshal(b, &s); err != nil {
		return err
	}
	l.set(s)
	return nil
}
