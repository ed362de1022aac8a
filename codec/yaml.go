package codec

import (
	"encoding/base64"
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/reoring/binskema"
)

// YAML returns the YAML codec backed by yaml.v3. Mappings keep their key
// order and byte strings use the !!binary tag.
func YAML() Codec { return yamlCodec{} }

type yamlCodec struct{}

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Marshal(v any) ([]byte, error) {
	n, err := toNode(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec/yaml: marshal failed")
	}
	out, err := yaml.Marshal(n)
	if err != nil {
		return nil, errors.Wrap(err, "codec/yaml: marshal failed")
	}
	return out, nil
}

func (yamlCodec) Unmarshal(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "codec/yaml: unmarshal failed")
	}
	if doc.Kind == 0 {
		return nil, errors.New("codec/yaml: empty input")
	}
	return fromNode(&doc)
}

func (c yamlCodec) NewEncoder(w io.Writer) Encoder {
	return &sepEncoder{w: w, c: c, sep: []byte("---\n")}
}

func (yamlCodec) NewDecoder(r io.Reader) Decoder {
	return &yamlDecoder{dec: yaml.NewDecoder(r)}
}

type yamlDecoder struct {
	dec *yaml.Decoder
}

func (d *yamlDecoder) Decode() (any, error) {
	var doc yaml.Node
	if err := d.dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, errors.Wrap(err, "codec/yaml: read failed")
	}
	return fromNode(&doc)
}

func toNode(v any) (*yaml.Node, error) {
	if keys, vals, ok := entries(v); ok {
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, k := range keys {
			vn, err := toNode(vals[i])
			if err != nil {
				return nil, errors.Wrapf(err, "field %s", k)
			}
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
		}
		return n, nil
	}
	switch t := v.(type) {
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			en, err := toNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	case []byte:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(t)}, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.MappingNode:
		r := binskema.NewRecord()
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			r.Set(n.Content[i].Value, v)
		}
		return r, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	}
	if n.Tag == "!!binary" {
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, errors.Wrapf(err, "codec/yaml: bad binary at line %d", n.Line)
		}
		return b, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, errors.Wrapf(err, "codec/yaml: bad scalar at line %d", n.Line)
	}
	return integer(v), nil
}
