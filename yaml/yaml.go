// Package yaml provides a YAML codec for pectin.
package yaml

import (
	"fmt"

	"github.com/zoobzio/pectin"
	"gopkg.in/yaml.v3"
)

// yamlCodec implements pectin.Codec for YAML.
type yamlCodec struct{}

// New returns a YAML codec.
func New() pectin.Codec {
	return &yamlCodec{}
}

// ContentType returns the MIME type for YAML.
func (c *yamlCodec) ContentType() string {
	return "application/yaml"
}

// Marshal encodes a plain tree as YAML, writing mapping keys in their
// insertion order.
func (c *yamlCodec) Marshal(plain any) ([]byte, error) {
	root, err := encodeNode(plain)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return out, nil
}

// Unmarshal decodes YAML data into a plain tree, keeping mapping entries in
// document order.
func (c *yamlCodec) Unmarshal(data []byte) (any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if root.Kind == 0 {
		return nil, nil
	}
	v, err := decodeNode(&root)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return v, nil
}

func encodeNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *pectin.Object:
		n := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range t.Keys() {
			kn := new(yaml.Node)
			if err := kn.Encode(k); err != nil {
				return nil, err
			}
			val, _ := t.Get(k)
			vn, err := encodeNode(val)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, kn, vn)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, e := range t {
			vn, err := encodeNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, vn)
		}
		return n, nil
	}
	n := new(yaml.Node)
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return decodeNode(n.Content[0])
	case yaml.MappingNode:
		o := pectin.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			var k string
			if err := n.Content[i].Decode(&k); err != nil {
				return nil, fmt.Errorf("mapping key: %w", err)
			}
			v, err := decodeNode(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			o.Set(k, v)
		}
		return o, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
