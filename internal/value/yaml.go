package value

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into a Value.
//
// Mapping order is kept. Mapping keys must be scalars. Integers and floats
// become numbers, other scalars follow their resolved tag, and unknown tags
// (timestamps, binary) become strings holding the source text.
func FromYAML(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Null(), nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := FromYAML(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{kind: KindArray, arr: items}, nil
	case yaml.MappingNode:
		members := make([]Member, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			k := node.Content[i]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := FromYAML(node.Content[i+1])
			if err != nil {
				return Value{}, err
			}
			members = append(members, Member{Key: k.Value, Value: v})
		}
		return Object(members...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(node)
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func scalarFromYAML(node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!null":
		return Null(), nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Bool(b), nil
	case "!!int":
		if v, err := Number(node.Value); err == nil {
			return v, nil
		}
		// Hex, octal and underscore forms are YAML only.
		var i int64
		if err := node.Decode(&i); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return Int(i), nil
	case "!!float":
		if v, err := Number(node.Value); err == nil {
			return v, nil
		}
		var f float64
		if err := node.Decode(&f); err != nil {
			return Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("line %d: %q has no JSON representation", node.Line, node.Value)
		}
		return Float(f), nil
	default:
		return String(node.Value), nil
	}
}
