package yml

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node is a thin read-side wrapper over yaml.Node that exposes the handful of
// traversal helpers the document loader needs.
type Node yaml.Node

// Root unwraps a document node to its first content node.
func Root(n *yaml.Node) *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return (*Node)(n)
}

// Lookup returns the value node for the given mapping key, or nil.
func (n *Node) Lookup(name string) *Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == name {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Pairs iterates over mapping entries in document order.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Items iterates over sequence elements in document order.
func (n *Node) Items(callback func(index int, node *Node) error) error {
	for i := 0; i < len(n.Content); i++ {
		if err := callback(i, (*Node)(n.Content[i])); err != nil {
			return err
		}
	}
	return nil
}

// Interface converts the node subtree into generic Go values.
func (n *Node) Interface() interface{} {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!bool":
			return strings.ToLower(n.Value) == "true"
		case "!!int":
			v, _ := strconv.Atoi(n.Value)
			return v
		case "!!float":
			v, _ := strconv.ParseFloat(n.Value, 64)
			return v
		case "!!null":
			return nil
		default:
			return n.Value
		}
	case yaml.MappingNode:
		aMap := make(map[string]interface{})
		for i := 0; i+1 < len(n.Content); i += 2 {
			aMap[n.Content[i].Value] = (*Node)(n.Content[i+1]).Interface()
		}
		return aMap
	case yaml.SequenceNode:
		aSlice := make([]interface{}, 0, len(n.Content))
		for i := 0; i < len(n.Content); i++ {
			aSlice = append(aSlice, (*Node)(n.Content[i]).Interface())
		}
		return aSlice
	}
	return nil
}

// Bool returns the scalar as a boolean, falling back for non-scalar nodes.
func (n *Node) Bool(defaultValue bool) bool {
	if n == nil || n.Kind != yaml.ScalarNode {
		return defaultValue
	}
	return strings.ToLower(n.Value) == "true"
}

// Int returns the scalar as an int, falling back for non-numeric nodes.
func (n *Node) Int(defaultValue int) int {
	if n == nil || n.Kind != yaml.ScalarNode {
		return defaultValue
	}
	if v, err := strconv.Atoi(n.Value); err == nil {
		return v
	}
	return defaultValue
}

// Text returns the scalar value or an empty string.
func (n *Node) Text() string {
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}
