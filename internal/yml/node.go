package yml

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node wraps yaml.Node with case-insensitive helpers used by the definition
// decoder.
type Node yaml.Node

// Root returns the first content node of a document, or node itself.
func Root(node *yaml.Node) *Node {
	if node != nil && node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		return (*Node)(node.Content[0])
	}
	return (*Node)(node)
}

// Lookup returns the value node for key matched case-insensitively, or nil.
func (n *Node) Lookup(key string) *Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if strings.EqualFold(n.Content[i].Value, key) {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Pairs iterates mapping entries, passing lower-cased keys.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return n.errorf("expected mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := strings.ToLower(n.Content[i].Value)
		if err := callback(key, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Items iterates sequence elements.
func (n *Node) Items(callback func(index int, node *Node) error) error {
	if n.Kind != yaml.SequenceNode {
		return n.errorf("expected sequence")
	}
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Text returns a scalar value.
func (n *Node) Text() (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", n.errorf("expected scalar")
	}
	return n.Value, nil
}

// Int returns a scalar integer value.
func (n *Node) Int() (int, error) {
	text, err := n.Text()
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, n.errorf("expected integer, got %q", text)
	}
	return value, nil
}

// Bool returns a scalar boolean value.
func (n *Node) Bool() (bool, error) {
	text, err := n.Text()
	if err != nil {
		return false, err
	}
	value, err := strconv.ParseBool(strings.TrimSpace(text))
	if err != nil {
		return false, n.errorf("expected boolean, got %q", text)
	}
	return value, nil
}

// Strings returns a sequence of scalars, or a comma separated scalar split
// into its parts. An explicit empty sequence yields a non-nil empty slice.
func (n *Node) Strings() ([]string, error) {
	switch n.Kind {
	case yaml.SequenceNode:
		ret := make([]string, 0, len(n.Content))
		err := n.Items(func(_ int, item *Node) error {
			text, err := item.Text()
			if err == nil {
				ret = append(ret, text)
			}
			return err
		})
		return ret, err
	case yaml.ScalarNode:
		ret := []string{}
		for _, part := range strings.Split(n.Value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				ret = append(ret, part)
			}
		}
		return ret, nil
	}
	return nil, n.errorf("expected sequence or scalar")
}

func (n *Node) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
