package types

import (
	"encoding/xml"
	"strings"
)

// Node is one element of a parsed NETCONF rpc-reply body. Leaf nodes carry
// trimmed text; inner nodes carry children in document order.
type Node struct {
	Name     string
	Text     string
	Children []*Node
}

// ParseTree parses an XML fragment (the inner body of an rpc-reply) into a
// synthetic root node. The fragment may contain several top-level elements;
// they become the root's direct children.
func ParseTree(fragment string) (*Node, error) {
	dec := xml.NewDecoder(strings.NewReader("<reply>" + fragment + "</reply>"))

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			// The wrapper guarantees a well-formed document ends with
			// io.EOF after the closing tag.
			if root != nil && len(stack) == 0 {
				return root, nil
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			// The first element is the wrapper itself; it becomes the
			// root rather than a child of one.
			if len(stack) == 0 {
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				cur := stack[len(stack)-1]
				cur.Text += strings.ReplaceAll(string(t), "\n", "")
			}
		}
	}
}

// Find walks a slash-separated path of element names and returns every node
// reachable at the final step. An empty path returns the node itself.
func (n *Node) Find(path string) []*Node {
	if n == nil {
		return nil
	}
	current := []*Node{n}
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		var next []*Node
		for _, c := range current {
			for _, child := range c.Children {
				if child.Name == name {
					next = append(next, child)
				}
			}
		}
		current = next
	}
	return current
}

// First returns the first node matched by Find, or nil.
func (n *Node) First(path string) *Node {
	found := n.Find(path)
	if len(found) == 0 {
		return nil
	}
	return found[0]
}

// ChildText returns the trimmed text of the first node matched by path,
// or the empty string when the path matches nothing.
func (n *Node) ChildText(path string) string {
	c := n.First(path)
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.Text)
}
