// Package tree implements the GROUNDED data model of spec §6: a
// materialized, pointer-linked node tree built from document events,
// used whenever an XPath expression or XSLT transform needs random
// access or reverse-axis navigation rather than a single forward pass.
// The linked-sibling/child shape follows the pack's xmlquery Node type;
// this version adds a monotonic document-order key, which the xpath
// package's document-order sort keys off, and an xxhash-backed
// generate-id() identifier. Node-set union, intersection and difference
// compare node pointers directly.
package tree

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/r2stream/xmlcore/name"
)

// Kind identifies what a Node represents.
type Kind int

const (
	DocumentNode Kind = iota
	ElementNode
	AttributeNode
	TextNode
	CommentNode
	PINode
	NamespaceNode
)

// Node is one node of a GROUNDED document tree.
type Node struct {
	Parent, FirstChild, LastChild, PrevSibling, NextSibling *Node

	Kind  Kind
	Name  name.QName // ElementNode, AttributeNode, NamespaceNode (Local = prefix, Value = uri)
	Value string     // TextNode, CommentNode, PINode data, AttributeNode/NamespaceNode value
	Target string    // PINode target

	Attr []*Node // AttributeNode children, in document order
	NS   []*Node // NamespaceNode children in scope, inherited plus locally declared

	docOrder uint64
}

// Document is the root container of a GROUNDED tree.
type Document struct {
	Root    *Node
	Version string
	Encoding string
	Standalone string
}

// DocumentOrder reports n's position in document order relative to any
// other node from the same tree; lower sorts first.
func (n *Node) DocumentOrder() uint64 { return n.docOrder }

// GenerateID returns a stable, XPath generate-id()-shaped identifier:
// unique within the tree, consistent across calls, and not necessarily
// comparable in magnitude (fn:generate-id only guarantees equality
// correlates with node identity, never an ordering).
func (n *Node) GenerateID() string {
	sum := xxhash.Sum64String("n" + strconv.FormatUint(n.docOrder, 36))
	return "d" + strconv.FormatUint(sum, 36)
}

// StringValue computes the XPath string-value of n (the concatenation
// of all descendant text node content, in document order, per XPath
// §5.1-5.7's per-node-type string-value rules).
func (n *Node) StringValue() string {
	switch n.Kind {
	case TextNode, CommentNode, PINode:
		return n.Value
	case AttributeNode, NamespaceNode:
		return n.Value
	default:
		var b []byte
		var walk func(*Node)
		walk = func(c *Node) {
			for ; c != nil; c = c.NextSibling {
				if c.Kind == TextNode {
					b = append(b, c.Value...)
				}
				if c.Kind == ElementNode {
					walk(c.FirstChild)
				}
			}
		}
		walk(n.FirstChild)
		return string(b)
	}
}

// Attribute returns the attribute node matching qn, or nil.
func (n *Node) Attribute(qn name.QName) *Node {
	for _, a := range n.Attr {
		if a.Name.Equal(qn) {
			return a
		}
	}
	return nil
}

// Children iterates n's element/text/comment/PI children in document
// order (attribute and namespace nodes are not children per the XPath
// data model's axis definitions).
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// Ancestors returns n's ancestors, nearest first, not including n.
func (n *Node) Ancestors() []*Node {
	var out []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Root returns the Document-typed root of the tree n belongs to.
func (n *Node) Root() *Node {
	cur := n
	for cur.Parent != nil {
		cur = cur.Parent
	}
	return cur
}
