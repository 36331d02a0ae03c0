package tree

import (
	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
)

// Builder implements sax.ContentHandler and sax.LexicalHandler, growing
// a GROUNDED Node tree as it receives document events. Wire it as a
// Content Parser's handler set to materialize the whole document before
// running an XPath query or a non-streamable XSLT transform.
type Builder struct {
	sax.NopContentHandler

	Doc *Document

	cur      *Node
	order    uint64
	nsScopes [][]*Node // one slice of in-scope namespace nodes per open element, stack-shaped
	cdata    bool
}

// NewBuilder returns a Builder ready to receive events for a fresh
// document.
func NewBuilder() *Builder {
	root := &Node{Kind: DocumentNode}
	b := &Builder{Doc: &Document{Root: root}, cur: root}
	b.order = 1
	root.docOrder = 0
	return b
}

func (b *Builder) nextOrder() uint64 {
	o := b.order
	b.order++
	return o
}

func (b *Builder) StartDocument() error { return nil }
func (b *Builder) EndDocument() error   { return nil }

func (b *Builder) StartPrefixMapping(prefix, uri string) error {
	nsNode := &Node{Kind: NamespaceNode, Name: name.QName{Local: prefix}, Value: uri, docOrder: b.nextOrder()}
	top := []*Node{}
	if len(b.nsScopes) > 0 {
		top = append(top, b.nsScopes[len(b.nsScopes)-1]...)
	}
	top = append(top, nsNode)
	b.nsScopes = append(b.nsScopes, top)
	return nil
}

func (b *Builder) EndPrefixMapping(prefix string) error {
	if len(b.nsScopes) > 0 {
		b.nsScopes = b.nsScopes[:len(b.nsScopes)-1]
	}
	return nil
}

func (b *Builder) StartElement(elem name.QName, attrs []sax.Attribute) error {
	n := &Node{Kind: ElementNode, Name: elem, Parent: b.cur, docOrder: b.nextOrder()}
	appendChild(b.cur, n)
	for _, a := range attrs {
		attrNode := &Node{Kind: AttributeNode, Name: a.Name, Value: a.Value, Parent: n, docOrder: b.nextOrder()}
		n.Attr = append(n.Attr, attrNode)
	}
	if len(b.nsScopes) > 0 {
		n.NS = b.nsScopes[len(b.nsScopes)-1]
	}
	b.cur = n
	return nil
}

func (b *Builder) EndElement(elem name.QName) error {
	b.cur = b.cur.Parent
	return nil
}

// Characters appends text to the tree. Per the XPath data model, "as
// much character data as possible is grouped into each text node" — so
// a run of Characters calls uninterrupted by any other event (the
// common case when numeric/entity references are interleaved with
// plain text) merges into one text node rather than several siblings.
func (b *Builder) Characters(text string) error {
	if text == "" {
		return nil
	}
	if last := b.cur.LastChild; last != nil && last.Kind == TextNode {
		last.Value += text
		return nil
	}
	n := &Node{Kind: TextNode, Value: text, Parent: b.cur, docOrder: b.nextOrder()}
	appendChild(b.cur, n)
	return nil
}

func (b *Builder) IgnorableWhitespace(text string) error { return b.Characters(text) }

func (b *Builder) ProcessingInstruction(target, data string) error {
	n := &Node{Kind: PINode, Target: target, Value: data, Parent: b.cur, docOrder: b.nextOrder()}
	appendChild(b.cur, n)
	return nil
}

func (b *Builder) SkippedEntity(name string) error { return nil }

func (b *Builder) Comment(text string) error {
	n := &Node{Kind: CommentNode, Value: text, Parent: b.cur, docOrder: b.nextOrder()}
	appendChild(b.cur, n)
	return nil
}

func (b *Builder) StartCDATA() error { b.cdata = true; return nil }
func (b *Builder) EndCDATA() error   { b.cdata = false; return nil }

func (b *Builder) StartDTD(docName, publicID, systemID string) error { return nil }
func (b *Builder) EndDTD() error                                     { return nil }
func (b *Builder) StartEntity(name string) error                     { return nil }
func (b *Builder) EndEntity(name string) error                       { return nil }

func appendChild(parent, child *Node) {
	if parent.FirstChild == nil {
		parent.FirstChild = child
	} else {
		parent.LastChild.NextSibling = child
		child.PrevSibling = parent.LastChild
	}
	parent.LastChild = child
}

var _ sax.ContentHandler = (*Builder)(nil)
var _ sax.LexicalHandler = (*Builder)(nil)
