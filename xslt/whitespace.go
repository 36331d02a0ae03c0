package xslt

import "github.com/r2stream/xmlcore/tree"

// stripInstructionWhitespace removes whitespace-only text node children
// of xsl:*-namespaced elements (the default strip-space behavior XSLT
// applies to its own instructions, so indentation in a stylesheet source
// file never leaks into transform output), except inside xsl:text,
// whose content is always significant.
func stripInstructionWhitespace(el *tree.Node) {
	if el.Kind != tree.ElementNode {
		return
	}
	if el.Name.URI == xsltNamespace && el.Name.Local == "text" {
		return
	}
	strip := el.Name.URI == xsltNamespace
	var next *tree.Node
	for c := el.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if strip && c.Kind == tree.TextNode && isWhitespaceOnly(c.Value) {
			removeChild(el, c)
			continue
		}
		stripInstructionWhitespace(c)
	}
}

func isWhitespaceOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

func removeChild(parent, c *tree.Node) {
	if c.PrevSibling != nil {
		c.PrevSibling.NextSibling = c.NextSibling
	} else {
		parent.FirstChild = c.NextSibling
	}
	if c.NextSibling != nil {
		c.NextSibling.PrevSibling = c.PrevSibling
	} else {
		parent.LastChild = c.PrevSibling
	}
}
