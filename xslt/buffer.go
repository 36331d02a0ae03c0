package xslt

import (
	"strings"

	"github.com/r2stream/xmlcore/sax"
)

// textBuffer is a throwaway sax.ContentHandler that accumulates the
// string value of whatever events it receives, discarding markup
// structure — used to materialize a result-tree-fragment for
// xsl:variable/xsl:attribute/xsl:comment content that has no select
// expression.
type textBuffer struct {
	sax.NopContentHandler
	b strings.Builder
}

func newTextBuffer() *textBuffer { return &textBuffer{} }

func (t *textBuffer) String() string { return t.b.String() }

func (t *textBuffer) Characters(s string) error {
	t.b.WriteString(s)
	return nil
}
