package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/parser"
)

func buildDoc(t *testing.T, input string) *Document {
	t.Helper()
	b := NewBuilder()
	p := parser.New(parser.WithContentHandler(b), parser.WithLexicalHandler(b))
	require.NoError(t, p.Feed([]byte(input)))
	require.NoError(t, p.Close())
	return b.Doc
}

func TestBuildSimpleTree(t *testing.T) {
	doc := buildDoc(t, `<root a="1"><child>text</child></root>`)
	root := doc.Root.FirstChild
	require.NotNil(t, root)
	assert.Equal(t, ElementNode, root.Kind)
	assert.Equal(t, "root", root.Name.Local)
	require.Len(t, root.Attr, 1)
	assert.Equal(t, "1", root.Attr[0].Value)

	child := root.FirstChild
	require.NotNil(t, child)
	assert.Equal(t, "child", child.Name.Local)
	assert.Equal(t, "text", child.StringValue())
}

func TestAdjacentTextMerged(t *testing.T) {
	doc := buildDoc(t, `<a>x &amp; y</a>`)
	root := doc.Root.FirstChild
	require.NotNil(t, root.FirstChild)
	assert.Nil(t, root.FirstChild.NextSibling)
	assert.Equal(t, "x & y", root.FirstChild.Value)
}

func TestDocumentOrderIsMonotonic(t *testing.T) {
	doc := buildDoc(t, `<a><b/><c/></a>`)
	root := doc.Root.FirstChild
	b := root.FirstChild
	c := b.NextSibling
	assert.Less(t, root.DocumentOrder(), b.DocumentOrder())
	assert.Less(t, b.DocumentOrder(), c.DocumentOrder())
}

func TestGenerateIDStableAndDistinct(t *testing.T) {
	doc := buildDoc(t, `<a><b/><c/></a>`)
	root := doc.Root.FirstChild
	b := root.FirstChild
	c := b.NextSibling

	assert.Equal(t, b.GenerateID(), b.GenerateID())
	assert.NotEqual(t, b.GenerateID(), c.GenerateID())
}

func TestStringValueConcatenatesDescendantText(t *testing.T) {
	doc := buildDoc(t, `<a>x<b>y</b>z</a>`)
	root := doc.Root.FirstChild
	assert.Equal(t, "xyz", root.StringValue())
}
