package writer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/parser"
)

func roundTrip(t *testing.T, opts []Option, input string) string {
	t.Helper()
	var buf bytes.Buffer
	w := New(&buf, opts...)
	p := parser.New(parser.WithContentHandler(w), parser.WithLexicalHandler(w))
	require.NoError(t, p.Feed([]byte(input)))
	require.NoError(t, p.Close())
	require.NoError(t, w.Flush())
	return buf.String()
}

func TestRoundTripEmptyElement(t *testing.T) {
	out := roundTrip(t, []Option{WithoutXMLDeclaration()}, `<a/>`)
	assert.Equal(t, `<a/>`, out)
}

func TestRoundTripAttributesAndText(t *testing.T) {
	out := roundTrip(t, []Option{WithoutXMLDeclaration()}, `<a b="1">hello</a>`)
	assert.Equal(t, `<a b="1">hello</a>`, out)
}

func TestRoundTripNestedElements(t *testing.T) {
	out := roundTrip(t, []Option{WithoutXMLDeclaration()}, `<a><b/><c>x</c></a>`)
	assert.Equal(t, `<a><b/><c>x</c></a>`, out)
}

func TestEscapingOnOutput(t *testing.T) {
	out := roundTrip(t, []Option{WithoutXMLDeclaration()}, `<a>x &amp; y &lt; z</a>`)
	assert.Equal(t, `<a>x &amp; y &lt; z</a>`, out)
}

func TestXMLDeclarationWritten(t *testing.T) {
	out := roundTrip(t, nil, `<a/>`)
	assert.Equal(t, `<?xml version="1.0" encoding="UTF-8"?><a/>`, out)
}

func TestCommentRoundTrip(t *testing.T) {
	out := roundTrip(t, []Option{WithoutXMLDeclaration()}, `<a><!-- hi --></a>`)
	assert.Equal(t, `<a><!-- hi --></a>`, out)
}
