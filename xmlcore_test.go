package xmlcore

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
	"github.com/r2stream/xmlcore/xpath"
)

func TestParseAndQuery(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<root><item id="1">a</item><item id="2">b</item></root>`))
	require.NoError(t, err)

	v, err := Query(doc, "count(/root/item)")
	require.NoError(t, err)
	require.Equal(t, xpath.KindNumber, v.Kind)
	require.Equal(t, float64(2), v.Num)

	names, err := Query(doc, "/root/item/@id")
	require.NoError(t, err)
	require.Equal(t, xpath.KindNodeSet, names.Kind)
	require.Len(t, names.NodeSet, 2)
}

func TestFeedStreamsInChunks(t *testing.T) {
	rec := &recordingHandler{}
	input := `<a><b>hello</b><c>world</c></a>`
	err := Feed(strings.NewReader(input), 3, WithContentHandler(rec))
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, rec.started)
}

type recordingHandler struct {
	sax.NopContentHandler
	started []string
}

func (r *recordingHandler) StartElement(elem name.QName, attrs []sax.Attribute) error {
	r.started = append(r.started, elem.Local)
	return nil
}

func TestTransformAndSerialize(t *testing.T) {
	sty, err := Parse(strings.NewReader(`<xsl:stylesheet xmlns:xsl="http://www.w3.org/1999/XSL/Transform"><xsl:template match="/root"><out><xsl:value-of select="@v"/></out></xsl:template></xsl:stylesheet>`))
	require.NoError(t, err)
	cs, err := CompileStylesheet(sty)
	require.NoError(t, err)

	src, err := Parse(strings.NewReader(`<root v="42"/>`))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Transform(cs, src, &buf))
	require.Contains(t, buf.String(), "<out>42</out>")
}

func TestSerializeRoundTrips(t *testing.T) {
	doc, err := Parse(strings.NewReader(`<a b="1"><c/>text</a>`))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, Serialize(doc, &buf))
	require.Contains(t, buf.String(), `<a b="1">`)
	require.Contains(t, buf.String(), "text")
}
