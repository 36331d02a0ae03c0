package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
)

type event struct {
	kind string
	data string
}

type recordingHandler struct {
	sax.NopContentHandler
	events []event
}

func (h *recordingHandler) StartDocument() error {
	h.events = append(h.events, event{"startDocument", ""})
	return nil
}
func (h *recordingHandler) EndDocument() error {
	h.events = append(h.events, event{"endDocument", ""})
	return nil
}
func (h *recordingHandler) StartElement(elem name.QName, attrs []sax.Attribute) error {
	h.events = append(h.events, event{"start", elem.String()})
	return nil
}
func (h *recordingHandler) EndElement(elem name.QName) error {
	h.events = append(h.events, event{"end", elem.String()})
	return nil
}
func (h *recordingHandler) Characters(text string) error {
	h.events = append(h.events, event{"text", text})
	return nil
}

func runDocument(t *testing.T, h *recordingHandler, opts []Option, chunks ...string) {
	t.Helper()
	p := New(append([]Option{WithContentHandler(h)}, opts...)...)
	for _, c := range chunks {
		require.NoError(t, p.Feed([]byte(c)))
	}
	require.NoError(t, p.Close())
}

func TestBasicDocument(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<root><child>hi</child></root>`)

	assert.Equal(t, []event{
		{"startDocument", ""},
		{"start", "root"},
		{"start", "child"},
		{"text", "hi"},
		{"end", "child"},
		{"end", "root"},
		{"endDocument", ""},
	}, h.events)
}

func TestDocumentSplitAcrossChunks(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<a>`, `he`, `llo`, `</a`, `>`)

	assert.Equal(t, []event{
		{"startDocument", ""},
		{"start", "a"},
		{"text", "hello"},
		{"end", "a"},
		{"endDocument", ""},
	}, h.events)
}

func TestNamespacedElement(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<ns:root xmlns:ns="urn:example"><ns:child/></ns:root>`)

	var starts []string
	for _, e := range h.events {
		if e.kind == "start" {
			starts = append(starts, e.data)
		}
	}
	assert.Equal(t, []string{"ns:root", "ns:child"}, starts)
}

func TestMismatchedEndTagIsError(t *testing.T) {
	h := &recordingHandler{}
	p := New(WithContentHandler(h))
	require.Error(t, p.Feed([]byte(`<a><b></a></b>`)))
	err := p.Close()
	require.Error(t, err)
}

func TestPredefinedEntityResolved(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<a>x &amp; y</a>`)

	var text string
	for _, e := range h.events {
		if e.kind == "text" {
			text += e.data
		}
	}
	assert.Equal(t, "x & y", text)
}

func TestDoctypeInternalSubsetEntity(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<!DOCTYPE root [<!ENTITY foo "bar">]><root>&foo;</root>`)

	var text string
	for _, e := range h.events {
		if e.kind == "text" {
			text += e.data
		}
	}
	assert.Equal(t, "bar", text)
}

func TestCDATASectionReportedAsCharacters(t *testing.T) {
	h := &recordingHandler{}
	runDocument(t, h, nil, `<a><![CDATA[<not-a-tag>]]></a>`)

	var text string
	for _, e := range h.events {
		if e.kind == "text" {
			text += e.data
		}
	}
	assert.Equal(t, "<not-a-tag>", text)
}
