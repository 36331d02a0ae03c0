// Package writer implements the Serializer component of spec §4.6: a
// sax.ContentHandler/LexicalHandler that writes document events
// straight to an io.Writer as it receives them, never buffering more
// than the currently open element's tag. It generalizes the teacher's
// direct-to-io.Writer streaming encoder (which walks an in-memory
// map[string]any tree) into an event-driven serializer that can sit at
// the end of a live Content Parser → Serializer pipeline with no tree
// in between.
package writer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
)

// config holds the output properties a caller may select, matching the
// functional-options idiom used for the Content Parser.
type config struct {
	indent       string // "" disables indentation
	omitXMLDecl  bool
	encoding     string
}

// Option configures a Writer.
type Option func(*config)

// WithIndent enables indentation using the given per-level string (e.g.
// two spaces).
func WithIndent(s string) Option {
	return func(c *config) { c.indent = s }
}

// WithoutXMLDeclaration suppresses the leading <?xml ...?> declaration.
func WithoutXMLDeclaration() Option {
	return func(c *config) { c.omitXMLDecl = true }
}

// WithDeclaredEncoding sets the encoding name reported in the XML
// declaration (the bytes written are always UTF-8; this only affects
// the declaration text, matching output that claims a charset other
// than its actual bytes only when a caller explicitly asks for it).
func WithDeclaredEncoding(name string) Option {
	return func(c *config) { c.encoding = name }
}

type openElem struct {
	qname        name.QName
	hasChildren  bool
	pendingBytes int // byte offset of '>' left open for empty-element optimization
}

// Writer serializes document events to an underlying io.Writer. It
// implements sax.ContentHandler and sax.LexicalHandler so it can be
// wired directly as a Content Parser's output handler.
type Writer struct {
	sax.NopContentHandler
	out   *bufio.Writer
	cfg   *config
	depth int
	stack []openElem
	declWritten bool

	// deferredOpen holds a start tag whose closing '>' has not yet been
	// written, so a following EndElement with no intervening content can
	// collapse it to "/>" instead of "></tag>".
	deferredOpen bool
}

// New returns a Writer that writes to w.
func New(w io.Writer, opts ...Option) *Writer {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return &Writer{out: bufio.NewWriter(w), cfg: cfg}
}

// Flush flushes any buffered bytes to the underlying writer.
func (wr *Writer) Flush() error { return wr.out.Flush() }

func (wr *Writer) StartDocument() error {
	if wr.cfg.omitXMLDecl {
		wr.declWritten = true
		return nil
	}
	enc := wr.cfg.encoding
	if enc == "" {
		enc = "UTF-8"
	}
	fmt.Fprintf(wr.out, `<?xml version="1.0" encoding="%s"?>`, enc)
	wr.declWritten = true
	return nil
}

func (wr *Writer) EndDocument() error {
	return wr.out.Flush()
}

func (wr *Writer) closeDeferredOpen() {
	if wr.deferredOpen {
		wr.out.WriteByte('>')
		wr.deferredOpen = false
	}
}

func (wr *Writer) newline() {
	if wr.cfg.indent == "" {
		return
	}
	wr.out.WriteByte('\n')
	wr.out.WriteString(strings.Repeat(wr.cfg.indent, wr.depth))
}

func (wr *Writer) StartElement(elem name.QName, attrs []sax.Attribute) error {
	wr.closeDeferredOpen()
	if len(wr.stack) > 0 {
		wr.stack[len(wr.stack)-1].hasChildren = true
	}
	wr.newline()
	wr.out.WriteByte('<')
	wr.out.WriteString(elem.String())
	for _, a := range attrs {
		fmt.Fprintf(wr.out, ` %s="%s"`, a.Name.String(), escapeAttr(a.Value))
	}
	wr.stack = append(wr.stack, openElem{qname: elem})
	wr.deferredOpen = true
	wr.depth++
	return nil
}

func (wr *Writer) EndElement(elem name.QName) error {
	wr.depth--
	top := wr.stack[len(wr.stack)-1]
	wr.stack = wr.stack[:len(wr.stack)-1]

	if wr.deferredOpen {
		// no content was ever written between start and end: collapse to
		// an empty-element tag instead of "<a></a>".
		wr.out.WriteString("/>")
		wr.deferredOpen = false
		return nil
	}
	if top.hasChildren {
		wr.newline()
	}
	wr.out.WriteString("</")
	wr.out.WriteString(elem.String())
	wr.out.WriteByte('>')
	return nil
}

func (wr *Writer) Characters(text string) error {
	wr.closeDeferredOpen()
	wr.out.WriteString(escapeText(text))
	return nil
}

func (wr *Writer) IgnorableWhitespace(text string) error {
	return wr.Characters(text)
}

func (wr *Writer) ProcessingInstruction(target, data string) error {
	wr.closeDeferredOpen()
	wr.newline()
	if data == "" {
		fmt.Fprintf(wr.out, "<?%s?>", target)
	} else {
		fmt.Fprintf(wr.out, "<?%s %s?>", target, data)
	}
	return nil
}

func (wr *Writer) Comment(text string) error {
	wr.closeDeferredOpen()
	wr.newline()
	fmt.Fprintf(wr.out, "<!--%s-->", text)
	return nil
}

func (wr *Writer) StartCDATA() error { return nil }
func (wr *Writer) EndCDATA() error   { return nil }

func (wr *Writer) StartDTD(docName, publicID, systemID string) error {
	wr.closeDeferredOpen()
	switch {
	case publicID != "":
		fmt.Fprintf(wr.out, `<!DOCTYPE %s PUBLIC "%s" "%s">`, docName, publicID, systemID)
	case systemID != "":
		fmt.Fprintf(wr.out, `<!DOCTYPE %s SYSTEM "%s">`, docName, systemID)
	default:
		fmt.Fprintf(wr.out, `<!DOCTYPE %s>`, docName)
	}
	return nil
}
func (wr *Writer) EndDTD() error                       { return nil }
func (wr *Writer) StartEntity(name string) error       { return nil }
func (wr *Writer) EndEntity(name string) error         { return nil }

func escapeText(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\r", "&#13;")
	return r.Replace(s)
}

func escapeAttr(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\t", "&#9;", "\n", "&#10;", "\r", "&#13;")
	return r.Replace(s)
}

var _ sax.ContentHandler = (*Writer)(nil)
var _ sax.LexicalHandler = (*Writer)(nil)
