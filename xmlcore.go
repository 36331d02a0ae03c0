// Package xmlcore is the facade wiring the Tokenizer, Content Parser,
// XPath Engine and Transform Engine into the handful of one-shot
// entrypoints most callers need, the way xml.MapXML and xml/cli.go's
// command handlers give the teacher's xml package a convenient surface
// over its lower-level streaming_decoder/encoder machinery. Callers
// needing direct control over push-parsing, handler composition, or
// template execution should use the parser/tree/xpath/xslt/writer
// packages directly; this package only bundles the common paths.
package xmlcore

import (
	"io"

	"github.com/r2stream/xmlcore/parser"
	"github.com/r2stream/xmlcore/sax"
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/writer"
	"github.com/r2stream/xmlcore/xpath"
	"github.com/r2stream/xmlcore/xslt"
)

// Option configures Parse/ParseReader.
type Option = parser.Option

// WithContentHandler, WithLexicalHandler, and the other parser.Option
// constructors are re-exported unchanged so callers only need to import
// this package for the common case.
var (
	WithContentHandler = parser.WithContentHandler
	WithLexicalHandler = parser.WithLexicalHandler
	WithoutNamespaces  = parser.WithoutNamespaces
)

// Parse reads all of r and materializes it into a GROUNDED in-memory
// tree.Document, for callers who want XPath queries or a non-streaming
// transform rather than a push-parse of their own.
func Parse(r io.Reader, opts ...Option) (*tree.Document, error) {
	b := tree.NewBuilder()
	fullOpts := append([]Option{parser.WithContentHandler(b), parser.WithLexicalHandler(b)}, opts...)
	p := parser.New(fullOpts...)
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := p.Feed(buf); err != nil {
		return nil, err
	}
	if err := p.Close(); err != nil {
		return nil, err
	}
	return b.Doc, nil
}

// Feed drives a Content Parser over r's bytes in bounded chunks,
// delivering events to handler as they're produced instead of buffering
// the whole input — the non-blocking, push-driven path the tokenizer
// and Content Parser are built around. chunkSize bounds how much of r
// is read per Feed call; a non-positive value selects a 4KiB default.
func Feed(r io.Reader, chunkSize int, opts ...Option) error {
	if chunkSize <= 0 {
		chunkSize = 4096
	}
	p := parser.New(opts...)
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return p.Close()
		}
		if err != nil {
			return err
		}
	}
}

// Query evaluates an XPath expression against doc's root and returns
// the resulting value.
func Query(doc *tree.Document, exprSrc string) (xpath.Value, error) {
	expr, err := xpath.Parse(exprSrc)
	if err != nil {
		return xpath.Value{}, err
	}
	return xpath.Eval(expr, xpath.NewContext(doc.Root))
}

// QueryNode is like Query but evaluates relative to a specific context
// node rather than the document root.
func QueryNode(n *tree.Node, exprSrc string) (xpath.Value, error) {
	expr, err := xpath.Parse(exprSrc)
	if err != nil {
		return xpath.Value{}, err
	}
	return xpath.Eval(expr, xpath.NewContext(n))
}

// CompileStylesheet parses an XSLT stylesheet document into a runnable
// form.
func CompileStylesheet(stylesheetDoc *tree.Document, opts ...xslt.Option) (*xslt.CompiledStylesheet, error) {
	return xslt.Compile(stylesheetDoc, opts...)
}

// Transform runs a compiled stylesheet over source, writing the result
// to w as serialized XML. It is the one-shot path; callers who need the
// output as events (to feed another handler rather than a writer) should
// build an xslt.GroundedExecutor directly over their own sax.ContentHandler.
func Transform(cs *xslt.CompiledStylesheet, source *tree.Document, w io.Writer, wopts ...writer.Option) error {
	out := writer.New(w, wopts...)
	exec := xslt.NewExecutor(cs, out)
	if err := exec.Run(source); err != nil {
		return err
	}
	return out.Flush()
}

// TransformTo is like Transform but writes to a caller-supplied
// sax.ContentHandler instead of serializing to a writer.Writer —
// useful for chaining a transform straight into another tree.Builder or
// a test double.
func TransformTo(cs *xslt.CompiledStylesheet, source *tree.Document, out sax.ContentHandler) error {
	return xslt.NewExecutor(cs, out).Run(source)
}

// Serialize writes doc to w as XML.
func Serialize(doc *tree.Document, w io.Writer, opts ...writer.Option) error {
	out := writer.New(w, opts...)
	if err := out.StartDocument(); err != nil {
		return err
	}
	if err := serializeChildren(out, doc.Root); err != nil {
		return err
	}
	if err := out.EndDocument(); err != nil {
		return err
	}
	return out.Flush()
}

func serializeChildren(out *writer.Writer, n *tree.Node) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := serializeNode(out, c); err != nil {
			return err
		}
	}
	return nil
}

func serializeNode(out *writer.Writer, n *tree.Node) error {
	switch n.Kind {
	case tree.ElementNode:
		attrs := make([]sax.Attribute, len(n.Attr))
		for i, a := range n.Attr {
			attrs[i] = sax.Attribute{Name: a.Name, Value: a.Value, Specified: true}
		}
		if err := out.StartElement(n.Name, attrs); err != nil {
			return err
		}
		if err := serializeChildren(out, n); err != nil {
			return err
		}
		return out.EndElement(n.Name)
	case tree.TextNode:
		return out.Characters(n.Value)
	case tree.CommentNode:
		return out.Comment(n.Value)
	case tree.PINode:
		return out.ProcessingInstruction(n.Target, n.Value)
	}
	return nil
}
