// Package sax defines the document-event model the Content Parser feeds
// into: a push interface in the SAX2 tradition (spec §4.4), generalized
// from the opaque-Context handler interfaces in the pack's libxml2-style
// binding into concrete, typed events so a Go caller never needs a type
// assertion to read one.
package sax

import "github.com/r2stream/xmlcore/name"

// Attribute is one attribute on a StartElement event.
type Attribute struct {
	Name     name.QName
	Value    string
	Specified bool // false when the value came from a DTD default, not the source text
}

// Locator reports the current position of the event being reported. The
// Content Parser keeps one Locator live and mutates it as it advances;
// handlers that need a stable snapshot must copy it.
type Locator struct {
	Line   int
	Column int
	System string // system identifier of the entity currently being parsed, if known
}

// ContentHandler receives document events. A zero-value struct embedding
// NopContentHandler satisfies the interface and ignores everything,
// mirroring the "only override what you need" ergonomics of SAX
// handlers in the pack.
type ContentHandler interface {
	SetDocumentLocator(loc *Locator)
	StartDocument() error
	EndDocument() error
	StartPrefixMapping(prefix, uri string) error
	EndPrefixMapping(prefix string) error
	StartElement(elem name.QName, attrs []Attribute) error
	EndElement(elem name.QName) error
	Characters(text string) error
	IgnorableWhitespace(text string) error
	ProcessingInstruction(target, data string) error
	SkippedEntity(name string) error
}

// LexicalHandler receives comment and CDATA/DTD boundary events, the
// SAX2 "ext.LexicalHandler" extension.
type LexicalHandler interface {
	Comment(text string) error
	StartCDATA() error
	EndCDATA() error
	StartDTD(name, publicID, systemID string) error
	EndDTD() error
	StartEntity(name string) error
	EndEntity(name string) error
}

// DeclHandler receives DTD declaration events, the SAX2 "ext.DeclHandler"
// extension (spec §4.3's DTD Parser reporting surface).
type DeclHandler interface {
	ElementDecl(name, contentModel string) error
	AttributeDecl(elemName, attrName, attrType, mode, defaultValue string) error
	InternalEntityDecl(name, value string) error
	ExternalEntityDecl(name, publicID, systemID string) error
}

// DTDHandler receives notation and unparsed-entity declarations, the
// classic SAX1 DTDHandler.
type DTDHandler interface {
	NotationDecl(name, publicID, systemID string) error
	UnparsedEntityDecl(name, publicID, systemID, notationName string) error
}

// EntityResolver lets a caller redirect external entity and DTD
// resolution, e.g. to serve a cached or sandboxed copy.
type EntityResolver interface {
	ResolveEntity(publicID, systemID string) (Source, error)
}

// Source is anything the Content Parser can pull further bytes from when
// resolving an external entity. Implementations are push-driven like the
// rest of the system: Next returns the next available chunk, or ok=false
// once exhausted.
type Source interface {
	Next() (chunk []byte, ok bool, err error)
}

// ErrorHandler receives recoverable (warning, error) conditions detected
// during parsing; returning a non-nil error from Fatal aborts parsing. A
// nil ErrorHandler causes the parser to treat all three severities as
// fatal, matching the tokenizer's own fail-fast LexicalError behavior.
type ErrorHandler interface {
	Warning(err error) error
	Error(err error) error
	Fatal(err error) error
}
