package parser

import (
	"github.com/r2stream/xmlcore/dtd"
	"github.com/r2stream/xmlcore/sax"
)

// config holds the options a caller may attach to a Parser before
// feeding it any input. Mirrors the functional-options shape used
// throughout the pack for configuring a long-lived processing object.
type config struct {
	contentHandler sax.ContentHandler
	lexicalHandler sax.LexicalHandler
	declHandler    sax.DeclHandler
	dtdHandler     sax.DTDHandler
	errorHandler   sax.ErrorHandler
	entityResolver sax.EntityResolver

	namespaceAware bool
	xml11          bool
	externalTable  *dtd.Table // pre-resolved external subset, if the caller loaded one out of band
}

// Option configures a Parser at construction time.
type Option func(*config)

func defaultConfig() *config {
	return &config{namespaceAware: true}
}

// WithContentHandler registers the handler that receives document
// structure events.
func WithContentHandler(h sax.ContentHandler) Option {
	return func(c *config) { c.contentHandler = h }
}

// WithLexicalHandler registers the handler that receives comment and
// CDATA/DTD boundary events.
func WithLexicalHandler(h sax.LexicalHandler) Option {
	return func(c *config) { c.lexicalHandler = h }
}

// WithDeclHandler registers the handler that receives DTD declaration
// events as the internal subset is parsed.
func WithDeclHandler(h sax.DeclHandler) Option {
	return func(c *config) { c.declHandler = h }
}

// WithDTDHandler registers the handler that receives notation and
// unparsed-entity declarations.
func WithDTDHandler(h sax.DTDHandler) Option {
	return func(c *config) { c.dtdHandler = h }
}

// WithErrorHandler registers the handler consulted on malformed input
// instead of treating every condition as immediately fatal.
func WithErrorHandler(h sax.ErrorHandler) Option {
	return func(c *config) { c.errorHandler = h }
}

// WithEntityResolver registers a resolver for external entity and DTD
// references.
func WithEntityResolver(r sax.EntityResolver) Option {
	return func(c *config) { c.entityResolver = r }
}

// WithoutNamespaces disables namespace processing: element and
// attribute names are reported with whatever prefix the source text
// used, and xmlns declarations are reported as ordinary attributes.
func WithoutNamespaces() Option {
	return func(c *config) { c.namespaceAware = false }
}

// WithXML11 selects XML 1.1 line-ending and character rules.
func WithXML11() Option {
	return func(c *config) { c.xml11 = true }
}

// WithExternalSubset supplies a pre-loaded external DTD subset's
// declaration table, since the Content Parser itself never performs
// network or filesystem I/O (spec Non-goals).
func WithExternalSubset(t *dtd.Table) Option {
	return func(c *config) { c.externalTable = t }
}
