package sax

import "github.com/r2stream/xmlcore/name"

// NopContentHandler implements ContentHandler with no-op methods so a
// caller can embed it and override only the events it cares about.
type NopContentHandler struct{}

func (NopContentHandler) SetDocumentLocator(*Locator)                       {}
func (NopContentHandler) StartDocument() error                              { return nil }
func (NopContentHandler) EndDocument() error                                { return nil }
func (NopContentHandler) StartPrefixMapping(prefix, uri string) error       { return nil }
func (NopContentHandler) EndPrefixMapping(prefix string) error              { return nil }
func (NopContentHandler) StartElement(name.QName, []Attribute) error        { return nil }
func (NopContentHandler) EndElement(name.QName) error                       { return nil }
func (NopContentHandler) Characters(string) error                           { return nil }
func (NopContentHandler) IgnorableWhitespace(string) error                  { return nil }
func (NopContentHandler) ProcessingInstruction(target, data string) error   { return nil }
func (NopContentHandler) SkippedEntity(name string) error                   { return nil }

// NopLexicalHandler implements LexicalHandler with no-op methods.
type NopLexicalHandler struct{}

func (NopLexicalHandler) Comment(string) error                     { return nil }
func (NopLexicalHandler) StartCDATA() error                        { return nil }
func (NopLexicalHandler) EndCDATA() error                          { return nil }
func (NopLexicalHandler) StartDTD(name, publicID, systemID string) error { return nil }
func (NopLexicalHandler) EndDTD() error                            { return nil }
func (NopLexicalHandler) StartEntity(name string) error            { return nil }
func (NopLexicalHandler) EndEntity(name string) error              { return nil }

var _ ContentHandler = NopContentHandler{}
var _ LexicalHandler = NopLexicalHandler{}
