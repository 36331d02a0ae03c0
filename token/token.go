// Package token implements the Tokenizer component: a state-machine
// scanner that turns the decoded character stream into typed tokens,
// restartable across arbitrary feed-call boundaries (spec §4.2).
package token

// Kind identifies what a Token represents.
type Kind int

const (
	// Text is a run of character data in content (outside any markup).
	Text Kind = iota
	// OpenAngle is the '<' that starts a start-tag.
	OpenAngle
	// EndTagOpen is the '</' that starts an end-tag.
	EndTagOpen
	// CloseAngle is the unescaped '>' that ends a start- or end-tag.
	CloseAngle
	// EmptyClose is the '/>' that ends an empty-element tag.
	EmptyClose
	// Name is an element or attribute name (NCName or QName-shaped).
	Name
	// Equals is the '=' between an attribute name and its value.
	Equals
	// QuotedValue is an attribute value, already stripped of quotes; raw
	// (not yet normalized per declared type — the Content Parser does
	// that once it knows the declared attribute type from the DTD).
	QuotedValue
	// CharRef is a resolved character reference's code point sequence,
	// already resolved to text by the tokenizer per spec §4.2.
	CharRef
	// EntityRef carries a named entity reference's name, unresolved; the
	// Content Parser consults the DTD Parser's entity table.
	EntityRef
	// CommentBody is the text between <!-- and -->.
	CommentBody
	// PITarget is a processing instruction's target name.
	PITarget
	// PIBody is a processing instruction's data, possibly empty.
	PIBody
	// CDATABody is the raw text inside a <![CDATA[ ... ]]> section.
	CDATABody
	// DoctypeStart carries the whole raw body of a <!DOCTYPE ...>
	// construct (root name, external ID and bracketed internal subset),
	// trimmed of surrounding whitespace.
	DoctypeStart
	// The kinds below are not produced by Tokenizer, which reports a
	// whole DOCTYPE as a single DoctypeStart token.

	// DoctypeExternalID carries a "PUBLIC pubid sysid" or "SYSTEM sysid"
	// clause.
	DoctypeExternalID
	// DoctypeIntSubsetOpen is the '[' opening the internal subset.
	DoctypeIntSubsetOpen
	// DoctypeIntSubsetClose is the ']' closing the internal subset.
	DoctypeIntSubsetClose
	// DoctypeEnd is the '>' ending the DOCTYPE markup declaration.
	DoctypeEnd
	// DeclKeyword carries a DTD markup declaration keyword
	// (ELEMENT, ATTLIST, ENTITY, NOTATION) plus its raw body up to '>',
	// left unparsed for the DTD Parser to interpret.
	DeclKeyword
	// PEReference carries a parameter-entity reference name (%name;)
	// found inside the internal subset.
	PEReference
)

// Token is a single lexical unit. Text carries the payload (already
// copied out; safe to retain past the Consumer call, trading the
// teacher's "avoid copies" micro-optimization for chunk-boundary safety).
type Token struct {
	Kind Kind
	Text string
	// Name2 carries a DoctypeExternalID token's system identifier when
	// Text holds the public identifier (PUBLIC "pub" "sys").
	Name2 string
	Line  int
	Col   int
}

// Consumer receives tokens as the Tokenizer produces them. The Content
// Parser and the DTD Parser are the two Consumer implementations.
type Consumer interface {
	Token(Token) error
}
