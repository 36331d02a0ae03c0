// Package parser implements the Content Parser component of spec §4.4:
// it drives an Encoding Decoder and a Tokenizer in series and reports
// the resulting document structure as SAX-style events, all through a
// push API (Feed/Close/Reset) so no component ever blocks on I/O. This
// generalizes the teacher's MapXML stack-based element walk (which
// consumes a fully-buffered encoding/xml token stream into an
// OrderedMap) into a restartable push parser that reports typed events
// to a caller-supplied handler set instead of building a tree itself.
package parser

import (
	"fmt"
	"strings"

	"github.com/r2stream/xmlcore/dtd"
	"github.com/r2stream/xmlcore/encoding"
	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
	"github.com/r2stream/xmlcore/token"
)

// WellFormedError reports a structural violation: mismatched tags,
// duplicate attributes, an unbound namespace prefix, or an undeclared
// entity reference.
type WellFormedError struct {
	Msg  string
	Line int
	Col  int
}

func (e *WellFormedError) Error() string {
	return fmt.Sprintf("not well-formed at %d:%d: %s", e.Line, e.Col, e.Msg)
}

type elemFrame struct {
	raw    string // the raw, unresolved tag text ("prefix:local" or "local")
	qname  name.QName
	declaredPrefixes []string
}

// Parser is the Content Parser. Create one with New, wire handlers via
// the With* options, then drive it with Feed/Close.
type Parser struct {
	cfg *config

	dec *encoding.Decoder
	tok *token.Tokenizer

	ns    *nsStack
	stack []elemFrame

	pendingTag     []token.Token
	inStartTag     bool
	inEndTag       bool

	locator   sax.Locator
	started   bool
	entities  *dtd.Table
	rootSeen  bool
	doctypeRoot string
}

// New returns a Parser driven by opts.
func New(opts ...Option) *Parser {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}
	p := &Parser{
		cfg:      cfg,
		dec:      encoding.New(cfg.xml11),
		ns:       newNSStack(),
		entities: dtd.NewTable(),
	}
	if cfg.externalTable != nil {
		for k, v := range cfg.externalTable.GeneralEntities {
			p.entities.GeneralEntities[k] = v
		}
		for k, v := range cfg.externalTable.ParameterEntities {
			p.entities.ParameterEntities[k] = v
		}
	}
	p.tok = token.New(p)
	return p
}

// Feed accepts the next chunk of raw bytes. It never blocks: any
// trailing partial rune, declaration, or token is retained internally
// and completed by a subsequent Feed or by Close.
func (p *Parser) Feed(chunk []byte) error {
	if !p.started {
		p.started = true
		if p.cfg.contentHandler != nil {
			p.cfg.contentHandler.SetDocumentLocator(&p.locator)
			if err := p.cfg.contentHandler.StartDocument(); err != nil {
				return err
			}
		}
	}
	text, err := p.dec.Feed(chunk)
	if err != nil {
		return p.fatal(err)
	}
	if text == "" {
		return nil
	}
	if err := p.tok.Feed(text); err != nil {
		return p.fatal(err)
	}
	return nil
}

// Close signals end of input, flushing any decoder/tokenizer holdback
// and reporting EndDocument.
func (p *Parser) Close() error {
	if tail := p.dec.Close(); tail != "" {
		if err := p.tok.Feed(tail); err != nil {
			return p.fatal(err)
		}
	}
	if err := p.tok.Close(); err != nil {
		return p.fatal(err)
	}
	if len(p.stack) != 0 {
		return p.fatal(&WellFormedError{Msg: "document ended with unclosed elements", Line: p.locator.Line, Col: p.locator.Column})
	}
	if p.cfg.contentHandler != nil {
		return p.cfg.contentHandler.EndDocument()
	}
	return nil
}

// Reset returns the Parser to its initial state, ready for a new
// document, keeping the same configured handlers.
func (p *Parser) Reset() {
	cfg := p.cfg
	*p = Parser{cfg: cfg, dec: encoding.New(cfg.xml11), ns: newNSStack(), entities: dtd.NewTable()}
	if cfg.externalTable != nil {
		for k, v := range cfg.externalTable.GeneralEntities {
			p.entities.GeneralEntities[k] = v
		}
		for k, v := range cfg.externalTable.ParameterEntities {
			p.entities.ParameterEntities[k] = v
		}
	}
	p.tok = token.New(p)
}

func (p *Parser) fatal(err error) error {
	if p.cfg.errorHandler != nil {
		return p.cfg.errorHandler.Fatal(err)
	}
	return err
}

// Token implements token.Consumer: it receives tokens from the
// Tokenizer and assembles them into SAX events.
func (p *Parser) Token(tok token.Token) error {
	p.locator.Line, p.locator.Column = tok.Line, tok.Col

	switch tok.Kind {
	case token.OpenAngle:
		p.inStartTag = true
		p.pendingTag = p.pendingTag[:0]
		return nil
	case token.EndTagOpen:
		p.inEndTag = true
		p.pendingTag = p.pendingTag[:0]
		return nil
	case token.CloseAngle, token.EmptyClose:
		if p.inStartTag {
			p.inStartTag = false
			return p.finishStartTag(tok.Kind == token.EmptyClose)
		}
		if p.inEndTag {
			p.inEndTag = false
			return p.finishEndTag()
		}
		return nil
	case token.Name, token.Equals, token.QuotedValue:
		if p.inStartTag || p.inEndTag {
			p.pendingTag = append(p.pendingTag, tok)
		}
		return nil
	case token.Text:
		return p.characters(tok.Text)
	case token.CharRef:
		return p.characters(tok.Text)
	case token.EntityRef:
		return p.resolveEntityRef(tok.Text)
	case token.CommentBody:
		if p.cfg.lexicalHandler != nil {
			return p.cfg.lexicalHandler.Comment(tok.Text)
		}
		return nil
	case token.CDATABody:
		if p.cfg.lexicalHandler != nil {
			if err := p.cfg.lexicalHandler.StartCDATA(); err != nil {
				return err
			}
		}
		if err := p.characters(tok.Text); err != nil {
			return err
		}
		if p.cfg.lexicalHandler != nil {
			return p.cfg.lexicalHandler.EndCDATA()
		}
		return nil
	case token.PITarget:
		p.pendingTag = append(p.pendingTag, tok) // reuse scratch slot for target+body pairing
		return nil
	case token.PIBody:
		target := ""
		if len(p.pendingTag) > 0 {
			target = p.pendingTag[0].Text
			p.pendingTag = p.pendingTag[:0]
		}
		if p.cfg.contentHandler != nil {
			return p.cfg.contentHandler.ProcessingInstruction(target, tok.Text)
		}
		return nil
	case token.DoctypeStart:
		return p.handleDoctype(tok.Text)
	}
	return nil
}

func (p *Parser) characters(text string) error {
	if p.cfg.contentHandler == nil || text == "" {
		return nil
	}
	return p.cfg.contentHandler.Characters(text)
}

func (p *Parser) resolveEntityRef(entName string) error {
	text, ok := p.entities.ResolveGeneralEntity(entName)
	if !ok {
		if p.cfg.contentHandler != nil {
			if err := p.cfg.contentHandler.SkippedEntity(entName); err != nil {
				return err
			}
		}
		return p.wellFormedErrorOrWarn("reference to undeclared entity &" + entName + ";")
	}
	if p.cfg.lexicalHandler != nil {
		if err := p.cfg.lexicalHandler.StartEntity(entName); err != nil {
			return err
		}
	}
	if err := p.characters(text); err != nil {
		return err
	}
	if p.cfg.lexicalHandler != nil {
		return p.cfg.lexicalHandler.EndEntity(entName)
	}
	return nil
}

func (p *Parser) wellFormedErrorOrWarn(msg string) error {
	err := &WellFormedError{Msg: msg, Line: p.locator.Line, Col: p.locator.Column}
	if p.cfg.errorHandler != nil {
		return p.cfg.errorHandler.Error(err)
	}
	return err
}

type rawAttr struct {
	raw   string
	value string
}

func (p *Parser) finishStartTag(selfClosing bool) error {
	if len(p.pendingTag) == 0 {
		return p.wellFormedErrorOrWarn("start tag missing element name")
	}
	elemRaw := p.pendingTag[0].Text
	var attrs []rawAttr
	for i := 1; i+2 < len(p.pendingTag); i += 3 {
		nameTok, valTok := p.pendingTag[i], p.pendingTag[i+2]
		attrs = append(attrs, rawAttr{raw: nameTok.Text, value: valTok.Text})
	}

	p.ns.push()
	var newPrefixes []string
	if p.cfg.namespaceAware {
		for _, a := range attrs {
			switch {
			case a.raw == "xmlns":
				p.ns.declare("", a.value)
				newPrefixes = append(newPrefixes, "")
			case strings.HasPrefix(a.raw, "xmlns:"):
				prefix := strings.TrimPrefix(a.raw, "xmlns:")
				p.ns.declare(prefix, a.value)
				newPrefixes = append(newPrefixes, prefix)
			}
		}
	}

	elemQName, err := p.resolveElementName(elemRaw)
	if err != nil {
		return err
	}

	var saxAttrs []sax.Attribute
	seen := map[name.QName]bool{}
	for _, a := range attrs {
		if p.cfg.namespaceAware && (a.raw == "xmlns" || strings.HasPrefix(a.raw, "xmlns:")) {
			continue
		}
		qn, err := p.resolveAttrName(a.raw)
		if err != nil {
			return err
		}
		if seen[qn] {
			return p.wellFormedErrorOrWarn("duplicate attribute " + a.raw)
		}
		seen[qn] = true
		saxAttrs = append(saxAttrs, sax.Attribute{Name: qn, Value: expandEntitiesInValue(a.value, p.entities), Specified: true})
	}

	if p.cfg.contentHandler != nil {
		for _, prefix := range newPrefixes {
			uri, _ := p.ns.resolve(prefix)
			if err := p.cfg.contentHandler.StartPrefixMapping(prefix, uri); err != nil {
				return err
			}
		}
		if err := p.cfg.contentHandler.StartElement(elemQName, saxAttrs); err != nil {
			return err
		}
	}

	if !p.rootSeen {
		p.rootSeen = true
		if p.doctypeRoot != "" && p.doctypeRoot != elemRaw {
			if err := p.wellFormedErrorOrWarn("document element <" + elemRaw + "> does not match DOCTYPE name " + p.doctypeRoot); err != nil {
				return err
			}
		}
	}

	if selfClosing {
		if p.cfg.contentHandler != nil {
			if err := p.cfg.contentHandler.EndElement(elemQName); err != nil {
				return err
			}
			for _, prefix := range newPrefixes {
				if err := p.cfg.contentHandler.EndPrefixMapping(prefix); err != nil {
					return err
				}
			}
		}
		p.ns.pop()
		return nil
	}

	p.stack = append(p.stack, elemFrame{raw: elemRaw, qname: elemQName, declaredPrefixes: newPrefixes})
	return nil
}

func (p *Parser) finishEndTag() error {
	if len(p.pendingTag) == 0 {
		return p.wellFormedErrorOrWarn("end tag missing element name")
	}
	raw := p.pendingTag[0].Text
	if len(p.stack) == 0 {
		return p.wellFormedErrorOrWarn("end tag </" + raw + "> with no open element")
	}
	top := p.stack[len(p.stack)-1]
	if top.raw != raw {
		return p.wellFormedErrorOrWarn("mismatched end tag: expected </" + top.raw + "> got </" + raw + ">")
	}
	p.stack = p.stack[:len(p.stack)-1]

	if p.cfg.contentHandler != nil {
		if err := p.cfg.contentHandler.EndElement(top.qname); err != nil {
			return err
		}
		for _, prefix := range top.declaredPrefixes {
			if err := p.cfg.contentHandler.EndPrefixMapping(prefix); err != nil {
				return err
			}
		}
	}
	p.ns.pop()
	return nil
}

func (p *Parser) resolveElementName(raw string) (name.QName, error) {
	if !p.cfg.namespaceAware {
		return splitRawName(raw), nil
	}
	prefix, local := splitPrefix(raw)
	if prefix == "" {
		uri, _ := p.ns.resolve("")
		return name.QName{Local: local, URI: uri}, nil
	}
	uri, ok := p.ns.resolve(prefix)
	if !ok {
		return name.QName{}, p.wellFormedErrorOrWarn("unbound namespace prefix " + prefix)
	}
	return name.QName{Prefix: prefix, Local: local, URI: uri}, nil
}

func (p *Parser) resolveAttrName(raw string) (name.QName, error) {
	if !p.cfg.namespaceAware {
		return splitRawName(raw), nil
	}
	prefix, local := splitPrefix(raw)
	if prefix == "" {
		return name.QName{Local: local}, nil
	}
	uri, ok := p.ns.resolve(prefix)
	if !ok {
		return name.QName{}, p.wellFormedErrorOrWarn("unbound namespace prefix " + prefix)
	}
	return name.QName{Prefix: prefix, Local: local, URI: uri}, nil
}

func splitPrefix(raw string) (prefix, local string) {
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return "", raw
}

func splitRawName(raw string) name.QName {
	prefix, local := splitPrefix(raw)
	return name.QName{Prefix: prefix, Local: local}
}

// expandEntitiesInValue resolves named general-entity references left
// literal in an attribute value by the Tokenizer (which only expands
// numeric character references inline).
func expandEntitiesInValue(s string, table *dtd.Table) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] == '&' {
			if end := strings.IndexByte(s[i:], ';'); end > 0 {
				entName := s[i+1 : i+end]
				if text, ok := table.ResolveGeneralEntity(entName); ok {
					b.WriteString(text)
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func (p *Parser) handleDoctype(body string) error {
	rootName, publicID, systemID, subset, hasSubset, err := parseDoctypeBody(body)
	if err != nil {
		return p.fatal(err)
	}
	p.doctypeRoot = rootName
	if p.cfg.lexicalHandler != nil {
		if err := p.cfg.lexicalHandler.StartDTD(rootName, publicID, systemID); err != nil {
			return err
		}
	}
	if hasSubset {
		dp := &dtd.Parser{Table: p.entities, DeclHandler: p.cfg.declHandler, DTDHandler: p.cfg.dtdHandler}
		if err := dp.ParseInternalSubset(subset); err != nil {
			return p.fatal(err)
		}
	}
	if p.cfg.lexicalHandler != nil {
		return p.cfg.lexicalHandler.EndDTD()
	}
	return nil
}

// parseDoctypeBody splits the DoctypeStart token's raw text (everything
// between "<!DOCTYPE" and the terminating '>', already bracket/quote
// matched by the Tokenizer) into its root name, optional external ID,
// and optional bracketed internal subset.
func parseDoctypeBody(body string) (rootName, publicID, systemID, subset string, hasSubset bool, err error) {
	body = strings.TrimSpace(body)
	i := 0
	for i < len(body) && !isDoctypeSep(body[i]) {
		i++
	}
	rootName = body[:i]
	rest := strings.TrimSpace(body[i:])

	if bi := strings.IndexByte(rest, '['); bi >= 0 {
		extPart := strings.TrimSpace(rest[:bi])
		publicID, systemID = parseDoctypeExternalID(extPart)
		closeIdx := strings.LastIndexByte(rest, ']')
		if closeIdx < 0 || closeIdx < bi {
			return "", "", "", "", false, &WellFormedError{Msg: "unterminated internal subset"}
		}
		subset = rest[bi+1 : closeIdx]
		hasSubset = true
		return rootName, publicID, systemID, subset, hasSubset, nil
	}
	publicID, systemID = parseDoctypeExternalID(rest)
	return rootName, publicID, systemID, "", false, nil
}

func isDoctypeSep(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func parseDoctypeExternalID(s string) (publicID, systemID string) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "PUBLIC"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "PUBLIC"))
		pub, rest := takeQuoted(s)
		sys, _ := takeQuoted(strings.TrimSpace(rest))
		return pub, sys
	case strings.HasPrefix(s, "SYSTEM"):
		s = strings.TrimSpace(strings.TrimPrefix(s, "SYSTEM"))
		sys, _ := takeQuoted(s)
		return "", sys
	}
	return "", ""
}

func takeQuoted(s string) (val, rest string) {
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", s
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return "", ""
	}
	return s[1 : 1+end], s[end+2:]
}
