package dtd

import (
	"fmt"
	"strings"

	"github.com/r2stream/xmlcore/sax"
)

// ParseError reports a malformed DTD construct.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return "dtd: " + e.Msg }

// Parser accumulates declarations into a Table and, when handlers are
// registered, reports each declaration event as it is recognized (the
// SAX2 DeclHandler/DTDHandler extensions).
type Parser struct {
	Table *Table

	DeclHandler sax.DeclHandler
	DTDHandler  sax.DTDHandler

	peDepth int // guards against runaway parameter-entity recursion
}

// NewParser returns a Parser with a fresh Table seeded with the
// predefined entities.
func NewParser() *Parser {
	return &Parser{Table: NewTable()}
}

// ParseInternalSubset parses the bracket-delimited internal subset text
// the Tokenizer captured from a <!DOCTYPE ...[ ... ]> construct (raw is
// everything between the '[' and ']', exclusive). Parameter-entity
// references are expanded before declarations are recognized, per XML
// §4.4.8's "include" rule for the internal subset.
func (p *Parser) ParseInternalSubset(raw string) error {
	decls, err := splitDeclarations(raw)
	if err != nil {
		return err
	}
	for _, d := range decls {
		if err := p.parseOne(d); err != nil {
			return err
		}
	}
	return nil
}

// splitDeclarations breaks bracket/quote-aware text into individual
// "<!...>" markup declarations and "%name;" parameter-entity
// references, skipping comments and whitespace between them.
func splitDeclarations(raw string) ([]string, error) {
	var out []string
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.HasPrefix(raw[i:], "<!--"):
			end := strings.Index(raw[i+4:], "-->")
			if end < 0 {
				return nil, &ParseError{Msg: "unterminated comment in internal subset"}
			}
			i = i + 4 + end + 3
		case c == '%':
			end := strings.IndexByte(raw[i:], ';')
			if end < 0 {
				return nil, &ParseError{Msg: "unterminated parameter-entity reference"}
			}
			out = append(out, raw[i:i+end+1])
			i = i + end + 1
		case strings.HasPrefix(raw[i:], "<!"):
			end, derr := findDeclEnd(raw, i)
			if derr != nil {
				return nil, derr
			}
			out = append(out, raw[i:end+1])
			i = end + 1
		default:
			return nil, &ParseError{Msg: fmt.Sprintf("unexpected character %q in internal subset", c)}
		}
	}
	return out, nil
}

func findDeclEnd(raw string, start int) (int, error) {
	var quote byte
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '>':
			return i, nil
		}
	}
	return 0, &ParseError{Msg: "unterminated markup declaration"}
}

func (p *Parser) parseOne(decl string) error {
	if strings.HasPrefix(decl, "%") {
		return p.expandParameterEntity(decl)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(decl, "<!"), ">")
	body = strings.TrimSpace(p.expandInternalValue(body))
	switch {
	case strings.HasPrefix(body, "ELEMENT"):
		return p.parseElement(body)
	case strings.HasPrefix(body, "ATTLIST"):
		return p.parseAttlist(body)
	case strings.HasPrefix(body, "ENTITY"):
		return p.parseEntity(body)
	case strings.HasPrefix(body, "NOTATION"):
		return p.parseNotation(body)
	default:
		return &ParseError{Msg: "unrecognized declaration: " + decl}
	}
}

// expandParameterEntity substitutes a %name; reference by recursively
// parsing its replacement text as further declarations, matching the
// way the internal subset textually "includes" parameter entities.
func (p *Parser) expandParameterEntity(ref string) error {
	p.peDepth++
	defer func() { p.peDepth-- }()
	if p.peDepth > 64 {
		return &ParseError{Msg: "parameter-entity recursion too deep"}
	}
	name := strings.TrimSuffix(strings.TrimPrefix(ref, "%"), ";")
	ent, ok := p.Table.ParameterEntities[name]
	if !ok {
		return &ParseError{Msg: "undefined parameter entity %" + name + ";"}
	}
	return p.ParseInternalSubset(ent.Value)
}

func (p *Parser) parseElement(body string) error {
	fields := splitFields(strings.TrimPrefix(body, "ELEMENT"), 2)
	if len(fields) < 2 {
		return &ParseError{Msg: "malformed ELEMENT declaration"}
	}
	name, model := fields[0], strings.TrimSpace(fields[1])
	decl := ElementDecl{Name: name, Model: model}
	switch {
	case model == "EMPTY":
		decl.Kind = ContentEmpty
	case model == "ANY":
		decl.Kind = ContentAny
	case strings.HasPrefix(model, "(#PCDATA"):
		decl.Kind = ContentMixed
	default:
		decl.Kind = ContentChildren
	}
	p.Table.Elements[name] = decl
	if p.DeclHandler != nil {
		return p.DeclHandler.ElementDecl(name, model)
	}
	return nil
}

func (p *Parser) parseAttlist(body string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(body, "ATTLIST"))
	fields := splitFields(rest, 2)
	if len(fields) < 2 {
		return &ParseError{Msg: "malformed ATTLIST declaration"}
	}
	elem := fields[0]
	defs, err := parseAttributeDefs(fields[1])
	if err != nil {
		return err
	}
	for _, d := range defs {
		d.Element = elem
		p.Table.Attributes[elem] = append(p.Table.Attributes[elem], d)
		if p.DeclHandler != nil {
			if err := p.DeclHandler.AttributeDecl(elem, d.Name, attrTypeName(d.Type), attrDefaultName(d.Default), d.DefaultValue); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Parser) parseEntity(body string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(body, "ENTITY"))
	isParam := strings.HasPrefix(rest, "%")
	if isParam {
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "%"))
	}
	fields := splitFields(rest, 2)
	if len(fields) < 2 {
		return &ParseError{Msg: "malformed ENTITY declaration"}
	}
	name, tail := fields[0], strings.TrimSpace(fields[1])

	var decl EntityDecl
	decl.Name = name
	switch {
	case strings.HasPrefix(tail, "SYSTEM") || strings.HasPrefix(tail, "PUBLIC"):
		pub, sys, remainder := parseExternalID(tail)
		decl.PublicID, decl.SystemID = pub, sys
		if isParam {
			decl.Kind = EntityExternalParameter
		} else if ndata, ok := parseNDATA(remainder); ok {
			decl.Kind = EntityExternalUnparsed
			decl.Notation = ndata
		} else {
			decl.Kind = EntityExternalGeneral
		}
	default:
		val, ok := unquote(tail)
		if !ok {
			return &ParseError{Msg: "malformed entity value: " + tail}
		}
		decl.Value = p.expandInternalValue(val)
		if isParam {
			decl.Kind = EntityInternalParameter
		} else {
			decl.Kind = EntityInternalGeneral
		}
	}

	if isParam {
		p.Table.ParameterEntities[name] = decl
	} else {
		p.Table.GeneralEntities[name] = decl
	}
	if p.DeclHandler != nil {
		if decl.Kind == EntityInternalGeneral || decl.Kind == EntityInternalParameter {
			return p.DeclHandler.InternalEntityDecl(name, decl.Value)
		}
		return p.DeclHandler.ExternalEntityDecl(name, decl.PublicID, decl.SystemID)
	}
	if p.DTDHandler != nil && decl.Kind == EntityExternalUnparsed {
		return p.DTDHandler.UnparsedEntityDecl(name, decl.PublicID, decl.SystemID, decl.Notation)
	}
	return nil
}

// expandInternalValue resolves %pe; references already known at the
// point this literal entity value is declared; forward references are
// left unresolved, matching non-validating behavior.
func (p *Parser) expandInternalValue(val string) string {
	if !strings.Contains(val, "%") {
		return val
	}
	var b strings.Builder
	for i := 0; i < len(val); {
		if val[i] == '%' {
			if end := strings.IndexByte(val[i:], ';'); end > 0 {
				name := val[i+1 : i+end]
				if ent, ok := p.Table.ParameterEntities[name]; ok {
					b.WriteString(ent.Value)
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(val[i])
		i++
	}
	return b.String()
}

func (p *Parser) parseNotation(body string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(body, "NOTATION"))
	fields := splitFields(rest, 2)
	if len(fields) < 2 {
		return &ParseError{Msg: "malformed NOTATION declaration"}
	}
	name := fields[0]
	pub, sys, _ := parseExternalID(strings.TrimSpace(fields[1]))
	p.Table.Notations[name] = NotationDecl{Name: name, PublicID: pub, SystemID: sys}
	if p.DTDHandler != nil {
		return p.DTDHandler.NotationDecl(name, pub, sys)
	}
	return nil
}

// parseAttributeDefs parses the (possibly several) "name type default"
// clauses following an element name in an ATTLIST declaration.
func parseAttributeDefs(s string) ([]AttributeDecl, error) {
	var out []AttributeDecl
	s = strings.TrimSpace(s)
	for s != "" {
		fields := splitFields(s, 2)
		if len(fields) < 2 {
			return nil, &ParseError{Msg: "malformed attribute definition: " + s}
		}
		name := fields[0]
		rest := strings.TrimSpace(fields[1])

		var typ AttributeType
		var enum []string
		switch {
		case strings.HasPrefix(rest, "("):
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return nil, &ParseError{Msg: "unterminated enumeration in ATTLIST"}
			}
			typ = AttrEnumeration
			enum = strings.Split(rest[1:end], "|")
			for i := range enum {
				enum[i] = strings.TrimSpace(enum[i])
			}
			rest = strings.TrimSpace(rest[end+1:])
		case strings.HasPrefix(rest, "NOTATION"):
			rest = strings.TrimSpace(strings.TrimPrefix(rest, "NOTATION"))
			end := strings.IndexByte(rest, ')')
			if !strings.HasPrefix(rest, "(") || end < 0 {
				return nil, &ParseError{Msg: "malformed NOTATION attribute type"}
			}
			typ = AttrNotation
			enum = strings.Split(rest[1:end], "|")
			for i := range enum {
				enum[i] = strings.TrimSpace(enum[i])
			}
			rest = strings.TrimSpace(rest[end+1:])
		default:
			kw, tail := splitWord(rest)
			t, ok := attrTypeFromKeyword(kw)
			if !ok {
				return nil, &ParseError{Msg: "unknown attribute type: " + kw}
			}
			typ, rest = t, tail
		}

		def, defVal, tail, err := parseDefault(rest)
		if err != nil {
			return nil, err
		}
		out = append(out, AttributeDecl{Name: name, Type: typ, Enumeration: enum, Default: def, DefaultValue: defVal})
		s = strings.TrimSpace(tail)
	}
	return out, nil
}

func attrTypeFromKeyword(kw string) (AttributeType, bool) {
	switch kw {
	case "CDATA":
		return AttrCDATA, true
	case "ID":
		return AttrID, true
	case "IDREF":
		return AttrIDRef, true
	case "IDREFS":
		return AttrIDRefs, true
	case "ENTITY":
		return AttrEntity, true
	case "ENTITIES":
		return AttrEntities, true
	case "NMTOKEN":
		return AttrNmtoken, true
	case "NMTOKENS":
		return AttrNmtokens, true
	}
	return 0, false
}

func attrTypeName(t AttributeType) string {
	switch t {
	case AttrID:
		return "ID"
	case AttrIDRef:
		return "IDREF"
	case AttrIDRefs:
		return "IDREFS"
	case AttrEntity:
		return "ENTITY"
	case AttrEntities:
		return "ENTITIES"
	case AttrNmtoken:
		return "NMTOKEN"
	case AttrNmtokens:
		return "NMTOKENS"
	case AttrNotation:
		return "NOTATION"
	case AttrEnumeration:
		return "ENUMERATION"
	default:
		return "CDATA"
	}
}

func attrDefaultName(d AttributeDefault) string {
	switch d {
	case DefaultRequired:
		return "#REQUIRED"
	case DefaultImplied:
		return "#IMPLIED"
	case DefaultFixed:
		return "#FIXED"
	default:
		return ""
	}
}

func parseDefault(s string) (AttributeDefault, string, string, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#REQUIRED"):
		return DefaultRequired, "", s[len("#REQUIRED"):], nil
	case strings.HasPrefix(s, "#IMPLIED"):
		return DefaultImplied, "", s[len("#IMPLIED"):], nil
	case strings.HasPrefix(s, "#FIXED"):
		s = strings.TrimSpace(s[len("#FIXED"):])
		val, tail, err := scanQuoted(s)
		return DefaultFixed, val, tail, err
	default:
		val, tail, err := scanQuoted(s)
		return DefaultNone, val, tail, err
	}
}

func scanQuoted(s string) (val, tail string, err error) {
	if s == "" || (s[0] != '"' && s[0] != '\'') {
		return "", s, &ParseError{Msg: "expected quoted default value"}
	}
	end := strings.IndexByte(s[1:], s[0])
	if end < 0 {
		return "", s, &ParseError{Msg: "unterminated default value"}
	}
	return s[1 : 1+end], s[end+2:], nil
}

func parseExternalID(s string) (publicID, systemID, remainder string) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "PUBLIC") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "PUBLIC"))
		pub, rest, _ := scanQuoted(s)
		sys, rest2, err := scanQuoted(strings.TrimSpace(rest))
		if err != nil {
			return pub, "", strings.TrimSpace(rest)
		}
		return pub, sys, strings.TrimSpace(rest2)
	}
	if strings.HasPrefix(s, "SYSTEM") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "SYSTEM"))
		sys, rest, _ := scanQuoted(s)
		return "", sys, strings.TrimSpace(rest)
	}
	return "", "", s
}

func parseNDATA(s string) (notation string, ok bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "NDATA") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(s, "NDATA")), true
}

func unquote(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != '"' && s[0] != '\'') || s[len(s)-1] != s[0] {
		return "", false
	}
	return s[1 : len(s)-1], true
}

func splitWord(s string) (word, rest string) {
	i := 0
	for i < len(s) && s[i] != ' ' && s[i] != '\t' && s[i] != '\n' && s[i] != '\r' {
		i++
	}
	return s[:i], s[i:]
}

// splitFields splits s on runs of whitespace into at most n fields,
// the last of which retains any internal whitespace (like strings.Split
// with N, but whitespace-run aware).
func splitFields(s string, n int) []string {
	s = strings.TrimSpace(s)
	var out []string
	for len(out) < n-1 {
		s = strings.TrimLeft(s, " \t\r\n")
		if s == "" {
			break
		}
		i := strings.IndexAny(s, " \t\r\n")
		if i < 0 {
			out = append(out, s)
			s = ""
			break
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	if s != "" {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
