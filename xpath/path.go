package xpath

import "strings"

// axisNames are the thirteen axes of the XPath 1.0 data model, each
// spelled as its "axis::" keyword form.
var axisNames = map[string]bool{
	"child":              true,
	"descendant":         true,
	"descendant-or-self": true,
	"parent":             true,
	"ancestor":           true,
	"ancestor-or-self":   true,
	"following-sibling":  true,
	"preceding-sibling":  true,
	"following":          true,
	"preceding":          true,
	"attribute":          true,
	"self":               true,
	"namespace":          true,
}

var kindTestNames = map[string]bool{
	"node":                   true,
	"text":                   true,
	"comment":                true,
	"processing-instruction": true,
	"document-node":          true,
	"element":                true,
	"attribute-node":         true,
	"item":                   true,
}

// atStepStart reports whether the current token can begin a location
// step (as opposed to a primary expression). A bare Name immediately
// followed by '(' is a function call or a KindTest; only the reserved
// kind-test names count as a step in that case. This is pure token
// lookahead (save/restore the lexer position) and never recurses into
// expression parsing.
func (p *parser) atStepStart() bool {
	switch p.tok.kind {
	case tDot, tDotDot, tAt, tStar:
		return true
	case tName:
		if isKeyword(p.tok.text, "or", "and", "div", "mod", "idiv", "union", "intersect", "except", "to", "eq", "ne", "lt", "le", "gt", "ge", "is", "instance", "treat", "castable", "cast") {
			return false
		}
		if isKeyword(p.tok.text, "map", "array", "function") && p.peekIsBrace() {
			return false
		}
		if isKeyword(p.tok.text, "if") && p.peekIsParen() {
			return false
		}
		if isKeyword(p.tok.text, "for", "let", "some", "every") {
			return false
		}
		if p.peekIsParen() && !kindTestNames[strings.ToLower(p.tok.text)] && !p.axisFollowedByColonColon() {
			return false
		}
		return true
	}
	return false
}

// peekIsBrace reports whether the name just lexed is immediately
// followed by '{'.
func (p *parser) peekIsBrace() bool {
	savedPos, savedTok := p.lex.pos, p.tok
	defer func() { p.lex.pos, p.tok = savedPos, savedTok }()
	if err := p.advance(); err != nil {
		return false
	}
	return p.at(tLBrace)
}

// peekIsParen reports whether the name token just lexed is immediately
// followed by '(' without an intervening "::".
func (p *parser) peekIsParen() bool {
	savedPos, savedTok := p.lex.pos, p.tok
	defer func() { p.lex.pos, p.tok = savedPos, savedTok }()
	if err := p.advance(); err != nil {
		return false
	}
	return p.at(tLParen)
}

// axisFollowedByColonColon reports whether the current name token is
// an axis keyword immediately followed by "::".
func (p *parser) axisFollowedByColonColon() bool {
	if !axisNames[strings.ToLower(p.tok.text)] {
		return false
	}
	savedPos, savedTok := p.lex.pos, p.tok
	defer func() { p.lex.pos, p.tok = savedPos, savedTok }()
	if err := p.advance(); err != nil {
		return false
	}
	return p.at(tColonColon)
}

func splitQName(name string) (prefix, local string) {
	for i := 0; i < len(name); i++ {
		if name[i] == ':' {
			return name[:i], name[i+1:]
		}
	}
	return "", name
}

// parseStepHeader consumes one step's axis and node test (but not its
// predicates, which the caller handles via a pushed predicate frame).
// It never recurses into expression parsing.
func (p *parser) parseStepHeader() (axis string, test NodeTest, err error) {
	switch {
	case p.at(tDot):
		if err = p.advance(); err != nil {
			return
		}
		return "self", KindTest{Kind: "node"}, nil
	case p.at(tDotDot):
		if err = p.advance(); err != nil {
			return
		}
		return "parent", KindTest{Kind: "node"}, nil
	case p.at(tAt):
		if err = p.advance(); err != nil {
			return
		}
		test, err = p.parseNodeTest()
		return "attribute", test, err
	}

	axis = "child"
	if p.at(tName) && axisNames[strings.ToLower(p.tok.text)] {
		savedPos, savedTok := p.lex.pos, p.tok
		name := p.tok.text
		if err = p.advance(); err != nil {
			return
		}
		if p.at(tColonColon) {
			axis = strings.ToLower(name)
			if err = p.advance(); err != nil {
				return
			}
		} else {
			p.lex.pos, p.tok = savedPos, savedTok
		}
	}
	test, err = p.parseNodeTest()
	return axis, test, err
}

func (p *parser) parseNodeTest() (NodeTest, error) {
	if p.at(tStar) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return NameTest{Local: "*"}, nil
	}
	if !p.at(tName) {
		return nil, p.errorf("expected a node test, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return nil, err
	}
	lower := strings.ToLower(name)
	if p.at(tLParen) && kindTestNames[lower] {
		if err := p.advance(); err != nil {
			return nil, err
		}
		kt := KindTest{Kind: lower}
		if kt.Kind == "processing-instruction" && p.at(tString) {
			kt.Arg = p.tok.text
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		// element()/document-node() may carry a type-name argument we
		// don't validate against a schema; skip past it verbatim.
		for !p.at(tRParen) && !p.at(tEOF) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return kt, nil
	}
	prefix, local := splitQName(name)
	return NameTest{Prefix: prefix, Local: local}, nil
}
