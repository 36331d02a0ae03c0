package xpath

import "strings"

// parser turns a token stream into an Expr tree using an iterative
// operator-precedence ("Pratt") climb plus an explicit stack of frames
// for every bracketed or staged construct (parenthesized groups,
// predicates, argument lists, array/map literals, inline function
// bodies, and the FLWOR/if/quantified constructs). Nothing here
// recurses through the Go call stack: nesting depth is bounded only by
// how many *frame values fit on the heap-allocated p.stack slice, so a
// deeply nested expression cannot exhaust the goroutine stack the way
// a naïve recursive-descent parser would.
type parser struct {
	lex   *lexer
	tok   lexToken
	stack []*frame
}

// Parse compiles src into an Expr tree.
func Parse(src string) (Expr, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	top := newFrame(frameTop)
	top.expectOperand = true
	p.stack = []*frame{top}

	result, err := p.run()
	if err != nil {
		return nil, err
	}
	if !p.at(tEOF) {
		return nil, p.errorf("unexpected trailing input near %q", p.tok.text)
	}
	return result, nil
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return p.lex.errorf(format, args...)
}

func (p *parser) at(k tokKind) bool { return p.tok.kind == k }

func (p *parser) atKeyword(kws ...string) bool {
	return p.tok.kind == tName && isKeyword(p.tok.text, kws...)
}

func (p *parser) expect(k tokKind, what string) error {
	if !p.at(k) {
		return p.errorf("expected %s, got %q", what, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return p.errorf("expected %q, got %q", kw, p.tok.text)
	}
	return p.advance()
}

func (p *parser) push(f *frame) { p.stack = append(p.stack, f) }

func (p *parser) pop() *frame {
	n := len(p.stack)
	f := p.stack[n-1]
	p.stack = p.stack[:n-1]
	return f
}

func (p *parser) top() *frame { return p.stack[len(p.stack)-1] }

// run drives the whole parse: at every iteration it looks at the
// top-of-stack frame and either feeds it an operand, tries to advance
// past an operator/postfix keyword, or lets the frame react to a token
// it cannot continue with (a "stop" dispatch, handled per frame kind).
func (p *parser) run() (Expr, error) {
	for {
		f := p.top()

		if f.building {
			if err := p.stepAtom(f); err != nil {
				return nil, err
			}
			continue
		}

		if f.expectOperand {
			if p.atEmptyBracketClose(f) {
				done, result, err := p.stopFrame(f)
				if err != nil {
					return nil, err
				}
				if done {
					return result, nil
				}
				continue
			}
			if err := p.beginOperand(f); err != nil {
				return nil, err
			}
			continue
		}

		applied, err := p.tryApplyPostfix(f)
		if err != nil {
			return nil, err
		}
		if applied {
			continue
		}

		if op, prec, ok := p.peekBinaryOp(); ok {
			if err := p.advance(); err != nil {
				return nil, err
			}
			f.pushOperator(op, prec)
			continue
		}

		// f cannot continue with the current token: dispatch the
		// frame-kind-specific "stop" reaction.
		done, result, err := p.stopFrame(f)
		if err != nil {
			return nil, err
		}
		if done {
			return result, nil
		}
	}
}

// ---- operand dispatch ----------------------------------------------

// beginOperand starts parsing whatever ExprSingle sits in f's current
// operand slot: either a FLWOR/if/quantified construct (which commit
// the whole slot, bypassing ordinary atom/unary/path assembly) or an
// ordinary atom (literal/path/paren/... with unary sign prefix and
// postfix/simple-map suffix).
func (p *parser) beginOperand(f *frame) error {
	if f.kind == frameConstruct && f.ckind == "if" && f.cstage == stageThen && len(f.operands) == 0 {
		if err := p.expectKeyword("then"); err != nil { // the condition's ')' is followed by "then"
			return err
		}
	}
	switch {
	case p.atKeyword("if") && p.peekIsParen():
		return p.beginIf(f)
	case p.atKeyword("for"):
		return p.beginForOrLet(f, false)
	case p.atKeyword("let"):
		return p.beginForOrLet(f, true)
	case p.atKeyword("some"):
		return p.beginQuantified(f, false)
	case p.atKeyword("every"):
		return p.beginQuantified(f, true)
	}
	f.expectOperand = false
	f.building = true
	f.atomPhase = atomPrimary
	return nil
}

func (p *parser) beginIf(f *frame) error {
	if err := p.advance(); err != nil { // consume "if"
		return err
	}
	if err := p.expect(tLParen, "'('"); err != nil {
		return err
	}
	cf := newFrame(frameConstruct)
	cf.ckind = "if"
	cf.onChild = func(r Expr) { f.pushOperand(r) }
	p.push(cf)
	p.push(wrapBracket(frameParen, func(r Expr) {
		cf.ifCond = r
		cf.cstage = stageThen
		cf.operands, cf.operators, cf.expectOperand = nil, nil, true
	}))
	return nil
}

func (p *parser) beginForOrLet(f *frame, isLet bool) error {
	if err := p.advance(); err != nil { // consume "for"/"let"
		return err
	}
	cf := newFrame(frameConstruct)
	if isLet {
		cf.ckind = "let"
	} else {
		cf.ckind = "for"
	}
	cf.onChild = func(r Expr) { f.pushOperand(r) }
	if err := p.parseBindingHead(cf, isLet); err != nil {
		return err
	}
	cf.cstage = stageBindingSeq
	cf.expectOperand = true
	p.push(cf)
	return nil
}

func (p *parser) beginQuantified(f *frame, every bool) error {
	if err := p.advance(); err != nil { // consume "some"/"every"
		return err
	}
	cf := newFrame(frameConstruct)
	cf.ckind = "some"
	cf.cEvery = every
	cf.onChild = func(r Expr) { f.pushOperand(r) }
	if err := p.parseBindingHead(cf, false); err != nil {
		return err
	}
	cf.cstage = stageBindingSeq
	cf.expectOperand = true
	p.push(cf)
	return nil
}

// parseBindingHead consumes "$var in" (or "$var :=" for let), leaving
// the parser positioned at the start of the binding's sequence/value
// expression. Purely token-level; never recurses.
func (p *parser) parseBindingHead(cf *frame, isLet bool) error {
	if !p.at(tVar) {
		return p.errorf("expected '$' variable binding, got %q", p.tok.text)
	}
	cf.pendingVar = p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	if isLet {
		return p.expect(tAssign, "':='")
	}
	return p.expectKeyword("in")
}

// ---- postfix keyword operators (instance of / treat as / castable as
// / cast as / =>) --------------------------------------------------

func (p *parser) tryApplyPostfix(f *frame) (bool, error) {
	switch {
	case p.atKeyword("instance"):
		if err := p.advance(); err != nil {
			return false, err
		}
		if err := p.expectKeyword("of"); err != nil {
			return false, err
		}
		st, err := p.parseSequenceType()
		if err != nil {
			return false, err
		}
		f.replaceTop(InstanceOfExpr{X: f.topOperand(), Type: st})
		return true, nil
	case p.atKeyword("treat"):
		if err := p.advance(); err != nil {
			return false, err
		}
		if err := p.expectKeyword("as"); err != nil {
			return false, err
		}
		st, err := p.parseSequenceType()
		if err != nil {
			return false, err
		}
		f.replaceTop(TreatExpr{X: f.topOperand(), Type: st})
		return true, nil
	case p.atKeyword("castable"):
		if err := p.advance(); err != nil {
			return false, err
		}
		if err := p.expectKeyword("as"); err != nil {
			return false, err
		}
		st, opt, err := p.parseSingleType()
		if err != nil {
			return false, err
		}
		f.replaceTop(CastableExpr{X: f.topOperand(), Type: st, Optional: opt})
		return true, nil
	case p.atKeyword("cast"):
		if err := p.advance(); err != nil {
			return false, err
		}
		if err := p.expectKeyword("as"); err != nil {
			return false, err
		}
		st, opt, err := p.parseSingleType()
		if err != nil {
			return false, err
		}
		f.replaceTop(CastExpr{X: f.topOperand(), Type: st, Optional: opt})
		return true, nil
	case p.at(tArrow):
		if err := p.advance(); err != nil {
			return false, err
		}
		return true, p.beginArrow(f)
	}
	return false, nil
}

func (p *parser) beginArrow(f *frame) error {
	x := f.popOperand()
	var prefix, name string
	var dyn Expr
	switch {
	case p.at(tVar):
		dyn = VarRef{Name: p.tok.text}
		if err := p.advance(); err != nil {
			return err
		}
	case p.at(tName):
		prefix, name = splitQName(p.tok.text)
		if err := p.advance(); err != nil {
			return err
		}
	default:
		return p.errorf("expected function name after '=>', got %q", p.tok.text)
	}
	if err := p.expect(tLParen, "'(' after '=>' target"); err != nil {
		return err
	}
	p.push(wrapItems(frameArgList, func(items []Expr) {
		f.pushOperand(ArrowExpr{X: x, Prefix: prefix, Name: name, DynamicFunc: dyn, Args: items})
	}))
	return nil
}

// parseSequenceType parses a deliberately minimal SequenceType: a
// QName or kind-test name, optionally parenthesized (kind tests) and
// optionally suffixed with an occurrence indicator. It never recurses
// into expression parsing.
func (p *parser) parseSequenceType() (SequenceType, error) {
	if p.atKeyword("empty-sequence") {
		if err := p.advance(); err != nil {
			return SequenceType{}, err
		}
		if err := p.expect(tLParen, "'('"); err != nil {
			return SequenceType{}, err
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return SequenceType{}, err
		}
		return SequenceType{EmptySequence: true}, nil
	}
	if !p.at(tName) {
		return SequenceType{}, p.errorf("expected a type name, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return SequenceType{}, err
	}
	if p.at(tLParen) {
		for !p.at(tRParen) && !p.at(tEOF) {
			if err := p.advance(); err != nil {
				return SequenceType{}, err
			}
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return SequenceType{}, err
		}
	}
	st := SequenceType{Name: name}
	switch {
	case p.at(tQuestion):
		st.Occurrence = '?'
		if err := p.advance(); err != nil {
			return SequenceType{}, err
		}
	case p.at(tStar):
		st.Occurrence = '*'
		if err := p.advance(); err != nil {
			return SequenceType{}, err
		}
	case p.at(tPlus):
		st.Occurrence = '+'
		if err := p.advance(); err != nil {
			return SequenceType{}, err
		}
	}
	return st, nil
}

func (p *parser) parseSingleType() (SequenceType, bool, error) {
	if !p.at(tName) {
		return SequenceType{}, false, p.errorf("expected a type name, got %q", p.tok.text)
	}
	name := p.tok.text
	if err := p.advance(); err != nil {
		return SequenceType{}, false, err
	}
	optional := false
	if p.at(tQuestion) {
		optional = true
		if err := p.advance(); err != nil {
			return SequenceType{}, false, err
		}
	}
	return SequenceType{Name: name}, optional, nil
}

// ---- binary operator table ------------------------------------------

func (p *parser) peekBinaryOp() (op string, prec int, ok bool) {
	switch p.tok.kind {
	case tEquals:
		return "=", 3, true
	case tNotEquals:
		return "!=", 3, true
	case tLess:
		return "<", 3, true
	case tLessEq:
		return "<=", 3, true
	case tGreater:
		return ">", 3, true
	case tGreaterEq:
		return ">=", 3, true
	case tPrecedes:
		return "<<", 3, true
	case tFollows:
		return ">>", 3, true
	case tConcat:
		return "||", 4, true
	case tPlus:
		return "+", 6, true
	case tMinus:
		return "-", 6, true
	case tStar:
		return "*", 7, true
	case tPipe:
		return "|", 8, true
	case tName:
		lower := strings.ToLower(p.tok.text)
		if prec, ok := keywordOpPrec[lower]; ok {
			return lower, prec, true
		}
	}
	return "", 0, false
}

var keywordOpPrec = map[string]int{
	"or": 1, "and": 2,
	"eq": 3, "ne": 3, "lt": 3, "le": 3, "gt": 3, "ge": 3, "is": 3,
	"to":        5,
	"div":       7,
	"mod":       7,
	"idiv":      7,
	"union":     8,
	"intersect": 9,
	"except":    9,
}

// ---- frame "stop" dispatch -------------------------------------------

// stopFrame is invoked when f.expectOperand is false and the current
// token is neither a binary operator nor a postfix keyword: f cannot
// continue, so it must finish its current clause and either transition
// to its next internal stage (constructs, multi-item brackets) or
// reduce fully and hand its result to whoever pushed it.
func (p *parser) stopFrame(f *frame) (done bool, result Expr, err error) {
	switch f.kind {
	case frameTop:
		if !p.at(tEOF) {
			return false, nil, p.errorf("unexpected token %q", p.tok.text)
		}
		r, err := f.finalize()
		if err != nil {
			return false, nil, err
		}
		p.pop()
		return true, r, nil

	case frameParen, frameSquareArray, frameCurlyArray, frameArgList, framePredicate, frameFuncBody:
		return false, nil, p.stopBracket(f)

	case frameMap:
		return false, nil, p.stopMap(f)

	case frameConstruct:
		return false, nil, p.stopConstruct(f)
	}
	return false, nil, p.errorf("internal error: unhandled frame kind")
}

func closerFor(kind frameKind) tokKind {
	switch kind {
	case frameSquareArray, framePredicate:
		return tRBracket
	case frameCurlyArray, frameFuncBody, frameMap:
		return tRBrace
	default:
		return tRParen
	}
}

// atEmptyBracketClose reports whether f is a bracket-like frame sitting
// at its immediate closing delimiter with nothing parsed yet ("()",
// "[]", "map{}", a zero-argument call's "()"), so beginOperand should
// be skipped entirely in favor of delivering an empty result.
func (p *parser) atEmptyBracketClose(f *frame) bool {
	switch f.kind {
	case frameParen, frameSquareArray, frameCurlyArray, frameArgList, frameMap:
		return len(f.items) == 0 && len(f.operands) == 0 && p.at(closerFor(f.kind))
	}
	return false
}

// stopBracket handles the shared comma-separated-item machinery for
// every bracketed frame kind except maps (which pair keys and values).
func (p *parser) stopBracket(f *frame) error {
	closer := closerFor(f.kind)
	switch {
	case p.at(tComma):
		r, err := f.finalize()
		if err != nil {
			return err
		}
		f.items = append(f.items, r)
		f.operands, f.operators, f.expectOperand = nil, nil, true
		return p.advance()
	case p.at(closer):
		if len(f.operands) > 0 || len(f.operators) > 0 {
			r, err := f.finalize()
			if err != nil {
				return err
			}
			f.items = append(f.items, r)
		}
		if err := p.advance(); err != nil {
			return err
		}
		p.pop()
		p.deliverBracket(f)
		return nil
	default:
		return p.errorf("expected ',' or closing bracket, got %q", p.tok.text)
	}
}

func (p *parser) deliverBracket(f *frame) {
	switch f.kind {
	case frameArgList:
		f.onItems(f.items)
	case frameParen:
		switch len(f.items) {
		case 0:
			f.onChild(SequenceExpr{})
		case 1:
			f.onChild(f.items[0])
		default:
			f.onChild(SequenceExpr{Items: f.items})
		}
	case frameSquareArray, frameCurlyArray:
		f.onChild(ArrayConstructor{Members: f.items})
	case framePredicate, frameFuncBody:
		f.onChild(onlyOrSeq(f.items))
	}
}

func onlyOrSeq(items []Expr) Expr {
	if len(items) == 1 {
		return items[0]
	}
	return SequenceExpr{Items: items}
}

func (p *parser) stopMap(f *frame) error {
	switch {
	case f.mapPhase == mapPhaseKey && p.at(tColon):
		r, err := f.finalize()
		if err != nil {
			return err
		}
		f.mapKeys = append(f.mapKeys, r)
		f.operands, f.operators, f.expectOperand = nil, nil, true
		f.mapPhase = mapPhaseValue
		return p.advance()
	case f.mapPhase == mapPhaseValue && p.at(tComma):
		r, err := f.finalize()
		if err != nil {
			return err
		}
		f.items = append(f.items, r)
		f.operands, f.operators, f.expectOperand = nil, nil, true
		f.mapPhase = mapPhaseKey
		return p.advance()
	case f.mapPhase == mapPhaseValue && p.at(tRBrace):
		r, err := f.finalize()
		if err != nil {
			return err
		}
		f.items = append(f.items, r)
		if err := p.advance(); err != nil {
			return err
		}
		p.pop()
		f.onChild(MapConstructor{Keys: f.mapKeys, Values: f.items})
		return nil
	case f.mapPhase == mapPhaseKey && p.at(tRBrace) && len(f.items) == 0 && len(f.operands) == 0:
		if err := p.advance(); err != nil {
			return err
		}
		p.pop()
		f.onChild(MapConstructor{})
		return nil
	}
	return p.errorf("malformed map constructor near %q", p.tok.text)
}

func (p *parser) stopConstruct(cf *frame) error {
	switch cf.ckind {
	case "if":
		switch cf.cstage {
		case stageThen:
			if !p.atKeyword("else") {
				return p.errorf("if must have an else branch, got %q", p.tok.text)
			}
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			cf.ifThen = r
			cf.cstage = stageElse
			cf.operands, cf.operators, cf.expectOperand = nil, nil, true
			return p.advance()
		case stageElse:
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			p.pop()
			cf.onChild(IfExpr{Cond: cf.ifCond, Then: cf.ifThen, Else: r})
			return nil
		}
	case "for", "let":
		switch cf.cstage {
		case stageBindingSeq:
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			if cf.ckind == "let" {
				cf.letBindings = append(cf.letBindings, LetBinding{Var: cf.pendingVar, Value: r})
			} else {
				cf.bindings = append(cf.bindings, ForBinding{Var: cf.pendingVar, Seq: r})
			}
			switch {
			case p.at(tComma):
				if err := p.advance(); err != nil {
					return err
				}
				if err := p.parseBindingHead(cf, cf.ckind == "let"); err != nil {
					return err
				}
				cf.operands, cf.operators, cf.expectOperand = nil, nil, true
				return nil
			case p.atKeyword("return"):
				if err := p.advance(); err != nil {
					return err
				}
				cf.cstage = stageReturn
				cf.operands, cf.operators, cf.expectOperand = nil, nil, true
				return nil
			}
			return p.errorf("expected ',' or 'return', got %q", p.tok.text)
		case stageReturn:
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			p.pop()
			if cf.ckind == "let" {
				cf.onChild(LetExpr{Bindings: cf.letBindings, Return: r})
			} else {
				cf.onChild(ForExpr{Bindings: cf.bindings, Return: r})
			}
			return nil
		}
	case "some":
		switch cf.cstage {
		case stageBindingSeq:
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			cf.bindings = append(cf.bindings, ForBinding{Var: cf.pendingVar, Seq: r})
			switch {
			case p.at(tComma):
				if err := p.advance(); err != nil {
					return err
				}
				if err := p.parseBindingHead(cf, false); err != nil {
					return err
				}
				cf.operands, cf.operators, cf.expectOperand = nil, nil, true
				return nil
			case p.atKeyword("satisfies"):
				if err := p.advance(); err != nil {
					return err
				}
				cf.cstage = stageSatisfies
				cf.operands, cf.operators, cf.expectOperand = nil, nil, true
				return nil
			}
			return p.errorf("expected ',' or 'satisfies', got %q", p.tok.text)
		case stageSatisfies:
			r, err := cf.finalize()
			if err != nil {
				return err
			}
			p.pop()
			cf.onChild(QuantifiedExpr{Every: cf.cEvery, Bindings: cf.bindings, Satisfies: r})
			return nil
		}
	}
	return p.errorf("internal error: unhandled construct stage")
}
