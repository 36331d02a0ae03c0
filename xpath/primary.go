package xpath

// stepAtom drives the atom-building sub-state machine for frame f:
// unary sign collection, the primary expression (literal, variable,
// parenthesized group, array/map constructor, inline function literal,
// function call or location-path step sequence), its postfix
// predicates/lookups, and a trailing "!" simple-map chain. It runs
// until the atom either needs to pause (a nested bracketed construct
// was pushed onto p.stack) or completes (the finished Expr is pushed
// onto f's operand stack and f.building is cleared).
func (p *parser) stepAtom(f *frame) error {
	for f.building {
		var paused bool
		var err error
		switch f.atomPhase {
		case atomPrimary:
			paused, err = p.stepAtomPrimary(f)
		case atomPathSteps:
			paused, err = p.stepAtomPath(f)
		case atomPostfix:
			paused, err = p.stepAtomPostfix(f)
		}
		if err != nil {
			return err
		}
		if paused {
			return nil
		}
	}
	return nil
}

func (p *parser) stepAtomPrimary(f *frame) (bool, error) {
	for p.at(tMinus) || p.at(tPlus) {
		if p.at(tMinus) {
			f.atomUnaryCount++
		}
		if err := p.advance(); err != nil {
			return false, err
		}
	}

	switch {
	case p.at(tNumber):
		f.atomBase = NumberLit{Value: p.tok.num}
		if err := p.advance(); err != nil {
			return false, err
		}
		f.atomPhase = atomPostfix
		return false, nil

	case p.at(tString):
		f.atomBase = StringLit{Value: p.tok.text}
		if err := p.advance(); err != nil {
			return false, err
		}
		f.atomPhase = atomPostfix
		return false, nil

	case p.at(tVar):
		f.atomBase = VarRef{Name: p.tok.text}
		if err := p.advance(); err != nil {
			return false, err
		}
		f.atomPhase = atomPostfix
		return false, nil

	case p.at(tLParen):
		if err := p.advance(); err != nil {
			return false, err
		}
		p.push(wrapBracket(frameParen, func(r Expr) {
			f.atomBase = r
			f.atomPhase = atomPostfix
		}))
		return true, nil

	case p.at(tLBracket):
		if err := p.advance(); err != nil {
			return false, err
		}
		p.push(wrapBracket(frameSquareArray, func(r Expr) {
			f.atomBase = r
			f.atomPhase = atomPostfix
		}))
		return true, nil

	case p.at(tDot), p.at(tDotDot), p.at(tAt), p.at(tStar):
		f.atomAbsolute, f.atomHasFilter, f.atomSteps = false, false, nil
		f.atomNeedHeader = true
		f.atomPhase = atomPathSteps
		return false, nil

	case p.at(tSlash):
		if err := p.advance(); err != nil {
			return false, err
		}
		f.atomAbsolute, f.atomHasFilter, f.atomSteps = true, false, nil
		if p.atStepStart() {
			f.atomNeedHeader = true
			f.atomPhase = atomPathSteps
		} else {
			f.atomBase = PathExpr{Absolute: true}
			f.atomPhase = atomPostfix
		}
		return false, nil

	case p.at(tSlashSlash):
		if err := p.advance(); err != nil {
			return false, err
		}
		f.atomAbsolute, f.atomHasFilter = true, false
		f.atomSteps = []Step{{Axis: "descendant-or-self", Test: KindTest{Kind: "node"}}}
		f.atomNeedHeader = true
		f.atomPhase = atomPathSteps
		return false, nil

	case p.at(tName):
		return p.stepAtomName(f)
	}
	return false, p.errorf("unexpected token %q", p.tok.text)
}

// stepAtomName resolves a bare Name token into the map/array
// constructor keywords, an inline function literal, a location-path
// step, or a function call.
func (p *parser) stepAtomName(f *frame) (bool, error) {
	switch {
	case isKeyword(p.tok.text, "map") && p.peekIsBrace():
		if err := p.advance(); err != nil { // consume "map"
			return false, err
		}
		if err := p.advance(); err != nil { // consume '{'
			return false, err
		}
		p.push(wrapBracket(frameMap, func(r Expr) {
			f.atomBase = r
			f.atomPhase = atomPostfix
		}))
		return true, nil

	case isKeyword(p.tok.text, "array") && p.peekIsBrace():
		if err := p.advance(); err != nil {
			return false, err
		}
		if err := p.advance(); err != nil {
			return false, err
		}
		p.push(wrapBracket(frameCurlyArray, func(r Expr) {
			f.atomBase = r
			f.atomPhase = atomPostfix
		}))
		return true, nil

	case isKeyword(p.tok.text, "function") && p.peekIsParen():
		return p.stepAtomInlineFunction(f)
	}

	if p.atStepStart() {
		f.atomAbsolute, f.atomHasFilter, f.atomSteps = false, false, nil
		f.atomNeedHeader = true
		f.atomPhase = atomPathSteps
		return false, nil
	}

	name := p.tok.text
	if err := p.advance(); err != nil {
		return false, err
	}
	if err := p.expect(tLParen, "'(' in function call"); err != nil {
		return false, err
	}
	prefix, local := splitQName(name)
	p.push(wrapItems(frameArgList, func(args []Expr) {
		f.atomBase = FuncCall{Prefix: prefix, Name: local, Args: args}
		f.atomPhase = atomPostfix
	}))
	return true, nil
}

// stepAtomInlineFunction parses "function(" ParamList ")" (" as" Type)?
// "{" Body "}". Parameter names and their optional type annotations are
// read by a flat, non-recursive loop; only the braced body needs a
// child frame push.
func (p *parser) stepAtomInlineFunction(f *frame) (bool, error) {
	if err := p.advance(); err != nil { // consume "function"
		return false, err
	}
	if err := p.expect(tLParen, "'('"); err != nil {
		return false, err
	}
	var params []string
	for !p.at(tRParen) {
		if !p.at(tVar) {
			return false, p.errorf("expected '$' parameter name, got %q", p.tok.text)
		}
		params = append(params, p.tok.text)
		if err := p.advance(); err != nil {
			return false, err
		}
		if p.atKeyword("as") {
			if err := p.advance(); err != nil {
				return false, err
			}
			if _, err := p.parseSequenceType(); err != nil {
				return false, err
			}
		}
		if p.at(tComma) {
			if err := p.advance(); err != nil {
				return false, err
			}
			continue
		}
		break
	}
	if err := p.expect(tRParen, "')'"); err != nil {
		return false, err
	}
	if p.atKeyword("as") {
		if err := p.advance(); err != nil {
			return false, err
		}
		if _, err := p.parseSequenceType(); err != nil {
			return false, err
		}
	}
	if err := p.expect(tLBrace, "'{'"); err != nil {
		return false, err
	}
	p.push(wrapBracket(frameFuncBody, func(body Expr) {
		f.atomBase = InlineFunctionExpr{Params: params, Body: body}
		f.atomPhase = atomPostfix
	}))
	return true, nil
}

// stepAtomPath assembles one or more location steps joined by '/' or
// '//', pausing to push a predicate frame for each bracketed "[...]"
// on the step currently being built.
func (p *parser) stepAtomPath(f *frame) (bool, error) {
	for {
		if f.atomNeedHeader {
			axis, test, err := p.parseStepHeader()
			if err != nil {
				return false, err
			}
			f.atomPendingStep = Step{Axis: axis, Test: test}
			f.atomNeedHeader = false
		}

		if p.at(tLBracket) {
			if err := p.advance(); err != nil {
				return false, err
			}
			step := &f.atomPendingStep
			p.push(wrapBracket(framePredicate, func(r Expr) {
				step.Predicates = append(step.Predicates, r)
			}))
			return true, nil
		}

		if p.at(tSlash) {
			f.atomSteps = append(f.atomSteps, f.atomPendingStep)
			if err := p.advance(); err != nil {
				return false, err
			}
			f.atomNeedHeader = true
			continue
		}
		if p.at(tSlashSlash) {
			f.atomSteps = append(f.atomSteps, f.atomPendingStep)
			f.atomSteps = append(f.atomSteps, Step{Axis: "descendant-or-self", Test: KindTest{Kind: "node"}})
			if err := p.advance(); err != nil {
				return false, err
			}
			f.atomNeedHeader = true
			continue
		}

		f.atomSteps = append(f.atomSteps, f.atomPendingStep)
		if f.atomHasFilter {
			f.atomBase = PathExpr{Filter: f.atomFilter, Steps: f.atomSteps}
		} else {
			f.atomBase = PathExpr{Absolute: f.atomAbsolute, Steps: f.atomSteps}
		}
		f.atomPhase = atomPostfix
		return false, nil
	}
}

// stepAtomPostfix applies trailing "[pred]"/"?key" postfix operators to
// f.atomBase, folds a "filterExpr/step..." path continuation back into
// stepAtomPath, then (once postfix is exhausted) folds any leading
// unary minus signs and continues or closes a "!" simple-map chain.
func (p *parser) stepAtomPostfix(f *frame) (bool, error) {
	for {
		switch {
		case p.at(tLBracket):
			if err := p.advance(); err != nil {
				return false, err
			}
			p.push(wrapBracket(framePredicate, func(r Expr) {
				if fe, ok := f.atomBase.(FilterExpr); ok {
					fe.Predicates = append(fe.Predicates, r)
					f.atomBase = fe
				} else {
					f.atomBase = FilterExpr{X: f.atomBase, Predicates: []Expr{r}}
				}
			}))
			return true, nil

		case p.at(tQuestion):
			if err := p.advance(); err != nil {
				return false, err
			}
			switch {
			case p.at(tStar):
				if err := p.advance(); err != nil {
					return false, err
				}
				f.atomBase = LookupExpr{X: f.atomBase}
			case p.at(tName):
				key := StringLit{Value: p.tok.text}
				if err := p.advance(); err != nil {
					return false, err
				}
				f.atomBase = LookupExpr{X: f.atomBase, Key: key}
			case p.at(tNumber):
				key := NumberLit{Value: p.tok.num}
				if err := p.advance(); err != nil {
					return false, err
				}
				f.atomBase = LookupExpr{X: f.atomBase, Key: key}
			case p.at(tLParen):
				if err := p.advance(); err != nil {
					return false, err
				}
				p.push(wrapBracket(frameParen, func(r Expr) {
					f.atomBase = LookupExpr{X: f.atomBase, Key: r}
				}))
				return true, nil
			default:
				return false, p.errorf("expected a lookup key after '?', got %q", p.tok.text)
			}

		case p.at(tSlash), p.at(tSlashSlash):
			insertDescendant := p.at(tSlashSlash)
			if err := p.advance(); err != nil {
				return false, err
			}
			f.atomHasFilter = true
			f.atomFilter = f.atomBase
			f.atomSteps = nil
			if insertDescendant {
				f.atomSteps = append(f.atomSteps, Step{Axis: "descendant-or-self", Test: KindTest{Kind: "node"}})
			}
			f.atomNeedHeader = true
			f.atomPhase = atomPathSteps
			return false, nil

		default:
			for i := 0; i < f.atomUnaryCount; i++ {
				f.atomBase = UnaryExpr{X: f.atomBase}
			}
			f.atomUnaryCount = 0

			if p.at(tBangExcl) {
				if err := p.advance(); err != nil {
					return false, err
				}
				if f.atomHasSimpleMap {
					f.atomSimpleMapAccum = SimpleMapExpr{Left: f.atomSimpleMapAccum, Right: f.atomBase}
				} else {
					f.atomSimpleMapAccum = f.atomBase
					f.atomHasSimpleMap = true
				}
				f.atomBase = nil
				f.atomPhase = atomPrimary
				return false, nil
			}

			result := f.atomBase
			if f.atomHasSimpleMap {
				result = SimpleMapExpr{Left: f.atomSimpleMapAccum, Right: f.atomBase}
				f.atomHasSimpleMap = false
			}
			f.pushOperand(result)
			f.building = false
			return false, nil
		}
	}
}
