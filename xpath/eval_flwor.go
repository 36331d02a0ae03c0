package xpath

import "github.com/r2stream/xmlcore/tree"

// evalIf evaluates "if (Cond) then Then else Else" (spec §5's FLWOR
// grammar): Cond is coerced to its effective boolean value and exactly
// one of Then/Else runs.
func evalIf(e IfExpr, ctx *Context) (Value, error) {
	cond, err := Eval(e.Cond, ctx)
	if err != nil {
		return Value{}, err
	}
	if toBoolean(cond) {
		return Eval(e.Then, ctx)
	}
	return Eval(e.Else, ctx)
}

// evalFor evaluates "for $x in Seq1, $y in Seq2 return Body": each
// binding's sequence is iterated in nested order, and Body's results
// are concatenated across every combination (the cross-product the
// FLWOR "for" clause describes).
func evalFor(e ForExpr, ctx *Context) (Value, error) {
	var out []Value
	var walk func(i int, cur *Context) error
	walk = func(i int, cur *Context) error {
		if i == len(e.Bindings) {
			v, err := Eval(e.Return, cur)
			if err != nil {
				return err
			}
			out = append(out, flattenInto(v)...)
			return nil
		}
		b := e.Bindings[i]
		seq, err := Eval(b.Seq, cur)
		if err != nil {
			return err
		}
		for _, item := range flattenInto(seq) {
			next := cur.withVar(b.Var, item)
			if err := walk(i+1, next); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, ctx); err != nil {
		return Value{}, err
	}
	return Sequence(out), nil
}

// evalLet evaluates "let $x := V1, $y := V2 return Body": each binding
// is evaluated once, in order, each seeing the previous bindings.
func evalLet(e LetExpr, ctx *Context) (Value, error) {
	cur := ctx
	for _, b := range e.Bindings {
		v, err := Eval(b.Value, cur)
		if err != nil {
			return Value{}, err
		}
		cur = cur.withVar(b.Var, v)
	}
	return Eval(e.Return, cur)
}

// evalQuantified evaluates "some/every $x in Seq, ... satisfies Body",
// short-circuiting as soon as the quantifier's outcome is decided.
func evalQuantified(e QuantifiedExpr, ctx *Context) (Value, error) {
	var walk func(i int, cur *Context) (bool, error)
	walk = func(i int, cur *Context) (bool, error) {
		if i == len(e.Bindings) {
			v, err := Eval(e.Satisfies, cur)
			if err != nil {
				return false, err
			}
			return toBoolean(v), nil
		}
		b := e.Bindings[i]
		seq, err := Eval(b.Seq, cur)
		if err != nil {
			return false, err
		}
		for _, item := range flattenInto(seq) {
			next := cur.withVar(b.Var, item)
			ok, err := walk(i+1, next)
			if err != nil {
				return false, err
			}
			if ok != e.Every {
				return ok, nil
			}
		}
		return e.Every, nil
	}
	got, err := walk(0, ctx)
	if err != nil {
		return Value{}, err
	}
	return Boolean(got), nil
}

// withVar returns a new Context with Name bound to val, leaving ctx's
// own Vars map untouched (FLWOR bindings must not leak across sibling
// iterations).
func (c *Context) withVar(name string, val Value) *Context {
	vars := make(map[string]Value, len(c.Vars)+1)
	for k, v := range c.Vars {
		vars[k] = v
	}
	vars[name] = val
	return &Context{Node: c.Node, Pos: c.Pos, Size: c.Size, Vars: vars, Funcs: c.Funcs, Namespace: c.Namespace}
}

// evalInlineFunction closes e.Body over ctx's current variable scope,
// producing a first-class FunctionItem a caller can invoke via a
// dynamic function call or pass to a higher-order library function.
func evalInlineFunction(e InlineFunctionExpr, ctx *Context) Value {
	captured := ctx
	fn := &FunctionItem{
		Name:  "",
		Arity: len(e.Params),
		Call: func(_ *Context, args []Value) (Value, error) {
			cur := captured
			for i, p := range e.Params {
				var a Value
				if i < len(args) {
					a = args[i]
				}
				cur = cur.withVar(p, a)
			}
			return Eval(e.Body, cur)
		},
	}
	return Value{Kind: KindFunction, Func: fn}
}

// evalArrow evaluates "X => name(args...)" / "X => $f(args...)" (spec
// §5's arrow operator): X's value is passed unchanged as the function
// call's leading argument, ahead of Args.
func evalArrow(e ArrowExpr, ctx *Context) (Value, error) {
	x, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	args := make([]Value, 0, 1+len(e.Args))
	args = append(args, x)
	for _, a := range e.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return Value{}, err
		}
		args = append(args, v)
	}
	if e.DynamicFunc != nil {
		fv, err := Eval(e.DynamicFunc, ctx)
		if err != nil {
			return Value{}, err
		}
		if fv.Kind != KindFunction || fv.Func == nil {
			return Value{}, evalErrorf("'=>' dynamic target is not a function")
		}
		return fv.Func.Call(ctx, args)
	}
	key := e.Name
	if e.Prefix != "" {
		key = e.Prefix + ":" + e.Name
	}
	fn, ok := ctx.Funcs[key]
	if !ok {
		return Value{}, evalErrorf("undefined function %s()", key)
	}
	return fn.Call(ctx, args)
}

// sequenceTypeMatches reports whether v's shape (as a whole sequence,
// after occurrence-count checks) and each item's atomic/node kind
// satisfies t. This is a pragmatic subset of the full XPath/XQuery type
// system: it distinguishes the item kinds the evaluator's own Value
// lattice already tracks (xs:string/xs:integer/xs:double/xs:decimal/
// xs:boolean/xs:anyAtomicType, "item", "node" and its kind-test
// subcategories) rather than validating against an imported schema.
func sequenceTypeMatches(v Value, t SequenceType) bool {
	items := flattenInto(v)
	switch t.Occurrence {
	case 0:
		if len(items) != 1 {
			return false
		}
	case '?':
		if len(items) > 1 {
			return false
		}
	case '+':
		if len(items) == 0 {
			return false
		}
	}
	if t.EmptySequence {
		return len(items) == 0
	}
	for _, it := range items {
		if !itemMatchesTypeName(it, t.Name) {
			return false
		}
	}
	return true
}

func itemMatchesTypeName(it Value, name string) bool {
	switch name {
	case "", "item":
		return true
	case "node", "element", "attribute-node", "text", "comment", "processing-instruction", "document-node":
		if it.Kind != KindNodeSet || len(it.NodeSet) != 1 {
			return false
		}
		if name == "node" {
			return true
		}
		switch it.NodeSet[0].Kind {
		case tree.ElementNode:
			return name == "element"
		case tree.AttributeNode:
			return name == "attribute-node"
		case tree.TextNode:
			return name == "text"
		case tree.CommentNode:
			return name == "comment"
		case tree.PINode:
			return name == "processing-instruction"
		case tree.DocumentNode:
			return name == "document-node"
		}
		return false
	case "xs:string", "xs:anyURI", "xs:untypedAtomic", "xs:QName":
		return it.Kind == KindString
	case "xs:boolean":
		return it.Kind == KindBoolean
	case "xs:integer", "xs:double", "xs:decimal", "xs:float", "xs:numeric":
		return it.Kind == KindNumber
	case "map(*)":
		return it.Kind == KindMap
	case "array(*)":
		return it.Kind == KindArray
	case "function(*)":
		return it.Kind == KindFunction
	}
	return true
}

// evalInstanceOf evaluates "X instance of SequenceType".
func evalInstanceOf(e InstanceOfExpr, ctx *Context) (Value, error) {
	v, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	return Boolean(sequenceTypeMatches(v, e.Type)), nil
}

// evalTreat evaluates "X treat as SequenceType": a dynamic type
// assertion, failing the evaluation if X does not conform.
func evalTreat(e TreatExpr, ctx *Context) (Value, error) {
	v, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	if !sequenceTypeMatches(v, e.Type) {
		return Value{}, evalErrorf("treat as %s: value does not match the required type", e.Type.Name)
	}
	return v, nil
}

// evalCastable evaluates "X castable as SingleType": true iff X is a
// singleton (or, when Optional, an empty sequence) that castAtomic can
// convert without error.
func evalCastable(e CastableExpr, ctx *Context) (Value, error) {
	v, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	items := flattenInto(v)
	if len(items) == 0 {
		return Boolean(e.Optional), nil
	}
	if len(items) > 1 {
		return Boolean(false), nil
	}
	_, castErr := castAtomic(items[0], e.Type.Name)
	return Boolean(castErr == nil), nil
}

// evalCast evaluates "X cast as SingleType".
func evalCast(e CastExpr, ctx *Context) (Value, error) {
	v, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	items := flattenInto(v)
	if len(items) == 0 {
		if e.Optional {
			return Sequence(nil), nil
		}
		return Value{}, evalErrorf("cast as %s: empty sequence is not allowed (use '?' to permit it)", e.Type.Name)
	}
	if len(items) > 1 {
		return Value{}, evalErrorf("cast as %s: requires a singleton sequence", e.Type.Name)
	}
	return castAtomic(items[0], e.Type.Name)
}

// castAtomic converts v to the named atomic type using the same
// coercion rules the comparison/arithmetic operators already apply.
func castAtomic(v Value, name string) (Value, error) {
	switch name {
	case "xs:string", "xs:anyURI", "xs:untypedAtomic", "xs:QName":
		return String(toStringValue(v)), nil
	case "xs:boolean":
		return Boolean(toBoolean(v)), nil
	case "xs:integer", "xs:double", "xs:decimal", "xs:float", "xs:numeric":
		n, err := toNumber(v)
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	}
	return Value{}, evalErrorf("cast as %s: unsupported target type", name)
}
