package xpath

import (
	"fmt"
	"math"

	"github.com/r2stream/xmlcore/tree"
)

// Context carries the dynamic evaluation context of spec §5.2: the
// context item/position/size, in-scope variable bindings, the function
// registry, and the namespace bindings used to resolve prefixed names
// inside the expression being evaluated.
type Context struct {
	Node      *tree.Node
	Pos       int
	Size      int
	Vars      map[string]Value
	Funcs     map[string]*FunctionItem
	Namespace map[string]string // prefix -> URI, for resolving NameTest/FuncCall prefixes
}

// NewContext returns a Context positioned at node, as the sole member
// of a singleton context sequence, with the core function library
// registered.
func NewContext(node *tree.Node) *Context {
	ctx := &Context{
		Node:      node,
		Pos:       1,
		Size:      1,
		Vars:      map[string]Value{},
		Funcs:     map[string]*FunctionItem{},
		Namespace: map[string]string{},
	}
	registerCoreFunctions(ctx.Funcs)
	return ctx
}

func (c *Context) withNode(n *tree.Node, pos, size int) *Context {
	return &Context{Node: n, Pos: pos, Size: size, Vars: c.Vars, Funcs: c.Funcs, Namespace: c.Namespace}
}

// EvalError reports a failure during expression evaluation (as opposed
// to a parse-time SyntaxError).
type EvalError struct{ Msg string }

func (e *EvalError) Error() string { return "xpath evaluation error: " + e.Msg }

func evalErrorf(format string, args ...any) error {
	return &EvalError{Msg: fmt.Sprintf(format, args...)}
}

// Eval evaluates a compiled expression in ctx.
func Eval(expr Expr, ctx *Context) (Value, error) {
	switch e := expr.(type) {
	case NumberLit:
		return Number(e.Value), nil
	case StringLit:
		return String(e.Value), nil
	case VarRef:
		v, ok := ctx.Vars[e.Name]
		if !ok {
			return Value{}, evalErrorf("undefined variable $%s", e.Name)
		}
		return v, nil
	case BinaryExpr:
		return evalBinary(e, ctx)
	case UnaryExpr:
		x, err := Eval(e.X, ctx)
		if err != nil {
			return Value{}, err
		}
		n, err := toNumber(x)
		if err != nil {
			return Value{}, err
		}
		return Number(-n), nil
	case SequenceExpr:
		var items []Value
		for _, item := range e.Items {
			v, err := Eval(item, ctx)
			if err != nil {
				return Value{}, err
			}
			items = append(items, flattenInto(v)...)
		}
		return Sequence(items), nil
	case FilterExpr:
		return evalFilter(e, ctx)
	case PathExpr:
		return evalPath(e, ctx)
	case FuncCall:
		return evalFuncCall(e, ctx)
	case MapConstructor:
		return evalMapConstructor(e, ctx)
	case ArrayConstructor:
		return evalArrayConstructor(e, ctx)
	case LookupExpr:
		return evalLookup(e, ctx)
	case SimpleMapExpr:
		return evalSimpleMap(e, ctx)
	case IfExpr:
		return evalIf(e, ctx)
	case ForExpr:
		return evalFor(e, ctx)
	case LetExpr:
		return evalLet(e, ctx)
	case QuantifiedExpr:
		return evalQuantified(e, ctx)
	case InlineFunctionExpr:
		return evalInlineFunction(e, ctx), nil
	case ArrowExpr:
		return evalArrow(e, ctx)
	case InstanceOfExpr:
		return evalInstanceOf(e, ctx)
	case TreatExpr:
		return evalTreat(e, ctx)
	case CastableExpr:
		return evalCastable(e, ctx)
	case CastExpr:
		return evalCast(e, ctx)
	}
	return Value{}, evalErrorf("unsupported expression type %T", expr)
}

func flattenInto(v Value) []Value {
	if v.Kind == KindSequence {
		return v.Seq
	}
	return []Value{v}
}

func evalBinary(e BinaryExpr, ctx *Context) (Value, error) {
	switch e.Op {
	case "or", "and":
		left, err := Eval(e.Left, ctx)
		if err != nil {
			return Value{}, err
		}
		lb := toBoolean(left)
		if e.Op == "or" && lb {
			return Boolean(true), nil
		}
		if e.Op == "and" && !lb {
			return Boolean(false), nil
		}
		right, err := Eval(e.Right, ctx)
		if err != nil {
			return Value{}, err
		}
		return Boolean(toBoolean(right)), nil
	}

	left, err := Eval(e.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := Eval(e.Right, ctx)
	if err != nil {
		return Value{}, err
	}

	switch e.Op {
	case "=", "!=", "<", "<=", ">", ">=":
		return evalComparison(e.Op, left, right)
	case "+", "-", "*", "div", "mod", "idiv":
		return evalArithmetic(e.Op, left, right)
	case "|", "union":
		return unionNodeSets(left, right)
	case "intersect":
		return intersectNodeSets(left, right)
	case "except":
		return exceptNodeSets(left, right)
	case "to":
		return evalRange(left, right)
	case "||":
		return String(toStringValue(left) + toStringValue(right)), nil
	case "eq", "ne", "lt", "le", "gt", "ge":
		return evalValueComparison(e.Op, left, right)
	case "is", "<<", ">>":
		return evalNodeComparison(e.Op, left, right)
	}
	return Value{}, evalErrorf("unsupported operator %q", e.Op)
}

// evalRange evaluates "M to N": an ascending integer sequence, empty
// if M > N.
func evalRange(l, r Value) (Value, error) {
	lo, err := toNumber(l)
	if err != nil {
		return Value{}, err
	}
	hi, err := toNumber(r)
	if err != nil {
		return Value{}, err
	}
	var out []Value
	for n := math.Trunc(lo); n <= hi; n++ {
		out = append(out, Number(n))
	}
	return Sequence(out), nil
}

func intersectNodeSets(l, r Value) (Value, error) {
	if l.Kind != KindNodeSet || r.Kind != KindNodeSet {
		return Value{}, evalErrorf("'intersect' requires two node-sets")
	}
	in := map[*tree.Node]bool{}
	for _, n := range r.NodeSet {
		in[n] = true
	}
	var out []*tree.Node
	for _, n := range l.NodeSet {
		if in[n] {
			out = append(out, n)
		}
	}
	return NodeSet(sortNodeSetByDocumentOrder(out)), nil
}

func exceptNodeSets(l, r Value) (Value, error) {
	if l.Kind != KindNodeSet || r.Kind != KindNodeSet {
		return Value{}, evalErrorf("'except' requires two node-sets")
	}
	excl := map[*tree.Node]bool{}
	for _, n := range r.NodeSet {
		excl[n] = true
	}
	var out []*tree.Node
	for _, n := range l.NodeSet {
		if !excl[n] {
			out = append(out, n)
		}
	}
	return NodeSet(sortNodeSetByDocumentOrder(out)), nil
}

// atomizeSingleton atomizes v and requires the result be a single item
// (raising an EvalError otherwise), per the value-comparison operators'
// singleton requirement (spec §5's eq/ne/lt/le/gt/ge family).
func atomizeSingleton(v Value) (Value, error) {
	items := flattenInto(v)
	if len(items) == 0 {
		return Value{Kind: KindSequence}, nil
	}
	if len(items) > 1 {
		return Value{}, evalErrorf("value comparison requires a singleton sequence")
	}
	it := items[0]
	if it.Kind == KindNodeSet {
		if len(it.NodeSet) != 1 {
			return Value{}, evalErrorf("value comparison requires a singleton sequence")
		}
		return String(it.NodeSet[0].StringValue()), nil
	}
	return it, nil
}

// evalValueComparison implements XPath 2.0's value comparison
// operators (eq/ne/lt/le/gt/ge): both operands atomize to a single
// item (an empty sequence on either side yields an empty result,
// distinct from general comparison's existential semantics).
func evalValueComparison(op string, l, r Value) (Value, error) {
	la, err := atomizeSingleton(l)
	if err != nil {
		return Value{}, err
	}
	ra, err := atomizeSingleton(r)
	if err != nil {
		return Value{}, err
	}
	if la.Kind == KindSequence || ra.Kind == KindSequence {
		return Sequence(nil), nil
	}
	switch op {
	case "eq", "ne":
		eq, err := valuesEqual(la, ra)
		if err != nil {
			return Value{}, err
		}
		if op == "ne" {
			eq = !eq
		}
		return Boolean(eq), nil
	default:
		ln, err := toNumber(la)
		if err != nil {
			return Value{}, err
		}
		rn, err := toNumber(ra)
		if err != nil {
			return Value{}, err
		}
		sym := map[string]string{"lt": "<", "le": "<=", "gt": ">", "ge": ">="}[op]
		return Boolean(compareNumbers(sym, ln, rn)), nil
	}
}

// evalNodeComparison implements "is" (node identity) and "<<"/">>"
// (document order), each requiring singleton node-sets on both sides.
func evalNodeComparison(op string, l, r Value) (Value, error) {
	if l.Kind != KindNodeSet || len(l.NodeSet) != 1 || r.Kind != KindNodeSet || len(r.NodeSet) != 1 {
		return Value{}, evalErrorf("%q requires two singleton node-sets", op)
	}
	a, b := l.NodeSet[0], r.NodeSet[0]
	switch op {
	case "is":
		return Boolean(a == b), nil
	case "<<":
		return Boolean(nodeBefore(a, b)), nil
	case ">>":
		return Boolean(nodeBefore(b, a)), nil
	}
	return Value{}, evalErrorf("unsupported node comparison operator %q", op)
}

func nodeBefore(a, b *tree.Node) bool { return a.DocumentOrder() < b.DocumentOrder() }

func evalArithmetic(op string, l, r Value) (Value, error) {
	ln, err := toNumber(l)
	if err != nil {
		return Value{}, err
	}
	rn, err := toNumber(r)
	if err != nil {
		return Value{}, err
	}
	switch op {
	case "+":
		return Number(ln + rn), nil
	case "-":
		return Number(ln - rn), nil
	case "*":
		return Number(ln * rn), nil
	case "div":
		return Number(ln / rn), nil
	case "mod":
		return Number(math.Mod(ln, rn)), nil
	case "idiv":
		return Number(math.Trunc(ln / rn)), nil
	}
	return Value{}, evalErrorf("unsupported arithmetic operator %q", op)
}

func unionNodeSets(l, r Value) (Value, error) {
	if l.Kind != KindNodeSet || r.Kind != KindNodeSet {
		return Value{}, evalErrorf("'|' requires two node-sets")
	}
	combined := append(append([]*tree.Node(nil), l.NodeSet...), r.NodeSet...)
	return NodeSet(sortNodeSetByDocumentOrder(combined)), nil
}

// evalComparison implements XPath 1.0's general comparison semantics:
// if either operand is a node-set, the comparison is true if it holds
// for some pair of items (atomized via string-value for '=' family);
// otherwise it's a simple scalar comparison with numeric/string
// coercion following the operator and operand types.
func evalComparison(op string, l, r Value) (Value, error) {
	if l.Kind == KindNodeSet || r.Kind == KindNodeSet {
		return compareWithNodeSet(op, l, r)
	}
	switch op {
	case "=", "!=":
		eq, err := valuesEqual(l, r)
		if err != nil {
			return Value{}, err
		}
		if op == "!=" {
			eq = !eq
		}
		return Boolean(eq), nil
	default:
		ln, err := toNumber(l)
		if err != nil {
			return Value{}, err
		}
		rn, err := toNumber(r)
		if err != nil {
			return Value{}, err
		}
		return Boolean(compareNumbers(op, ln, rn)), nil
	}
}

func compareNumbers(op string, l, r float64) bool {
	switch op {
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

func valuesEqual(l, r Value) (bool, error) {
	if l.Kind == KindBoolean || r.Kind == KindBoolean {
		return toBoolean(l) == toBoolean(r), nil
	}
	if l.Kind == KindNumber || r.Kind == KindNumber {
		ln, err := toNumber(l)
		if err != nil {
			return false, err
		}
		rn, err := toNumber(r)
		if err != nil {
			return false, err
		}
		return ln == rn, nil
	}
	return toStringValue(l) == toStringValue(r), nil
}

func compareWithNodeSet(op string, l, r Value) (Value, error) {
	nsVal, other, nsIsLeft := l, r, true
	if l.Kind != KindNodeSet {
		nsVal, other, nsIsLeft = r, l, false
	}
	if other.Kind == KindNodeSet {
		for _, a := range l.NodeSet {
			for _, b := range r.NodeSet {
				match, err := evalComparison(op, String(a.StringValue()), String(b.StringValue()))
				if err != nil {
					return Value{}, err
				}
				if match.Bool {
					return Boolean(true), nil
				}
			}
		}
		return Boolean(false), nil
	}
	for _, n := range nsVal.NodeSet {
		nodeStr := String(n.StringValue())
		var result Value
		var err error
		if nsIsLeft {
			result, err = evalComparison(op, nodeStr, other)
		} else {
			result, err = evalComparison(op, other, nodeStr)
		}
		if err != nil {
			return Value{}, err
		}
		if result.Bool {
			return Boolean(true), nil
		}
	}
	return Boolean(false), nil
}

func evalFilter(e FilterExpr, ctx *Context) (Value, error) {
	base, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	items := sequenceItems(base)
	filtered, err := applyPredicates(items, e.Predicates, ctx)
	if err != nil {
		return Value{}, err
	}
	return regroup(base.Kind, filtered), nil
}

func sequenceItems(v Value) []Value {
	if v.Kind == KindSequence {
		return v.Seq
	}
	if v.Kind == KindNodeSet {
		items := make([]Value, len(v.NodeSet))
		for i, n := range v.NodeSet {
			items[i] = Value{Kind: KindNodeSet, NodeSet: []*tree.Node{n}}
		}
		return items
	}
	return []Value{v}
}

func regroup(kind Kind, items []Value) Value {
	if kind == KindNodeSet {
		var ns []*tree.Node
		for _, it := range items {
			ns = append(ns, it.NodeSet...)
		}
		return NodeSet(ns)
	}
	return Sequence(items)
}

// applyPredicates evaluates each predicate in order over items,
// keeping position()/last() scoped to the current predicate's input.
func applyPredicates(items []Value, preds []Expr, ctx *Context) ([]Value, error) {
	for _, pred := range preds {
		var kept []Value
		for i, it := range items {
			subCtx := itemContext(ctx, it, i+1, len(items))
			v, err := Eval(pred, subCtx)
			if err != nil {
				return nil, err
			}
			if predicateHolds(v, i+1) {
				kept = append(kept, it)
			}
		}
		items = kept
	}
	return items, nil
}

// predicateHolds implements XPath's numeric-predicate shorthand: a
// bare number predicate selects the item whose position equals it;
// any other value is coerced to boolean.
func predicateHolds(v Value, pos int) bool {
	if v.Kind == KindNumber {
		return int(v.Num) == pos
	}
	return toBoolean(v)
}

func itemContext(ctx *Context, it Value, pos, size int) *Context {
	if it.Kind == KindNodeSet && len(it.NodeSet) == 1 {
		return ctx.withNode(it.NodeSet[0], pos, size)
	}
	c := ctx.withNode(ctx.Node, pos, size)
	return c
}

func evalPath(e PathExpr, ctx *Context) (Value, error) {
	var startNodes []*tree.Node
	if e.Filter != nil {
		base, err := Eval(e.Filter, ctx)
		if err != nil {
			return Value{}, err
		}
		if base.Kind != KindNodeSet {
			return Value{}, evalErrorf("path step applied to a non-node-set")
		}
		startNodes = base.NodeSet
	} else if e.Absolute {
		root := ctx.Node
		for root.Parent != nil {
			root = root.Parent
		}
		startNodes = []*tree.Node{root}
	} else {
		startNodes = []*tree.Node{ctx.Node}
	}

	current := startNodes
	for _, step := range e.Steps {
		next, err := evalStep(current, step, ctx)
		if err != nil {
			return Value{}, err
		}
		current = next
	}
	return NodeSet(current), nil
}

func evalStep(from []*tree.Node, step Step, ctx *Context) ([]*tree.Node, error) {
	var candidates []*tree.Node
	seen := map[*tree.Node]bool{}
	for _, n := range from {
		for _, c := range axisNodes(n, step.Axis) {
			if !seen[c] {
				seen[c] = true
				candidates = append(candidates, c)
			}
		}
	}
	candidates = filterByNodeTest(candidates, step.Test, step.Axis, ctx)
	if reverseAxis(step.Axis) {
		// evaluate predicates against reverse document order per
		// spec's axis-direction rule for position()
		reverseInPlace(candidates)
	} else {
		candidates = sortNodeSetByDocumentOrder(candidates)
	}
	for _, pred := range step.Predicates {
		var kept []*tree.Node
		for i, c := range candidates {
			subCtx := ctx.withNode(c, i+1, len(candidates))
			v, err := Eval(pred, subCtx)
			if err != nil {
				return nil, err
			}
			if predicateHolds(v, i+1) {
				kept = append(kept, c)
			}
		}
		candidates = kept
	}
	if reverseAxis(step.Axis) {
		candidates = sortNodeSetByDocumentOrder(candidates)
	}
	return candidates, nil
}

func reverseInPlace(ns []*tree.Node) {
	for i, j := 0, len(ns)-1; i < j; i, j = i+1, j-1 {
		ns[i], ns[j] = ns[j], ns[i]
	}
}

func reverseAxis(axis string) bool {
	switch axis {
	case "ancestor", "ancestor-or-self", "preceding", "preceding-sibling":
		return true
	}
	return false
}

func axisNodes(n *tree.Node, axis string) []*tree.Node {
	switch axis {
	case "child":
		return n.Children()
	case "attribute":
		return n.Attr
	case "namespace":
		return n.NS
	case "self":
		return []*tree.Node{n}
	case "parent":
		if n.Parent != nil {
			return []*tree.Node{n.Parent}
		}
		return nil
	case "ancestor":
		return n.Ancestors()
	case "ancestor-or-self":
		return append([]*tree.Node{n}, n.Ancestors()...)
	case "descendant":
		return descendants(n, false)
	case "descendant-or-self":
		return descendants(n, true)
	case "following-sibling":
		var out []*tree.Node
		for s := n.NextSibling; s != nil; s = s.NextSibling {
			out = append(out, s)
		}
		return out
	case "preceding-sibling":
		var out []*tree.Node
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			out = append(out, s)
		}
		return out
	case "following":
		return followingNodes(n)
	case "preceding":
		return precedingNodes(n)
	}
	return nil
}

func descendants(n *tree.Node, includeSelf bool) []*tree.Node {
	var out []*tree.Node
	if includeSelf {
		out = append(out, n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, descendants(c, true)...)
	}
	return out
}

func followingNodes(n *tree.Node) []*tree.Node {
	var out []*tree.Node
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	var walk func(cur *tree.Node)
	after := false
	walk = func(cur *tree.Node) {
		if cur == nil {
			return
		}
		if after && cur != n {
			out = append(out, cur)
		}
		if cur == n {
			after = true
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if after {
			return
		}
	}
	walk(root)
	return out
}

func precedingNodes(n *tree.Node) []*tree.Node {
	ancestorSet := map[*tree.Node]bool{}
	for _, a := range n.Ancestors() {
		ancestorSet[a] = true
	}
	var out []*tree.Node
	root := n
	for root.Parent != nil {
		root = root.Parent
	}
	var walk func(cur *tree.Node) bool
	walk = func(cur *tree.Node) bool {
		if cur == n {
			return true
		}
		if ancestorSet[cur] {
			for c := cur.FirstChild; c != nil; c = c.NextSibling {
				if walk(c) {
					return true
				}
			}
			return false
		}
		out = append(out, cur)
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return out
}

func filterByNodeTest(nodes []*tree.Node, test NodeTest, axis string, ctx *Context) []*tree.Node {
	var out []*tree.Node
	for _, n := range nodes {
		if nodeTestMatches(n, test, axis, ctx) {
			out = append(out, n)
		}
	}
	return out
}

func nodeTestMatches(n *tree.Node, test NodeTest, axis string, ctx *Context) bool {
	switch t := test.(type) {
	case NameTest:
		principalKind := tree.ElementNode
		if axis == "attribute" {
			principalKind = tree.AttributeNode
		} else if axis == "namespace" {
			principalKind = tree.NamespaceNode
		}
		if n.Kind != principalKind {
			return false
		}
		if t.Local != "*" && n.Name.Local != t.Local {
			return false
		}
		switch {
		case t.Prefix == "*":
			return true
		case t.Prefix == "":
			return n.Name.URI == ""
		default:
			uri, known := ctx.Namespace[t.Prefix]
			return known && n.Name.URI == uri
		}
	case KindTest:
		switch t.Kind {
		case "node":
			return true
		case "text":
			return n.Kind == tree.TextNode
		case "comment":
			return n.Kind == tree.CommentNode
		case "processing-instruction":
			if n.Kind != tree.PINode {
				return false
			}
			return t.Arg == "" || t.Arg == n.Target
		case "document-node":
			return n.Kind == tree.DocumentNode
		}
	}
	return false
}

func evalFuncCall(e FuncCall, ctx *Context) (Value, error) {
	key := e.Name
	if e.Prefix != "" {
		key = e.Prefix + ":" + e.Name
	}
	fn, ok := ctx.Funcs[key]
	if !ok {
		return Value{}, evalErrorf("undefined function %s()", key)
	}
	args := make([]Value, len(e.Args))
	for i, a := range e.Args {
		v, err := Eval(a, ctx)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return fn.Call(ctx, args)
}

func evalMapConstructor(e MapConstructor, ctx *Context) (Value, error) {
	m := NewMap()
	for i := range e.Keys {
		k, err := Eval(e.Keys[i], ctx)
		if err != nil {
			return Value{}, err
		}
		v, err := Eval(e.Values[i], ctx)
		if err != nil {
			return Value{}, err
		}
		m = m.Put(k, v)
	}
	return MapValue(m), nil
}

func evalArrayConstructor(e ArrayConstructor, ctx *Context) (Value, error) {
	var members []Value
	for _, m := range e.Members {
		v, err := Eval(m, ctx)
		if err != nil {
			return Value{}, err
		}
		members = append(members, v)
	}
	return ArrayValue(NewArray(members)), nil
}

func evalLookup(e LookupExpr, ctx *Context) (Value, error) {
	base, err := Eval(e.X, ctx)
	if err != nil {
		return Value{}, err
	}
	if e.Key == nil {
		return lookupWildcard(base)
	}
	key, err := Eval(e.Key, ctx)
	if err != nil {
		return Value{}, err
	}
	switch base.Kind {
	case KindMap:
		v, ok := base.Map.Get(key)
		if !ok {
			return Sequence(nil), nil
		}
		return v, nil
	case KindArray:
		n, err := toNumber(key)
		if err != nil {
			return Value{}, err
		}
		v, ok := base.Array.Get(int(n))
		if !ok {
			return Value{}, evalErrorf("array index %d out of bounds", int(n))
		}
		return v, nil
	}
	return Value{}, evalErrorf("'?' lookup requires a map or array")
}

func lookupWildcard(base Value) (Value, error) {
	switch base.Kind {
	case KindMap:
		var items []Value
		for _, k := range base.Map.Keys() {
			v, _ := base.Map.Get(k)
			items = append(items, v)
		}
		return Sequence(items), nil
	case KindArray:
		return Sequence(base.Array.Members()), nil
	}
	return Value{}, evalErrorf("'?*' lookup requires a map or array")
}

func evalSimpleMap(e SimpleMapExpr, ctx *Context) (Value, error) {
	left, err := Eval(e.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	var out []Value
	items := sequenceItems(left)
	for i, it := range items {
		subCtx := itemContext(ctx, it, i+1, len(items))
		v, err := Eval(e.Right, subCtx)
		if err != nil {
			return Value{}, err
		}
		out = append(out, flattenInto(v)...)
	}
	return Sequence(out), nil
}

// toNumber atomizes v and coerces it to xs:double per spec §5.1.
func toNumber(v Value) (float64, error) {
	switch v.Kind {
	case KindNumber:
		return v.Num, nil
	case KindBoolean:
		if v.Bool {
			return 1, nil
		}
		return 0, nil
	case KindString:
		return parseXPathNumber(v.Str), nil
	case KindNodeSet:
		return parseXPathNumber(nodeSetStringValue(v.NodeSet)), nil
	case KindSequence:
		if len(v.Seq) == 1 {
			return toNumber(v.Seq[0])
		}
		return math.NaN(), nil
	}
	return math.NaN(), nil
}

func parseXPathNumber(s string) float64 {
	var n float64
	if _, err := fmt.Sscanf(trimSpace(s), "%g", &n); err != nil {
		return math.NaN()
	}
	return n
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isXMLSpace(s[start]) {
		start++
	}
	for end > start && isXMLSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isXMLSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

// Truthy coerces v to a boolean per the effective-boolean-value rules
// (spec §5.1): exported so consumers like the xslt package's pattern
// matcher can evaluate predicates without duplicating the coercion
// table.
func Truthy(v Value) bool { return toBoolean(v) }

// NumberFromString parses s per XPath's numeric-literal coercion rules,
// returning NaN for non-numeric text — exported so consumers like the
// xslt package's accumulator table can coerce attribute text without
// duplicating the parser.
func NumberFromString(s string) float64 { return parseXPathNumber(s) }

func toBoolean(v Value) bool {
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindNumber:
		return v.Num != 0 && !math.IsNaN(v.Num)
	case KindString:
		return v.Str != ""
	case KindNodeSet:
		return len(v.NodeSet) > 0
	case KindSequence:
		return len(v.Seq) > 0
	}
	return false
}

// StringOf returns v's XPath string value (spec §5.1's atomization
// rule), exported for callers outside the package such as xslt's
// xsl:value-of and attribute-value-template evaluation.
func StringOf(v Value) string { return toStringValue(v) }

func toStringValue(v Value) string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return formatXPathNumber(v.Num)
	case KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNodeSet:
		return nodeSetStringValue(v.NodeSet)
	case KindSequence:
		if len(v.Seq) == 0 {
			return ""
		}
		return toStringValue(v.Seq[0])
	}
	return ""
}

func formatXPathNumber(n float64) string {
	if math.IsNaN(n) {
		return "NaN"
	}
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

func nodeSetStringValue(ns []*tree.Node) string {
	sorted := sortNodeSetByDocumentOrder(append([]*tree.Node(nil), ns...))
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0].StringValue()
}
