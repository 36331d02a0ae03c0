package xpath

// frameKind distinguishes the handful of shapes a pushed frame can
// take: the single top-level expression, the six bracket/brace
// delimited constructs that collect comma-separated items, the map
// constructor (key:value pairs), and the staged FLWOR/if/quantified
// constructs.
type frameKind int

const (
	frameTop frameKind = iota
	frameParen
	frameArgList
	framePredicate
	frameSquareArray
	frameCurlyArray
	frameMap
	frameFuncBody
	frameConstruct
)

// construct stages, shared across if/for/let/some/every (each only
// uses the subset relevant to its own grammar).
const (
	stageThen = iota
	stageElse
	stageBindingSeq
	stageReturn
	stageSatisfies
)

const (
	mapPhaseKey = iota
	mapPhaseValue
)

// atom-building phases; see parser.stepAtom.
const (
	atomPrimary = iota
	atomPathSteps
	atomPostfix
)

// opEntry is one pending binary operator on a frame's operator stack,
// awaiting its right operand before it can reduce.
type opEntry struct {
	op   string
	prec int
}

// frame is the unit of the parser's explicit stack. Every frame owns
// its own operand/operator arrays for the ExprSingle it is currently
// climbing (Pratt-style, left-associative, precedence-based reduce
// before push); construct frames reuse those same arrays across their
// sequential clauses (condition/then/else, binding-seq/return,
// binding-seq/satisfies), resetting them at each clause boundary,
// since a construct never climbs two clauses at once.
type frame struct {
	kind frameKind

	operands      []Expr
	operators     []opEntry
	expectOperand bool

	// bracket-frame item accumulation (paren/arglist/predicate/array/
	// map/funcbody all collect zero or more comma-separated items).
	items []Expr

	// map-constructor key accumulation, parallel to items (the values).
	mapKeys  []Expr
	mapPhase int

	// FLWOR/if/quantified construct state.
	ckind       string // "if","for","let","some"
	cstage      int
	cEvery      bool
	ifCond      Expr
	ifThen      Expr
	bindings    []ForBinding
	letBindings []LetBinding
	pendingVar  string

	// atom-building sub-state: primary + path-steps + postfix +
	// simple-map chain. See parser.stepAtom for the state machine this
	// drives.
	atomPhase          int
	atomUnaryCount     int
	atomBase           Expr
	atomAbsolute       bool
	atomFilter         Expr
	atomHasFilter      bool
	atomSteps          []Step
	atomPendingStep    Step
	atomNeedHeader     bool
	atomSimpleMapAccum Expr
	atomHasSimpleMap   bool
	building           bool

	// delivery callbacks: how this frame's reduced result reaches
	// whichever frame or field pushed it. Exactly one is set per frame,
	// depending on kind (onItems only for frameArgList).
	onChild func(Expr)
	onItems func([]Expr)
}

func newFrame(kind frameKind) *frame { return &frame{kind: kind} }

// wrapBracket creates a bracket frame (paren/predicate/array/
// funcbody-like) delivering a single reduced Expr via onChild,
// positioned to accept its first item immediately.
func wrapBracket(kind frameKind, onChild func(Expr)) *frame {
	f := newFrame(kind)
	f.onChild = onChild
	f.startFirstItem()
	return f
}

// wrapItems creates an argument-list frame delivering its raw item
// slice via onItems (callers need the individual expressions, not a
// wrapped SequenceExpr).
func wrapItems(kind frameKind, onItems func([]Expr)) *frame {
	f := newFrame(kind)
	f.onItems = onItems
	f.startFirstItem()
	return f
}

// startFirstItem arms a freshly pushed bracket frame to parse its
// first comma-separated item (or notice it's immediately empty, which
// the frame's own stop-dispatch checks for via len(items)==0 &&
// len(operands)==0).
func (f *frame) startFirstItem() { f.expectOperand = true }

// pushOperator reduces any pending higher-or-equal precedence operators
// (left-associativity) before pushing the new one.
func (f *frame) pushOperator(op string, prec int) {
	f.reduceWhile(prec)
	f.operators = append(f.operators, opEntry{op: op, prec: prec})
	f.expectOperand = true
}

// reduceWhile pops and combines every pending operator whose
// precedence is >= minPrec (left-associative chains reduce eagerly).
func (f *frame) reduceWhile(minPrec int) {
	for len(f.operators) > 0 && f.operators[len(f.operators)-1].prec >= minPrec {
		op := f.operators[len(f.operators)-1]
		f.operators = f.operators[:len(f.operators)-1]
		n := len(f.operands)
		right := f.operands[n-1]
		left := f.operands[n-2]
		f.operands = f.operands[:n-2]
		f.operands = append(f.operands, BinaryExpr{Op: op.op, Left: left, Right: right})
	}
}

// finalize drains all pending operators and returns the single
// resulting Expr for whatever clause f was climbing. Called whenever a
// clause boundary is reached (comma, closing bracket, construct-stage
// keyword, or end of input).
func (f *frame) finalize() (Expr, error) {
	f.reduceWhile(0)
	if len(f.operands) != 1 {
		return nil, &SyntaxError{Msg: "incomplete expression"}
	}
	return f.operands[0], nil
}

func (f *frame) pushOperand(v Expr) {
	f.operands = append(f.operands, v)
	f.expectOperand = false
}

func (f *frame) popOperand() Expr {
	n := len(f.operands)
	v := f.operands[n-1]
	f.operands = f.operands[:n-1]
	return v
}

func (f *frame) topOperand() Expr { return f.operands[len(f.operands)-1] }

func (f *frame) replaceTop(v Expr) { f.operands[len(f.operands)-1] = v }
