package xslt

import (
	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/xpath"
)

const maxTemplateDepth = 4096

// GroundedExecutor runs a CompiledStylesheet against an in-memory
// GROUNDED source tree, emitting output through a sax.ContentHandler
// (typically a writer.Writer) — the FREE_RANGING end of spec §4.6's
// streamability lattice, used whenever a stylesheet's constructs (a
// reverse axis, a non-trivial sort, multiple passes over the input)
// rule out a single forward streaming pass.
type GroundedExecutor struct {
	cs     *CompiledStylesheet
	out    sax.ContentHandler
	scopes []map[string]xpath.Value
	depth  int
	tracer BufferTracer
}

// BufferTracer observes instrumentation points the streamability-
// soundness property test (spec §8) hooks into: every time the
// executor must hold more than the current node in memory to satisfy
// a construct (apply-templates over a reverse axis, an accumulator
// read), it reports the construct name.
type BufferTracer func(construct string)

// NewExecutor returns an Executor with no variables bound and an empty
// call stack.
func NewExecutor(cs *CompiledStylesheet, out sax.ContentHandler) *GroundedExecutor {
	return &GroundedExecutor{cs: cs, out: out, scopes: []map[string]xpath.Value{{}}}
}

// WithTracer installs a BufferTracer, returning the executor for
// chaining.
func (e *GroundedExecutor) WithTracer(t BufferTracer) *GroundedExecutor {
	e.tracer = t
	return e
}

func (e *GroundedExecutor) trace(construct string) {
	if e.tracer != nil {
		e.tracer(construct)
	}
}

// Run transforms doc, starting template application at the document
// root in the default mode.
func (e *GroundedExecutor) Run(doc *tree.Document) error {
	if err := e.out.StartDocument(); err != nil {
		return err
	}
	if err := e.applyTemplates([]*tree.Node{doc.Root}, ""); err != nil {
		return err
	}
	return e.out.EndDocument()
}

func (e *GroundedExecutor) lookupVar(name string) (xpath.Value, bool) {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if v, ok := e.scopes[i][name]; ok {
			return v, true
		}
	}
	return xpath.Value{}, false
}

func (e *GroundedExecutor) setVar(name string, v xpath.Value) {
	e.scopes[len(e.scopes)-1][name] = v
}

func (e *GroundedExecutor) pushScope() { e.scopes = append(e.scopes, map[string]xpath.Value{}) }
func (e *GroundedExecutor) popScope()  { e.scopes = e.scopes[:len(e.scopes)-1] }

func (e *GroundedExecutor) newContext(n *tree.Node, pos, size int) *xpath.Context {
	ctx := xpath.NewContext(n)
	ctx.Pos, ctx.Size = pos, size
	for i := range e.scopes {
		for k, v := range e.scopes[i] {
			ctx.Vars[k] = v
		}
	}
	return ctx
}

func (e *GroundedExecutor) eval(exprSrc string, n *tree.Node, pos, size int) (xpath.Value, error) {
	expr, err := xpath.Parse(exprSrc)
	if err != nil {
		return xpath.Value{}, &StaticError{Msg: "invalid expression " + exprSrc, Err: err}
	}
	if e.cs.accumulators != nil {
		if v, ok := e.tryAccumulatorRewrite(expr, n); ok {
			return v, nil
		}
	}
	v, err := xpath.Eval(expr, e.newContext(n, pos, size))
	if err != nil {
		return xpath.Value{}, &DynamicError{Msg: "evaluating " + exprSrc, Err: err}
	}
	return v, nil
}

// tryAccumulatorRewrite recognizes the handful of expression shapes
// spec §4.6 singles out for the automatic internal-accumulator rewrite
// — position(), count(preceding-sibling::X) and
// sum(preceding-sibling::X/@Y) — and answers them from the
// precomputed accumulatorTable instead of a full reverse-axis
// evaluation. Anything else falls through to ordinary xpath.Eval.
func (e *GroundedExecutor) tryAccumulatorRewrite(expr xpath.Expr, n *tree.Node) (xpath.Value, bool) {
	call, ok := expr.(xpath.FuncCall)
	if !ok || call.Prefix != "" {
		return xpath.Value{}, false
	}
	switch call.Name {
	case "position":
		if len(call.Args) != 0 {
			return xpath.Value{}, false
		}
		e.trace("position-accumulator")
		return xpath.Number(float64(e.cs.accumulators.Position(n, e.tracer))), true
	case "count":
		local, ok := singlePrecedingSiblingArg(call.Args)
		if !ok {
			return xpath.Value{}, false
		}
		e.trace("count-accumulator")
		return xpath.Number(float64(e.cs.accumulators.CountPreceding(n, local, e.tracer))), true
	case "sum":
		local, attrLocal, ok := precedingSiblingAttrArg(call.Args)
		if !ok {
			return xpath.Value{}, false
		}
		e.trace("sum-accumulator")
		return xpath.Number(e.cs.accumulators.SumPreceding(n, local, attrLocal, e.tracer)), true
	}
	return xpath.Value{}, false
}

// singlePrecedingSiblingArg recognizes count(preceding-sibling::local).
func singlePrecedingSiblingArg(args []xpath.Expr) (string, bool) {
	if len(args) != 1 {
		return "", false
	}
	path, ok := args[0].(xpath.PathExpr)
	if !ok || path.Absolute || path.Filter != nil || len(path.Steps) != 1 {
		return "", false
	}
	return nameTestLocal(path.Steps[0], "preceding-sibling")
}

// precedingSiblingAttrArg recognizes sum(preceding-sibling::local/@attr).
func precedingSiblingAttrArg(args []xpath.Expr) (string, string, bool) {
	if len(args) != 1 {
		return "", "", false
	}
	path, ok := args[0].(xpath.PathExpr)
	if !ok || path.Absolute || path.Filter != nil || len(path.Steps) != 2 {
		return "", "", false
	}
	local, ok := nameTestLocal(path.Steps[0], "preceding-sibling")
	if !ok {
		return "", "", false
	}
	attrLocal, ok := nameTestLocal(path.Steps[1], "attribute")
	if !ok {
		return "", "", false
	}
	return local, attrLocal, true
}

func nameTestLocal(step xpath.Step, axis string) (string, bool) {
	if step.Axis != axis || len(step.Predicates) != 0 {
		return "", false
	}
	nt, ok := step.Test.(xpath.NameTest)
	if !ok || nt.Local == "*" || nt.Prefix != "" {
		return "", false
	}
	return nt.Local, true
}

// applyTemplates resolves and instantiates the best-matching template
// for each node in nodes, under mode, falling back to the built-in
// template rule (spec/XSLT §5.8) when nothing matches.
func (e *GroundedExecutor) applyTemplates(nodes []*tree.Node, mode string) error {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > maxTemplateDepth {
		return &DynamicError{Msg: "template recursion exceeded maximum depth"}
	}
	tpls := e.cs.templatesByMode[mode]
	for i, n := range nodes {
		tpl := bestTemplate(tpls, n)
		if tpl == nil {
			if err := e.builtinRule(n, mode); err != nil {
				return err
			}
			continue
		}
		e.pushScope()
		err := e.instantiateChildren(tpl.Body, n, i+1, len(nodes))
		e.popScope()
		if err != nil {
			return err
		}
	}
	return nil
}

// builtinRule implements XSLT's built-in template rules: element and
// root nodes recurse into their children; text and attribute nodes
// copy their string value; everything else (comments, PIs) produces
// no output in the default mode.
func (e *GroundedExecutor) builtinRule(n *tree.Node, mode string) error {
	switch n.Kind {
	case tree.DocumentNode, tree.ElementNode:
		return e.applyTemplates(n.Children(), mode)
	case tree.TextNode, tree.AttributeNode:
		return e.out.Characters(n.Value)
	}
	return nil
}

// instantiateChildren runs each instruction/literal-content child of
// body against context node n.
func (e *GroundedExecutor) instantiateChildren(body *tree.Node, n *tree.Node, pos, size int) error {
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		if err := e.instantiateNode(child, n, pos, size); err != nil {
			return err
		}
	}
	return nil
}

func (e *GroundedExecutor) instantiateNode(instr *tree.Node, n *tree.Node, pos, size int) error {
	switch instr.Kind {
	case tree.TextNode:
		return e.out.Characters(instr.Value)
	case tree.CommentNode, tree.PINode:
		return nil
	case tree.ElementNode:
		if instr.Name.URI == xsltNamespace {
			return e.executeInstruction(instr, n, pos, size)
		}
		return e.literalResultElement(instr, n, pos, size)
	}
	return nil
}

// literalResultElement emits instr as an output element. XSLT requires
// xsl:attribute children to precede any other content (§7.1.3), so
// attributes are resolved in a first pass — the literal AVT attributes
// on instr, followed by any leading xsl:attribute instruction children —
// before the start tag opens; the remaining (non-attribute) children are
// then instantiated as the element's content.
func (e *GroundedExecutor) literalResultElement(instr *tree.Node, n *tree.Node, pos, size int) error {
	attrs, err := e.resolveAttributes(instr, n, pos, size)
	if err != nil {
		return err
	}
	contentStart, err := e.collectLeadingAttributes(instr, n, pos, size, &attrs)
	if err != nil {
		return err
	}
	if err := e.out.StartElement(instr.Name, attrs); err != nil {
		return err
	}
	for child := contentStart; child != nil; child = child.NextSibling {
		if err := e.instantiateNode(child, n, pos, size); err != nil {
			return err
		}
	}
	return e.out.EndElement(instr.Name)
}

// collectLeadingAttributes scans instr's children for a leading run of
// xsl:attribute instructions (per XSLT §7.1.3, interspersed whitespace-
// only text is insignificant and skipped rather than ending the run),
// appending each to attrs, and returns the first child that starts the
// element's real content.
func (e *GroundedExecutor) collectLeadingAttributes(instr *tree.Node, n *tree.Node, pos, size int, attrs *[]sax.Attribute) (*tree.Node, error) {
	child := instr.FirstChild
	for child != nil {
		switch {
		case child.Kind == tree.TextNode && isWhitespaceOnly(child.Value):
			child = child.NextSibling
		case child.Kind == tree.ElementNode && child.Name.URI == xsltNamespace && child.Name.Local == "attribute":
			a, err := e.resolveAttributeInstruction(child, n, pos, size)
			if err != nil {
				return nil, err
			}
			*attrs = append(*attrs, a)
			child = child.NextSibling
		default:
			return child, nil
		}
	}
	return nil, nil
}

func (e *GroundedExecutor) resolveAttributeInstruction(instr *tree.Node, n *tree.Node, pos, size int) (sax.Attribute, error) {
	attrName, _ := attr(instr, "name")
	val, err := e.captureSequence(instr, n, pos, size)
	if err != nil {
		return sax.Attribute{}, err
	}
	return sax.Attribute{Name: name.QName{Local: attrName}, Value: xpath.StringOf(val), Specified: true}, nil
}

func (e *GroundedExecutor) resolveAttributes(instr *tree.Node, n *tree.Node, pos, size int) ([]sax.Attribute, error) {
	var out []sax.Attribute
	for _, a := range instr.Attr {
		val, err := e.expandAVT(a.Value, n, pos, size)
		if err != nil {
			return nil, err
		}
		out = append(out, sax.Attribute{Name: a.Name, Value: val, Specified: true})
	}
	return out, nil
}

// expandAVT evaluates an attribute value template: literal text with
// "{expr}" sections substituted by the string value of expr, and "{{"/
// "}}" escapes for literal braces.
func (e *GroundedExecutor) expandAVT(raw string, n *tree.Node, pos, size int) (string, error) {
	var out []byte
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == '{' && i+1 < len(raw) && raw[i+1] == '{':
			out = append(out, '{')
			i += 2
		case c == '}' && i+1 < len(raw) && raw[i+1] == '}':
			out = append(out, '}')
			i += 2
		case c == '{':
			end := i + 1
			depth := 1
			for end < len(raw) && depth > 0 {
				switch raw[end] {
				case '{':
					depth++
				case '}':
					depth--
				}
				end++
			}
			exprSrc := raw[i+1 : end-1]
			v, err := e.eval(exprSrc, n, pos, size)
			if err != nil {
				return "", err
			}
			out = append(out, xpath.StringOf(v)...)
			i = end
		default:
			out = append(out, c)
			i++
		}
	}
	return string(out), nil
}
