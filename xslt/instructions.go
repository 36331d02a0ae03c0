package xslt

import (
	"github.com/r2stream/xmlcore/name"
	"github.com/r2stream/xmlcore/sax"
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/xpath"
)

func attr(el *tree.Node, local string) (string, bool) {
	a := el.Attribute(name.QName{Local: local})
	if a == nil {
		return "", false
	}
	return a.Value, true
}

// executeInstruction dispatches one xsl:* instruction element against
// context node n.
func (e *GroundedExecutor) executeInstruction(instr *tree.Node, n *tree.Node, pos, size int) error {
	switch instr.Name.Local {
	case "value-of":
		return e.execValueOf(instr, n, pos, size)
	case "text":
		return e.out.Characters(instr.StringValue())
	case "for-each":
		return e.execForEach(instr, n, pos, size)
	case "if":
		return e.execIf(instr, n, pos, size)
	case "choose":
		return e.execChoose(instr, n, pos, size)
	case "variable":
		return e.execVariable(instr, n, pos, size, false)
	case "param":
		return e.execVariable(instr, n, pos, size, true)
	case "apply-templates":
		return e.execApplyTemplates(instr, n, pos, size)
	case "call-template":
		return e.execCallTemplate(instr, n, pos, size)
	case "attribute":
		return e.execAttribute(instr, n, pos, size)
	case "element":
		return e.execElement(instr, n, pos, size)
	case "copy":
		return e.execCopy(instr, n, pos, size)
	case "copy-of":
		return e.execCopyOf(instr, n, pos, size)
	case "comment":
		return e.execComment(instr, n, pos, size)
	}
	return nil
}

func (e *GroundedExecutor) execValueOf(instr *tree.Node, n *tree.Node, pos, size int) error {
	sel, ok := attr(instr, "select")
	if !ok {
		sel = "."
	}
	v, err := e.eval(sel, n, pos, size)
	if err != nil {
		return err
	}
	return e.out.Characters(xpath.StringOf(v))
}

func (e *GroundedExecutor) execForEach(instr *tree.Node, n *tree.Node, pos, size int) error {
	sel, _ := attr(instr, "select")
	v, err := e.eval(sel, n, pos, size)
	if err != nil {
		return err
	}
	if v.Kind != xpath.KindNodeSet {
		return &DynamicError{Msg: "xsl:for-each select must be a node-set"}
	}
	e.trace("for-each")
	for i, node := range v.NodeSet {
		e.pushScope()
		err := e.instantiateChildren(instr, node, i+1, len(v.NodeSet))
		e.popScope()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *GroundedExecutor) execIf(instr *tree.Node, n *tree.Node, pos, size int) error {
	test, _ := attr(instr, "test")
	v, err := e.eval(test, n, pos, size)
	if err != nil {
		return err
	}
	if !xpath.Truthy(v) {
		return nil
	}
	return e.instantiateChildren(instr, n, pos, size)
}

func (e *GroundedExecutor) execChoose(instr *tree.Node, n *tree.Node, pos, size int) error {
	for child := instr.FirstChild; child != nil; child = child.NextSibling {
		if child.Kind != tree.ElementNode || child.Name.URI != xsltNamespace {
			continue
		}
		switch child.Name.Local {
		case "when":
			test, _ := attr(child, "test")
			v, err := e.eval(test, n, pos, size)
			if err != nil {
				return err
			}
			if xpath.Truthy(v) {
				return e.instantiateChildren(child, n, pos, size)
			}
		case "otherwise":
			return e.instantiateChildren(child, n, pos, size)
		}
	}
	return nil
}

func (e *GroundedExecutor) execVariable(instr *tree.Node, n *tree.Node, pos, size int, isParam bool) error {
	varName, _ := attr(instr, "name")
	if isParam {
		if _, bound := e.lookupVar(varName); bound {
			return nil
		}
	}
	if sel, ok := attr(instr, "select"); ok {
		v, err := e.eval(sel, n, pos, size)
		if err != nil {
			return err
		}
		e.setVar(varName, v)
		return nil
	}
	seq, err := e.captureSequence(instr, n, pos, size)
	if err != nil {
		return err
	}
	e.setVar(varName, seq)
	return nil
}

// captureSequence runs instr's content against a throwaway buffering
// handler and returns the accumulated text as a string value — an
// approximation of XSLT's result-tree-fragment for variables whose
// content is literal markup rather than a select expression.
func (e *GroundedExecutor) captureSequence(instr *tree.Node, n *tree.Node, pos, size int) (xpath.Value, error) {
	buf := newTextBuffer()
	saved := e.out
	e.out = buf
	err := e.instantiateChildren(instr, n, pos, size)
	e.out = saved
	if err != nil {
		return xpath.Value{}, err
	}
	return xpath.String(buf.String()), nil
}

func (e *GroundedExecutor) execApplyTemplates(instr *tree.Node, n *tree.Node, pos, size int) error {
	mode, _ := attr(instr, "mode")
	var nodes []*tree.Node
	if sel, ok := attr(instr, "select"); ok {
		v, err := e.eval(sel, n, pos, size)
		if err != nil {
			return err
		}
		if v.Kind != xpath.KindNodeSet {
			return &DynamicError{Msg: "xsl:apply-templates select must be a node-set"}
		}
		nodes = v.NodeSet
	} else {
		nodes = n.Children()
	}
	return e.applyTemplates(nodes, mode)
}

func (e *GroundedExecutor) execCallTemplate(instr *tree.Node, n *tree.Node, pos, size int) error {
	tplName, _ := attr(instr, "name")
	tpl, ok := e.cs.namedTemplates[tplName]
	if !ok {
		return &DynamicError{Msg: "no template named " + tplName}
	}
	e.pushScope()
	for child := instr.FirstChild; child != nil; child = child.NextSibling {
		if child.Kind == tree.ElementNode && child.Name.URI == xsltNamespace && child.Name.Local == "with-param" {
			pname, _ := attr(child, "name")
			sel, _ := attr(child, "select")
			v, err := e.eval(sel, n, pos, size)
			if err != nil {
				e.popScope()
				return err
			}
			e.setVar(pname, v)
		}
	}
	err := e.instantiateChildren(tpl.Body, n, pos, size)
	e.popScope()
	return err
}

// execAttribute handles an xsl:attribute instruction reached outside
// the leading-attribute pre-pass literalResultElement/execElement
// already perform (e.g. inside xsl:variable content, where it
// contributes to a string value rather than a real attribute node).
func (e *GroundedExecutor) execAttribute(instr *tree.Node, n *tree.Node, pos, size int) error {
	val, err := e.captureSequence(instr, n, pos, size)
	if err != nil {
		return err
	}
	return e.out.Characters(xpath.StringOf(val))
}

func (e *GroundedExecutor) execElement(instr *tree.Node, n *tree.Node, pos, size int) error {
	elName, _ := attr(instr, "name")
	qn := name.QName{Local: elName}
	var attrs []sax.Attribute
	contentStart, err := e.collectLeadingAttributes(instr, n, pos, size, &attrs)
	if err != nil {
		return err
	}
	if err := e.out.StartElement(qn, attrs); err != nil {
		return err
	}
	for child := contentStart; child != nil; child = child.NextSibling {
		if err := e.instantiateNode(child, n, pos, size); err != nil {
			return err
		}
	}
	return e.out.EndElement(qn)
}

func (e *GroundedExecutor) execCopy(instr *tree.Node, n *tree.Node, pos, size int) error {
	switch n.Kind {
	case tree.ElementNode:
		if err := e.out.StartElement(n.Name, nil); err != nil {
			return err
		}
		if err := e.instantiateChildren(instr, n, pos, size); err != nil {
			return err
		}
		return e.out.EndElement(n.Name)
	case tree.TextNode, tree.AttributeNode:
		return e.out.Characters(n.Value)
	case tree.CommentNode:
		if lh, ok := e.out.(interface{ Comment(string) error }); ok {
			return lh.Comment(n.Value)
		}
		return nil
	case tree.PINode:
		return e.out.ProcessingInstruction(n.Target, n.Value)
	}
	return nil
}

func (e *GroundedExecutor) execCopyOf(instr *tree.Node, n *tree.Node, pos, size int) error {
	sel, _ := attr(instr, "select")
	v, err := e.eval(sel, n, pos, size)
	if err != nil {
		return err
	}
	if v.Kind != xpath.KindNodeSet {
		return e.out.Characters(xpath.StringOf(v))
	}
	e.trace("copy-of")
	for _, node := range v.NodeSet {
		if err := e.deepCopy(node); err != nil {
			return err
		}
	}
	return nil
}

func (e *GroundedExecutor) deepCopy(n *tree.Node) error {
	switch n.Kind {
	case tree.ElementNode:
		attrs := make([]sax.Attribute, len(n.Attr))
		for i, a := range n.Attr {
			attrs[i] = sax.Attribute{Name: a.Name, Value: a.Value, Specified: true}
		}
		if err := e.out.StartElement(n.Name, attrs); err != nil {
			return err
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := e.deepCopy(c); err != nil {
				return err
			}
		}
		return e.out.EndElement(n.Name)
	case tree.TextNode:
		return e.out.Characters(n.Value)
	case tree.CommentNode:
		if lh, ok := e.out.(interface{ Comment(string) error }); ok {
			return lh.Comment(n.Value)
		}
		return nil
	case tree.PINode:
		return e.out.ProcessingInstruction(n.Target, n.Value)
	}
	return nil
}

func (e *GroundedExecutor) execComment(instr *tree.Node, n *tree.Node, pos, size int) error {
	val, err := e.captureSequence(instr, n, pos, size)
	if err != nil {
		return err
	}
	if lh, ok := e.out.(interface{ Comment(string) error }); ok {
		return lh.Comment(xpath.StringOf(val))
	}
	return nil
}
