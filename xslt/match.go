package xslt

import (
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/xpath"
)

// matches reports whether n satisfies tpl's match pattern. Patterns
// are restricted XPath expressions (child/attribute/descendant-or-self
// axes only, no variables), so rather than evaluating the whole
// pattern as a forward selection from the document root, matching
// walks backwards from the candidate node through the pattern's steps
// and the node's ancestor chain — the standard technique for template
// rule matching, and asymptotically cheaper than a fresh root-to-leaf
// select per candidate per template.
func matches(n *tree.Node, expr xpath.Expr) bool {
	switch e := expr.(type) {
	case xpath.BinaryExpr:
		if e.Op == "|" {
			return matches(n, e.Left) || matches(n, e.Right)
		}
		return false
	case xpath.PathExpr:
		if len(e.Steps) == 0 {
			return e.Absolute && n.Kind == tree.DocumentNode
		}
		return matchSteps(n, e.Steps, len(e.Steps)-1, e.Absolute)
	}
	return false
}

func matchSteps(n *tree.Node, steps []xpath.Step, idx int, absolute bool) bool {
	step := steps[idx]
	if !testMatchesKind(n, step.Test, step.Axis) {
		return false
	}
	for _, pred := range step.Predicates {
		ctx := xpath.NewContext(n)
		v, err := xpath.Eval(pred, ctx)
		if err != nil || !xpath.Truthy(v) {
			return false
		}
	}
	if idx == 0 {
		if !absolute {
			return true
		}
		if step.Axis == "descendant-or-self" {
			// The "//" abbreviation's leading descendant-or-self::node()
			// step matches every node reachable from the document root,
			// which is every node in the tree — no further ancestor check
			// needed.
			return true
		}
		return n.Parent != nil && n.Parent.Kind == tree.DocumentNode
	}
	switch step.Axis {
	case "child", "attribute":
		if n.Parent == nil {
			return false
		}
		return matchSteps(n.Parent, steps, idx-1, absolute)
	case "descendant-or-self":
		for anc := n; anc != nil; anc = anc.Parent {
			if matchSteps(anc, steps, idx-1, absolute) {
				return true
			}
		}
		return false
	}
	return false
}

func testMatchesKind(n *tree.Node, test xpath.NodeTest, axis string) bool {
	switch t := test.(type) {
	case xpath.NameTest:
		principal := tree.ElementNode
		if axis == "attribute" {
			principal = tree.AttributeNode
		}
		if n.Kind != principal {
			return false
		}
		if t.Local != "*" && n.Name.Local != t.Local {
			return false
		}
		return true
	case xpath.KindTest:
		switch t.Kind {
		case "node":
			return true
		case "text":
			return n.Kind == tree.TextNode
		case "comment":
			return n.Kind == tree.CommentNode
		case "processing-instruction":
			return n.Kind == tree.PINode && (t.Arg == "" || t.Arg == n.Target)
		case "document-node":
			return n.Kind == tree.DocumentNode
		}
	}
	return false
}

// bestTemplate returns the highest-priority template in tpls whose
// pattern matches n, breaking ties by declaration order (later
// declarations win, per XSLT §5.5's stylesheet-order tiebreak), or nil
// if built-in-template-rule behavior applies.
func bestTemplate(tpls []*Template, n *tree.Node) *Template {
	var best *Template
	for _, tpl := range tpls {
		if tpl.MatchExp == nil {
			continue
		}
		if matches(n, tpl.MatchExp) {
			if best == nil || tpl.Priority >= best.Priority {
				best = tpl
			}
		}
	}
	return best
}
