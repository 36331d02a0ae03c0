package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2stream/xmlcore/parser"
	"github.com/r2stream/xmlcore/tree"
)

func buildDoc(t *testing.T, input string) *tree.Document {
	t.Helper()
	b := tree.NewBuilder()
	p := parser.New(parser.WithContentHandler(b), parser.WithLexicalHandler(b))
	require.NoError(t, p.Feed([]byte(input)))
	require.NoError(t, p.Close())
	return b.Doc
}

func evalString(t *testing.T, doc *tree.Document, exprSrc string) string {
	t.Helper()
	expr, err := Parse(exprSrc)
	require.NoError(t, err)
	ctx := NewContext(doc.Root)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	return toStringValue(v)
}

func evalNodeSet(t *testing.T, doc *tree.Document, exprSrc string) []*tree.Node {
	t.Helper()
	expr, err := Parse(exprSrc)
	require.NoError(t, err)
	ctx := NewContext(doc.Root)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	require.Equal(t, KindNodeSet, v.Kind)
	return v.NodeSet
}

func TestEvalChildStepsAndText(t *testing.T) {
	doc := buildDoc(t, `<catalog><book id="1"><title>Go</title></book><book id="2"><title>Rust</title></book></catalog>`)
	titles := evalNodeSet(t, doc, "/catalog/book/title")
	require.Len(t, titles, 2)
	assert.Equal(t, "Go", titles[0].StringValue())
	assert.Equal(t, "Rust", titles[1].StringValue())
}

func TestEvalPredicateByPosition(t *testing.T) {
	doc := buildDoc(t, `<a><b>1</b><b>2</b><b>3</b></a>`)
	bs := evalNodeSet(t, doc, "/a/b[2]")
	require.Len(t, bs, 1)
	assert.Equal(t, "2", bs[0].StringValue())
}

func TestEvalAttributePredicate(t *testing.T) {
	doc := buildDoc(t, `<a><b id="x"/><b id="y"/></a>`)
	bs := evalNodeSet(t, doc, `/a/b[@id='y']`)
	require.Len(t, bs, 1)
	assert.Equal(t, "y", bs[0].Attr[0].Value)
}

func TestEvalCountAndArithmetic(t *testing.T) {
	doc := buildDoc(t, `<a><b/><b/><b/></a>`)
	assert.Equal(t, "3", evalString(t, doc, "count(/a/b)"))
	assert.Equal(t, "6", evalString(t, doc, "count(/a/b) * 2"))
}

func TestEvalStringFunctions(t *testing.T) {
	doc := buildDoc(t, `<a>hello world</a>`)
	assert.Equal(t, "true", evalString(t, doc, "contains(/a, 'world')"))
	assert.Equal(t, "HELLO WORLD", evalString(t, doc, "upper-case(/a)"))
	assert.Equal(t, "hello", evalString(t, doc, "substring-before(/a, ' world')"))
}

func TestEvalDescendantAxis(t *testing.T) {
	doc := buildDoc(t, `<a><b><c/></b><c/></a>`)
	cs := evalNodeSet(t, doc, "//c")
	assert.Len(t, cs, 2)
}

func TestEvalParentAndAncestorAxis(t *testing.T) {
	doc := buildDoc(t, `<a><b><c/></b></a>`)
	parents := evalNodeSet(t, doc, "//c/parent::b")
	require.Len(t, parents, 1)
	assert.Equal(t, "b", parents[0].Name.Local)
}

func TestEvalUnion(t *testing.T) {
	doc := buildDoc(t, `<a><b/><c/></a>`)
	ns := evalNodeSet(t, doc, "/a/b | /a/c")
	assert.Len(t, ns, 2)
}

func TestEvalMapConstructorAndLookup(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "1", evalString(t, doc, `map{"x": 1, "y": 2}?x`))
}

func TestEvalArrayConstructorAndLookup(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "2", evalString(t, doc, `[1, 2, 3]?2`))
}

func TestEvalSimpleMapOperator(t *testing.T) {
	doc := buildDoc(t, `<a><b>1</b><b>2</b></a>`)
	assert.Equal(t, "1", evalString(t, doc, "(/a/b ! string-length(.))[1]"))
}

func TestEvalIfExpr(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "yes", evalString(t, doc, `if (1 < 2) then "yes" else "no"`))
	assert.Equal(t, "no", evalString(t, doc, `if (1 > 2) then "yes" else "no"`))
}

func TestEvalForExpr(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	expr, err := Parse("for $x in (1, 2, 3) return $x * 2")
	require.NoError(t, err)
	ctx := NewContext(doc.Root)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	require.Equal(t, KindSequence, v.Kind)
	require.Len(t, v.Seq, 3)
	assert.Equal(t, float64(2), v.Seq[0].Num)
	assert.Equal(t, float64(6), v.Seq[2].Num)
}

func TestEvalForExprCrossProduct(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	expr, err := Parse("for $x in (1,2), $y in (10,20) return $x + $y")
	require.NoError(t, err)
	v, err := Eval(expr, NewContext(doc.Root))
	require.NoError(t, err)
	require.Len(t, v.Seq, 4)
	assert.Equal(t, float64(11), v.Seq[0].Num)
	assert.Equal(t, float64(31), v.Seq[3].Num)
}

func TestEvalLetExpr(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "7", evalString(t, doc, "let $x := 3, $y := $x + 4 return $y"))
}

func TestEvalQuantifiedExpr(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "true", evalString(t, doc, "some $x in (1, 2, 3) satisfies $x = 2"))
	assert.Equal(t, "false", evalString(t, doc, "every $x in (1, 2, 3) satisfies $x > 1"))
}

func TestEvalInlineFunctionAndArrow(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "9", evalString(t, doc, "let $square := function($n) { $n * $n } return 3 => $square()"))
	assert.Equal(t, "6", evalString(t, doc, "let $double := function($n) { $n * 2 } return 3 => $double()"))
}

func TestEvalValueAndNodeComparisons(t *testing.T) {
	doc := buildDoc(t, `<a><b/><c/></a>`)
	assert.Equal(t, "true", evalString(t, doc, "1 eq 1"))
	assert.Equal(t, "true", evalString(t, doc, "1 lt 2"))
	assert.Equal(t, "true", evalString(t, doc, "/a/b is /a/b"))
	assert.Equal(t, "true", evalString(t, doc, "/a/b << /a/c"))
}

func TestEvalRangeAndConcat(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	expr, err := Parse("1 to 4")
	require.NoError(t, err)
	v, err := Eval(expr, NewContext(doc.Root))
	require.NoError(t, err)
	require.Len(t, v.Seq, 4)
	assert.Equal(t, "ab", evalString(t, doc, `"a" || "b"`))
}

func TestEvalCastAndInstanceOf(t *testing.T) {
	doc := buildDoc(t, `<a/>`)
	assert.Equal(t, "42", evalString(t, doc, `"42" cast as xs:integer`))
	assert.Equal(t, "true", evalString(t, doc, `1 instance of xs:integer`))
	assert.Equal(t, "true", evalString(t, doc, `"5" castable as xs:integer`))
}

func TestEvalIntersectAndExcept(t *testing.T) {
	doc := buildDoc(t, `<a><b/><c/></a>`)
	ns := evalNodeSet(t, doc, "(/a/b | /a/c) intersect /a/b")
	require.Len(t, ns, 1)
	assert.Equal(t, "b", ns[0].Name.Local)
	ns = evalNodeSet(t, doc, "(/a/b | /a/c) except /a/b")
	require.Len(t, ns, 1)
	assert.Equal(t, "c", ns[0].Name.Local)
}
