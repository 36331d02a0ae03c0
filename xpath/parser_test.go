package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleRelativePath(t *testing.T) {
	expr, err := Parse("a/b/c")
	require.NoError(t, err)
	path, ok := expr.(PathExpr)
	require.True(t, ok)
	assert.False(t, path.Absolute)
	require.Len(t, path.Steps, 3)
	assert.Equal(t, "child", path.Steps[0].Axis)
	assert.Equal(t, NameTest{Local: "a"}, path.Steps[0].Test)
}

func TestParseAbsolutePathWithDescendant(t *testing.T) {
	expr, err := Parse("//book")
	require.NoError(t, err)
	path, ok := expr.(PathExpr)
	require.True(t, ok)
	assert.True(t, path.Absolute)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "descendant-or-self", path.Steps[0].Axis)
	assert.Equal(t, "child", path.Steps[1].Axis)
	assert.Equal(t, NameTest{Local: "book"}, path.Steps[1].Test)
}

func TestParseAxisAndAttribute(t *testing.T) {
	expr, err := Parse("child::book[@id='1']/attribute::title")
	require.NoError(t, err)
	path, ok := expr.(PathExpr)
	require.True(t, ok)
	require.Len(t, path.Steps, 2)
	assert.Equal(t, "child", path.Steps[0].Axis)
	require.Len(t, path.Steps[0].Predicates, 1)
	assert.Equal(t, "attribute", path.Steps[1].Axis)
}

func TestParseFunctionCall(t *testing.T) {
	expr, err := Parse("concat('a', 'b', $x)")
	require.NoError(t, err)
	call, ok := expr.(FuncCall)
	require.True(t, ok)
	assert.Equal(t, "concat", call.Name)
	require.Len(t, call.Args, 3)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	expr, err := Parse("1 + 2 * 3")
	require.NoError(t, err)
	bin, ok := expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", bin.Op)
	rhs, ok := bin.Right.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", rhs.Op)
}

func TestParseUnionOfPaths(t *testing.T) {
	expr, err := Parse("a | b")
	require.NoError(t, err)
	bin, ok := expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "|", bin.Op)
}

func TestParseMapConstructor(t *testing.T) {
	expr, err := Parse(`map{"a": 1, "b": 2}`)
	require.NoError(t, err)
	m, ok := expr.(MapConstructor)
	require.True(t, ok)
	require.Len(t, m.Keys, 2)
}

func TestParseSquareArrayConstructor(t *testing.T) {
	expr, err := Parse("[1, 2, 3]")
	require.NoError(t, err)
	a, ok := expr.(ArrayConstructor)
	require.True(t, ok)
	assert.Len(t, a.Members, 3)
}

func TestParseSequenceExpr(t *testing.T) {
	expr, err := Parse("(1, 2, 3)")
	require.NoError(t, err)
	seq, ok := expr.(SequenceExpr)
	require.True(t, ok)
	assert.Len(t, seq.Items, 3)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	_, err := Parse("1 + ")
	assert.Error(t, err)
}

func TestParseIfExpr(t *testing.T) {
	expr, err := Parse(`if (/a/b) then "y" else "n"`)
	require.NoError(t, err)
	ifE, ok := expr.(IfExpr)
	require.True(t, ok)
	assert.IsType(t, PathExpr{}, ifE.Cond)
}

func TestParseForExpr(t *testing.T) {
	expr, err := Parse("for $x in (1, 2), $y in (3, 4) return $x")
	require.NoError(t, err)
	forE, ok := expr.(ForExpr)
	require.True(t, ok)
	require.Len(t, forE.Bindings, 2)
	assert.Equal(t, "x", forE.Bindings[0].Var)
	assert.Equal(t, "y", forE.Bindings[1].Var)
}

func TestParseLetExpr(t *testing.T) {
	expr, err := Parse("let $x := 1, $y := 2 return $x + $y")
	require.NoError(t, err)
	letE, ok := expr.(LetExpr)
	require.True(t, ok)
	require.Len(t, letE.Bindings, 2)
}

func TestParseQuantifiedExpr(t *testing.T) {
	expr, err := Parse("some $x in (1, 2) satisfies $x = 1")
	require.NoError(t, err)
	qE, ok := expr.(QuantifiedExpr)
	require.True(t, ok)
	assert.False(t, qE.Every)

	expr, err = Parse("every $x in (1, 2) satisfies $x = 1")
	require.NoError(t, err)
	qE, ok = expr.(QuantifiedExpr)
	require.True(t, ok)
	assert.True(t, qE.Every)
}

func TestParseInlineFunctionExpr(t *testing.T) {
	expr, err := Parse("function($a, $b) { $a + $b }")
	require.NoError(t, err)
	fnE, ok := expr.(InlineFunctionExpr)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, fnE.Params)
}

func TestParseArrowOperator(t *testing.T) {
	expr, err := Parse(`"a" => upper-case()`)
	require.NoError(t, err)
	arrow, ok := expr.(ArrowExpr)
	require.True(t, ok)
	assert.Equal(t, "upper-case", arrow.Name)
}

func TestParseCastAndInstanceOf(t *testing.T) {
	expr, err := Parse(`"1" cast as xs:integer`)
	require.NoError(t, err)
	cast, ok := expr.(CastExpr)
	require.True(t, ok)
	assert.Equal(t, "xs:integer", cast.Type.Name)

	expr, err = Parse("1 instance of xs:integer")
	require.NoError(t, err)
	_, ok = expr.(InstanceOfExpr)
	require.True(t, ok)
}

func TestParseRangeAndValueComparisonOperators(t *testing.T) {
	expr, err := Parse("1 to 10")
	require.NoError(t, err)
	bin, ok := expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "to", bin.Op)

	expr, err = Parse("$a eq $b")
	require.NoError(t, err)
	bin, ok = expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "eq", bin.Op)
}

func TestParseIntersectAndExcept(t *testing.T) {
	expr, err := Parse("/a/b intersect /a/c except /a/d")
	require.NoError(t, err)
	bin, ok := expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "except", bin.Op)
}

func TestParseDeeplyNestedParensDoesNotRecurse(t *testing.T) {
	src := ""
	for i := 0; i < 5000; i++ {
		src += "("
	}
	src += "1"
	for i := 0; i < 5000; i++ {
		src += ")"
	}
	_, err := Parse(src)
	assert.NoError(t, err)
}
