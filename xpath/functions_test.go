package xpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionSubstring(t *testing.T) {
	expr, err := Parse("substring('Hello World', 1, 5)")
	require.NoError(t, err)
	ctx := NewContext(nil)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hello", toStringValue(v))
}

func TestFunctionSubstringNoLength(t *testing.T) {
	expr, err := Parse("substring('Hello World', 7)")
	require.NoError(t, err)
	ctx := NewContext(nil)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	assert.Equal(t, "World", toStringValue(v))
}

func TestFunctionRoundFloorCeiling(t *testing.T) {
	ctx := NewContext(nil)
	for _, tc := range []struct {
		src  string
		want string
	}{
		{"round(2.4)", "2"},
		{"round(2.6)", "3"},
		{"floor(2.9)", "2"},
		{"ceiling(2.1)", "3"},
	} {
		expr, err := Parse(tc.src)
		require.NoError(t, err)
		v, err := Eval(expr, ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.want, toStringValue(v), tc.src)
	}
}

func TestFunctionForEachAndFilter(t *testing.T) {
	ctx := NewContext(nil)
	double := &FunctionItem{Name: "double", Arity: 1, Call: func(ctx *Context, args []Value) (Value, error) {
		n, err := toNumber(args[0])
		return Number(n * 2), err
	}}
	ctx.Vars["f"] = Value{Kind: KindFunction, Func: double}

	expr, err := Parse("for-each((1, 2, 3), $f)")
	require.NoError(t, err)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	require.Equal(t, KindSequence, v.Kind)
	require.Len(t, v.Seq, 3)
	assert.Equal(t, "2", toStringValue(v.Seq[0]))
	assert.Equal(t, "6", toStringValue(v.Seq[2]))
}

func TestFunctionFoldLeft(t *testing.T) {
	ctx := NewContext(nil)
	add := &FunctionItem{Name: "add", Arity: 2, Call: func(ctx *Context, args []Value) (Value, error) {
		a, err := toNumber(args[0])
		if err != nil {
			return Value{}, err
		}
		b, err := toNumber(args[1])
		return Number(a + b), err
	}}
	ctx.Vars["f"] = Value{Kind: KindFunction, Func: add}
	ctx.Vars["acc"] = Number(0)

	expr, err := Parse("fold-left((1, 2, 3, 4), $acc, $f)")
	require.NoError(t, err)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", toStringValue(v))
}

func TestFunctionMapAndArrayHelpers(t *testing.T) {
	ctx := NewContext(nil)
	expr, err := Parse(`map:size(map:put(map{"a": 1}, "b", 2))`)
	require.NoError(t, err)
	v, err := Eval(expr, ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", toStringValue(v))

	expr2, err := Parse(`array:size(array:append([1, 2], 3))`)
	require.NoError(t, err)
	v2, err := Eval(expr2, ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", toStringValue(v2))
}
