package xpath

import (
	"math"
	"strings"

	"github.com/r2stream/xmlcore/tree"
)

// registerCoreFunctions installs the spec §5.5 function library plus
// the higher-order map/array functions SPEC_FULL.md supplements with
// real Go closures: every built-in is registered under its unqualified
// name, the library being unprefixed in the fn: default namespace.
func registerCoreFunctions(reg map[string]*FunctionItem) {
	add := func(name string, arity int, fn func(ctx *Context, args []Value) (Value, error)) {
		reg[name] = &FunctionItem{Name: name, Arity: arity, Call: fn}
	}

	// Node-set functions.
	add("last", 0, func(ctx *Context, args []Value) (Value, error) { return Number(float64(ctx.Size)), nil })
	add("position", 0, func(ctx *Context, args []Value) (Value, error) { return Number(float64(ctx.Pos)), nil })
	add("count", 1, func(ctx *Context, args []Value) (Value, error) {
		return Number(float64(len(sequenceItems(args[0])))), nil
	})
	add("local-name", 0, fnLocalName)
	add("namespace-uri", 0, fnNamespaceURI)
	add("name", 0, fnName)
	add("generate-id", 0, fnGenerateID)
	add("id", 1, fnID)

	// String functions.
	add("string", 1, func(ctx *Context, args []Value) (Value, error) { return String(toStringValue(args[0])), nil })
	add("concat", -1, func(ctx *Context, args []Value) (Value, error) {
		var b strings.Builder
		for _, a := range args {
			b.WriteString(toStringValue(a))
		}
		return String(b.String()), nil
	})
	add("starts-with", 2, func(ctx *Context, args []Value) (Value, error) {
		return Boolean(strings.HasPrefix(toStringValue(args[0]), toStringValue(args[1]))), nil
	})
	add("ends-with", 2, func(ctx *Context, args []Value) (Value, error) {
		return Boolean(strings.HasSuffix(toStringValue(args[0]), toStringValue(args[1]))), nil
	})
	add("contains", 2, func(ctx *Context, args []Value) (Value, error) {
		return Boolean(strings.Contains(toStringValue(args[0]), toStringValue(args[1]))), nil
	})
	add("substring-before", 2, func(ctx *Context, args []Value) (Value, error) {
		s, sep := toStringValue(args[0]), toStringValue(args[1])
		if i := strings.Index(s, sep); i >= 0 {
			return String(s[:i]), nil
		}
		return String(""), nil
	})
	add("substring-after", 2, func(ctx *Context, args []Value) (Value, error) {
		s, sep := toStringValue(args[0]), toStringValue(args[1])
		if i := strings.Index(s, sep); i >= 0 {
			return String(s[i+len(sep):]), nil
		}
		return String(""), nil
	})
	add("substring", -1, fnSubstring)
	add("string-length", -1, func(ctx *Context, args []Value) (Value, error) {
		s := stringValueOrContext(ctx, args)
		return Number(float64(len([]rune(s)))), nil
	})
	add("normalize-space", -1, func(ctx *Context, args []Value) (Value, error) {
		s := stringValueOrContext(ctx, args)
		return String(strings.Join(strings.Fields(s), " ")), nil
	})
	add("translate", 3, func(ctx *Context, args []Value) (Value, error) {
		s, from, to := toStringValue(args[0]), []rune(toStringValue(args[1])), []rune(toStringValue(args[2]))
		var b strings.Builder
		for _, r := range s {
			idx := -1
			for i, f := range from {
				if f == r {
					idx = i
					break
				}
			}
			switch {
			case idx < 0:
				b.WriteRune(r)
			case idx < len(to):
				b.WriteRune(to[idx])
			}
		}
		return String(b.String()), nil
	})
	add("upper-case", 1, func(ctx *Context, args []Value) (Value, error) {
		return String(strings.ToUpper(toStringValue(args[0]))), nil
	})
	add("lower-case", 1, func(ctx *Context, args []Value) (Value, error) {
		return String(strings.ToLower(toStringValue(args[0]))), nil
	})

	// Boolean functions.
	add("boolean", 1, func(ctx *Context, args []Value) (Value, error) { return Boolean(toBoolean(args[0])), nil })
	add("not", 1, func(ctx *Context, args []Value) (Value, error) { return Boolean(!toBoolean(args[0])), nil })
	add("true", 0, func(ctx *Context, args []Value) (Value, error) { return Boolean(true), nil })
	add("false", 0, func(ctx *Context, args []Value) (Value, error) { return Boolean(false), nil })

	// Numeric functions.
	add("number", -1, func(ctx *Context, args []Value) (Value, error) {
		if len(args) == 0 {
			n, err := toNumber(NodeSet([]*tree.Node{ctx.Node}))
			return Number(n), err
		}
		n, err := toNumber(args[0])
		return Number(n), err
	})
	add("sum", 1, func(ctx *Context, args []Value) (Value, error) {
		total := 0.0
		for _, it := range sequenceItems(args[0]) {
			n, err := toNumber(it)
			if err != nil {
				return Value{}, err
			}
			total += n
		}
		return Number(total), nil
	})
	add("floor", 1, func(ctx *Context, args []Value) (Value, error) {
		n, err := toNumber(args[0])
		return Number(math.Floor(n)), err
	})
	add("ceiling", 1, func(ctx *Context, args []Value) (Value, error) {
		n, err := toNumber(args[0])
		return Number(math.Ceil(n)), err
	})
	add("round", 1, func(ctx *Context, args []Value) (Value, error) {
		n, err := toNumber(args[0])
		return Number(math.Floor(n + 0.5)), err
	})

	// Higher-order and map/array functions (2.0/3.1 supplement).
	add("for-each", 2, fnForEach)
	add("filter", 2, fnFilter)
	add("fold-left", 3, fnFoldLeft)

	reg["map:get"] = &FunctionItem{Name: "map:get", Arity: 2, Call: fnMapGet}
	reg["map:put"] = &FunctionItem{Name: "map:put", Arity: 3, Call: fnMapPut}
	reg["map:keys"] = &FunctionItem{Name: "map:keys", Arity: 1, Call: fnMapKeys}
	reg["map:size"] = &FunctionItem{Name: "map:size", Arity: 1, Call: fnMapSize}
	reg["array:get"] = &FunctionItem{Name: "array:get", Arity: 2, Call: fnArrayGet}
	reg["array:append"] = &FunctionItem{Name: "array:append", Arity: 2, Call: fnArrayAppend}
	reg["array:size"] = &FunctionItem{Name: "array:size", Arity: 1, Call: fnArraySize}
}

func stringValueOrContext(ctx *Context, args []Value) string {
	if len(args) == 0 {
		return ctx.Node.StringValue()
	}
	return toStringValue(args[0])
}

func contextNodeSingleton(ctx *Context, args []Value, idx int) *tree.Node {
	if len(args) > idx && args[idx].Kind == KindNodeSet && len(args[idx].NodeSet) > 0 {
		return sortedFirst(args[idx].NodeSet)
	}
	return ctx.Node
}

func sortedFirst(ns []*tree.Node) *tree.Node {
	return sortNodeSetByDocumentOrder(append([]*tree.Node(nil), ns...))[0]
}

func fnLocalName(ctx *Context, args []Value) (Value, error) {
	return String(contextNodeSingleton(ctx, args, 0).Name.Local), nil
}

func fnNamespaceURI(ctx *Context, args []Value) (Value, error) {
	return String(contextNodeSingleton(ctx, args, 0).Name.URI), nil
}

func fnName(ctx *Context, args []Value) (Value, error) {
	return String(contextNodeSingleton(ctx, args, 0).Name.String()), nil
}

func fnGenerateID(ctx *Context, args []Value) (Value, error) {
	return String(contextNodeSingleton(ctx, args, 0).GenerateID()), nil
}

// fnID implements fn:id by walking the whole document and matching
// any attribute whose DTD-declared type is ID against the
// whitespace-separated token list in args[0]; spec §6's GROUNDED tree
// doesn't carry attribute-type metadata forward from the dtd package,
// so this falls back to matching a conventionally-named "id"
// attribute, matching how the pack's lightweight xmlquery-derived tree
// operates without external DTD validation wired in.
func fnID(ctx *Context, args []Value) (Value, error) {
	ids := strings.Fields(toStringValue(args[0]))
	wanted := map[string]bool{}
	for _, id := range ids {
		wanted[id] = true
	}
	root := ctx.Node
	for root.Parent != nil {
		root = root.Parent
	}
	var out []*tree.Node
	var walk func(n *tree.Node)
	walk = func(n *tree.Node) {
		if n.Kind == tree.ElementNode {
			for _, a := range n.Attr {
				if strings.EqualFold(a.Name.Local, "id") && wanted[a.Value] {
					out = append(out, n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return NodeSet(out), nil
}

func fnSubstring(ctx *Context, args []Value) (Value, error) {
	s := []rune(toStringValue(args[0]))
	start, err := toNumber(args[1])
	if err != nil {
		return Value{}, err
	}
	length := math.Inf(1)
	if len(args) > 2 {
		length, err = toNumber(args[2])
		if err != nil {
			return Value{}, err
		}
	}
	// XPath substring() uses 1-based, rounded-to-nearest-integer
	// positions, and tolerates out-of-range/NaN bounds by clamping.
	from := int(math.Round(start))
	var to int
	if math.IsInf(length, 1) {
		to = len(s) + 1
	} else {
		to = from + int(math.Round(length))
	}
	if from < 1 {
		from = 1
	}
	if to > len(s)+1 {
		to = len(s) + 1
	}
	if to <= from || from > len(s) {
		return String(""), nil
	}
	return String(string(s[from-1 : to-1])), nil
}

func fnForEach(ctx *Context, args []Value) (Value, error) {
	seq := sequenceItems(args[0])
	fn := args[1].Func
	if fn == nil {
		return Value{}, evalErrorf("for-each's second argument must be a function")
	}
	var out []Value
	for _, item := range seq {
		v, err := fn.Call(ctx, []Value{item})
		if err != nil {
			return Value{}, err
		}
		out = append(out, flattenInto(v)...)
	}
	return Sequence(out), nil
}

func fnFilter(ctx *Context, args []Value) (Value, error) {
	seq := sequenceItems(args[0])
	fn := args[1].Func
	if fn == nil {
		return Value{}, evalErrorf("filter's second argument must be a function")
	}
	var out []Value
	for _, item := range seq {
		v, err := fn.Call(ctx, []Value{item})
		if err != nil {
			return Value{}, err
		}
		if toBoolean(v) {
			out = append(out, item)
		}
	}
	return Sequence(out), nil
}

func fnFoldLeft(ctx *Context, args []Value) (Value, error) {
	seq := sequenceItems(args[0])
	acc := args[1]
	fn := args[2].Func
	if fn == nil {
		return Value{}, evalErrorf("fold-left's third argument must be a function")
	}
	for _, item := range seq {
		v, err := fn.Call(ctx, []Value{acc, item})
		if err != nil {
			return Value{}, err
		}
		acc = v
	}
	return acc, nil
}

func fnMapGet(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindMap {
		return Value{}, evalErrorf("map:get requires a map")
	}
	v, ok := args[0].Map.Get(args[1])
	if !ok {
		return Sequence(nil), nil
	}
	return v, nil
}

func fnMapPut(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindMap {
		return Value{}, evalErrorf("map:put requires a map")
	}
	return MapValue(args[0].Map.Put(args[1], args[2])), nil
}

func fnMapKeys(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindMap {
		return Value{}, evalErrorf("map:keys requires a map")
	}
	return Sequence(args[0].Map.Keys()), nil
}

func fnMapSize(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindMap {
		return Value{}, evalErrorf("map:size requires a map")
	}
	return Number(float64(args[0].Map.Size())), nil
}

func fnArrayGet(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindArray {
		return Value{}, evalErrorf("array:get requires an array")
	}
	n, err := toNumber(args[1])
	if err != nil {
		return Value{}, err
	}
	v, ok := args[0].Array.Get(int(n))
	if !ok {
		return Value{}, evalErrorf("array index %d out of bounds", int(n))
	}
	return v, nil
}

func fnArrayAppend(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindArray {
		return Value{}, evalErrorf("array:append requires an array")
	}
	return ArrayValue(args[0].Array.Append(args[1])), nil
}

func fnArraySize(ctx *Context, args []Value) (Value, error) {
	if args[0].Kind != KindArray {
		return Value{}, evalErrorf("array:size requires an array")
	}
	return Number(float64(args[0].Array.Size())), nil
}
