// Package xpath implements the XPath evaluation engine of spec §5: a
// lexer, a precedence-climbing parser producing an AST, and a tree-
// walking evaluator operating over the GROUNDED node model in the tree
// package. It covers the XPath 1.0 core (the node-set/string/number/
// boolean value lattice, the thirteen axes, the core function library)
// plus the XPath 2.0/3.1-flavored additions the spec calls out:
// sequences of mixed item types, and map/array constructors with real
// Go closures backing their higher-order functions.
package xpath

import (
	"fmt"
	"sort"

	"github.com/r2stream/xmlcore/tree"
)

// Kind identifies which lattice member a Value holds.
type Kind int

const (
	KindNodeSet Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindSequence // ordered, possibly heterogeneous list of items (2.0/3.1)
	KindMap
	KindArray
	KindFunction
)

// Value is a single XPath value: exactly one of the Kind-selected
// fields is meaningful.
type Value struct {
	Kind    Kind
	NodeSet []*tree.Node
	Bool    bool
	Num     float64
	Str     string
	Seq     []Value
	Map     *Map
	Array   *Array
	Func    *FunctionItem
}

// FunctionItem is a first-class function value: either one of the
// built-in library functions (captured as a Go closure) or a user
// partial application produced by xslt:function or function-lookup.
type FunctionItem struct {
	Name  string
	Arity int
	Call  func(ctx *Context, args []Value) (Value, error)
}

// Map is the XPath 3.1 map value: an immutable association from atomic
// keys (compared by their XPath string representation) to values,
// backed by a real Go map so lookups are O(1) rather than the
// OrderedMap linear scan the teacher's map.go uses for its dynamic
// map[string]any reader.
type Map struct {
	keys    []Value
	entries map[string]Value
}

// NewMap returns an empty immutable Map.
func NewMap() *Map { return &Map{entries: map[string]Value{}} }

// Put returns a NEW Map with key bound to val, leaving m unmodified
// (XPath maps are immutable values, not mutable containers).
func (m *Map) Put(key Value, val Value) *Map {
	k := atomicKey(key)
	out := &Map{entries: make(map[string]Value, len(m.entries)+1)}
	for _, existing := range m.keys {
		out.keys = append(out.keys, existing)
	}
	if _, exists := m.entries[k]; !exists {
		out.keys = append(out.keys, key)
	}
	for ek, ev := range m.entries {
		out.entries[ek] = ev
	}
	out.entries[k] = val
	return out
}

// Get returns the value bound to key, if present.
func (m *Map) Get(key Value) (Value, bool) {
	v, ok := m.entries[atomicKey(key)]
	return v, ok
}

// Keys returns the map's keys in insertion order.
func (m *Map) Keys() []Value { return append([]Value(nil), m.keys...) }

// Size returns the number of entries.
func (m *Map) Size() int { return len(m.entries) }

func atomicKey(v Value) string {
	switch v.Kind {
	case KindString:
		return "s:" + v.Str
	case KindNumber:
		return "n:" + fmt.Sprintf("%g", v.Num)
	case KindBoolean:
		return "b:" + fmt.Sprintf("%v", v.Bool)
	default:
		return "?:" + fmt.Sprintf("%v", v)
	}
}

// Array is the XPath 3.1 array value: an immutable, 1-indexed ordered
// list of values (each member an arbitrary Value, possibly itself a
// sequence).
type Array struct {
	members []Value
}

// NewArray returns an Array holding members, in order.
func NewArray(members []Value) *Array {
	return &Array{members: append([]Value(nil), members...)}
}

// Get returns the 1-indexed member at pos.
func (a *Array) Get(pos int) (Value, bool) {
	if pos < 1 || pos > len(a.members) {
		return Value{}, false
	}
	return a.members[pos-1], true
}

// Size returns the number of members.
func (a *Array) Size() int { return len(a.members) }

// Members returns the array's members in order.
func (a *Array) Members() []Value { return append([]Value(nil), a.members...) }

// Append returns a NEW array with val appended.
func (a *Array) Append(val Value) *Array {
	return NewArray(append(append([]Value(nil), a.members...), val))
}

func String(s string) Value   { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value  { return Value{Kind: KindNumber, Num: n} }
func Boolean(b bool) Value    { return Value{Kind: KindBoolean, Bool: b} }
func NodeSet(ns []*tree.Node) Value { return Value{Kind: KindNodeSet, NodeSet: ns} }
func Sequence(items []Value) Value  { return Value{Kind: KindSequence, Seq: items} }
func MapValue(m *Map) Value         { return Value{Kind: KindMap, Map: m} }
func ArrayValue(a *Array) Value     { return Value{Kind: KindArray, Array: a} }

// sortNodeSetByDocumentOrder sorts ns in place, document order per
// spec §5's node-set identity/ordering rule, deduplicating nodes that
// appear more than once (a union can produce duplicates).
func sortNodeSetByDocumentOrder(ns []*tree.Node) []*tree.Node {
	sort.Slice(ns, func(i, j int) bool { return ns[i].DocumentOrder() < ns[j].DocumentOrder() })
	out := ns[:0]
	var prev *tree.Node
	for _, n := range ns {
		if n != prev {
			out = append(out, n)
		}
		prev = n
	}
	return out
}
