package xslt

import (
	"github.com/r2stream/xmlcore/tree"
	"github.com/r2stream/xmlcore/xpath"
)

// accumulatorTable precomputes, in one forward pass per sibling list,
// the values that a naive evaluation of position(), count(preceding-
// sibling::X) or sum(preceding-sibling::X/@Y) would otherwise recompute
// by walking the reverse axis from scratch for every node — turning an
// O(n) walk per call (O(n^2) over a full apply-templates pass) into a
// single O(n) pass recorded once per parent, consulted in O(1)
// thereafter. This is the automatic internal-accumulator rewrite of
// spec §4.6.
type accumulatorTable struct {
	position     map[*tree.Node]int
	countBefore  map[*tree.Node]map[string]int
	sumBefore    map[*tree.Node]map[string]float64
	prepared     map[*tree.Node]bool // parents already walked
}

func newAccumulatorTable() *accumulatorTable {
	return &accumulatorTable{
		position:    map[*tree.Node]int{},
		countBefore: map[*tree.Node]map[string]int{},
		sumBefore:   map[*tree.Node]map[string]float64{},
		prepared:    map[*tree.Node]bool{},
	}
}

// ensureSiblings walks n's parent's children once, recording running
// position/count/sum state for every sibling, if it hasn't already.
func (a *accumulatorTable) ensureSiblings(n *tree.Node, tracer BufferTracer) {
	parent := n.Parent
	if parent == nil || a.prepared[parent] {
		return
	}
	a.prepared[parent] = true
	if tracer != nil {
		tracer("accumulator-pass")
	}
	counts := map[string]int{}
	sums := map[string]float64{}
	pos := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Kind != tree.ElementNode {
			continue
		}
		pos++
		a.position[c] = pos

		snapshotCounts := make(map[string]int, len(counts))
		for k, v := range counts {
			snapshotCounts[k] = v
		}
		a.countBefore[c] = snapshotCounts

		snapshotSums := make(map[string]float64, len(sums))
		for k, v := range sums {
			snapshotSums[k] = v
		}
		a.sumBefore[c] = snapshotSums

		counts[c.Name.Local]++
		for _, attrNode := range c.Attr {
			sums[c.Name.Local+"@"+attrNode.Name.Local] += xpath.NumberFromString(attrNode.Value)
		}
	}
}

// Position returns n's 1-based position among its element siblings.
func (a *accumulatorTable) Position(n *tree.Node, tracer BufferTracer) int {
	a.ensureSiblings(n, tracer)
	return a.position[n]
}

// CountPreceding returns the number of preceding element siblings of n
// named local.
func (a *accumulatorTable) CountPreceding(n *tree.Node, local string, tracer BufferTracer) int {
	a.ensureSiblings(n, tracer)
	return a.countBefore[n][local]
}

// SumPreceding returns the sum of attr on preceding element siblings of
// n named local.
func (a *accumulatorTable) SumPreceding(n *tree.Node, local, attrLocal string, tracer BufferTracer) float64 {
	a.ensureSiblings(n, tracer)
	return a.sumBefore[n][local+"@"+attrLocal]
}

