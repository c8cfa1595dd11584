package classifier

import (
	"math/rand"
	"sort"
)

// Node is one node of a fitted decision tree. Leaves have Left == -1 and
// carry the fraction of positive samples that reached them in Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Samples   int
}

// Tree is a fitted CART classification tree stored as a flat node slice,
// root first
type Tree struct {
	Nodes []Node
}

// predict walks x down to a leaf and returns its positive fraction
func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
}

// treeBuilder grows one tree over a bootstrap sample. importances
// accumulates the weighted Gini decrease per feature.
type treeBuilder struct {
	x           [][]float64
	y           []int
	params      treeParams
	rng         *rand.Rand
	nodes       []Node
	importances []float64
}

func growTree(x [][]float64, y []int, sample []int, params treeParams, rng *rand.Rand) (Tree, []float64) {
	b := &treeBuilder{
		x:           x,
		y:           y,
		params:      params,
		rng:         rng,
		importances: make([]float64, len(x[0])),
	}
	b.build(sample, 0)
	return Tree{Nodes: b.nodes}, b.importances
}

func (b *treeBuilder) build(sample []int, depth int) int {
	pos := 0
	for _, i := range sample {
		pos += b.y[i]
	}
	n := len(sample)

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		Feature: -1,
		Left:    -1,
		Right:   -1,
		Value:   float64(pos) / float64(n),
		Samples: n,
	})

	if pos == 0 || pos == n ||
		n < b.params.minSamplesSplit ||
		(b.params.maxDepth > 0 && depth >= b.params.maxDepth) {
		return idx
	}

	split, ok := b.bestSplit(sample, pos)
	if !ok {
		return idx
	}

	b.importances[split.feature] += split.decrease

	left := make([]int, 0, split.nLeft)
	right := make([]int, 0, n-split.nLeft)
	for _, i := range sample {
		if b.x[i][split.feature] <= split.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	b.nodes[idx].Feature = split.feature
	b.nodes[idx].Threshold = split.threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

type candidateSplit struct {
	feature   int
	threshold float64
	nLeft     int
	decrease  float64
}

// bestSplit searches maxFeatures randomly chosen features for the split with
// the largest weighted Gini decrease. When none of them can split the node,
// it keeps drawing from the remaining features until one does.
func (b *treeBuilder) bestSplit(sample []int, pos int) (candidateSplit, bool) {
	n := len(sample)
	parent := float64(n) * gini(pos, n)

	best := candidateSplit{decrease: 0}
	found := false

	order := make([]int, n)
	for visited, f := range b.rng.Perm(len(b.importances)) {
		if visited >= b.params.maxFeatures && found {
			break
		}
		if b.scanFeature(f, sample, order, pos, parent, &best) {
			found = true
		}
	}
	return best, found
}

// scanFeature tries every threshold of feature f and updates best when one
// beats it
func (b *treeBuilder) scanFeature(f int, sample, order []int, pos int, parent float64, best *candidateSplit) bool {
	n := len(sample)
	copy(order, sample)
	sort.Slice(order, func(a, c int) bool { return b.x[order[a]][f] < b.x[order[c]][f] })

	improved := false
	leftPos := 0
	for k := 0; k < n-1; k++ {
		leftPos += b.y[order[k]]
		nLeft := k + 1
		lo, hi := b.x[order[k]][f], b.x[order[k+1]][f]
		if lo == hi {
			continue
		}
		if nLeft < b.params.minSamplesLeaf || n-nLeft < b.params.minSamplesLeaf {
			continue
		}
		children := float64(nLeft)*gini(leftPos, nLeft) + float64(n-nLeft)*gini(pos-leftPos, n-nLeft)
		decrease := parent - children
		if decrease > best.decrease {
			threshold := lo + (hi-lo)/2
			// Midpoint can round up to hi for adjacent floats
			if threshold >= hi {
				threshold = lo
			}
			*best = candidateSplit{feature: f, threshold: threshold, nLeft: nLeft, decrease: decrease}
			improved = true
		}
	}
	return improved
}

// gini is the Gini impurity of a node with pos positives out of n
func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 2 * p * (1 - p)
}
