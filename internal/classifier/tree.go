package classifier

import (
	"math/rand/v2"
	"sort"
)

// node is either a split (left != nil) or a leaf carrying class probabilities.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	probs     []float64
}

func (n *node) leaf() bool {
	return n.left == nil
}

// tree is a fitted CART classifier; immutable once built.
type tree struct {
	root *node
}

func (t *tree) predict(x []float64) []float64 {
	n := t.root
	for !n.leaf() {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.probs
}

// treeBuilder grows one tree over a bootstrap sample with weighted gini splits.
type treeBuilder struct {
	x           [][]float64
	y           []int
	w           []float64
	nClasses    int
	maxDepth    int
	minSplit    int
	maxFeatures int
	rng         *rand.Rand
	importance  []float64
}

func (b *treeBuilder) build(idx []int) *tree {
	b.importance = make([]float64, len(b.x[0]))
	return &tree{root: b.grow(idx, 0)}
}

func (b *treeBuilder) counts(idx []int) ([]float64, float64) {
	c := make([]float64, b.nClasses)
	var total float64
	for _, i := range idx {
		c[b.y[i]] += b.w[i]
		total += b.w[i]
	}
	return c, total
}

func gini(counts []float64, total float64) float64 {
	if total <= 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}

func leafNode(counts []float64, total float64) *node {
	probs := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			probs[i] = c / total
		}
	}
	return &node{probs: probs}
}

type split struct {
	feature   int
	threshold float64
	impurity  float64 // weighted child impurity
	leftW     float64
	rightW    float64
	leftImp   float64
	rightImp  float64
}

func (b *treeBuilder) grow(idx []int, depth int) *node {
	counts, total := b.counts(idx)
	imp := gini(counts, total)

	if depth >= b.maxDepth || len(idx) < b.minSplit || imp == 0 {
		return leafNode(counts, total)
	}

	best, ok := b.bestSplit(idx, counts, total)
	if !ok || total*imp-best.impurity <= 1e-12 {
		return leafNode(counts, total)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return leafNode(counts, total)
	}

	b.importance[best.feature] += total*imp - best.leftW*best.leftImp - best.rightW*best.rightImp

	return &node{
		feature:   best.feature,
		threshold: best.threshold,
		left:      b.grow(left, depth+1),
		right:     b.grow(right, depth+1),
	}
}

// bestSplit scans a random feature subset. Like CART implementations that
// sample features per node, it keeps drawing past maxFeatures while every
// feature drawn so far was constant on this node.
func (b *treeBuilder) bestSplit(idx []int, counts []float64, total float64) (split, bool) {
	nFeatures := len(b.x[0])
	order := b.rng.Perm(nFeatures)

	best := split{impurity: total * gini(counts, total)}
	found := false
	usable := 0

	sorted := make([]int, len(idx))
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	for _, f := range order {
		if usable >= b.maxFeatures {
			break
		}

		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})
		if b.x[sorted[0]][f] == b.x[sorted[len(sorted)-1]][f] {
			continue
		}
		usable++

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = counts[k]
		}
		var leftW float64

		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			leftCounts[b.y[i]] += b.w[i]
			rightCounts[b.y[i]] -= b.w[i]
			leftW += b.w[i]

			cur, next := b.x[i][f], b.x[sorted[pos+1]][f]
			if cur == next {
				continue
			}

			rightW := total - leftW
			li := gini(leftCounts, leftW)
			ri := gini(rightCounts, rightW)
			weighted := leftW*li + rightW*ri

			if weighted < best.impurity {
				best = split{
					feature:   f,
					threshold: cur + (next-cur)/2,
					impurity:  weighted,
					leftW:     leftW,
					rightW:    rightW,
					leftImp:   li,
					rightImp:  ri,
				}
				found = true
			}
		}
	}

	return best, found
}
