package ml

import (
	"math/rand"
	"sort"

	"github.com/rxtech-lab/argo-ml/internal/types"
)

// TreeNode is one node of a fitted tree. Leaves only use Class.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Class     int
	Leaf      bool
}

// DecisionTree is a CART classifier split on gini impurity. Nodes are stored flat with the
// root at index 0.
type DecisionTree struct {
	Nodes      []TreeNode
	NumClasses int
	// MaxDepth of 0 grows until leaves are pure.
	MaxDepth int
	// MaxFeatures of 0 considers every feature at each split.
	MaxFeatures int
	Seed        int64
}

func (t *DecisionTree) Kind() types.ModelKind {
	return types.ModelKindDecisionTree
}

func (t *DecisionTree) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	t.NumClasses = numClasses
	t.Nodes = t.Nodes[:0]

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	rng := rand.New(rand.NewSource(t.Seed))
	t.grow(X, y, idx, 0, rng)

	return nil
}

func (t *DecisionTree) Predict(x []float64) int {
	if len(t.Nodes) == 0 {
		return 0
	}

	node := t.Nodes[0]
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = t.Nodes[node.Left]
		} else {
			node = t.Nodes[node.Right]
		}
	}

	return node.Class
}

func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int, rng *rand.Rand) int {
	counts := make([]int, t.NumClasses)
	for _, i := range idx {
		counts[y[i]]++
	}

	pos := len(t.Nodes)
	t.Nodes = append(t.Nodes, TreeNode{Leaf: true, Class: argmaxInt(counts)})

	if len(idx) < 2 || gini(counts, len(idx)) == 0 || (t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return pos
	}

	feature, threshold, ok := t.bestSplit(X, y, idx, counts, rng)
	if !ok {
		return pos
	}

	var left, right []int

	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := t.grow(X, y, left, depth+1, rng)
	r := t.grow(X, y, right, depth+1, rng)

	t.Nodes[pos] = TreeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      l,
		Right:     r,
		Class:     t.Nodes[pos].Class,
	}

	return pos
}

func (t *DecisionTree) candidates(width int, rng *rand.Rand) []int {
	if t.MaxFeatures <= 0 || t.MaxFeatures >= width {
		features := make([]int, width)
		for i := range features {
			features[i] = i
		}

		return features
	}

	return rng.Perm(width)[:t.MaxFeatures]
}

// bestSplit scans every boundary between distinct sorted values of each candidate feature and
// returns the split with the lowest weighted gini, if it improves on the parent.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int, counts []int, rng *rand.Rand) (int, float64, bool) {
	n := len(idx)
	bestImpurity := gini(counts, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	sorted := make([]int, n)
	left := make([]int, t.NumClasses)
	right := make([]int, t.NumClasses)

	for _, feature := range t.candidates(len(X[idx[0]]), rng) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return X[sorted[a]][feature] < X[sorted[b]][feature]
		})

		for c := range left {
			left[c] = 0
		}

		copy(right, counts)

		for k := 0; k < n-1; k++ {
			class := y[sorted[k]]
			left[class]++
			right[class]--

			lo, hi := X[sorted[k]][feature], X[sorted[k+1]][feature]
			if lo == hi {
				continue
			}

			nl, nr := k+1, n-k-1
			impurity := (float64(nl)*gini(left, nl) + float64(nr)*gini(right, nr)) / float64(n)

			if impurity < bestImpurity-1e-12 {
				threshold := lo + (hi-lo)/2
				if threshold >= hi {
					threshold = lo
				}

				bestImpurity, bestFeature, bestThreshold, found = impurity, feature, threshold, true
			}
		}
	}

	return bestFeature, bestThreshold, found
}

func gini(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}

	impurity := 1.0
	for _, c := range counts {
		p := float64(c) / float64(n)
		impurity -= p * p
	}

	return impurity
}
