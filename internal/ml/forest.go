package ml

import (
	"math"
	"math/rand"

	"github.com/rxtech-lab/argo-ml/internal/types"
)

// RandomForest votes over bootstrap-trained trees that each consider sqrt(features) per split.
type RandomForest struct {
	Trees      []DecisionTree
	NumTrees   int
	NumClasses int
	Seed       int64
}

func (f *RandomForest) Kind() types.ModelKind {
	return types.ModelKindRandomForest
}

func (f *RandomForest) Fit(X [][]float64, y []int, numClasses int) error {
	if err := checkFitInput(X, y, numClasses); err != nil {
		return err
	}

	if f.NumTrees <= 0 {
		f.NumTrees = 100
	}

	f.NumClasses = numClasses
	f.Trees = make([]DecisionTree, f.NumTrees)

	rng := rand.New(rand.NewSource(f.Seed))
	maxFeatures := int(math.Max(1, math.Floor(math.Sqrt(float64(len(X[0]))))))

	n := len(X)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)

	for t := range f.Trees {
		for i := 0; i < n; i++ {
			j := rng.Intn(n)
			sampleX[i] = X[j]
			sampleY[i] = y[j]
		}

		f.Trees[t] = DecisionTree{MaxFeatures: maxFeatures, Seed: rng.Int63()}
		if err := f.Trees[t].Fit(sampleX, sampleY, numClasses); err != nil {
			return err
		}
	}

	return nil
}

func (f *RandomForest) Predict(x []float64) int {
	votes := make([]int, max(f.NumClasses, 1))
	for i := range f.Trees {
		votes[f.Trees[i].Predict(x)]++
	}

	return argmaxInt(votes)
}
