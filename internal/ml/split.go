package ml

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// StratifiedSplit shuffles each class with seed and moves round(n*testFraction) of its rows to
// the test side, leaving at least one training row per class. Both index lists are ascending.
func StratifiedSplit(y []int, numClasses int, testFraction float64, seed int64) (train, test []int) {
	rng := rand.New(rand.NewSource(seed))
	byClass := make([][]int, numClasses)

	for i, class := range y {
		byClass[class] = append(byClass[class], i)
	}

	for _, rows := range byClass {
		if len(rows) == 0 {
			continue
		}

		rng.Shuffle(len(rows), func(a, b int) {
			rows[a], rows[b] = rows[b], rows[a]
		})

		nTest := int(math.Round(float64(len(rows)) * testFraction))
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}

		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}

	sort.Ints(train)
	sort.Ints(test)

	return train, test
}

// TimeOrderedSplit holds out the latest round(n*testFraction) rows by timestamp, keeping at
// least one row on each side when n >= 2.
func TimeOrderedSplit(timestamps []time.Time, testFraction float64) (train, test []int) {
	order := make([]int, len(timestamps))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return timestamps[order[a]].Before(timestamps[order[b]])
	})

	n := len(order)
	nTest := int(math.Round(float64(n) * testFraction))

	if n >= 2 {
		nTest = max(1, min(nTest, n-1))
	}

	train = append([]int{}, order[:n-nTest]...)
	test = append([]int{}, order[n-nTest:]...)

	sort.Ints(train)
	sort.Ints(test)

	return train, test
}
