package ml

import (
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each feature on its training mean and divides by its population
// standard deviation. Constant features keep a scale of 1.
type StandardScaler struct {
	Mean  []float64
	Scale []float64
}

func (s *StandardScaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}

	d := len(X[0])
	s.Mean = make([]float64, d)
	s.Scale = make([]float64, d)
	column := make([]float64, len(X))

	for j := 0; j < d; j++ {
		for i := range X {
			column[i] = X[i][j]
		}

		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 {
			std = 1
		}

		s.Mean[j] = mean
		s.Scale[j] = std
	}
}

func (s *StandardScaler) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.TransformRow(row)
	}

	return out
}

func (s *StandardScaler) TransformRow(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}

	return out
}
