package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// The functions in this file operate on plain float series. Every output has the input's
// length and is NaN wherever the window is not yet full or contains a missing value.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}

// maskLeading sets the first n entries to NaN.
func maskLeading(values []float64, n int) []float64 {
	for i := 0; i < n && i < len(values); i++ {
		values[i] = math.NaN()
	}

	return values
}

// rolling applies fn to every full window that holds no NaN.
func rolling(values []float64, window int, fn func([]float64) float64) []float64 {
	out := nanSeries(len(values))
	if window <= 0 {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if hasNaN(w) {
			continue
		}

		out[i] = fn(w)
	}

	return out
}

// SMA is the rolling mean over window.
func SMA(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nanSeries(len(values))
	}

	if hasNaN(values) {
		return rolling(values, window, func(w []float64) float64 { return stat.Mean(w, nil) })
	}

	return maskLeading(talib.Sma(values, window), window-1)
}

// RollingStd is the rolling sample standard deviation (n-1 denominator).
func RollingStd(values []float64, window int) []float64 {
	if window < 2 {
		return nanSeries(len(values))
	}

	return rolling(values, window, func(w []float64) float64 { return stat.StdDev(w, nil) })
}

// RollingMin is the lowest value of each window.
func RollingMin(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nanSeries(len(values))
	}

	if hasNaN(values) {
		return rolling(values, window, floats.Min)
	}

	return maskLeading(talib.Min(values, window), window-1)
}

// RollingMax is the highest value of each window.
func RollingMax(values []float64, window int) []float64 {
	if window <= 0 || len(values) < window {
		return nanSeries(len(values))
	}

	if hasNaN(values) {
		return rolling(values, window, floats.Max)
	}

	return maskLeading(talib.Max(values, window), window-1)
}

// ewm runs e[i] = a*x[i] + (1-a)*e[i-1] with a = 2/(span+1), seeded with the first
// defined value. Missing inputs keep the previous state and yield NaN.
func ewm(values []float64, span int) []float64 {
	out := nanSeries(len(values))
	alpha := 2.0 / (float64(span) + 1.0)
	state := math.NaN()

	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}

		if math.IsNaN(state) {
			state = v
		} else {
			state = alpha*v + (1-alpha)*state
		}

		out[i] = state
	}

	return out
}

// ExponentialMA is the exponential moving average with the given span; the first span-1 entries are NaN.
func ExponentialMA(values []float64, span int) []float64 {
	if span <= 0 {
		return nanSeries(len(values))
	}

	return maskLeading(ewm(values, span), span-1)
}

// Bands returns SMA +/- multiplier * rolling sample std.
func Bands(values []float64, window int, multiplier float64) (upper, lower []float64) {
	mid := SMA(values, window)
	std := RollingStd(values, window)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))

	for i := range values {
		upper[i] = mid[i] + multiplier*std[i]
		lower[i] = mid[i] - multiplier*std[i]
	}

	return upper, lower
}

// MACDLines returns EMA(short) - EMA(long) and the EMA(signal) of that line. The line is
// undefined for the first long-1 rows and the signal for the first long+signal-2 rows.
func MACDLines(values []float64, short, long, signal int) (line, signalLine []float64) {
	fast := ewm(values, short)
	slow := ewm(values, long)
	line = make([]float64, len(values))

	for i := range values {
		line[i] = fast[i] - slow[i]
	}

	signalLine = maskLeading(ewm(line, signal), long+signal-2)
	line = maskLeading(line, long-1)

	return line, signalLine
}

// RelativeStrength averages gains and losses over period with a simple rolling mean.
// A window without losses scores 100.
func RelativeStrength(values []float64, period int) []float64 {
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))

	for i := range values {
		if i == 0 {
			continue
		}

		delta := values[i] - values[i-1]
		switch {
		case math.IsNaN(delta):
			gains[i] = math.NaN()
			losses[i] = math.NaN()
		case delta > 0:
			gains[i] = delta
		default:
			losses[i] = -delta
		}
	}

	avgGain := SMA(gains, period)
	avgLoss := SMA(losses, period)
	out := nanSeries(len(values))

	for i := range values {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}

		if avgLoss[i] == 0 {
			out[i] = 100

			continue
		}

		out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
	}

	return out
}

// StochasticOscillator returns %K over kPeriod and %D, the rolling mean of %K over dPeriod.
// A window whose high equals its low leaves %K undefined.
func StochasticOscillator(high, low, closes []float64, kPeriod, dPeriod int) (k, d []float64) {
	lowest := RollingMin(low, kPeriod)
	highest := RollingMax(high, kPeriod)
	k = nanSeries(len(closes))

	for i := range closes {
		span := highest[i] - lowest[i]
		if math.IsNaN(span) || span == 0 {
			continue
		}

		k[i] = 100 * (closes[i] - lowest[i]) / span
	}

	d = rolling(k, dPeriod, func(w []float64) float64 { return stat.Mean(w, nil) })

	return k, d
}

// VWAP is the running ratio cumsum(close*volume) / cumsum(volume) from the first row.
func VWAP(closes, volumes []float64) []float64 {
	out := nanSeries(len(closes))
	var notional, volume float64

	for i := range closes {
		if math.IsNaN(closes[i]) || math.IsNaN(volumes[i]) {
			continue
		}

		notional += closes[i] * volumes[i]
		volume += volumes[i]

		if volume > 0 {
			out[i] = notional / volume
		}
	}

	return out
}

// TrueRange is max(high-low, |high-prev close|, |low-prev close|); the first row is high-low.
func TrueRange(high, low, closes []float64) []float64 {
	if len(closes) == 0 {
		return nil
	}

	var out []float64
	if hasNaN(high) || hasNaN(low) || hasNaN(closes) {
		out = nanSeries(len(closes))
		for i := 1; i < len(closes); i++ {
			out[i] = math.Max(high[i]-low[i], math.Max(math.Abs(high[i]-closes[i-1]), math.Abs(low[i]-closes[i-1])))
		}
	} else {
		out = talib.TRange(high, low, closes)
	}

	out[0] = high[0] - low[0]

	return out
}

// AverageTrueRange is the rolling mean of the true range.
func AverageTrueRange(high, low, closes []float64, period int) []float64 {
	return SMA(TrueRange(high, low, closes), period)
}
