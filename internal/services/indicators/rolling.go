package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// kernel computes a trailing-window statistic over a finite slice and
// returns a same-length slice whose first window-1 entries are ignored.
type kernel func(in []float64, window int) []float64

// rolling applies k over every unbroken run of finite values, so any window
// touching a NaN or an infinity stays NaN.
func rolling(in []float64, window int, k kernel) []float64 {
	out := nans(len(in))
	if window < 1 {
		return out
	}
	start := -1
	flush := func(end int) {
		if start < 0 || end-start < window {
			return
		}
		res := k(in[start:end], window)
		for i := start + window - 1; i < end; i++ {
			out[i] = res[i-start]
		}
	}
	for i, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			flush(i)
			start = -1
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(in))
	return out
}

func rollingMean(in []float64, window int) []float64 {
	return rolling(in, window, func(x []float64, w int) []float64 {
		if w == 1 {
			return x
		}
		return talib.Sma(x, w)
	})
}

func rollingMax(in []float64, window int) []float64 {
	return rolling(in, window, func(x []float64, w int) []float64 {
		if w == 1 {
			return x
		}
		return talib.Max(x, w)
	})
}

func rollingMin(in []float64, window int) []float64 {
	return rolling(in, window, func(x []float64, w int) []float64 {
		if w == 1 {
			return x
		}
		return talib.Min(x, w)
	})
}

// rollingStd is the sample standard deviation (ddof=1). Each window is
// shifted by its first value before the two-pass variance, so a flat window
// is exactly zero and large price levels keep small moves.
func rollingStd(in []float64, window int) []float64 {
	if window < 2 {
		return nans(len(in))
	}
	return rolling(in, window, func(x []float64, w int) []float64 {
		out := make([]float64, len(x))
		dev := make([]float64, w)
		for i := w - 1; i < len(x); i++ {
			win := x[i-w+1 : i+1]
			for j, v := range win {
				dev[j] = v - win[0]
			}
			out[i] = stat.StdDev(dev, nil)
		}
		return out
	})
}

// ewm is an exponentially weighted mean seeded with the first defined value.
// Leading NaNs stay NaN; a NaN after the seed carries the previous value.
func ewm(in []float64, span int) []float64 {
	out := nans(len(in))
	if span < 1 {
		return out
	}
	mult := 2.0 / float64(span+1)
	prev := math.NaN()
	for i, v := range in {
		switch {
		case math.IsNaN(v):
			out[i] = prev
			continue
		case math.IsNaN(prev):
			prev = v
		default:
			prev = (v-prev)*mult + prev
		}
		out[i] = prev
	}
	return out
}

func nans(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
