// Package indicators computes technical indicator columns over a price Table.
//
// Every function returns a new Table carrying the added columns. Windows that
// lack history are left as NaN; zero denominators follow IEEE semantics, so a
// loss-free RSI window reads 100 and a flat stochastic range reads NaN.
package indicators

import (
	"fmt"
	"math"
)

// Output column names.
const (
	ColRSI           = "rsi"
	ColMACD          = "macd"
	ColMACDSignal    = "macd_signal"
	ColMACDHistogram = "macd_histogram"
	ColUpperBand     = "upper_band"
	ColMiddleBand    = "middle_band"
	ColLowerBand     = "lower_band"
	ColPercentK      = "%K"
	ColPercentD      = "%D"
)

// SMAColumn names the simple moving average column for a window.
func SMAColumn(window int) string { return fmt.Sprintf("sma_%d", window) }

// EMAColumn names the exponential moving average column for a window.
func EMAColumn(window int) string { return fmt.Sprintf("ema_%d", window) }

// SMA adds sma_<window>, the trailing mean of close.
func SMA(t Table, window int) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	return t.WithFloat(SMAColumn(window), rollingMean(closes, window))
}

// EMA adds ema_<window> with multiplier 2/(window+1), seeded by the first close.
func EMA(t Table, window int) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	return t.WithFloat(EMAColumn(window), ewm(closes, window))
}

// RSI adds rsi from the rolling mean gain and loss of close-to-close deltas.
// The first bar has no prior close and contributes a zero delta.
func RSI(t Table, window int) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		switch {
		case math.IsNaN(d):
			gains[i], losses[i] = math.NaN(), math.NaN()
		case d > 0:
			gains[i] = d
		case d < 0:
			losses[i] = -d
		}
	}
	avgGain := rollingMean(gains, window)
	avgLoss := rollingMean(losses, window)

	rsi := make([]float64, n)
	for i := range rsi {
		rs := avgGain[i] / avgLoss[i]
		rsi[i] = 100 - 100/(1+rs)
	}
	return t.WithFloat(ColRSI, rsi)
}

// MACD adds macd, macd_signal and macd_histogram.
func MACD(t Table, fast, slow, signal int) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	emaFast := ewm(closes, fast)
	emaSlow := ewm(closes, slow)
	macd := make([]float64, len(closes))
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	sig := ewm(macd, signal)
	hist := make([]float64, len(macd))
	for i := range hist {
		hist[i] = macd[i] - sig[i]
	}

	out, err := t.WithFloat(ColMACD, macd)
	if err != nil {
		return Table{}, err
	}
	if out, err = out.WithFloat(ColMACDSignal, sig); err != nil {
		return Table{}, err
	}
	return out.WithFloat(ColMACDHistogram, hist)
}

// Bollinger adds upper_band, middle_band and lower_band at k sample
// standard deviations around the window mean.
func Bollinger(t Table, window int, k float64) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	middle := rollingMean(closes, window)
	std := rollingStd(closes, window)
	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = middle[i] + k*std[i]
		lower[i] = middle[i] - k*std[i]
	}

	out, err := t.WithFloat(ColUpperBand, upper)
	if err != nil {
		return Table{}, err
	}
	if out, err = out.WithFloat(ColMiddleBand, middle); err != nil {
		return Table{}, err
	}
	return out.WithFloat(ColLowerBand, lower)
}

// Stochastic adds %K over kWindow bars of high/low and %D, its dWindow mean.
func Stochastic(t Table, kWindow, dWindow int) (Table, error) {
	closes, err := t.Float(ColClose)
	if err != nil {
		return Table{}, err
	}
	highs, err := t.Float(ColHigh)
	if err != nil {
		return Table{}, err
	}
	lows, err := t.Float(ColLow)
	if err != nil {
		return Table{}, err
	}
	lowest := rollingMin(lows, kWindow)
	highest := rollingMax(highs, kWindow)
	pctK := make([]float64, len(closes))
	for i := range closes {
		pctK[i] = (closes[i] - lowest[i]) / (highest[i] - lowest[i]) * 100
	}
	pctD := rollingMean(pctK, dWindow)

	out, err := t.WithFloat(ColPercentK, pctK)
	if err != nil {
		return Table{}, err
	}
	return out.WithFloat(ColPercentD, pctD)
}
