// Package signals derives boolean buy/sell columns from an indicator table
// and folds them into a consensus.
package signals

import (
	"math"
	"strings"

	"TradeDash/internal/services/indicators"
)

// Signal column names.
const (
	ColSMABuy     = "sma_buy_signal"
	ColSMASell    = "sma_sell_signal"
	ColRSIBuy     = "rsi_buy_signal"
	ColRSISell    = "rsi_sell_signal"
	ColMACDBuy    = "macd_buy_signal"
	ColMACDSell   = "macd_sell_signal"
	ColBBBuy      = "bb_buy_signal"
	ColBBSell     = "bb_sell_signal"
	ColStochBuy   = "stoch_buy_signal"
	ColStochSell  = "stoch_sell_signal"
	ColStrongBuy  = "strong_buy_signal"
	ColStrongSell = "strong_sell_signal"
	ColBuyCount   = "buy_signal_count"
	ColSellCount  = "sell_signal_count"
)

const (
	buySuffix         = "buy_signal"
	sellSuffix        = "sell_signal"
	strongConsensusAt = 2
)

// Params holds strategy thresholds.
type Params struct {
	SMAShort        int
	SMALong         int
	RSIOversold     float64
	RSIOverbought   float64
	StochOversold   float64
	StochOverbought float64
}

// DefaultParams returns 20/50 SMA, 30/70 RSI and 20/80 stochastic levels.
func DefaultParams() Params {
	return Params{
		SMAShort:        20,
		SMALong:         50,
		RSIOversold:     30,
		RSIOverbought:   70,
		StochOversold:   20,
		StochOverbought: 80,
	}
}

// SMACrossover flags sma_<short> crossing sma_<long>.
func SMACrossover(t indicators.Table, short, long int) (indicators.Table, error) {
	s, err := t.Float(indicators.SMAColumn(short))
	if err != nil {
		return indicators.Table{}, err
	}
	l, err := t.Float(indicators.SMAColumn(long))
	if err != nil {
		return indicators.Table{}, err
	}
	return withPair(t, ColSMABuy, CrossAbove(s, l), ColSMASell, CrossBelow(s, l))
}

// RSIThreshold flags rsi falling into oversold or rising into overbought.
func RSIThreshold(t indicators.Table, oversold, overbought float64) (indicators.Table, error) {
	rsi, err := t.Float(indicators.ColRSI)
	if err != nil {
		return indicators.Table{}, err
	}
	return withPair(t, ColRSIBuy, fallsTo(rsi, oversold), ColRSISell, risesTo(rsi, overbought))
}

// MACDCrossover flags macd crossing macd_signal.
func MACDCrossover(t indicators.Table) (indicators.Table, error) {
	macd, err := t.Float(indicators.ColMACD)
	if err != nil {
		return indicators.Table{}, err
	}
	sig, err := t.Float(indicators.ColMACDSignal)
	if err != nil {
		return indicators.Table{}, err
	}
	return withPair(t, ColMACDBuy, CrossAbove(macd, sig), ColMACDSell, CrossBelow(macd, sig))
}

// BollingerBand is a state rule: close outside the lower or upper band.
func BollingerBand(t indicators.Table) (indicators.Table, error) {
	closes, err := t.Float(indicators.ColClose)
	if err != nil {
		return indicators.Table{}, err
	}
	lower, err := t.Float(indicators.ColLowerBand)
	if err != nil {
		return indicators.Table{}, err
	}
	upper, err := t.Float(indicators.ColUpperBand)
	if err != nil {
		return indicators.Table{}, err
	}
	buy := make([]bool, len(closes))
	sell := make([]bool, len(closes))
	for i, c := range closes {
		buy[i] = c < lower[i]
		sell[i] = c > upper[i]
	}
	return withPair(t, ColBBBuy, buy, ColBBSell, sell)
}

// StochasticCross flags %K crossing %D while %K sits in an extreme zone.
func StochasticCross(t indicators.Table, oversold, overbought float64) (indicators.Table, error) {
	k, err := t.Float(indicators.ColPercentK)
	if err != nil {
		return indicators.Table{}, err
	}
	d, err := t.Float(indicators.ColPercentD)
	if err != nil {
		return indicators.Table{}, err
	}
	buy := CrossAbove(k, d)
	sell := CrossBelow(k, d)
	for i := range k {
		buy[i] = buy[i] && k[i] < oversold
		sell[i] = sell[i] && k[i] > overbought
	}
	return withPair(t, ColStochBuy, buy, ColStochSell, sell)
}

// Combine counts active buy and sell columns per row and derives the
// strong consensus columns.
func Combine(t indicators.Table) (indicators.Table, error) {
	buys, err := floats(t, BuyColumns(t))
	if err != nil {
		return indicators.Table{}, err
	}
	sells, err := floats(t, SellColumns(t))
	if err != nil {
		return indicators.Table{}, err
	}

	n := t.Len()
	buyCount := countActive(buys, n)
	sellCount := countActive(sells, n)
	strongBuy := make([]bool, n)
	strongSell := make([]bool, n)
	for i := 0; i < n; i++ {
		strongBuy[i] = buyCount[i] >= strongConsensusAt && sellCount[i] == 0
		strongSell[i] = sellCount[i] >= strongConsensusAt && buyCount[i] == 0
	}

	out, err := t.WithFloat(ColBuyCount, buyCount)
	if err != nil {
		return indicators.Table{}, err
	}
	if out, err = out.WithFloat(ColSellCount, sellCount); err != nil {
		return indicators.Table{}, err
	}
	return withPair(out, ColStrongBuy, strongBuy, ColStrongSell, strongSell)
}

// Apply runs every strategy and then Combine.
func Apply(t indicators.Table, p Params) (indicators.Table, error) {
	var err error
	if t, err = SMACrossover(t, p.SMAShort, p.SMALong); err != nil {
		return indicators.Table{}, err
	}
	if t, err = RSIThreshold(t, p.RSIOversold, p.RSIOverbought); err != nil {
		return indicators.Table{}, err
	}
	if t, err = MACDCrossover(t); err != nil {
		return indicators.Table{}, err
	}
	if t, err = BollingerBand(t); err != nil {
		return indicators.Table{}, err
	}
	if t, err = StochasticCross(t, p.StochOversold, p.StochOverbought); err != nil {
		return indicators.Table{}, err
	}
	return Combine(t)
}

// BuyColumns lists the per-strategy buy columns present in t.
func BuyColumns(t indicators.Table) []string { return strategyColumns(t, buySuffix, ColStrongBuy) }

// SellColumns lists the per-strategy sell columns present in t.
func SellColumns(t indicators.Table) []string { return strategyColumns(t, sellSuffix, ColStrongSell) }

func strategyColumns(t indicators.Table, suffix, strong string) []string {
	var out []string
	for _, name := range t.Names() {
		if name != strong && strings.HasSuffix(name, suffix) {
			out = append(out, name)
		}
	}
	return out
}

// countActive treats any non-zero, non-NaN value as an active signal.
func countActive(cols [][]float64, n int) []float64 {
	out := make([]float64, n)
	for _, col := range cols {
		for i, v := range col {
			if v != 0 && !math.IsNaN(v) {
				out[i]++
			}
		}
	}
	return out
}

func floats(t indicators.Table, names []string) ([][]float64, error) {
	out := make([][]float64, 0, len(names))
	for _, name := range names {
		vals, err := t.Float(name)
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, nil
}

func withPair(t indicators.Table, buyName string, buy []bool, sellName string, sell []bool) (indicators.Table, error) {
	out, err := t.WithBool(buyName, buy)
	if err != nil {
		return indicators.Table{}, err
	}
	return out.WithBool(sellName, sell)
}
