package signals

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"TradeDash/internal/services/indicators"
)

func days(n int) []time.Time {
	out := make([]time.Time, n)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func table(t *testing.T, n int, cols map[string][]float64) indicators.Table {
	t.Helper()
	tbl, err := indicators.FromColumns(days(n), cols)
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	return tbl
}

func boolCol(t *testing.T, tbl indicators.Table, name string) []bool {
	t.Helper()
	vals, err := tbl.Bool(name)
	if err != nil {
		t.Fatalf("column %s: %v", name, err)
	}
	return vals
}

func assertFlags(t *testing.T, label string, got, want []bool) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d rows, want %d", label, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d]: got %v, want %v", label, i, got[i], want[i])
		}
	}
}

func TestCross_NaNAndFirstIndex(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name  string
		a, b  []float64
		above []bool
		below []bool
	}{
		{"simple", []float64{1, 1, 3, 3, 1}, []float64{2, 2, 2, 2, 2},
			[]bool{false, false, true, false, false}, []bool{false, false, false, false, true}},
		{"leading nan", []float64{nan, 1, 3}, []float64{2, 2, 2},
			[]bool{false, false, true}, []bool{false, false, false}},
		{"nan in middle", []float64{1, nan, 3}, []float64{2, 2, 2},
			[]bool{false, false, false}, []bool{false, false, false}},
		{"touch is not a cross", []float64{1, 2, 3}, []float64{2, 2, 2},
			[]bool{false, false, false}, []bool{false, false, false}},
		{"already above at index zero", []float64{3}, []float64{2},
			[]bool{false}, []bool{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertFlags(t, "above", CrossAbove(tt.a, tt.b), tt.above)
			assertFlags(t, "below", CrossBelow(tt.a, tt.b), tt.below)
		})
	}
}

func TestSMACrossover(t *testing.T) {
	in := table(t, 5, map[string][]float64{
		"sma_2": {1, 1, 3, 3, 1},
		"sma_3": {2, 2, 2, 2, 2},
	})
	out, err := SMACrossover(in, 2, 3)
	if err != nil {
		t.Fatalf("SMACrossover: %v", err)
	}
	assertFlags(t, ColSMABuy, boolCol(t, out, ColSMABuy), []bool{false, false, true, false, false})
	assertFlags(t, ColSMASell, boolCol(t, out, ColSMASell), []bool{false, false, false, false, true})
	if in.Has(ColSMABuy) {
		t.Fatalf("input table was modified")
	}
}

func TestRSIThreshold_Scenario(t *testing.T) {
	rsi := []float64{50, 40, 35, 25, 28, 32, 60, 75, 72, 65}
	out, err := RSIThreshold(table(t, len(rsi), map[string][]float64{indicators.ColRSI: rsi}), 30, 70)
	if err != nil {
		t.Fatalf("RSIThreshold: %v", err)
	}
	buy := boolCol(t, out, ColRSIBuy)
	sell := boolCol(t, out, ColRSISell)
	for i := range rsi {
		if buy[i] != (i == 3) {
			t.Errorf("buy[%d] = %v", i, buy[i])
		}
		if sell[i] != (i == 7) {
			t.Errorf("sell[%d] = %v", i, sell[i])
		}
	}
}

func TestMACDCrossover(t *testing.T) {
	out, err := MACDCrossover(table(t, 4, map[string][]float64{
		indicators.ColMACD:       {-1, 0.5, 0.2, -0.3},
		indicators.ColMACDSignal: {0, 0, 0.3, 0.1},
	}))
	if err != nil {
		t.Fatalf("MACDCrossover: %v", err)
	}
	assertFlags(t, ColMACDBuy, boolCol(t, out, ColMACDBuy), []bool{false, true, false, false})
	assertFlags(t, ColMACDSell, boolCol(t, out, ColMACDSell), []bool{false, false, true, false})
}

func TestBollingerBand_IsStateRule(t *testing.T) {
	nan := math.NaN()
	out, err := BollingerBand(table(t, 5, map[string][]float64{
		indicators.ColClose:     {10, 8, 7, 13, 12},
		indicators.ColLowerBand: {nan, 9, 9, 9, 9},
		indicators.ColUpperBand: {nan, 11, 11, 11, 11},
	}))
	if err != nil {
		t.Fatalf("BollingerBand: %v", err)
	}
	assertFlags(t, ColBBBuy, boolCol(t, out, ColBBBuy), []bool{false, true, true, false, false})
	assertFlags(t, ColBBSell, boolCol(t, out, ColBBSell), []bool{false, false, false, true, true})
}

func TestStochasticCross_RequiresZone(t *testing.T) {
	out, err := StochasticCross(table(t, 5, map[string][]float64{
		indicators.ColPercentK: {10, 15, 90, 85, 50},
		indicators.ColPercentD: {12, 12, 85, 88, 40},
	}), 20, 80)
	if err != nil {
		t.Fatalf("StochasticCross: %v", err)
	}
	assertFlags(t, ColStochBuy, boolCol(t, out, ColStochBuy), []bool{false, true, false, false, false})
	assertFlags(t, ColStochSell, boolCol(t, out, ColStochSell), []bool{false, false, false, true, false})
}

func TestCombine_Consensus(t *testing.T) {
	in := table(t, 4, map[string][]float64{indicators.ColClose: {1, 2, 3, 4}})
	var err error
	for name, vals := range map[string][]bool{
		ColSMABuy:   {true, true, false, true},
		ColRSIBuy:   {true, false, false, true},
		ColMACDSell: {false, false, true, true},
		ColBBSell:   {false, false, true, false},
	} {
		if in, err = in.WithBool(name, vals); err != nil {
			t.Fatalf("WithBool(%s): %v", name, err)
		}
	}

	out, err := Combine(in)
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	buys, _ := out.Float(ColBuyCount)
	sells, _ := out.Float(ColSellCount)
	wantBuys := []float64{2, 1, 0, 2}
	wantSells := []float64{0, 0, 2, 1}
	for i := range wantBuys {
		if buys[i] != wantBuys[i] || sells[i] != wantSells[i] {
			t.Errorf("row %d: counts (%v,%v), want (%v,%v)", i, buys[i], sells[i], wantBuys[i], wantSells[i])
		}
	}
	assertFlags(t, ColStrongBuy, boolCol(t, out, ColStrongBuy), []bool{true, false, false, false})
	assertFlags(t, ColStrongSell, boolCol(t, out, ColStrongSell), []bool{false, false, true, false})

	again, err := Combine(out)
	if err != nil {
		t.Fatalf("Combine twice: %v", err)
	}
	rebuys, _ := again.Float(ColBuyCount)
	for i := range wantBuys {
		if rebuys[i] != wantBuys[i] {
			t.Errorf("strong columns were counted: row %d got %v", i, rebuys[i])
		}
	}
}

func TestStrategies_MissingColumn(t *testing.T) {
	in := table(t, 3, map[string][]float64{indicators.ColClose: {1, 2, 3}})
	ops := map[string]func(indicators.Table) (indicators.Table, error){
		"sma":   func(t indicators.Table) (indicators.Table, error) { return SMACrossover(t, 20, 50) },
		"rsi":   func(t indicators.Table) (indicators.Table, error) { return RSIThreshold(t, 30, 70) },
		"macd":  MACDCrossover,
		"bb":    BollingerBand,
		"stoch": func(t indicators.Table) (indicators.Table, error) { return StochasticCross(t, 20, 80) },
	}
	for name, op := range ops {
		if _, err := op(in); !errors.Is(err, indicators.ErrMissingColumn) {
			t.Errorf("%s: expected ErrMissingColumn, got %v", name, err)
		}
	}
}

func TestApply_FullPipeline(t *testing.T) {
	n := 200
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 15*math.Sin(float64(i)/9) + float64(i)*0.05
		highs[i] = closes[i] + 1
		lows[i] = closes[i] - 1
	}
	in := table(t, n, map[string][]float64{
		indicators.ColClose: closes,
		indicators.ColHigh:  highs,
		indicators.ColLow:   lows,
	})
	enriched, err := indicators.Apply(in, indicators.DefaultParams())
	if err != nil {
		t.Fatalf("indicators.Apply: %v", err)
	}
	out, err := Apply(enriched, DefaultParams())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if got := len(BuyColumns(out)); got != 5 {
		t.Fatalf("buy columns = %d, want 5", got)
	}
	if got := len(SellColumns(out)); got != 5 {
		t.Fatalf("sell columns = %d, want 5", got)
	}

	buys, _ := out.Float(ColBuyCount)
	sells, _ := out.Float(ColSellCount)
	strongBuy := boolCol(t, out, ColStrongBuy)
	strongSell := boolCol(t, out, ColStrongSell)
	crosses := 0
	for i := 0; i < n; i++ {
		if strongBuy[i] != (buys[i] >= 2 && sells[i] == 0) {
			t.Errorf("strong_buy[%d] inconsistent with counts (%v,%v)", i, buys[i], sells[i])
		}
		if strongSell[i] != (sells[i] >= 2 && buys[i] == 0) {
			t.Errorf("strong_sell[%d] inconsistent with counts (%v,%v)", i, buys[i], sells[i])
		}
		if strongBuy[i] && strongSell[i] {
			t.Errorf("row %d is both strong buy and strong sell", i)
		}
		crosses += int(buys[i] + sells[i])
	}
	if crosses == 0 {
		t.Fatalf("expected an oscillating series to produce signals")
	}
}

// randomWalk returns n closes; withGaps turns about one bar in twenty into NaN.
func randomWalk(r *rand.Rand, n int, withGaps bool) []float64 {
	out := make([]float64, n)
	price := 50 + r.Float64()*100
	for i := range out {
		price += r.NormFloat64() * 2
		out[i] = price
		if withGaps && r.Intn(20) == 0 {
			out[i] = math.NaN()
		}
	}
	return out
}

func TestCross_NeverBothDirections(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for run := 0; run < 200; run++ {
		n := 2 + r.Intn(120)
		a := randomWalk(r, n, true)
		b := randomWalk(r, n, true)
		if run%10 == 0 {
			copy(b, a)
		}
		above := CrossAbove(a, b)
		below := CrossBelow(a, b)
		if above[0] || below[0] {
			t.Fatalf("run %d: index 0 flagged", run)
		}
		for i := range above {
			if above[i] && below[i] {
				t.Fatalf("run %d row %d: cross above and below at once (a=%v b=%v)", run, i, a[i], b[i])
			}
		}
	}
}

func TestApply_StrongSignalsMutuallyExclusive(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for run := 0; run < 25; run++ {
		n := 60 + r.Intn(240)
		closes := randomWalk(r, n, false)
		highs := make([]float64, n)
		lows := make([]float64, n)
		for i, c := range closes {
			spread := r.Float64() * 3
			highs[i] = c + spread
			lows[i] = c - spread
		}
		in := table(t, n, map[string][]float64{
			indicators.ColClose: closes,
			indicators.ColHigh:  highs,
			indicators.ColLow:   lows,
		})
		enriched, err := indicators.Apply(in, indicators.DefaultParams())
		if err != nil {
			t.Fatalf("indicators.Apply: %v", err)
		}
		out, err := Apply(enriched, DefaultParams())
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		strongBuy := boolCol(t, out, ColStrongBuy)
		strongSell := boolCol(t, out, ColStrongSell)
		for i := range strongBuy {
			if strongBuy[i] && strongSell[i] {
				t.Fatalf("run %d row %d is both strong buy and strong sell", run, i)
			}
		}
	}
}
