package models

import (
	"math"
	"strconv"
)

// NullFloat marshals NaN and infinities as JSON null.
type NullFloat float64

func (f NullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
}

func (f *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = NullFloat(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = NullFloat(v)
	return nil
}

// NullFloats converts a numeric column for JSON output.
func NullFloats(vals []float64) []NullFloat {
	out := make([]NullFloat, len(vals))
	for i, v := range vals {
		out[i] = NullFloat(v)
	}
	return out
}

// SignalMarker places one active signal on the chart.
type SignalMarker struct {
	Date   string    `json:"date"`
	Column string    `json:"column"`
	Side   string    `json:"side"` // buy | sell
	Price  NullFloat `json:"price"`
}

// Snapshot summarizes the latest bar of an analysis.
type Snapshot struct {
	Date      string               `json:"date"`
	Close     NullFloat            `json:"close"`
	Values    map[string]NullFloat `json:"values"`
	Active    []string             `json:"active_signals"`
	BuyCount  int                  `json:"buy_count"`
	SellCount int                  `json:"sell_count"`
	Consensus string               `json:"consensus"` // strong_buy | strong_sell | neutral
}

// AnalysisResult is the chart-ready output of one analysis run.
type AnalysisResult struct {
	Symbol  string                 `json:"symbol"`
	Source  string                 `json:"source,omitempty"`
	Empty   bool                   `json:"empty"`
	Dates   []string               `json:"dates"`
	Columns map[string][]NullFloat `json:"columns"`
	Signals map[string][]bool      `json:"signals"`
	Markers []SignalMarker         `json:"markers"`
	Latest  *Snapshot              `json:"latest,omitempty"`
}

// EmptyAnalysis is the neutral result for a symbol without data.
func EmptyAnalysis(symbol string) *AnalysisResult {
	return &AnalysisResult{
		Symbol:  symbol,
		Empty:   true,
		Dates:   []string{},
		Columns: map[string][]NullFloat{},
		Signals: map[string][]bool{},
		Markers: []SignalMarker{},
	}
}
