package models

import "time"

// Bar is one daily OHLCV record.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ascending run of daily bars for one symbol.
type PriceSeries struct {
	Symbol string
	Source string // provider or cache layer that produced the bars
	Bars   []Bar
}

// Empty reports whether there is nothing to compute.
func (s PriceSeries) Empty() bool { return len(s.Bars) == 0 }

// Last returns the most recent bar.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
