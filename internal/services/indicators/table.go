package indicators

import (
	"fmt"
	"sort"
	"time"

	"TradeDash/internal/domain/models"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Price column names.
const (
	ColOpen   = "open"
	ColHigh   = "high"
	ColLow    = "low"
	ColClose  = "close"
	ColVolume = "volume"
)

// Table is a date-indexed, column-addressable price table.
// Every With* method returns a new Table; the receiver is never modified.
type Table struct {
	dates []time.Time
	frame dataframe.DataFrame
}

// NewTable builds a table with open/high/low/close/volume columns from daily bars.
// Bars are expected in ascending date order.
func NewTable(bars []models.Bar) Table {
	n := len(bars)
	dates := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	volume := make([]float64, n)
	for i, b := range bars {
		dates[i] = b.Date
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		volume[i] = b.Volume
	}
	return Table{
		dates: dates,
		frame: dataframe.New(
			series.New(open, series.Float, ColOpen),
			series.New(high, series.Float, ColHigh),
			series.New(low, series.Float, ColLow),
			series.New(closes, series.Float, ColClose),
			series.New(volume, series.Float, ColVolume),
		),
	}
}

// FromColumns builds a table from arbitrary float columns. Columns are added
// in name order so the resulting layout is deterministic.
func FromColumns(dates []time.Time, cols map[string][]float64) (Table, error) {
	names := make([]string, 0, len(cols))
	for name, vals := range cols {
		if len(vals) != len(dates) {
			return Table{}, fmt.Errorf("column %q has %d rows, want %d", name, len(vals), len(dates))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	t := Table{dates: append([]time.Time(nil), dates...)}
	if len(names) == 0 {
		return t, nil
	}
	ss := make([]series.Series, 0, len(names))
	for _, name := range names {
		ss = append(ss, series.New(cols[name], series.Float, name))
	}
	t.frame = dataframe.New(ss...)
	if t.frame.Err != nil {
		return Table{}, fmt.Errorf("build table: %w", t.frame.Err)
	}
	return t, nil
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.dates) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.dates) == 0 }

// Dates returns a copy of the row index.
func (t Table) Dates() []time.Time { return append([]time.Time(nil), t.dates...) }

// Names returns column names in insertion order.
func (t Table) Names() []string {
	if t.frame.Ncol() == 0 {
		return nil
	}
	return t.frame.Names()
}

// Has reports whether a column exists.
func (t Table) Has(name string) bool {
	for _, n := range t.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// IsBool reports whether the named column holds booleans.
func (t Table) IsBool(name string) bool {
	return t.Has(name) && t.frame.Col(name).Type() == series.Bool
}

// Float returns a copy of a numeric column. Boolean columns read as 0/1.
func (t Table) Float(name string) ([]float64, error) {
	if !t.Has(name) {
		return nil, missing(name)
	}
	return t.frame.Col(name).Float(), nil
}

// Bool returns a copy of a boolean column.
func (t Table) Bool(name string) ([]bool, error) {
	if !t.Has(name) {
		return nil, missing(name)
	}
	vals, err := t.frame.Col(name).Bool()
	if err != nil {
		return nil, fmt.Errorf("column %q: %w", name, err)
	}
	return vals, nil
}

// WithFloat returns a new table with the numeric column added or replaced.
func (t Table) WithFloat(name string, vals []float64) (Table, error) {
	return t.with(series.New(vals, series.Float, name))
}

// WithBool returns a new table with the boolean column added or replaced.
func (t Table) WithBool(name string, vals []bool) (Table, error) {
	return t.with(series.New(vals, series.Bool, name))
}

func (t Table) with(s series.Series) (Table, error) {
	if s.Len() != len(t.dates) {
		return Table{}, fmt.Errorf("column %q has %d rows, want %d", s.Name, s.Len(), len(t.dates))
	}
	var frame dataframe.DataFrame
	if t.frame.Ncol() == 0 {
		frame = dataframe.New(s)
	} else {
		frame = t.frame.Mutate(s)
	}
	if frame.Err != nil {
		return Table{}, fmt.Errorf("set column %q: %w", s.Name, frame.Err)
	}
	return Table{dates: t.dates, frame: frame}, nil
}

// Frame exposes the underlying dataframe for read-only consumers.
func (t Table) Frame() dataframe.DataFrame { return t.frame }
