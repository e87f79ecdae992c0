package marketdata

import (
	"fmt"
	"io"
	"sort"
	"time"

	"TradeDash/internal/domain/models"
	"TradeDash/pkg/util"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

const colTimestamp = "timestamp"

// readBarsCSV parses a timestamp,open,high,low,close[,volume] CSV. open/high/low
// fall back to close when absent. The result is ascending with unique dates.
func readBarsCSV(r io.Reader) ([]models.Bar, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.WithTypes(map[string]series.Type{colTimestamp: series.String}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse csv: %w", df.Err)
	}
	if !hasCol(df, colTimestamp) || !hasCol(df, "close") {
		return nil, fmt.Errorf("csv missing timestamp or close column")
	}

	stamps := df.Col(colTimestamp).Records()
	closes := df.Col("close").Float()
	opens := floatOr(df, "open", closes)
	highs := floatOr(df, "high", closes)
	lows := floatOr(df, "low", closes)
	volumes := floatOr(df, "volume", make([]float64, len(closes)))

	bars := make([]models.Bar, 0, len(stamps))
	for i, s := range stamps {
		d, ok := util.ParseTradeDate(s)
		if !ok {
			return nil, fmt.Errorf("row %d: bad timestamp %q", i+1, s)
		}
		bars = append(bars, models.Bar{
			Date:   d,
			Open:   opens[i],
			High:   highs[i],
			Low:    lows[i],
			Close:  closes[i],
			Volume: volumes[i],
		})
	}
	return normalize(bars), nil
}

// writeBarsCSV renders bars with the cache header.
func writeBarsCSV(w io.Writer, bars []models.Bar) error {
	n := len(bars)
	stamps := make([]string, n)
	open, high, low, closes, volume := make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	for i, b := range bars {
		stamps[i] = util.FormatDate(b.Date)
		open[i], high[i], low[i], closes[i], volume[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	df := dataframe.New(
		series.New(stamps, series.String, colTimestamp),
		series.New(open, series.Float, "open"),
		series.New(high, series.Float, "high"),
		series.New(low, series.Float, "low"),
		series.New(closes, series.Float, "close"),
		series.New(volume, series.Float, "volume"),
	)
	if df.Err != nil {
		return df.Err
	}
	return df.WriteCSV(w)
}

// normalize sorts ascending and keeps the last bar seen for a repeated date.
func normalize(bars []models.Bar) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func hasCol(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func floatOr(df dataframe.DataFrame, name string, fallback []float64) []float64 {
	if !hasCol(df, name) {
		return fallback
	}
	return df.Col(name).Float()
}

func dayFromUnix(sec int64) time.Time {
	return util.Day(time.Unix(sec, 0).UTC())
}
