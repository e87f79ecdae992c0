package marketdata

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"TradeDash/internal/domain/models"
	apphttp "TradeDash/pkg/http"
)

// YahooProvider reads the v8 chart API.
type YahooProvider struct {
	client    *apphttp.Client
	baseURL   string
	rangeSpec string
	userAgent string
}

func NewYahooProvider(client *apphttp.Client, baseURL, rangeSpec, userAgent string) *YahooProvider {
	return &YahooProvider{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		rangeSpec: rangeSpec,
		userAgent: userAgent,
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (p *YahooProvider) DailyBars(ctx context.Context, symbol string) ([]models.Bar, error) {
	var chart yahooChart
	err := p.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method:  apphttp.MethodGet,
		URL:     p.baseURL + "/" + url.PathEscape(symbol),
		Headers: map[string]string{"User-Agent": p.userAgent},
		QueryParams: map[string][]string{
			"interval": {"1d"},
			"range":    {p.rangeSpec},
		},
	}, &chart)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, &APIError{Provider: "yahoo", Message: e.Code + ": " + e.Description}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	res := chart.Chart.Result[0]
	q := res.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		b := models.Bar{
			Date:   dayFromUnix(ts),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: at(q.Volume, i),
		}
		// null rows show up for halted or not-yet-settled sessions
		if b.Close == 0 && b.Open == 0 && b.High == 0 && b.Low == 0 {
			continue
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return normalize(bars), nil
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}
