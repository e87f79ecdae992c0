package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"TradeDash/internal/domain/models"
	"TradeDash/internal/service/ratelimit"
	apphttp "TradeDash/pkg/http"
)

// AlphaVantageProvider reads TIME_SERIES_DAILY as CSV.
type AlphaVantageProvider struct {
	client  *apphttp.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.Limiter
	perMin  int
}

func NewAlphaVantageProvider(client *apphttp.Client, baseURL, apiKey string, limiter *ratelimit.Limiter, requestsPerMinute int) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: limiter,
		perMin:  requestsPerMinute,
	}
}

func (p *AlphaVantageProvider) Name() string { return "alpha_vantage" }

// Configured reports whether an API key is present.
func (p *AlphaVantageProvider) Configured() bool { return p.apiKey != "" }

func (p *AlphaVantageProvider) DailyBars(ctx context.Context, symbol string) ([]models.Bar, error) {
	if p.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if p.limiter != nil && p.perMin > 0 {
		capacity, refill := ratelimit.PerMinute(p.perMin)
		if !p.limiter.Allow(p.Name(), capacity, refill) {
			return nil, ErrRateLimited
		}
	}

	var body []byte
	err := p.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    p.baseURL,
		QueryParams: map[string][]string{
			"function": {"TIME_SERIES_DAILY"},
			"symbol":   {symbol},
			"apikey":   {p.apiKey},
			"datatype": {"csv"},
		},
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage %s: %w", symbol, err)
	}

	if err := jsonError(body); err != nil {
		return nil, err
	}
	bars, err := readBarsCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("alpha vantage %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	return bars, nil
}

// jsonError detects the JSON payload Alpha Vantage sends instead of CSV on
// errors, throttling notices and unknown symbols. Any JSON object is an error.
func jsonError(body []byte) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil
	}
	for _, key := range []string{"Error Message", "Information", "Note"} {
		if msg, ok := payload[key]; ok {
			return &APIError{Provider: "alpha_vantage", Message: fmt.Sprint(msg)}
		}
	}
	return &APIError{Provider: "alpha_vantage", Message: "unexpected JSON response: " + string(trimmed)}
}
