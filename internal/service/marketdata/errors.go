package marketdata

import "errors"

var (
	// ErrUpstreamUnavailable means no provider in the chain produced data.
	ErrUpstreamUnavailable = errors.New("marketdata: no provider returned data")
	// ErrRateLimited means the local request budget for a provider is spent.
	ErrRateLimited = errors.New("marketdata: rate limited")
	// ErrNoData means a provider answered but had no bars for the symbol.
	ErrNoData = errors.New("marketdata: empty series")
	// ErrNotConfigured means a provider is missing its API key.
	ErrNotConfigured = errors.New("marketdata: provider not configured")
)

// APIError carries an error payload returned in place of data.
type APIError struct {
	Provider string
	Message  string
}

func (e *APIError) Error() string { return e.Provider + ": " + e.Message }
