package models

// Requests for dashboard HTTP endpoints. Defined in domain for consistency and reuse.

type AnalysisRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
}

type SignalHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type WatchlistAddRequest struct {
	Symbol string `json:"symbol" form:"symbol" validate:"required,symbol"`
}

type TransactionsRequest struct {
	StartDate string `query:"start_date" json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `query:"end_date" json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	AccountID string `query:"account_id" json:"account_id"`
}

// WatchlistResponse carries the list after a mutation plus the user-facing message.
type WatchlistResponse struct {
	Symbols []string `json:"symbols"`
	Message string   `json:"message"`
}

// SymbolOptions feeds the symbol dropdown.
type SymbolOptions struct {
	Options []string `json:"options"`
	Default string   `json:"default,omitempty"`
}
