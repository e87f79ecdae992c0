package models

// Position is a holding in one brokerage account.
type Position struct {
	AccountID     string  `json:"account_id"`
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	MarketValue   float64 `json:"market_value"`
	AveragePrice  float64 `json:"average_price"`
	CurrentPrice  float64 `json:"current_price"`
	AsOfTimestamp string  `json:"as_of_timestamp"`
}

// CostBasis is quantity times average price.
func (p Position) CostBasis() float64 { return p.Quantity * p.AveragePrice }

// Transaction is one processed brokerage trade.
// NetAmount < 0 is a buy (cash outflow), > 0 a sell.
type Transaction struct {
	AccountID   string  `json:"account_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Symbol      string  `json:"symbol"`
	Quantity    float64 `json:"quantity"`
	Price       float64 `json:"price"`
	TradeDate   string  `json:"trade_date"` // YYYY-MM-DD
	NetAmount   float64 `json:"net_amount"`
}

// IsBuy follows the cash-flow sign convention.
func (t Transaction) IsBuy() bool { return t.NetAmount < 0 }

// LongTermHolding is the quantity of a symbol held longer than a year.
type LongTermHolding struct {
	Symbol           string  `json:"symbol"`
	LongTermQuantity float64 `json:"long_term_quantity"`
	HeldQuantity     float64 `json:"held_quantity"`
}

// PortfolioSummary aggregates all positions.
type PortfolioSummary struct {
	TotalMarketValue float64 `json:"total_market_value"`
	TotalCostBasis   float64 `json:"total_cost_basis"`
	UnrealizedPnL    float64 `json:"unrealized_pnl"`
	PositionCount    int     `json:"position_count"`
	AsOfTimestamp    string  `json:"as_of_timestamp,omitempty"`
}
