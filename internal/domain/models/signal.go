package models

import (
	"time"

	"github.com/google/uuid"
)

// Consensus signal names.
const (
	SignalStrongBuy  = "strong_buy"
	SignalStrongSell = "strong_sell"
)

// SignalEvent is a recorded consensus signal on one trading date.
type SignalEvent struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Signal     string    `json:"signal"`
	Close      float64   `json:"close"`
	BuyCount   int       `json:"buy_count"`
	SellCount  int       `json:"sell_count"`
	DetectedAt time.Time `json:"detected_at"`
}

// NewSignalEvent stamps an event with a fresh id.
func NewSignalEvent(symbol string, date time.Time, signal string, close float64, buys, sells int) SignalEvent {
	return SignalEvent{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Date:       date,
		Signal:     signal,
		Close:      close,
		BuyCount:   buys,
		SellCount:  sells,
		DetectedAt: time.Now().UTC(),
	}
}

// Key identifies the event independent of its id.
func (e SignalEvent) Key() string {
	return e.Symbol + "|" + e.Date.Format("2006-01-02") + "|" + e.Signal
}
