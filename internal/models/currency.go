package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a read-only snapshot of one currency pair, refreshed by the
// external rate feed.
type ExchangeRate struct {
	FromCurrency string          `json:"from_currency"`
	ToCurrency   string          `json:"to_currency"`
	Rate         decimal.Decimal `json:"rate"`
	FetchedAt    time.Time       `json:"fetched_at"`
	Stale        bool            `json:"stale"`
}

// IsStale reports staleness either from the persisted flag or from age.
func (r *ExchangeRate) IsStale(now time.Time, maxAge time.Duration) bool {
	return r.Stale || now.Sub(r.FetchedAt) > maxAge
}
