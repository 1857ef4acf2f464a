package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one trading day's OHLCV record for a single instrument.
// Bars within a run are immutable and strictly increasing by date.
type Bar struct {
	Ticker string          `json:"ticker" db:"ticker"`
	Date   time.Time       `json:"date" db:"bar_date"`
	Open   decimal.Decimal `json:"open" db:"open"`
	High   decimal.Decimal `json:"high" db:"high"`
	Low    decimal.Decimal `json:"low" db:"low"`
	Close  decimal.Decimal `json:"close" db:"close"`
	Volume decimal.Decimal `json:"volume" db:"volume"`
}

// IndicatorState carries the rolling indicator values for the current bar.
// Both pointers are nil while the window is still warming up.
type IndicatorState struct {
	PriceSMA  *decimal.Decimal `json:"price_sma"`
	VolumeSMA *decimal.Decimal `json:"volume_sma"`
}

// Warm reports whether the indicators are defined for the current bar.
func (s IndicatorState) Warm() bool {
	return s.PriceSMA != nil && s.VolumeSMA != nil
}
