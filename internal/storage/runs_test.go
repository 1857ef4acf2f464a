package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stock-backtester/internal/model"
)

// The equity_curve column stores exactly what OnBacktestComplete marshals;
// GetRun must restore it losslessly, warm-up nulls included.
func TestDecodeCurve_RoundTrip(t *testing.T) {
	sma := decimal.NewFromFloat(101.5)
	stored := []model.EquitySnapshot{
		{
			Date:          time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			Cash:          decimal.NewFromInt(100000),
			PositionValue: decimal.Zero,
			Equity:        decimal.NewFromInt(100000),
			ClosePrice:    decimal.NewFromInt(100),
			PriceSMA:      nil,
		},
		{
			Date:          time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC),
			Cash:          decimal.NewFromFloat(0.1),
			PositionValue: decimal.NewFromFloat(101999.9),
			Equity:        decimal.NewFromInt(102000),
			ClosePrice:    decimal.NewFromFloat(102),
			PriceSMA:      &sma,
		},
	}

	raw, err := json.Marshal(stored)
	assert.NoError(t, err)

	curve, err := decodeCurve(raw)
	assert.NoError(t, err)
	assert.Len(t, curve, 2)

	assert.True(t, curve[0].Date.Equal(stored[0].Date))
	assert.Nil(t, curve[0].PriceSMA)
	assert.True(t, curve[0].Equity.Equal(stored[0].Equity))

	assert.True(t, curve[1].Date.Equal(stored[1].Date))
	assert.NotNil(t, curve[1].PriceSMA)
	assert.True(t, curve[1].PriceSMA.Equal(sma))
	assert.True(t, curve[1].Cash.Equal(stored[1].Cash))
	assert.True(t, curve[1].PositionValue.Equal(stored[1].PositionValue))
}

func TestDecodeCurve_Empty(t *testing.T) {
	curve, err := decodeCurve(nil)
	assert.NoError(t, err)
	assert.Nil(t, curve)

	_, err = decodeCurve([]byte("{not json"))
	assert.Error(t, err)
}
