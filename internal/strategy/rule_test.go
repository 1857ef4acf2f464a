package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stock-backtester/internal/model"
)

func indState(priceSMA, volumeSMA float64) model.IndicatorState {
	p := decimal.NewFromFloat(priceSMA)
	v := decimal.NewFromFloat(volumeSMA)
	return model.IndicatorState{PriceSMA: &p, VolumeSMA: &v}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		input   string
		want    Condition
		wantErr bool
	}{
		{"price>sma", CondPriceAboveSMA, false},
		{"PRICE > SMA", CondPriceAboveSMA, false},
		{"price < sma", CondPriceBelowSMA, false},
		{"price>=sma", CondPriceAtLeastSMA, false},
		{"price<=sma", CondPriceAtMostSMA, false},
		{"volume > avg_volume", CondVolumeAboveAvg, false},
		{"Volume<Avg_Volume", CondVolumeBelowAvg, false},
		{"price>ema", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseCondition(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParseAction(t *testing.T) {
	for _, valid := range []string{"buy", "SELL", " hold ", "Exit"} {
		_, err := ParseAction(valid)
		assert.NoError(t, err, valid)
	}
	for _, invalid := range []string{"short", "close", ""} {
		_, err := ParseAction(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestCondition_Evaluate(t *testing.T) {
	bar := model.Bar{
		Close:  decimal.NewFromInt(105),
		Volume: decimal.NewFromInt(900),
	}
	ind := indState(100, 1000)

	assert.True(t, CondPriceAboveSMA.Evaluate(bar, ind))
	assert.False(t, CondPriceBelowSMA.Evaluate(bar, ind))
	assert.True(t, CondPriceAtLeastSMA.Evaluate(bar, ind))
	assert.False(t, CondPriceAtMostSMA.Evaluate(bar, ind))
	assert.False(t, CondVolumeAboveAvg.Evaluate(bar, ind))
	assert.True(t, CondVolumeBelowAvg.Evaluate(bar, ind))
}

func TestCondition_Evaluate_Boundary(t *testing.T) {
	bar := model.Bar{Close: decimal.NewFromInt(100), Volume: decimal.NewFromInt(1000)}
	ind := indState(100, 1000)

	// Strict comparisons are false at equality, inclusive ones are true.
	assert.False(t, CondPriceAboveSMA.Evaluate(bar, ind))
	assert.False(t, CondPriceBelowSMA.Evaluate(bar, ind))
	assert.True(t, CondPriceAtLeastSMA.Evaluate(bar, ind))
	assert.True(t, CondPriceAtMostSMA.Evaluate(bar, ind))
}

func TestCondition_Evaluate_WarmupAlwaysFalse(t *testing.T) {
	bar := model.Bar{
		Close:  decimal.NewFromInt(1000000),
		Volume: decimal.NewFromInt(1000000),
	}
	warming := model.IndicatorState{} // nil SMAs

	conds := []Condition{
		CondPriceAboveSMA, CondPriceBelowSMA, CondPriceAtLeastSMA,
		CondPriceAtMostSMA, CondVolumeAboveAvg, CondVolumeBelowAvg,
	}
	for _, c := range conds {
		assert.False(t, c.Evaluate(bar, warming), string(c))
	}
}

func TestRule_Decide(t *testing.T) {
	rule, err := NewRule("price>sma", "buy", "hold")
	assert.NoError(t, err)

	bar := model.Bar{Close: decimal.NewFromInt(105), Volume: decimal.NewFromInt(1)}
	assert.Equal(t, ActionBuy, rule.Decide(bar, indState(100, 1)))
	assert.Equal(t, ActionHold, rule.Decide(bar, indState(110, 1)))

	// Warm-up takes the else branch regardless of the condition.
	assert.Equal(t, ActionHold, rule.Decide(bar, model.IndicatorState{}))
}
