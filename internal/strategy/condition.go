package strategy

import (
	"fmt"
	"strings"

	"stock-backtester/internal/model"
)

// Condition is the closed set of rule conditions a backtest can evaluate.
type Condition string

const (
	CondPriceAboveSMA   Condition = "price>sma"
	CondPriceBelowSMA   Condition = "price<sma"
	CondPriceAtLeastSMA Condition = "price>=sma"
	CondPriceAtMostSMA  Condition = "price<=sma"
	CondVolumeAboveAvg  Condition = "volume>avg_volume"
	CondVolumeBelowAvg  Condition = "volume<avg_volume"
)

// ParseCondition normalizes a user-supplied condition string and rejects
// anything outside the closed set. Input is case-insensitive and spaces
// around the operator are tolerated ("price > sma" == "price>sma").
func ParseCondition(s string) (Condition, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "")
	switch c := Condition(norm); c {
	case CondPriceAboveSMA, CondPriceBelowSMA, CondPriceAtLeastSMA,
		CondPriceAtMostSMA, CondVolumeAboveAvg, CondVolumeBelowAvg:
		return c, nil
	}
	return "", fmt.Errorf("unknown rule condition: %q", s)
}

// Evaluate applies the condition to the current bar and indicator state.
// An undefined indicator (warm-up window not yet filled) always evaluates
// to false, so warm-up bars take the rule's else branch.
func (c Condition) Evaluate(bar model.Bar, ind model.IndicatorState) bool {
	switch c {
	case CondPriceAboveSMA:
		return ind.PriceSMA != nil && bar.Close.GreaterThan(*ind.PriceSMA)
	case CondPriceBelowSMA:
		return ind.PriceSMA != nil && bar.Close.LessThan(*ind.PriceSMA)
	case CondPriceAtLeastSMA:
		return ind.PriceSMA != nil && bar.Close.GreaterThanOrEqual(*ind.PriceSMA)
	case CondPriceAtMostSMA:
		return ind.PriceSMA != nil && bar.Close.LessThanOrEqual(*ind.PriceSMA)
	case CondVolumeAboveAvg:
		return ind.VolumeSMA != nil && bar.Volume.GreaterThan(*ind.VolumeSMA)
	case CondVolumeBelowAvg:
		return ind.VolumeSMA != nil && bar.Volume.LessThan(*ind.VolumeSMA)
	}
	return false
}
