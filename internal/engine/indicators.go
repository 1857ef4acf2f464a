package engine

import (
	"stock-backtester/internal/model"

	"github.com/shopspring/decimal"
)

// SMAEngine maintains fixed-size trailing windows of closes and volumes and
// recomputes both simple moving averages on every update. The averages stay
// undefined (nil) until the window holds a full period of observations.
type SMAEngine struct {
	period  int
	closes  []decimal.Decimal
	volumes []decimal.Decimal
}

func NewSMAEngine(period int) *SMAEngine {
	return &SMAEngine{
		period:  period,
		closes:  make([]decimal.Decimal, 0, period),
		volumes: make([]decimal.Decimal, 0, period),
	}
}

// Update pushes the bar's close and volume into the trailing windows and
// returns the indicator state for this bar.
func (e *SMAEngine) Update(bar model.Bar) model.IndicatorState {
	e.closes = append(e.closes, bar.Close)
	e.volumes = append(e.volumes, bar.Volume)
	if len(e.closes) > e.period {
		e.closes = e.closes[1:]
		e.volumes = e.volumes[1:]
	}

	if len(e.closes) < e.period {
		return model.IndicatorState{}
	}

	priceSMA := mean(e.closes)
	volumeSMA := mean(e.volumes)
	return model.IndicatorState{PriceSMA: &priceSMA, VolumeSMA: &volumeSMA}
}

func mean(values []decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values))))
}
