package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"stock-backtester/internal/model"
)

func barAt(day int, close, volume float64) model.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Bar{
		Ticker: "TEST",
		Date:   base.AddDate(0, 0, day),
		Close:  decimal.NewFromFloat(close),
		Volume: decimal.NewFromFloat(volume),
	}
}

func TestSMAEngine_WarmupThenDefined(t *testing.T) {
	e := NewSMAEngine(3)

	// First two bars: window not full, indicators undefined.
	ind := e.Update(barAt(0, 10, 100))
	assert.Nil(t, ind.PriceSMA)
	assert.Nil(t, ind.VolumeSMA)
	assert.False(t, ind.Warm())

	ind = e.Update(barAt(1, 11, 200))
	assert.Nil(t, ind.PriceSMA)

	// Third bar fills the window, inclusive of the current bar.
	ind = e.Update(barAt(2, 12, 300))
	assert.True(t, ind.Warm())
	assert.True(t, ind.PriceSMA.Equal(decimal.NewFromInt(11)), "got %s", ind.PriceSMA)
	assert.True(t, ind.VolumeSMA.Equal(decimal.NewFromInt(200)), "got %s", ind.VolumeSMA)
}

func TestSMAEngine_TrailingWindowSlides(t *testing.T) {
	e := NewSMAEngine(2)
	e.Update(barAt(0, 10, 100))
	e.Update(barAt(1, 20, 100))

	ind := e.Update(barAt(2, 30, 100))
	// Window is exactly the trailing 2 closes: (20+30)/2.
	assert.True(t, ind.PriceSMA.Equal(decimal.NewFromInt(25)), "got %s", ind.PriceSMA)
}

func TestSMAEngine_PeriodOne(t *testing.T) {
	e := NewSMAEngine(1)
	ind := e.Update(barAt(0, 42, 7))
	assert.True(t, ind.Warm())
	assert.True(t, ind.PriceSMA.Equal(decimal.NewFromInt(42)))
	assert.True(t, ind.VolumeSMA.Equal(decimal.NewFromInt(7)))
}

func TestSMAEngine_Deterministic(t *testing.T) {
	run := func() []string {
		e := NewSMAEngine(4)
		out := make([]string, 0, 10)
		for i := 0; i < 10; i++ {
			ind := e.Update(barAt(i, float64(100+i*3), float64(1000-i*10)))
			if ind.Warm() {
				out = append(out, ind.PriceSMA.String()+"/"+ind.VolumeSMA.String())
			}
		}
		return out
	}
	assert.Equal(t, run(), run())
}
