package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stock-backtester/internal/model"
)

// Sizing selects how the broker sizes a buy order.
type Sizing string

const (
	// SizingAllCash invests the full cash balance, commission included:
	// quantity = cash / (price * (1 + commission_rate)).
	SizingAllCash Sizing = "all_cash"
	// SizingFixedUnit buys a configured fixed quantity per signal.
	SizingFixedUnit Sizing = "fixed_unit"
)

// ParseSizing validates a sizing policy name.
func ParseSizing(s string) (Sizing, error) {
	switch p := Sizing(s); p {
	case SizingAllCash, SizingFixedUnit:
		return p, nil
	}
	return "", fmt.Errorf("unknown sizing policy: %q", s)
}

// BrokerConfig is the run-level accounting configuration.
type BrokerConfig struct {
	StartingCash   decimal.Decimal
	CommissionRate decimal.Decimal
	Sizing         Sizing
	UnitQuantity   decimal.Decimal // used by SizingFixedUnit
}

// Broker owns cash, position and commission accounting for one run.
// Fills execute unconditionally at the given price; there is no slippage,
// no partial fill and no liquidity rejection. Long-only.
type Broker struct {
	cash           decimal.Decimal
	startingCash   decimal.Decimal
	commissionRate decimal.Decimal
	sizing         Sizing
	unitQuantity   decimal.Decimal

	posQty      decimal.Decimal
	posAvgPrice decimal.Decimal
	entryDate   time.Time
	entryComm   decimal.Decimal

	fills  []model.Fill
	trades []model.Trade
}

func NewBroker(cfg BrokerConfig) *Broker {
	return &Broker{
		cash:           cfg.StartingCash,
		startingCash:   cfg.StartingCash,
		commissionRate: cfg.CommissionRate,
		sizing:         cfg.Sizing,
		unitQuantity:   cfg.UnitQuantity,
		posQty:         decimal.Zero,
		fills:          make([]model.Fill, 0),
		trades:         make([]model.Trade, 0),
	}
}

// Flat reports whether no position is held.
func (b *Broker) Flat() bool { return b.posQty.IsZero() }

// Cash returns the current cash balance.
func (b *Broker) Cash() decimal.Decimal { return b.cash }

// StartingCash returns the configured initial balance.
func (b *Broker) StartingCash() decimal.Decimal { return b.startingCash }

// PositionValue marks the open position to the given close price.
func (b *Broker) PositionValue(close decimal.Decimal) decimal.Decimal {
	return b.posQty.Mul(close)
}

// Equity is cash plus the mark-to-market value of the open position.
func (b *Broker) Equity(close decimal.Decimal) decimal.Decimal {
	return b.cash.Add(b.PositionValue(close))
}

// Trades returns the closed round trips in chronological order.
func (b *Broker) Trades() []model.Trade { return b.trades }

// Fills returns every executed fill in chronological order.
func (b *Broker) Fills() []model.Fill { return b.fills }

// Buy opens a position at the bar's close price using the configured sizing
// policy. It is a no-op when a position is already held.
func (b *Broker) Buy(date time.Time, price decimal.Decimal) error {
	if !b.Flat() {
		return nil
	}

	var qty decimal.Decimal
	switch b.sizing {
	case SizingFixedUnit:
		qty = b.unitQuantity
	default:
		// Solve qty so notional plus commission consumes the full balance.
		qty = b.cash.Div(price.Mul(decimal.NewFromInt(1).Add(b.commissionRate)))
	}
	if !qty.IsPositive() {
		return fmt.Errorf("buy sizing produced non-positive quantity %s", qty)
	}

	notional := qty.Mul(price)
	commission := notional.Mul(b.commissionRate)
	cost := notional.Add(commission)
	if cost.GreaterThan(b.cash.Add(cashTolerance)) {
		// Sizing is supposed to guarantee affordability; hitting this is a
		// configuration error, not a market condition.
		return fmt.Errorf("buy cost %s exceeds cash %s", cost, b.cash)
	}

	b.cash = b.cash.Sub(cost)
	b.posQty = qty
	b.posAvgPrice = price
	b.entryDate = date
	b.entryComm = commission

	b.fills = append(b.fills, model.Fill{
		Date:       date,
		Side:       model.SideBuy,
		Price:      price,
		Quantity:   qty,
		Commission: commission,
	})
	return nil
}

// Sell fully closes the open position at the bar's close price and emits the
// round-trip Trade. It is a no-op when flat.
func (b *Broker) Sell(date time.Time, price decimal.Decimal) error {
	if b.Flat() {
		return nil
	}
	if b.posQty.IsNegative() {
		return fmt.Errorf("invariant violation: negative position %s", b.posQty)
	}

	qty := b.posQty
	notional := qty.Mul(price)
	commission := notional.Mul(b.commissionRate)
	b.cash = b.cash.Add(notional).Sub(commission)

	b.fills = append(b.fills, model.Fill{
		Date:       date,
		Side:       model.SideSell,
		Price:      price,
		Quantity:   qty,
		Commission: commission,
	})

	gross := price.Sub(b.posAvgPrice).Mul(qty)
	totalComm := b.entryComm.Add(commission)
	b.trades = append(b.trades, model.Trade{
		EntryDate:  b.entryDate,
		EntryPrice: b.posAvgPrice,
		ExitDate:   date,
		ExitPrice:  price,
		Quantity:   qty,
		GrossPnL:   gross,
		Commission: totalComm,
		NetPnL:     gross.Sub(totalComm),
	})

	b.posQty = decimal.Zero
	b.posAvgPrice = decimal.Zero
	b.entryComm = decimal.Zero
	return nil
}

// Divisions in the all-cash sizing path round at decimal's default precision,
// so allow a hair of headroom when checking affordability.
var cashTolerance = decimal.New(1, -9)
