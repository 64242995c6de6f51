// Package trade turns a confirmed intent into exchange orders: the
// entry, and for buys the take-profit and stop-loss bracket legs.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/irystaev-commits/sigex/pkg/exchange"
	"github.com/irystaev-commits/sigex/pkg/signal"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	// quantityPrecision is the number of decimal places a computed
	// order quantity is rounded to.
	quantityPrecision = 6
	// pricePrecision is the number of decimal places order prices are
	// formatted with.
	pricePrecision = 8
)

var (
	// minQuantity floors a quantity that would otherwise round to
	// zero. The resulting order is smaller than intended; the floor is
	// logged so it is never silent.
	minQuantity = decimal.New(1, -quantityPrecision)

	// stopLimitRatio places the stop-loss limit price 0.3% below the
	// stop trigger so the order can still fill after the trigger.
	stopLimitRatio = decimal.NewFromFloat(0.997)
)

var ErrBudgetExceeded = errors.New("trade: budget exceeds configured maximum")

// Outcome is the result of a single order placement: the exchange
// response (or the paper echo) on success, the placement error
// otherwise.
type Outcome struct {
	Result json.RawMessage
	Err    error
}

// Report collects the outcome of one execution. TakeProfit and
// StopLoss are nil when no bracket leg applies (sell entries and
// failed entries).
type Report struct {
	Intent     *signal.Intent
	Quantity   decimal.Decimal
	Entry      Outcome
	TakeProfit *Outcome
	StopLoss   *Outcome
}

// Executor places orders for confirmed intents through an exchange.
// Whether that exchange is live or a paper simulation is decided at
// construction time.
type Executor struct {
	exchange  exchange.Exchange
	maxBudget decimal.Decimal
	log       zerolog.Logger
}

func NewExecutor(log zerolog.Logger, ex exchange.Exchange, maxBudget decimal.Decimal) *Executor {
	return &Executor{
		exchange:  ex,
		maxBudget: maxBudget,
		log:       log.With().Str("component", "trade").Logger(),
	}
}

// Execute runs the full placement sequence for an intent. The entry
// order is fatal on failure: the report carries the error and no
// bracket leg is attempted. For a buy entry the take-profit and
// stop-loss are placed independently, so one leg failing never
// suppresses the other's outcome. An error is returned only when
// nothing was placed at all.
func (e *Executor) Execute(ctx context.Context, intent *signal.Intent) (*Report, error) {
	if e.maxBudget.IsPositive() && intent.QuoteBudget.GreaterThan(e.maxBudget) {
		return nil, fmt.Errorf("%w: %s > %s", ErrBudgetExceeded, intent.QuoteBudget, e.maxBudget)
	}
	symbol := intent.Symbol()
	quantity, err := e.resolveQuantity(ctx, symbol, intent.QuoteBudget)
	if err != nil {
		return nil, err
	}
	report := &Report{
		Intent:   intent,
		Quantity: quantity,
	}

	entry := exchange.OrderRequest{
		Symbol:   symbol,
		Side:     exchange.Side(intent.Side),
		Type:     exchange.TypeMarket,
		Quantity: quantity,
	}
	if intent.Mode == signal.Limit {
		entry.Type = exchange.TypeLimit
		entry.Price = intent.LimitPrice.StringFixed(pricePrecision)
		entry.TimeInForce = exchange.TimeInForceGTC
	}
	report.Entry.Result, report.Entry.Err = e.exchange.PlaceOrder(ctx, entry)
	if report.Entry.Err != nil {
		return report, nil
	}
	if intent.Side != signal.Buy {
		return report, nil
	}

	exitQty, err := e.exitQuantity(ctx, report.Entry.Result, symbol, intent.QuoteBudget)
	if err != nil {
		e.log.Warn().Err(err).Str("symbol", symbol).Msg("couldn't resolve exit quantity, reusing entry quantity")
		exitQty = quantity
	}

	tp := exchange.OrderRequest{
		Symbol:      symbol,
		Side:        exchange.SideSell,
		Type:        exchange.TypeLimit,
		Quantity:    exitQty,
		Price:       intent.TakeProfit.StringFixed(pricePrecision),
		TimeInForce: exchange.TimeInForceGTC,
	}
	report.TakeProfit = &Outcome{}
	report.TakeProfit.Result, report.TakeProfit.Err = e.exchange.PlaceOrder(ctx, tp)

	sl := exchange.OrderRequest{
		Symbol:      symbol,
		Side:        exchange.SideSell,
		Type:        exchange.TypeStopLossLimit,
		Quantity:    exitQty,
		StopPrice:   intent.StopLoss.StringFixed(pricePrecision),
		Price:       intent.StopLoss.Mul(stopLimitRatio).StringFixed(pricePrecision),
		TimeInForce: exchange.TimeInForceGTC,
	}
	report.StopLoss = &Outcome{}
	report.StopLoss.Result, report.StopLoss.Err = e.exchange.PlaceOrder(ctx, sl)

	return report, nil
}

// resolveQuantity converts a quote-currency budget into a base
// quantity at the last traded price.
func (e *Executor) resolveQuantity(ctx context.Context, symbol string, budget decimal.Decimal) (decimal.Decimal, error) {
	price, err := e.exchange.LastPrice(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("trade: couldn't get price for %s: %w", symbol, err)
	}
	quantity := budget.Div(price).Round(quantityPrecision)
	if !quantity.IsPositive() {
		e.log.Warn().Str("symbol", symbol).
			Stringer("budget", budget).Stringer("price", price).
			Stringer("floor", minQuantity).
			Msg("quantity rounds to zero, floored to minimum tradable unit")
		quantity = minQuantity
	}
	return quantity, nil
}

// exitQuantity determines how much of the base asset the bracket legs
// must cover. The quantity echoed by the entry response is preferred;
// a live fill response without that field falls back to recomputing
// from the current price.
func (e *Executor) exitQuantity(ctx context.Context, entryResult json.RawMessage, symbol string, budget decimal.Decimal) (decimal.Decimal, error) {
	var echo struct {
		Order struct {
			Quantity string `json:"quantity"`
		} `json:"order"`
	}
	if err := json.Unmarshal(entryResult, &echo); err == nil && echo.Order.Quantity != "" {
		if qty, err := decimal.NewFromString(echo.Order.Quantity); err == nil && qty.IsPositive() {
			return qty, nil
		}
	}
	price, err := e.exchange.LastPrice(ctx, symbol)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("trade: couldn't get price for %s: %w", symbol, err)
	}
	qty := budget.Div(price).Round(quantityPrecision)
	if !qty.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("trade: recomputed quantity %s for %s is not positive", qty, symbol)
	}
	return qty, nil
}
