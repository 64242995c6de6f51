package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	TypeMarket        OrderType = "MARKET"
	TypeLimit         OrderType = "LIMIT"
	TypeStopLossLimit OrderType = "STOP_LOSS_LIMIT"
)

// TimeInForceGTC keeps resting orders open until canceled.
const TimeInForceGTC = "GTC"

// OrderRequest is the ephemeral description of a single order
// placement. Price fields are pre-formatted strings so the request
// carries exactly what goes on the wire.
type OrderRequest struct {
	Symbol      string
	Side        Side
	Type        OrderType
	Quantity    decimal.Decimal
	Price       string
	StopPrice   string
	TimeInForce string
}

// Params renders the request as exchange API parameters.
func (r OrderRequest) Params() map[string]string {
	p := map[string]string{
		"symbol":   r.Symbol,
		"side":     string(r.Side),
		"type":     string(r.Type),
		"quantity": r.Quantity.String(),
	}
	if r.Price != "" {
		p["price"] = r.Price
	}
	if r.StopPrice != "" {
		p["stopPrice"] = r.StopPrice
	}
	if r.TimeInForce != "" {
		p["timeInForce"] = r.TimeInForce
	}
	return p
}

type Balance struct {
	Asset string
	Free  decimal.Decimal
}

// Exchange is the spot exchange surface the execution engine needs.
type Exchange interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (json.RawMessage, error)
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	Balances(ctx context.Context) ([]Balance, error)
}

// StatusError is a non-2xx response from the exchange. Calls failing
// with it are never retried.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("exchange: status %d: %s", e.Status, e.Body)
}
