package exchange

import (
	"context"
	"encoding/json"
	"fmt"
)

type paperExchange struct {
	Exchange
}

// NewPaper wraps an exchange so that order placements are simulated:
// the constructed request is echoed back tagged as paper instead of
// being sent. Price and balance reads pass through to the wrapped
// exchange. This is the only switch between simulated and live
// trading; the engine has no other path to place an order.
func NewPaper(live Exchange) Exchange {
	return &paperExchange{
		Exchange: live,
	}
}

func (e *paperExchange) PlaceOrder(ctx context.Context, req OrderRequest) (json.RawMessage, error) {
	echo := struct {
		Paper bool              `json:"paper"`
		Order map[string]string `json:"order"`
	}{
		Paper: true,
		Order: req.Params(),
	}
	js, err := json.Marshal(echo)
	if err != nil {
		return nil, fmt.Errorf("exchange: couldn't encode paper order: %w", err)
	}
	return js, nil
}
