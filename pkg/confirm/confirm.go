// Package confirm encodes a parsed trade intent into the opaque value
// carried by a confirmation button, and decodes it back on approval.
// All state lives inside the token itself, so a confirmation needs no
// server-side session storage.
package confirm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/irystaev-commits/sigex/pkg/signal"
	"github.com/shopspring/decimal"
)

// Cancel is the distinct token sent by the cancel button. It carries
// no intent payload.
const Cancel = "cancel"

// MaxSize bounds the encoded token. The chat transport caps a button
// payload at 64 bytes and prepends its own routing prefix, so the
// token itself gets less. Only the reason field may be truncated to
// fit; the structured fields must always survive intact.
const MaxSize = 48

const (
	prefix    = "ok"
	separator = "|"
	// prefix, side, base, budget, mode, limit, tp, sl, reason
	numFields = 9
)

// Single-letter field codes keep the token small.
const (
	sideBuy    = "B"
	sideSell   = "S"
	modeMarket = "M"
	modeLimit  = "L"
)

var ErrTooLong = errors.New("confirm: intent fields exceed token size")

// Encode renders the intent as a delimited token. The reason is
// always the last field so a delimiter inside it cannot corrupt the
// structured fields; it is truncated if the token would exceed
// MaxSize.
func Encode(intent *signal.Intent) (string, error) {
	side := sideBuy
	if intent.Side == signal.Sell {
		side = sideSell
	}
	mode, limit := modeMarket, "0"
	if intent.Mode == signal.Limit {
		mode = modeLimit
		limit = intent.LimitPrice.String()
	}
	fixed := strings.Join([]string{
		prefix,
		side,
		intent.Base,
		intent.QuoteBudget.String(),
		mode,
		limit,
		intent.TakeProfit.String(),
		intent.StopLoss.String(),
		"",
	}, separator)
	if len(fixed) > MaxSize {
		return "", ErrTooLong
	}
	reason := intent.Reason
	if len(fixed)+len(reason) > MaxSize {
		reason = reason[:MaxSize-len(fixed)]
	}
	return fixed + reason, nil
}

// Decode parses a token produced by Encode back into an intent.
func Decode(token string) (*signal.Intent, error) {
	parts := strings.SplitN(token, separator, numFields)
	if len(parts) != numFields || parts[0] != prefix {
		return nil, fmt.Errorf("confirm: malformed token: %q", token)
	}
	intent := &signal.Intent{
		Base:   parts[2],
		Reason: parts[8],
	}
	switch parts[1] {
	case sideBuy:
		intent.Side = signal.Buy
	case sideSell:
		intent.Side = signal.Sell
	default:
		return nil, fmt.Errorf("confirm: unknown side: %q", parts[1])
	}
	var err error
	intent.QuoteBudget, err = decimal.NewFromString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("confirm: couldn't parse budget (%s): %w", parts[3], err)
	}
	switch parts[4] {
	case modeMarket:
		intent.Mode = signal.Market
	case modeLimit:
		intent.Mode = signal.Limit
		intent.LimitPrice, err = decimal.NewFromString(parts[5])
		if err != nil {
			return nil, fmt.Errorf("confirm: couldn't parse limit price (%s): %w", parts[5], err)
		}
	default:
		return nil, fmt.Errorf("confirm: unknown entry mode: %q", parts[4])
	}
	intent.TakeProfit, err = decimal.NewFromString(parts[6])
	if err != nil {
		return nil, fmt.Errorf("confirm: couldn't parse take profit (%s): %w", parts[6], err)
	}
	intent.StopLoss, err = decimal.NewFromString(parts[7])
	if err != nil {
		return nil, fmt.Errorf("confirm: couldn't parse stop loss (%s): %w", parts[7], err)
	}
	return intent, nil
}
