package signal

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

type EntryMode string

const (
	Market EntryMode = "MARKET"
	Limit  EntryMode = "LIMIT"
)

// Intent is a fully validated trade order request parsed from an
// operator signal. LimitPrice is set if and only if Mode is Limit.
type Intent struct {
	Side        Side
	Base        string
	QuoteBudget decimal.Decimal
	Mode        EntryMode
	LimitPrice  decimal.Decimal
	TakeProfit  decimal.Decimal
	StopLoss    decimal.Decimal
	Reason      string
}

// Symbol returns the trading pair for the intent. Budgets are always
// denominated in USDT, so the pair is fixed to the USDT quote.
func (i *Intent) Symbol() string {
	return i.Base + "USDT"
}

// Parser validates the SIG command grammar:
//
//	SIG <BUY|SELL> <ASSET> <BUDGET>USDT @<MKT|LIM=price> TP=price SL=price
//	R: <reason>
//
// The grammar is case-insensitive and the reason line is optional.
type Parser struct {
	asset *regexp.Regexp
	num   *regexp.Regexp
}

func NewParser() *Parser {
	return &Parser{
		asset: regexp.MustCompile(`^[A-Za-z]{2,10}$`),
		num:   regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?$`),
	}
}

// Parse decodes a signal text into an Intent. Text that doesn't match
// the grammar returns false: the chat carries unrelated messages, so
// a non-match is not an error.
func (p *Parser) Parse(text string) (*Intent, bool) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > 2 {
		return nil, false
	}
	fields := strings.Fields(lines[0])
	if len(fields) != 7 {
		return nil, false
	}
	if !strings.EqualFold(fields[0], "SIG") {
		return nil, false
	}

	intent := &Intent{}

	switch strings.ToUpper(fields[1]) {
	case string(Buy):
		intent.Side = Buy
	case string(Sell):
		intent.Side = Sell
	default:
		return nil, false
	}

	if !p.asset.MatchString(fields[2]) {
		return nil, false
	}
	intent.Base = strings.ToUpper(fields[2])

	budget, ok := p.cutDecimal(fields[3], "", "USDT")
	if !ok {
		return nil, false
	}
	intent.QuoteBudget = budget

	switch {
	case strings.EqualFold(fields[4], "@MKT"):
		intent.Mode = Market
	case len(fields[4]) > 5 && strings.EqualFold(fields[4][:5], "@LIM="):
		price, ok := p.cutDecimal(fields[4], "@LIM=", "")
		if !ok {
			return nil, false
		}
		intent.Mode = Limit
		intent.LimitPrice = price
	default:
		return nil, false
	}

	tp, ok := p.cutDecimal(fields[5], "TP=", "")
	if !ok {
		return nil, false
	}
	intent.TakeProfit = tp

	sl, ok := p.cutDecimal(fields[6], "SL=", "")
	if !ok {
		return nil, false
	}
	intent.StopLoss = sl

	if len(lines) == 2 {
		reason := strings.TrimSpace(lines[1])
		if len(reason) < 2 || !strings.EqualFold(reason[:2], "R:") {
			return nil, false
		}
		reason = strings.TrimSpace(reason[2:])
		if reason == "" {
			return nil, false
		}
		intent.Reason = reason
	}
	return intent, true
}

// cutDecimal strips a case-insensitive prefix and suffix from a token
// and parses the remainder as a strictly positive decimal.
func (p *Parser) cutDecimal(token, prefix, suffix string) (decimal.Decimal, bool) {
	if len(token) <= len(prefix)+len(suffix) {
		return decimal.Decimal{}, false
	}
	if !strings.EqualFold(token[:len(prefix)], prefix) {
		return decimal.Decimal{}, false
	}
	if !strings.EqualFold(token[len(token)-len(suffix):], suffix) {
		return decimal.Decimal{}, false
	}
	token = token[len(prefix) : len(token)-len(suffix)]
	if !p.num.MatchString(token) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(token)
	if err != nil || !d.IsPositive() {
		return decimal.Decimal{}, false
	}
	return d, true
}
