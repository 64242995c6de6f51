// Package mexc implements the MEXC spot REST API surface used by the
// bot: signed order placement, the account balance read and the last
// traded price lookup.
package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/irystaev-commits/sigex/pkg/exchange"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://api.mexc.com"

	// recvWindow is the exchange-side tolerance for signed request
	// timestamps, in milliseconds.
	recvWindow = "50000"

	requestTimeout = 20 * time.Second
)

type Client struct {
	apiKey  string
	secret  []byte
	http    *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
	now     func() time.Time
}

func New(log zerolog.Logger, apiKey, apiSecret string) *Client {
	http := resty.New()
	http.SetBaseURL(baseURL)
	http.SetTimeout(requestTimeout)
	return &Client{
		apiKey:  apiKey,
		secret:  []byte(apiSecret),
		http:    http,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		log:     log.With().Str("component", "mexc").Logger(),
		now:     time.Now,
	}
}

// Call executes a single request against the MEXC REST API. When
// signed, the millisecond timestamp, the receive window and an
// HMAC-SHA256 signature over the canonical query are appended. A
// non-2xx response is returned as *exchange.StatusError and is never
// retried: a surfaced failure is preferable to a double execution.
func (c *Client) Call(ctx context.Context, method, path string, params map[string]string, signed bool) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("mexc: rate limiter: %w", err)
	}
	all := make(map[string]string, len(params)+3)
	for k, v := range params {
		all[k] = v
	}
	if signed {
		all["timestamp"] = strconv.FormatInt(c.now().UnixMilli(), 10)
		all["recvWindow"] = recvWindow
	}
	query := canonicalQuery(all)
	if signed {
		query = fmt.Sprintf("%s&signature=%s", query, c.sign(query))
	}
	url := path
	if query != "" {
		url = fmt.Sprintf("%s?%s", path, query)
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-MEXC-APIKEY", c.apiKey).
		Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("mexc: %s %s failed: %w", method, path, err)
	}
	// The full URL carries the signature, log only method and path.
	c.log.Debug().Str("method", method).Str("path", path).
		Int("status", resp.StatusCode()).Msg("api call")
	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &exchange.StatusError{
			Status: resp.StatusCode(),
			Body:   string(resp.Body()),
		}
	}
	return resp.Body(), nil
}

// sign computes the hex HMAC-SHA256 of the canonical query with the
// API secret.
func (c *Client) sign(query string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// canonicalQuery joins parameters as key=value pairs with keys in
// lexicographic order. The exchange recomputes the signature over the
// same ordering, so it must be deterministic.
func canonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, params[k]))
	}
	return strings.Join(pairs, "&")
}

func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (json.RawMessage, error) {
	return c.Call(ctx, "POST", "/api/v3/order", req.Params(), true)
}

func (c *Client) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	body, err := c.Call(ctx, "GET", "/api/v3/ticker/price", map[string]string{"symbol": symbol}, false)
	if err != nil {
		return decimal.Decimal{}, err
	}
	var ticker struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return decimal.Decimal{}, fmt.Errorf("mexc: couldn't decode ticker for %s: %w", symbol, err)
	}
	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("mexc: couldn't parse price %q for %s: %w", ticker.Price, symbol, err)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("mexc: non-positive price %s for %s", price, symbol)
	}
	return price, nil
}

func (c *Client) Balances(ctx context.Context) ([]exchange.Balance, error) {
	body, err := c.Call(ctx, "GET", "/api/v3/account", nil, true)
	if err != nil {
		return nil, err
	}
	var account struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("mexc: couldn't decode account: %w", err)
	}
	balances := make([]exchange.Balance, 0, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("mexc: couldn't parse balance %q for %s: %w", b.Free, b.Asset, err)
		}
		balances = append(balances, exchange.Balance{Asset: b.Asset, Free: free})
	}
	return balances, nil
}
