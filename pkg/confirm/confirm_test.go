package confirm

import (
	"reflect"
	"strings"
	"testing"

	"github.com/irystaev-commits/sigex/pkg/signal"
	"github.com/shopspring/decimal"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		intent *signal.Intent
	}{
		{
			name: "market buy without reason",
			intent: &signal.Intent{
				Side:        signal.Buy,
				Base:        "SOL",
				QuoteBudget: toDecimal("20"),
				Mode:        signal.Market,
				TakeProfit:  toDecimal("212"),
				StopLoss:    toDecimal("188"),
			},
		},
		{
			name: "limit sell with reason",
			intent: &signal.Intent{
				Side:        signal.Sell,
				Base:        "ETH",
				QuoteBudget: toDecimal("150.5"),
				Mode:        signal.Limit,
				LimitPrice:  toDecimal("2410.25"),
				TakeProfit:  toDecimal("2600"),
				StopLoss:    toDecimal("2300"),
				Reason:      "resistance",
			},
		},
		{
			name: "reason containing the delimiter",
			intent: &signal.Intent{
				Side:        signal.Buy,
				Base:        "DOGE",
				QuoteBudget: toDecimal("10"),
				Mode:        signal.Market,
				TakeProfit:  toDecimal("0.5"),
				StopLoss:    toDecimal("0.2"),
				Reason:      "a|b|c",
			},
		},
		{
			name: "fractional values",
			intent: &signal.Intent{
				Side:        signal.Buy,
				Base:        "TFUEL",
				QuoteBudget: toDecimal("12.34"),
				Mode:        signal.Limit,
				LimitPrice:  toDecimal("0.34141"),
				TakeProfit:  toDecimal("0.36872"),
				StopLoss:    toDecimal("0.30044"),
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			token, err := Encode(tt.intent)
			if err != nil {
				t.Fatal(err)
			}
			if len(token) > MaxSize {
				t.Fatalf("token too long: %d bytes", len(token))
			}
			got, err := Decode(token)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(*got, *tt.intent) {
				t.Errorf("got: %+v, want: %+v", got, tt.intent)
			}
		})
	}
}

func TestEncodeTruncatesReason(t *testing.T) {
	intent := &signal.Intent{
		Side:        signal.Buy,
		Base:        "SOL",
		QuoteBudget: toDecimal("20"),
		Mode:        signal.Market,
		TakeProfit:  toDecimal("212"),
		StopLoss:    toDecimal("188"),
		Reason:      strings.Repeat("x", 200),
	}
	token, err := Encode(intent)
	if err != nil {
		t.Fatal(err)
	}
	if len(token) != MaxSize {
		t.Fatalf("token length: %d, want: %d", len(token), MaxSize)
	}
	got, err := Decode(token)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(intent.Reason, got.Reason) || got.Reason == "" {
		t.Errorf("reason not a truncated prefix: %q", got.Reason)
	}
	// Structured fields must survive truncation untouched.
	if got.Side != intent.Side || got.Base != intent.Base ||
		!got.QuoteBudget.Equal(intent.QuoteBudget) ||
		!got.TakeProfit.Equal(intent.TakeProfit) ||
		!got.StopLoss.Equal(intent.StopLoss) {
		t.Errorf("structured fields corrupted: %+v", got)
	}
}

func TestEncodeOverflow(t *testing.T) {
	intent := &signal.Intent{
		Side:        signal.Buy,
		Base:        "ABCDEFGHIJ",
		QuoteBudget: toDecimal("123456789.123456789"),
		Mode:        signal.Limit,
		LimitPrice:  toDecimal("123456789.123456789"),
		TakeProfit:  toDecimal("123456789.123456789"),
		StopLoss:    toDecimal("123456789.123456789"),
	}
	if _, err := Encode(intent); err == nil {
		t.Fatal("expected error for oversized structured fields")
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []string{
		"",
		Cancel,
		"ok|B|SOL",
		"nope|B|SOL|20|M|0|212|188|",
		"ok|X|SOL|20|M|0|212|188|",
		"ok|B|SOL|abc|M|0|212|188|",
		"ok|B|SOL|20|F|0|212|188|",
		"ok|B|SOL|20|L|abc|212|188|",
		"ok|B|SOL|20|M|0|abc|188|",
		"ok|B|SOL|20|M|0|212|abc|",
	}
	for _, token := range tests {
		if _, err := Decode(token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}

func toDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}
