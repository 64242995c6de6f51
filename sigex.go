package sigex

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/irystaev-commits/sigex/pkg/confirm"
	"github.com/irystaev-commits/sigex/pkg/exchange"
	"github.com/irystaev-commits/sigex/pkg/exchange/mexc"
	"github.com/irystaev-commits/sigex/pkg/signal"
	"github.com/irystaev-commits/sigex/pkg/telegram"
	"github.com/irystaev-commits/sigex/pkg/trade"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var version = "v260830a"

type Config struct {
	TelegramToken string
	AllowedUser   int64
	APIKey        string
	APISecret     string
	Paper         bool
	MaxBudget     decimal.Decimal
}

// Bot connects the operator chat to the execution pipeline: parse a
// signal, ask for confirmation, execute the confirmed intent.
type Bot struct {
	ctx      context.Context
	run      func(context.Context) error
	tg       *telegram.Bot
	exchange exchange.Exchange
	parser   *signal.Parser
	executor *trade.Executor
	allowed  int64
	paper    bool
	log      zerolog.Logger
}

func NewBot(log zerolog.Logger, cfg Config) (*Bot, error) {
	tg, err := telegram.New(log, cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("sigex: couldn't create telegram bot: %w", err)
	}
	client := mexc.New(log, cfg.APIKey, cfg.APISecret)
	var ex exchange.Exchange = client
	if cfg.Paper {
		ex = exchange.NewPaper(client)
	}
	b := &Bot{
		ctx:      context.TODO(),
		run:      tg.Run,
		tg:       tg,
		exchange: ex,
		parser:   signal.NewParser(),
		executor: trade.NewExecutor(log, ex, cfg.MaxBudget),
		allowed:  cfg.AllowedUser,
		paper:    cfg.Paper,
		log:      log.With().Str("component", "bot").Logger(),
	}
	tg.HandleCommand("start", b.handleStart)
	tg.HandleCommand("balance", b.handleBalance)
	tg.HandleText(b.handleSignal)
	tg.HandleChoice(b.handleChoice)
	return b, nil
}

func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.log.Info().Str("version", version).Bool("paper", b.paper).Msg("bot running")
	defer b.log.Info().Msg("bot stopped")
	return b.run(ctx)
}

func (b *Bot) handleStart(m telegram.Message) {
	if m.Sender != b.allowed {
		b.tg.Send(m.Chat, "⛔️ Access denied.")
		return
	}
	b.tg.Send(m.Chat, fmt.Sprintf(
		"Ready. paper mode: %t\nFormat:\nSIG BUY SOL 20USDT @MKT TP=212 SL=188\nR: reason",
		b.paper,
	))
}

func (b *Bot) handleBalance(m telegram.Message) {
	if m.Sender != b.allowed {
		return
	}
	balances, err := b.exchange.Balances(b.ctx)
	if err != nil {
		b.tg.Send(m.Chat, fmt.Sprintf("⚠️ Balance error: %v", err))
		return
	}
	var free []exchange.Balance
	for _, bal := range balances {
		if bal.Free.IsPositive() {
			free = append(free, bal)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		return free[i].Free.GreaterThan(free[j].Free)
	})
	if len(free) > 12 {
		free = free[:12]
	}
	if len(free) == 0 {
		b.tg.Send(m.Chat, "Balance: empty.")
		return
	}
	sb := &strings.Builder{}
	sb.WriteString("Balance:")
	for _, bal := range free {
		fmt.Fprintf(sb, "\n%s: %s", bal.Asset, bal.Free.StringFixed(4))
	}
	b.tg.Send(m.Chat, sb.String())
}

func (b *Bot) handleSignal(m telegram.Message) {
	if m.Sender != b.allowed {
		return
	}
	intent, ok := b.parser.Parse(m.Text)
	if !ok {
		return
	}
	token, err := confirm.Encode(intent)
	if err != nil {
		b.tg.Send(m.Chat, fmt.Sprintf("⚠️ %v", err))
		return
	}
	if err := b.tg.Ask(m.Chat, renderIntent(intent), token, confirm.Cancel); err != nil {
		b.log.Error().Err(err).Msg("couldn't send confirmation")
	}
}

func (b *Bot) handleChoice(c telegram.Choice) {
	if c.Sender != b.allowed {
		return
	}
	b.tg.ClearChoice(c)
	if c.Data == confirm.Cancel {
		b.tg.Send(c.Chat, "Canceled.")
		return
	}
	intent, err := confirm.Decode(c.Data)
	if err != nil {
		b.log.Error().Err(err).Msg("bad confirmation token")
		b.tg.Send(c.Chat, fmt.Sprintf("⚠️ %v", err))
		return
	}
	// Execute on its own goroutine so a slow exchange call doesn't
	// block receipt of other updates.
	go func() {
		report, err := b.executor.Execute(b.ctx, intent)
		if err != nil {
			b.tg.Send(c.Chat, fmt.Sprintf("⚠️ %v", err))
			return
		}
		b.tg.Send(c.Chat, renderReport(report, b.paper))
	}()
}

func renderIntent(intent *signal.Intent) string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Trade:\n• %s %s\n• %s USDT\n• %s", intent.Side, intent.Symbol(), intent.QuoteBudget, intent.Mode)
	if intent.Mode == signal.Limit {
		fmt.Fprintf(sb, " @ %s", intent.LimitPrice)
	}
	fmt.Fprintf(sb, "\n• TP: %s  • SL: %s\nReason: %s\nConfirm?", intent.TakeProfit, intent.StopLoss, orDash(intent.Reason))
	return sb.String()
}

func renderReport(r *trade.Report, paper bool) string {
	if r.Entry.Err != nil {
		return fmt.Sprintf("⚠️ Entry failed: %v", r.Entry.Err)
	}
	sb := &strings.Builder{}
	tag := ""
	if paper {
		tag = " (PAPER)"
	}
	fmt.Fprintf(sb, "✅ Order submitted%s\n%s %s for %s USDT", tag, r.Intent.Side, r.Intent.Symbol(), r.Intent.QuoteBudget)
	for _, leg := range []struct {
		name    string
		outcome *trade.Outcome
	}{
		{"TP", r.TakeProfit},
		{"SL", r.StopLoss},
	} {
		if leg.outcome == nil {
			continue
		}
		if leg.outcome.Err != nil {
			fmt.Fprintf(sb, "\n%s failed: %v", leg.name, leg.outcome.Err)
		} else {
			fmt.Fprintf(sb, "\n%s created: %s", leg.name, leg.outcome.Result)
		}
	}
	fmt.Fprintf(sb, "\nReason: %s", orDash(r.Intent.Reason))
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
