package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"

	"github.com/irystaev-commits/sigex"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func main() {
	// Create signal based context
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, os.Kill)
	go func() {
		select {
		case <-c:
			cancel()
		case <-ctx.Done():
			cancel()
		}
		signal.Stop(c)
	}()

	// Local overrides, ignored when absent
	_ = godotenv.Load()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Launch command
	cmd := newCommand(log)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("sigex failed")
	}
}

func newCommand(log zerolog.Logger) *ffcli.Command {
	fs := flag.NewFlagSet("sigex", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "sigex [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newRunCommand(log),
		},
	}
}

func newRunCommand(log zerolog.Logger) *ffcli.Command {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	token := fs.String("telegram-token", "", "telegram bot token")
	allowedUser := fs.Int64("allowed-user", 0, "telegram user id allowed to operate the bot")
	key := fs.String("exchange-key", "", "mexc api key")
	secret := fs.String("exchange-secret", "", "mexc api secret")
	paper := fs.Bool("paper", true, "enable paper mode (simulated orders)")
	maxBudget := fs.String("max-budget", "300", "maximum order budget in USDT")
	debug := fs.Bool("debug", false, "enable debug logging")

	return &ffcli.Command{
		Name:       "run",
		ShortUsage: "sigex run [flags]",
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ff.PlainParser),
			ff.WithEnvVarPrefix("SIGEX"),
		},
		ShortHelp: "run sigex bot",
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			if *token == "" {
				return errors.New("missing telegram token")
			}
			if *allowedUser == 0 {
				return errors.New("missing allowed user id")
			}
			if !*paper {
				if *key == "" {
					return errors.New("missing exchange api key")
				}
				if *secret == "" {
					return errors.New("missing exchange api secret")
				}
			}
			budget, err := decimal.NewFromString(*maxBudget)
			if err != nil || !budget.IsPositive() {
				return errors.New("invalid max budget")
			}
			level := zerolog.InfoLevel
			if *debug {
				level = zerolog.DebugLevel
			}
			log = log.Level(level)
			bot, err := sigex.NewBot(log, sigex.Config{
				TelegramToken: *token,
				AllowedUser:   *allowedUser,
				APIKey:        *key,
				APISecret:     *secret,
				Paper:         *paper,
				MaxBudget:     budget,
			})
			if err != nil {
				return err
			}
			return bot.Run(ctx)
		},
	}
}
