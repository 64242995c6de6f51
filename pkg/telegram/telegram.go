// Package telegram wraps the bot API transport. The core only ever
// sees plain text and opaque choice payloads.
package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	tb "gopkg.in/tucnak/telebot.v2"
)

// Message is an inbound text message or command payload.
type Message struct {
	Sender int64
	Chat   int64
	Text   string
}

// Choice is an inbound button press carrying the opaque payload the
// button was created with.
type Choice struct {
	Sender int64
	Chat   int64
	Data   string
	msg    *tb.Message
}

var (
	btnConfirm = tb.InlineButton{Unique: "sig_ok", Text: "✅ Confirm"}
	btnCancel  = tb.InlineButton{Unique: "sig_no", Text: "✖️ Cancel"}
)

type outgoing struct {
	chat int64
	text string
}

type Bot struct {
	bot      *tb.Bot
	boot     time.Time
	log      zerolog.Logger
	messages chan outgoing
}

func New(log zerolog.Logger, token string) (*Bot, error) {
	b, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: couldn't create bot: %w", err)
	}
	return &Bot{
		bot:      b,
		boot:     time.Now(),
		log:      log.With().Str("component", "telegram").Logger(),
		messages: make(chan outgoing, 100),
	}, nil
}

// HandleCommand registers a handler for a /command. The handler
// receives the command payload as text.
func (b *Bot) HandleCommand(command string, handler func(Message)) {
	b.bot.Handle(fmt.Sprintf("/%s", command), func(m *tb.Message) {
		if m.Time().Before(b.boot) {
			return
		}
		handler(Message{
			Sender: int64(m.Sender.ID),
			Chat:   m.Chat.ID,
			Text:   m.Payload,
		})
	})
}

// HandleText registers a handler for plain text messages.
func (b *Bot) HandleText(handler func(Message)) {
	b.bot.Handle(tb.OnText, func(m *tb.Message) {
		if m.Time().Before(b.boot) {
			return
		}
		handler(Message{
			Sender: int64(m.Sender.ID),
			Chat:   m.Chat.ID,
			Text:   m.Text,
		})
	})
}

// HandleChoice registers a handler for presses of either confirmation
// button.
func (b *Bot) HandleChoice(handler func(Choice)) {
	h := func(c *tb.Callback) {
		if err := b.bot.Respond(c, &tb.CallbackResponse{}); err != nil {
			b.log.Warn().Err(err).Msg("couldn't ack callback")
		}
		chat := int64(0)
		if c.Message != nil {
			chat = c.Message.Chat.ID
		}
		handler(Choice{
			Sender: int64(c.Sender.ID),
			Chat:   chat,
			Data:   c.Data,
			msg:    c.Message,
		})
	}
	b.bot.Handle(&btnConfirm, h)
	b.bot.Handle(&btnCancel, h)
}

// Ask sends a message with confirm and cancel buttons carrying the
// given payloads.
func (b *Bot) Ask(chat int64, text, confirmData, cancelData string) error {
	confirm := btnConfirm
	confirm.Data = confirmData
	cancel := btnCancel
	cancel.Data = cancelData
	markup := &tb.ReplyMarkup{
		InlineKeyboard: [][]tb.InlineButton{{confirm, cancel}},
	}
	if _, err := b.bot.Send(&tb.Chat{ID: chat}, text, markup); err != nil {
		return fmt.Errorf("telegram: couldn't send confirmation: %w", err)
	}
	return nil
}

// ClearChoice removes the button keyboard from the message a choice
// was made on, so it can't be pressed twice.
func (b *Bot) ClearChoice(c Choice) {
	if c.msg == nil {
		return
	}
	if _, err := b.bot.EditReplyMarkup(c.msg, nil); err != nil {
		b.log.Warn().Err(err).Msg("couldn't clear keyboard")
	}
}

// Send queues a plain text message for delivery.
func (b *Bot) Send(chat int64, text string) {
	select {
	case b.messages <- outgoing{chat: chat, text: text}:
	default:
		b.log.Warn().Int64("chat", chat).Msg("outgoing queue full, message dropped")
	}
}

// Run polls for updates and drains the outgoing queue until the
// context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	go b.bot.Start()
	defer b.bot.Stop()
	for {
		var msg outgoing
		select {
		case <-ctx.Done():
			return nil
		case msg = <-b.messages:
		}
		if _, err := b.bot.Send(&tb.Chat{ID: msg.chat}, msg.text); err != nil {
			b.log.Error().Err(err).Int64("chat", msg.chat).Msg("couldn't send message")
		}
		select {
		case <-ctx.Done():
			return nil
		// Wait to avoid rate limit errors
		case <-time.After(50 * time.Millisecond):
		}
	}
}
