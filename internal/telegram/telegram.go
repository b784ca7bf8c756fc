// Package telegram connects the bot service to Telegram through telebot.
package telegram

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"github.com/eliseohh/grammarbot/internal/bot"
	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/command"
	"github.com/eliseohh/grammarbot/internal/review"
)

const (
	prefix          = "/"
	botNotAdminNote = "NOTE: The bot needs admin rights in order to read messages from this chat."
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

// adminLister is the part of *tele.Bot used for permission checks.
type adminLister interface {
	AdminsOf(chat *tele.Chat) ([]tele.ChatMember, error)
}

type Bot struct {
	api    *tele.Bot
	me     *tele.User
	admins adminLister
	svc    *bot.Service
	pool   *review.Pool
	logger *zap.Logger

	// ctx bounds the review jobs; set by Run.
	ctx context.Context
}

func New(cfg Config, svc *bot.Service, pool *review.Pool, logger *zap.Logger) (*Bot, error) {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	logger = logger.Named("telegram")

	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c tele.Context) {
			fields := []zap.Field{zap.Error(err)}
			if c != nil && c.Chat() != nil {
				fields = append(fields, zap.Int64("chat", c.Chat().ID))
			}
			logger.Error("handler failed", fields...)
		},
	}

	api, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:    api,
		me:     api.Me,
		admins: api,
		svc:    svc,
		pool:   pool,
		logger: logger,
		ctx:    context.Background(),
	}
	b.register()
	return b, nil
}

// Run polls Telegram until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	if err := b.api.SetCommands(b.menu()); err != nil {
		b.logger.Warn("could not register command menu", zap.Error(err))
	}

	b.logger.Info("bot started", zap.String("username", b.me.Username))
	go b.api.Start()
	<-ctx.Done()
	b.api.Stop()
	b.logger.Info("bot stopped")
	return nil
}

func (b *Bot) register() {
	for _, name := range b.svc.Dispatcher().Names() {
		b.api.Handle(prefix+name, b.handleCommand)
	}
	// Unregistered or differently cased commands land here too.
	b.api.Handle(tele.OnText, b.handleText)
	b.api.Handle(tele.OnCallback, b.handleCallback)
	b.api.Handle(tele.OnUserLeft, b.handleUserLeft)
}

func (b *Bot) menu() []tele.Command {
	infos := b.svc.Dispatcher().Commands()
	cmds := make([]tele.Command, 0, len(infos))
	for _, s := range infos {
		cmds = append(cmds, tele.Command{Text: s.Name, Description: s.Description})
	}
	return cmds
}

func chatKey(c tele.Context) string {
	return chatconfig.Key(chatconfig.PlatformTelegram, c.Chat().ID)
}

func (b *Bot) handleCommand(c tele.Context) error {
	req := command.Request{
		Text:    c.Text(),
		Prefix:  prefix,
		BotName: b.me.Username,
	}
	if !b.svc.Dispatcher().Handles(req) {
		return nil
	}

	b.svc.Metrics().MessageReceived(chatconfig.PlatformTelegram, "command")
	if err := c.Notify(tele.Typing); err != nil {
		b.logger.Debug("typing notification failed", zap.Error(err))
	}

	isAdmin, err := b.isAdmin(c.Chat(), c.Sender())
	if err != nil {
		return err
	}
	req.IsAdmin = isAdmin

	res, err := b.svc.HandleCommand(b.ctx, chatKey(c), req)
	if err != nil {
		return err
	}
	if !res.Handled {
		return nil
	}
	return b.deliver(c, res)
}

func (b *Bot) handleCallback(c tele.Context) error {
	b.svc.Metrics().MessageReceived(chatconfig.PlatformTelegram, "callback")

	cb := c.Callback()
	if cb == nil {
		return nil
	}
	isAdmin, err := b.isAdmin(c.Chat(), c.Sender())
	if err != nil {
		return err
	}

	res, err := b.svc.HandleCallback(b.ctx, chatKey(c), cb.Data, isAdmin)
	if err != nil {
		return err
	}
	if !res.Handled {
		return c.Respond()
	}
	if err := c.Respond(&tele.CallbackResponse{Text: res.Reply}); err != nil {
		b.logger.Debug("callback answer failed", zap.Error(err))
	}
	return b.deliver(c, res)
}

// deliver sends a command result: choices as an inline keyboard, denials as a
// reply to the command, and the admin-rights note after a change.
func (b *Bot) deliver(c tele.Context, res command.Result) error {
	var err error
	switch {
	case res.Choices != nil:
		err = c.Send(res.Choices.Title, keyboard(res.Choices))
	case res.Denied && c.Message() != nil && c.Callback() == nil:
		err = c.Reply(res.Reply)
	default:
		err = c.Send(res.Reply)
	}
	if err != nil {
		return err
	}

	if res.Mutated() {
		return b.notifyIfBotNotAdmin(c)
	}
	return nil
}

func keyboard(ch *command.Choices) *tele.ReplyMarkup {
	rows := make([][]tele.InlineButton, 0, len(ch.Options))
	for _, o := range ch.Options {
		rows = append(rows, []tele.InlineButton{{Text: o.Label, Data: o.Data}})
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func (b *Bot) handleText(c tele.Context) error {
	text := c.Text()
	if strings.HasPrefix(text, prefix) {
		return b.handleCommand(c)
	}
	if c.Sender() != nil && c.Sender().IsBot {
		return nil
	}
	b.svc.Metrics().MessageReceived(chatconfig.PlatformTelegram, "text")

	key := chatKey(c)
	err := b.pool.Submit(func() { b.review(c, key, text) })
	if errors.Is(err, review.ErrPoolFull) {
		b.svc.Metrics().Dropped()
		b.logger.Warn("review queue full, message skipped", zap.String("chat", key))
		return nil
	}
	return err
}

func (b *Bot) review(c tele.Context, key, text string) {
	r, err := b.svc.Review(b.ctx, key, text)
	if err != nil {
		b.logger.Error("review failed", zap.String("chat", key), zap.Error(err))
		return
	}
	if r.Empty() {
		return
	}
	if err := c.Reply(r.Reply()); err != nil {
		b.logger.Error("send correction failed", zap.String("chat", key), zap.Error(err))
	}
}

func (b *Bot) handleUserLeft(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.UserLeft == nil || b.me == nil || msg.UserLeft.ID != b.me.ID {
		return nil
	}
	return b.svc.Forget(b.ctx, chatKey(c))
}

func (b *Bot) isAdmin(chat *tele.Chat, user *tele.User) (bool, error) {
	if chat == nil || user == nil {
		return false, nil
	}
	if chat.Type == tele.ChatPrivate {
		return true, nil
	}
	admins, err := b.admins.AdminsOf(chat)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(admins, func(m tele.ChatMember) bool {
		return m.User != nil && m.User.ID == user.ID
	}), nil
}

func (b *Bot) notifyIfBotNotAdmin(c tele.Context) error {
	ok, err := b.isAdmin(c.Chat(), b.me)
	if err != nil {
		b.logger.Warn("could not check bot admin rights", zap.Error(err))
		return nil
	}
	if ok {
		return nil
	}
	return c.Send(botNotAdminNote)
}
