// Package discord connects the bot service to Discord through discordgo.
package discord

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/eliseohh/grammarbot/internal/bot"
	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/command"
	"github.com/eliseohh/grammarbot/internal/review"
)

const (
	DefaultPrefix = "!"
	embedColor    = 0x5865F2
	intents       = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent
)

// session is the subset of *discordgo.Session the adapter uses, so tests can mock it.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
}

type Config struct {
	Token  string
	Prefix string
}

type Adapter struct {
	session session
	prefix  string
	svc     *bot.Service
	pool    *review.Pool
	logger  *zap.Logger

	mu  sync.RWMutex
	ctx context.Context
}

func New(cfg Config, svc *bot.Service, pool *review.Pool, logger *zap.Logger) (*Adapter, error) {
	if cfg.Token == "" {
		return nil, errors.New("discord: token is required")
	}
	dg, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = intents
	return newAdapter(dg, cfg.Prefix, svc, pool, logger), nil
}

func newAdapter(s session, prefix string, svc *bot.Service, pool *review.Pool, logger *zap.Logger) *Adapter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		session: s,
		prefix:  prefix,
		svc:     svc,
		pool:    pool,
		logger:  logger.Named("discord"),
		ctx:     context.Background(),
	}
}

// Run connects the gateway and serves events until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.session.AddHandler(a.handleReady)
	a.session.AddHandler(a.handleMessageCreate)
	a.session.AddHandler(a.handleChannelDelete)

	if err := a.session.Open(); err != nil {
		return err
	}
	<-ctx.Done()
	a.logger.Info("closing gateway")
	return a.session.Close()
}

func (a *Adapter) runCtx() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

func (a *Adapter) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r.User == nil {
		return
	}
	a.logger.Info("bot started", zap.String("username", r.User.Username), zap.Int("guilds", len(r.Guilds)))
}

func (a *Adapter) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.WebhookID != "" {
		return
	}

	var err error
	if strings.HasPrefix(m.Content, a.prefix) {
		err = a.handleCommand(m)
	} else {
		err = a.handleText(m)
	}
	if err != nil {
		a.logger.Error("handler failed", zap.String("channel", m.ChannelID), zap.Error(err))
	}
}

func (a *Adapter) handleCommand(m *discordgo.MessageCreate) error {
	req := command.Request{Text: m.Content, Prefix: a.prefix}
	if !a.svc.Dispatcher().Handles(req) {
		return nil
	}

	a.svc.Metrics().MessageReceived(chatconfig.PlatformDiscord, "command")
	if err := a.session.ChannelTyping(m.ChannelID); err != nil {
		a.logger.Debug("typing indicator failed", zap.Error(err))
	}

	isAdmin, err := a.isAdmin(m)
	if err != nil {
		return err
	}
	req.IsAdmin = isAdmin

	res, err := a.svc.HandleCommand(a.runCtx(), channelKey(m.ChannelID), req)
	if err != nil {
		return err
	}
	if !res.Handled {
		return nil
	}

	text := res.Reply
	if res.Choices != nil {
		text = res.Choices.String()
	}
	return a.sendEmbed(m, text)
}

func (a *Adapter) handleText(m *discordgo.MessageCreate) error {
	if strings.TrimSpace(m.Content) == "" {
		return nil
	}
	a.svc.Metrics().MessageReceived(chatconfig.PlatformDiscord, "text")

	key := channelKey(m.ChannelID)
	err := a.pool.Submit(func() { a.review(m, key) })
	if errors.Is(err, review.ErrPoolFull) {
		a.svc.Metrics().Dropped()
		a.logger.Warn("review queue full, message skipped", zap.String("channel", m.ChannelID))
		return nil
	}
	return err
}

func (a *Adapter) review(m *discordgo.MessageCreate, key string) {
	r, err := a.svc.Review(a.runCtx(), key, m.Content)
	if err != nil {
		a.logger.Error("review failed", zap.String("channel", m.ChannelID), zap.Error(err))
		return
	}
	if r.Empty() {
		return
	}
	if err := a.sendEmbed(m, m.Author.Mention()+"\n"+r.Reply()); err != nil {
		a.logger.Error("send correction failed", zap.String("channel", m.ChannelID), zap.Error(err))
	}
}

func (a *Adapter) handleChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	if c.Channel == nil {
		return
	}
	if err := a.svc.Forget(a.runCtx(), channelKey(c.ID)); err != nil {
		a.logger.Error("forget channel failed", zap.String("channel", c.ID), zap.Error(err))
	}
}

func (a *Adapter) sendEmbed(m *discordgo.MessageCreate, description string) error {
	_, err := a.session.ChannelMessageSendComplex(m.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{{Description: description, Color: embedColor}},
		Reference: m.Reference(),
	})
	return err
}

// isAdmin treats direct messages as admin; in guilds the author needs the
// Administrator permission on the channel.
func (a *Adapter) isAdmin(m *discordgo.MessageCreate) (bool, error) {
	if m.GuildID == "" {
		return true, nil
	}
	perms, err := a.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		return false, err
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func channelKey(channelID string) string {
	return chatconfig.Key(chatconfig.PlatformDiscord, channelID)
}
