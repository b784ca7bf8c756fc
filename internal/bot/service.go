// Package bot is the platform-independent core shared by the Telegram and
// Discord adapters: load the chat config, run commands, review messages.
package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/command"
	"github.com/eliseohh/grammarbot/internal/metrics"
	"github.com/eliseohh/grammarbot/internal/review"
	"github.com/eliseohh/grammarbot/internal/store"
)

const maxAttempts = 3

type Service struct {
	repo       store.Repository
	dispatcher *command.Dispatcher
	reviewer   *review.Reviewer
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewService(repo store.Repository, d *command.Dispatcher, rv *review.Reviewer, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, dispatcher: d, reviewer: rv, metrics: m, logger: logger}
}

func (s *Service) Dispatcher() *command.Dispatcher { return s.dispatcher }

func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

// HandleCommand runs req against the chat's config and persists any change.
// Plain text, unknown commands and commands for other bots come back
// unhandled without touching the store.
func (s *Service) HandleCommand(ctx context.Context, key string, req command.Request) (command.Result, error) {
	if !s.dispatcher.Handles(req) {
		return command.Result{}, nil
	}
	return s.apply(ctx, key, func(cfg *chatconfig.ChatConfig, fresh bool) command.Result {
		r := req
		r.Fresh = fresh
		return s.dispatcher.Dispatch(r, cfg)
	})
}

// HandleCallback does the same for inline button data.
func (s *Service) HandleCallback(ctx context.Context, key, data string, isAdmin bool) (command.Result, error) {
	if !command.IsCallback(data) {
		return command.Result{}, nil
	}
	return s.apply(ctx, key, func(cfg *chatconfig.ChatConfig, _ bool) command.Result {
		return s.dispatcher.Callback(data, isAdmin, cfg)
	})
}

// apply loads the config, runs fn and stores the mutation it returns. On a
// version conflict the config is re-read and fn runs again.
func (s *Service) apply(ctx context.Context, key string, fn func(*chatconfig.ChatConfig, bool) command.Result) (command.Result, error) {
	fresh := false
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cfg, created, err := store.GetOrCreate(ctx, s.repo, key)
		if err != nil {
			return command.Result{}, err
		}
		fresh = fresh || created

		res := fn(cfg, fresh)
		if !res.Handled {
			return res, nil
		}
		if !res.Mutated() {
			s.metrics.CommandHandled(res.Command, outcome(res))
			return res, nil
		}

		err = s.repo.Put(ctx, key, res.Config)
		if errors.Is(err, store.ErrVersionConflict) {
			s.logger.Debug("config changed concurrently, retrying",
				zap.String("chat", key), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			s.metrics.CommandHandled(res.Command, "error")
			return command.Result{}, fmt.Errorf("save chat config %s: %w", key, err)
		}
		s.metrics.CommandHandled(res.Command, outcome(res))
		s.logger.Info("chat config updated",
			zap.String("chat", key),
			zap.String("command", res.Command),
			zap.Int64("version", res.Config.Version))
		return res, nil
	}
	return command.Result{}, fmt.Errorf("save chat config %s after %d attempts: %w", key, maxAttempts, store.ErrVersionConflict)
}

func outcome(res command.Result) string {
	switch {
	case res.Denied:
		return "denied"
	case res.Mutated():
		return "updated"
	}
	return "ok"
}

// Review checks a chat message, creating the chat's config on first contact.
func (s *Service) Review(ctx context.Context, key, text string) (review.Review, error) {
	cfg, created, err := store.GetOrCreate(ctx, s.repo, key)
	if err != nil {
		return review.Review{}, err
	}
	if created {
		s.logger.Info("new chat", zap.String("chat", key))
	}
	return s.reviewer.Review(ctx, cfg, text)
}

// Forget drops the config of a chat the bot left or a channel that was deleted.
func (s *Service) Forget(ctx context.Context, key string) error {
	err := s.repo.Delete(ctx, key)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("forget chat %s: %w", key, err)
	}
	s.logger.Info("chat forgotten", zap.String("chat", key))
	return nil
}
