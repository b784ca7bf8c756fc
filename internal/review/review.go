// Package review runs chat messages through the configured grammar backend.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/grammar"
	"github.com/eliseohh/grammarbot/internal/metrics"
	"github.com/eliseohh/grammarbot/internal/textutil"
)

// Review is the outcome of checking one message.
type Review struct {
	Algorithm   chatconfig.Algorithm
	Language    chatconfig.Language
	Corrections []grammar.Correction
	HideDetails bool
}

func (r Review) Empty() bool { return len(r.Corrections) == 0 }

// Reply formats one "*suggestion [message]" line per correction.
func (r Review) Reply() string {
	lines := make([]string, 0, len(r.Corrections))
	for _, c := range r.Corrections {
		line := "*" + c.Suggestion()
		if !r.HideDetails && c.Message != "" {
			line += " [" + c.Message + "]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

type Reviewer struct {
	registry *grammar.Registry
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewReviewer(registry *grammar.Registry, m *metrics.Metrics, logger *zap.Logger) *Reviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviewer{registry: registry, metrics: m, logger: logger}
}

// Review checks text for a chat. A stopped chat, a message with no prose
// left after sanitising, or a language the backend does not support all
// produce an empty Review and no error.
func (rv *Reviewer) Review(ctx context.Context, cfg *chatconfig.ChatConfig, text string) (Review, error) {
	out := Review{Algorithm: cfg.Algorithm, Language: cfg.Language, HideDetails: cfg.HideDetails}
	if cfg.Stopped {
		return out, nil
	}

	text = textutil.Sanitize(text)
	if text == "" {
		return out, nil
	}

	checker := rv.registry.For(cfg.Algorithm)
	if checker == nil {
		return out, fmt.Errorf("no grammar backend for %s", cfg.Algorithm)
	}
	out.Algorithm = checker.Algorithm()

	lang := cfg.Language
	if lang == chatconfig.Auto {
		detected, err := checker.DetectLanguage(ctx, text)
		if err != nil {
			rv.logger.Warn("language detection failed", zap.String("chat", cfg.Key), zap.Error(err))
		} else {
			lang = detected
		}
	}
	out.Language = lang

	start := time.Now()
	corrections, err := checker.Check(ctx, text, lang, cfg.Strictness)
	if errors.Is(err, grammar.ErrUnsupportedLanguage) {
		rv.logger.Debug("language not supported",
			zap.String("chat", cfg.Key),
			zap.Stringer("algorithm", out.Algorithm),
			zap.Stringer("language", lang))
		return out, nil
	}

	out.Corrections = grammar.Filter(corrections, cfg)
	rv.metrics.CheckDone(out.Algorithm.String(), time.Since(start), len(out.Corrections), err)
	if err != nil {
		return out, fmt.Errorf("check with %s: %w", out.Algorithm, err)
	}
	return out, nil
}
