// Package grammar holds the interchangeable grammar-checking backends.
package grammar

import (
	"context"
	"errors"
	"fmt"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

var ErrUnsupportedLanguage = errors.New("grammar: language not supported by backend")

// Correction is a single finding. Offset and Length are byte positions in the
// checked text.
type Correction struct {
	Offset      int
	Length      int
	Word        string
	Suggestions []string
	Message     string
	// Minor findings (casing, punctuation, style) are dropped in tolerant chats.
	Minor bool
}

func (c Correction) Suggestion() string {
	if len(c.Suggestions) == 0 {
		return ""
	}
	return c.Suggestions[0]
}

type Checker interface {
	Algorithm() chatconfig.Algorithm
	DetectLanguage(ctx context.Context, text string) (chatconfig.Language, error)
	Check(ctx context.Context, text string, lang chatconfig.Language, strictness chatconfig.Strictness) ([]Correction, error)
}

// APIError is returned when a backend answers with a non-2xx status.
type APIError struct {
	Backend    string
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Backend, e.Status)
}

type Registry struct {
	checkers map[chatconfig.Algorithm]Checker
}

func NewRegistry(checkers ...Checker) *Registry {
	r := &Registry{checkers: make(map[chatconfig.Algorithm]Checker, len(checkers))}
	for _, c := range checkers {
		r.Register(c)
	}
	return r
}

func (r *Registry) Register(c Checker) {
	r.checkers[c.Algorithm()] = c
}

// For returns the checker for a, falling back to the default algorithm and
// then to the internal heuristic. It returns nil when nothing is registered.
func (r *Registry) For(a chatconfig.Algorithm) Checker {
	for _, alg := range []chatconfig.Algorithm{a, chatconfig.DefaultAlgorithm, chatconfig.InternalAlgorithm} {
		if c, ok := r.checkers[alg]; ok {
			return c
		}
	}
	return nil
}

// Filter applies the chat's whitelist and strictness to raw corrections.
func Filter(corrections []Correction, cfg *chatconfig.ChatConfig) []Correction {
	out := make([]Correction, 0, len(corrections))
	for _, c := range corrections {
		s := c.Suggestion()
		if s == "" || s == c.Word {
			continue
		}
		if c.Minor && cfg.Strictness == chatconfig.Tolerant {
			continue
		}
		if cfg.IsWhitelisted(c.Word) {
			continue
		}
		out = append(out, c)
	}
	return out
}
