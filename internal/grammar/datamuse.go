package grammar

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/textutil"
)

const (
	DefaultDatamuseURL = "https://api.datamuse.com"
	datamuseParallel   = 4
	datamuseMinLen     = 3
)

type DatamuseChecker struct {
	Detector
	api apiClient
}

func NewDatamuseChecker(baseURL string, timeout time.Duration) *DatamuseChecker {
	return &DatamuseChecker{api: newAPIClient("datamuse", baseURL, DefaultDatamuseURL, timeout)}
}

func (c *DatamuseChecker) Algorithm() chatconfig.Algorithm { return chatconfig.DatamuseAPI }

func (c *DatamuseChecker) Check(ctx context.Context, text string, lang chatconfig.Language, _ chatconfig.Strictness) ([]Correction, error) {
	var vocabulary string
	switch lang {
	case chatconfig.Auto, chatconfig.English:
	case chatconfig.Spanish:
		vocabulary = "es"
	default:
		return nil, ErrUnsupportedLanguage
	}

	words := textutil.Words(text)

	// One lookup per distinct lower-cased word.
	var distinct []string
	seen := make(map[string]bool)
	for _, w := range words {
		k := strings.ToLower(w.Text)
		if seen[k] || len([]rune(k)) < datamuseMinLen || strings.Contains(k, "'") {
			continue
		}
		seen[k] = true
		distinct = append(distinct, k)
	}

	var mu sync.Mutex
	lookups := make(map[string]string, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(datamuseParallel)
	for _, word := range distinct {
		word := word
		g.Go(func() error {
			s, err := c.suggest(gctx, word, vocabulary)
			if err != nil {
				return err
			}
			mu.Lock()
			lookups[word] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var corrections []Correction
	for _, w := range words {
		s := lookups[strings.ToLower(w.Text)]
		if s == "" {
			continue
		}
		capitalized := textutil.IsCapitalized(w.Text)
		if capitalized {
			s = textutil.Capitalize(s)
		}
		corrections = append(corrections, Correction{
			Offset:      w.Offset,
			Length:      len(w.Text),
			Word:        w.Text,
			Suggestions: []string{s},
			Message:     "Possible misspelling",
			// capitalised words are often names
			Minor: capitalized,
		})
	}
	return corrections, nil
}

// suggest returns a replacement for word, or "" when Datamuse knows the word.
func (c *DatamuseChecker) suggest(ctx context.Context, word, vocabulary string) (string, error) {
	q := url.Values{}
	q.Set("sp", word)
	q.Set("max", "5")
	if vocabulary != "" {
		q.Set("v", vocabulary)
	}

	res, err := c.api.get(ctx, "/words", q)
	if err != nil {
		return "", err
	}

	candidates := res.Get("#.word").Array()
	if len(candidates) == 0 {
		return "", nil
	}
	for _, cand := range candidates {
		if strings.EqualFold(cand.String(), word) {
			return "", nil
		}
	}
	return candidates[0].String(), nil
}
