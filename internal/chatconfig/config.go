package chatconfig

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Platform prefixes used to build repository keys.
const (
	PlatformTelegram = "telegram"
	PlatformDiscord  = "discord"
)

// ChatConfig is the per-chat (Telegram) or per-channel (Discord) settings record.
// Version is 0 until the record has been stored once.
type ChatConfig struct {
	Key         string
	Algorithm   Algorithm
	Language    Language
	Strictness  Strictness
	HideDetails bool
	Stopped     bool
	Whitelist   []string
	Version     int64
	UpdatedAt   time.Time
}

func Key(platform string, id any) string {
	return fmt.Sprintf("%s:%v", platform, id)
}

func Default(key string) *ChatConfig {
	return &ChatConfig{
		Key:        key,
		Algorithm:  DefaultAlgorithm,
		Language:   Auto,
		Strictness: Intolerant,
	}
}

func (c *ChatConfig) Clone() *ChatConfig {
	cp := *c
	cp.Whitelist = slices.Clone(c.Whitelist)
	return &cp
}

func (c *ChatConfig) Validate() error {
	if c.Key == "" {
		return fmt.Errorf("chat config: empty key")
	}
	if !c.Algorithm.Valid() {
		return fmt.Errorf("chat config %s: unknown algorithm %d", c.Key, c.Algorithm)
	}
	if !c.Language.Valid() {
		return fmt.Errorf("chat config %s: unknown language %d", c.Key, c.Language)
	}
	if !c.Strictness.Valid() {
		return fmt.Errorf("chat config %s: unknown strictness %d", c.Key, c.Strictness)
	}
	return nil
}

// AddWord appends w to the whitelist unless a case-insensitive match exists.
func (c *ChatConfig) AddWord(w string) bool {
	w = strings.TrimSpace(w)
	if w == "" || c.IsWhitelisted(w) {
		return false
	}
	c.Whitelist = append(c.Whitelist, w)
	return true
}

func (c *ChatConfig) RemoveWord(w string) bool {
	key := fold(w)
	if key == "" {
		return false
	}
	i := slices.IndexFunc(c.Whitelist, func(s string) bool { return fold(s) == key })
	if i < 0 {
		return false
	}
	c.Whitelist = slices.Delete(c.Whitelist, i, i+1)
	return true
}

func (c *ChatConfig) IsWhitelisted(w string) bool {
	key := fold(w)
	if key == "" {
		return false
	}
	return slices.ContainsFunc(c.Whitelist, func(s string) bool { return fold(s) == key })
}

// NormalizeWhitelist trims and deduplicates words loaded from storage.
func NormalizeWhitelist(words []string) []string {
	out := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		k := fold(w)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, w)
	}
	return out
}

func fold(s string) string {
	// cases.Caser keeps state, so it is built per call.
	return cases.Fold().String(strings.TrimSpace(s))
}
