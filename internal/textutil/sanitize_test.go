package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"mentions", "@alice hello there", "hello there"},
		{"hashtags", "loving this #golang #bots", "loving this"},
		{"emojis", "great job 🎉🔥 team", "great job team"},
		{"links", "see https://example.com/a?b=c now", "see now"},
		{"inline code", "run `go vet` first", "run first"},
		{"discord mention", "<@!123456> and <#987> ok", "and ok"},
		{"multiline", "first line\n\n  second   line  ", "first line\nsecond line"},
		{"email stays", "mail me at bob@example.com", "mail me at bob@example.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestWords(t *testing.T) {
	text := "I can't go, señor!"
	words := Words(text)

	got := make([]string, 0, len(words))
	for _, w := range words {
		got = append(got, w.Text)
		assert.Equal(t, w.Text, text[w.Offset:w.Offset+len(w.Text)])
	}
	assert.Equal(t, []string{"I", "can't", "go", "señor"}, got)
}

func TestParseCommand(t *testing.T) {
	cmd, ok := ParseCommand("/Language@grammar_bot 2", "/")
	assert.True(t, ok)
	assert.Equal(t, "language", cmd.Name)
	assert.Equal(t, "grammar_bot", cmd.BotName)
	assert.Equal(t, []string{"2"}, cmd.Args)

	cmd, ok = ParseCommand("!add_whitelist   kubectl", "!")
	assert.True(t, ok)
	assert.Equal(t, "add_whitelist", cmd.Name)
	assert.Empty(t, cmd.BotName)
	assert.Equal(t, []string{"kubectl"}, cmd.Args)

	_, ok = ParseCommand("hello", "/")
	assert.False(t, ok)
	_, ok = ParseCommand("/", "/")
	assert.False(t, ok)
	_, ok = ParseCommand("/@bot", "/")
	assert.False(t, ok)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Élan", Capitalize("élan"))
	assert.True(t, IsCapitalized("Go"))
	assert.False(t, IsCapitalized("go"))
}
