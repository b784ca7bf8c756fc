package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

// Callback data kinds.
const (
	KindAlgorithm = "algorithm"
	KindLanguage  = "language"
)

type Option struct {
	Value    int
	Label    string
	Data     string
	Selected bool
}

// Choices is an option list. Telegram renders it as inline buttons, Discord
// as a numbered list.
type Choices struct {
	Kind    string
	Title   string
	Hint    string
	Options []Option
}

func AlgorithmChoices(selected chatconfig.Algorithm, hint string) *Choices {
	c := &Choices{Kind: KindAlgorithm, Title: "Algorithms:", Hint: hint}
	for _, a := range chatconfig.Algorithms() {
		c.Options = append(c.Options, option(KindAlgorithm, int(a), a.String(), a == selected))
	}
	return c
}

func LanguageChoices(selected chatconfig.Language, hint string) *Choices {
	c := &Choices{Kind: KindLanguage, Title: "Languages:", Hint: hint}
	for _, l := range chatconfig.Languages() {
		c.Options = append(c.Options, option(KindLanguage, int(l), l.String(), l == selected))
	}
	return c
}

func option(kind string, value int, name string, selected bool) Option {
	return Option{
		Value:    value,
		Label:    fmt.Sprintf("%d - %s", value, name),
		Data:     kind + ":" + strconv.Itoa(value),
		Selected: selected,
	}
}

// String renders the choices as text, marking the selected option.
func (c *Choices) String() string {
	var sb strings.Builder
	sb.WriteString(c.Title)
	for _, o := range c.Options {
		sb.WriteString("\n")
		sb.WriteString(o.Label)
		if o.Selected {
			sb.WriteString(" ✅")
		}
	}
	if c.Hint != "" {
		sb.WriteString("\n\n")
		sb.WriteString(c.Hint)
	}
	return sb.String()
}
