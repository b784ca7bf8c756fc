package grammar

import (
	"context"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

const DefaultLanguageToolURL = "https://api.languagetool.org"

var languageToolLocales = map[chatconfig.Language]string{
	chatconfig.Auto:       "auto",
	chatconfig.English:    "en-US",
	chatconfig.Spanish:    "es",
	chatconfig.French:     "fr",
	chatconfig.German:     "de-DE",
	chatconfig.Portuguese: "pt-PT",
	chatconfig.Russian:    "ru-RU",
}

// Rule categories LanguageTool reports that are not spelling or grammar.
var languageToolMinor = map[string]bool{
	"CASING":      true,
	"PUNCTUATION": true,
	"TYPOGRAPHY":  true,
	"STYLE":       true,
	"REDUNDANCY":  true,
	"WHITESPACE":  true,
}

type LanguageToolChecker struct {
	Detector
	api apiClient
}

func NewLanguageToolChecker(baseURL string, timeout time.Duration) *LanguageToolChecker {
	return &LanguageToolChecker{api: newAPIClient("languagetool", baseURL, DefaultLanguageToolURL, timeout)}
}

func (c *LanguageToolChecker) Algorithm() chatconfig.Algorithm { return chatconfig.LanguageToolAPI }

func (c *LanguageToolChecker) Check(ctx context.Context, text string, lang chatconfig.Language, strictness chatconfig.Strictness) ([]Correction, error) {
	locale, ok := languageToolLocales[lang]
	if !ok {
		return nil, ErrUnsupportedLanguage
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("language", locale)
	if strictness == chatconfig.Intolerant {
		form.Set("level", "picky")
	}

	res, err := c.api.postForm(ctx, "/v2/check", form)
	if err != nil {
		return nil, err
	}

	var corrections []Correction
	res.Get("matches").ForEach(func(_, m gjson.Result) bool {
		off, n, ok := utf16Span(text, int(m.Get("offset").Int()), int(m.Get("length").Int()))
		if !ok {
			return true
		}
		var suggestions []string
		for _, r := range m.Get("replacements.#.value").Array() {
			suggestions = append(suggestions, r.String())
		}
		category := m.Get("rule.category.id").String()
		issue := m.Get("rule.issueType").String()
		corrections = append(corrections, Correction{
			Offset:      off,
			Length:      n,
			Word:        text[off : off+n],
			Suggestions: suggestions,
			Message:     m.Get("message").String(),
			Minor:       languageToolMinor[category] || issue == "typographical" || issue == "whitespace" || issue == "style",
		})
		return true
	})
	return corrections, nil
}
