package grammar

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

const (
	DefaultYandexURL = "https://speller.yandex.net"
	yandexMaxRunes   = 10000
)

// Speller option flags.
const (
	yandexIgnoreDigits         = 2
	yandexIgnoreURLs           = 4
	yandexFindRepeatWords      = 8
	yandexIgnoreCapitalization = 512
)

// Speller error codes.
const (
	yandexUnknownWord    = 1
	yandexRepeatWord     = 2
	yandexCapitalization = 3
)

type YandexChecker struct {
	Detector
	api apiClient
}

func NewYandexChecker(baseURL string, timeout time.Duration) *YandexChecker {
	return &YandexChecker{api: newAPIClient("yandex speller", baseURL, DefaultYandexURL, timeout)}
}

func (c *YandexChecker) Algorithm() chatconfig.Algorithm { return chatconfig.YandexSpellerAPI }

func yandexLang(lang chatconfig.Language) (string, bool) {
	switch lang {
	case chatconfig.Auto:
		return "en,ru", true
	case chatconfig.English:
		return "en", true
	case chatconfig.Russian:
		return "ru", true
	}
	return "", false
}

func (c *YandexChecker) Check(ctx context.Context, text string, lang chatconfig.Language, strictness chatconfig.Strictness) ([]Correction, error) {
	code, ok := yandexLang(lang)
	if !ok {
		return nil, ErrUnsupportedLanguage
	}
	text = truncateRunes(text, yandexMaxRunes)

	options := yandexIgnoreDigits | yandexIgnoreURLs
	if strictness == chatconfig.Tolerant {
		options |= yandexIgnoreCapitalization
	} else {
		options |= yandexFindRepeatWords
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("lang", code)
	form.Set("options", strconv.Itoa(options))

	res, err := c.api.postForm(ctx, "/services/spellservice.json/checkText", form)
	if err != nil {
		return nil, err
	}

	var corrections []Correction
	res.ForEach(func(_, e gjson.Result) bool {
		off, n, ok := utf16Span(text, int(e.Get("pos").Int()), int(e.Get("len").Int()))
		if !ok {
			return true
		}
		var suggestions []string
		for _, s := range e.Get("s").Array() {
			suggestions = append(suggestions, s.String())
		}
		errCode := int(e.Get("code").Int())
		corrections = append(corrections, Correction{
			Offset:      off,
			Length:      n,
			Word:        text[off : off+n],
			Suggestions: suggestions,
			Message:     yandexMessage(errCode),
			Minor:       errCode == yandexCapitalization,
		})
		return true
	})
	return corrections, nil
}

func yandexMessage(code int) string {
	switch code {
	case yandexUnknownWord:
		return "Unknown word"
	case yandexRepeatWord:
		return "Repeated word"
	case yandexCapitalization:
		return "Incorrect capitalization"
	}
	return ""
}
