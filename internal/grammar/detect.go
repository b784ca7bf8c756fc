package grammar

import (
	"context"

	"github.com/abadojack/whatlanggo"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
)

var detectable = map[whatlanggo.Lang]chatconfig.Language{
	whatlanggo.Eng: chatconfig.English,
	whatlanggo.Spa: chatconfig.Spanish,
	whatlanggo.Fra: chatconfig.French,
	whatlanggo.Deu: chatconfig.German,
	whatlanggo.Por: chatconfig.Portuguese,
	whatlanggo.Rus: chatconfig.Russian,
}

// Detector guesses the language of a message. Anything it is not sure about
// comes back as Auto: guesses below whatlanggo's reliability threshold, or
// below MinConfidence when that is set higher.
type Detector struct {
	MinConfidence float64
}

func (d Detector) DetectLanguage(_ context.Context, text string) (chatconfig.Language, error) {
	if text == "" {
		return chatconfig.Auto, nil
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() || info.Confidence < d.MinConfidence {
		return chatconfig.Auto, nil
	}
	if lang, ok := detectable[info.Lang]; ok {
		return lang, nil
	}
	return chatconfig.Auto, nil
}
