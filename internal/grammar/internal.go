package grammar

import (
	"context"
	"strings"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/textutil"
)

var misspellings = map[chatconfig.Language]map[string]string{
	chatconfig.English: {
		"teh":        "the",
		"recieve":    "receive",
		"definately": "definitely",
		"alot":       "a lot",
		"seperate":   "separate",
		"occured":    "occurred",
		"untill":     "until",
		"wich":       "which",
		"becuase":    "because",
		"thier":      "their",
		"goverment":  "government",
		"tommorow":   "tomorrow",
		"wierd":      "weird",
		"accomodate": "accommodate",
		"begining":   "beginning",
		"beleive":    "believe",
		"freind":     "friend",
		"neccessary": "necessary",
		"noticable":  "noticeable",
		"truely":     "truly",
	},
	chatconfig.Spanish: {
		"haiga":    "haya",
		"nadien":   "nadie",
		"dijistes": "dijiste",
		"asin":     "así",
		"aver":     "a ver",
		"ojala":    "ojalá",
		"tambien":  "también",
		"porfavor": "por favor",
		"aveces":   "a veces",
		"enserio":  "en serio",
		"osea":     "o sea",
		"nose":     "no sé",
		"travez":   "través",
		"hechar":   "echar",
	},
}

// InternalChecker is a small offline heuristic: a table of common
// misspellings, repeated words and a few casing rules.
type InternalChecker struct {
	Detector
}

func NewInternalChecker() *InternalChecker {
	return &InternalChecker{}
}

func (c *InternalChecker) Algorithm() chatconfig.Algorithm { return chatconfig.InternalAlgorithm }

func (c *InternalChecker) Check(_ context.Context, text string, lang chatconfig.Language, _ chatconfig.Strictness) ([]Correction, error) {
	if lang == chatconfig.Auto {
		lang = chatconfig.English
	}
	table := misspellings[lang]

	var corrections []Correction
	words := textutil.Words(text)
	for i, w := range words {
		lower := strings.ToLower(w.Text)

		if fix, ok := table[lower]; ok {
			if textutil.IsCapitalized(w.Text) {
				fix = textutil.Capitalize(fix)
			}
			corrections = append(corrections, Correction{
				Offset:      w.Offset,
				Length:      len(w.Text),
				Word:        w.Text,
				Suggestions: []string{fix},
				Message:     "Possible spelling mistake",
			})
			continue
		}

		if i > 0 && strings.EqualFold(words[i-1].Text, w.Text) && onlySpaceBetween(text, words[i-1], w) {
			prev := words[i-1]
			end := w.Offset + len(w.Text)
			corrections = append(corrections, Correction{
				Offset:      prev.Offset,
				Length:      end - prev.Offset,
				Word:        text[prev.Offset:end],
				Suggestions: []string{prev.Text},
				Message:     "Repeated word",
			})
			continue
		}

		if lang == chatconfig.English && w.Text == "i" {
			corrections = append(corrections, Correction{
				Offset:      w.Offset,
				Length:      1,
				Word:        "i",
				Suggestions: []string{"I"},
				Message:     "The pronoun 'I' is always capitalized",
				Minor:       true,
			})
			continue
		}

		if startsSentence(text, w.Offset) && !textutil.IsCapitalized(w.Text) {
			corrections = append(corrections, Correction{
				Offset:      w.Offset,
				Length:      len(w.Text),
				Word:        w.Text,
				Suggestions: []string{textutil.Capitalize(w.Text)},
				Message:     "Sentences should start with a capital letter",
				Minor:       true,
			})
		}
	}
	return corrections, nil
}

func onlySpaceBetween(text string, a, b textutil.Word) bool {
	return strings.TrimSpace(text[a.Offset+len(a.Text):b.Offset]) == ""
}

func startsSentence(text string, offset int) bool {
	before := strings.TrimRight(text[:offset], " \t")
	if before == "" {
		return true
	}
	switch before[len(before)-1] {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}
