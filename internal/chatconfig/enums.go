package chatconfig

// Algorithm selects the grammar-checking backend for a chat.
type Algorithm int

const (
	InternalAlgorithm Algorithm = iota + 1
	YandexSpellerAPI
	LanguageToolAPI
	DatamuseAPI
)

const DefaultAlgorithm = LanguageToolAPI

var algorithmNames = map[Algorithm]string{
	InternalAlgorithm: "Internal Algorithm",
	YandexSpellerAPI:  "Yandex Speller API",
	LanguageToolAPI:   "LanguageTool API",
	DatamuseAPI:       "Datamuse API",
}

func Algorithms() []Algorithm {
	return []Algorithm{InternalAlgorithm, YandexSpellerAPI, LanguageToolAPI, DatamuseAPI}
}

func ParseAlgorithm(n int) (Algorithm, bool) {
	a := Algorithm(n)
	return a, a.Valid()
}

func (a Algorithm) Valid() bool {
	_, ok := algorithmNames[a]
	return ok
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return "Unknown"
}

// Language is the language messages are checked in. Auto means detect per message.
type Language int

const (
	Auto Language = iota
	English
	Spanish
	French
	German
	Portuguese
	Russian
)

type languageInfo struct {
	name string
	code string
}

var languageInfos = map[Language]languageInfo{
	Auto:       {"Auto", ""},
	English:    {"English", "en"},
	Spanish:    {"Spanish", "es"},
	French:     {"French", "fr"},
	German:     {"German", "de"},
	Portuguese: {"Portuguese", "pt"},
	Russian:    {"Russian", "ru"},
}

func Languages() []Language {
	return []Language{Auto, English, Spanish, French, German, Portuguese, Russian}
}

func ParseLanguage(n int) (Language, bool) {
	l := Language(n)
	return l, l.Valid()
}

func (l Language) Valid() bool {
	_, ok := languageInfos[l]
	return ok
}

func (l Language) String() string {
	if i, ok := languageInfos[l]; ok {
		return i.name
	}
	return "Unknown"
}

// Code returns the ISO 639-1 code, or "" for Auto.
func (l Language) Code() string {
	return languageInfos[l].code
}

// Strictness controls whether minor findings (casing, punctuation, style) are reported.
type Strictness int

const (
	Intolerant Strictness = iota + 1
	Tolerant
)

func (s Strictness) Valid() bool {
	return s == Intolerant || s == Tolerant
}

func (s Strictness) String() string {
	switch s {
	case Intolerant:
		return "Intolerant"
	case Tolerant:
		return "Tolerant"
	}
	return "Unknown"
}
