package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	reMention   = regexp.MustCompile(`(^|\s)@\w+`)
	reDiscordID = regexp.MustCompile(`<(@[!&]?|#|a?:\w+:)\d+>`)
	reHashtag   = regexp.MustCompile(`(^|\s)#\w+`)
	reURL       = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	reCodeBlock = regexp.MustCompile("(?s)```.*?```")
	reCode      = regexp.MustCompile("`[^`]*`")
	reSpaces    = regexp.MustCompile(`[ \t]+`)
	reWord      = regexp.MustCompile(`[\p{L}']+`)
)

// Sanitize strips everything that is not prose: mentions, hashtags, links,
// code and emojis.
func Sanitize(text string) string {
	text = reCodeBlock.ReplaceAllString(text, " ")
	text = reCode.ReplaceAllString(text, " ")
	text = reURL.ReplaceAllString(text, " ")
	text = reDiscordID.ReplaceAllString(text, " ")
	text = reMention.ReplaceAllString(text, "$1")
	text = reHashtag.ReplaceAllString(text, "$1")
	text = RemoveEmojis(text)

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(reSpaces.ReplaceAllString(l, " "))
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

func RemoveEmojis(text string) string {
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, transport, flags
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r == 0x200D || (r >= 0xFE00 && r <= 0xFE0F): // joiners, variation selectors
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tones
		return true
	}
	return unicode.Is(unicode.So, r) && r > 0x2000
}

type Word struct {
	Text   string
	Offset int
}

// Words splits text into letter runs with their byte offsets.
func Words(text string) []Word {
	idx := reWord.FindAllStringIndex(text, -1)
	words := make([]Word, 0, len(idx))
	for _, m := range idx {
		w := strings.Trim(text[m[0]:m[1]], "'")
		if w == "" {
			continue
		}
		off := m[0] + strings.Index(text[m[0]:m[1]], w)
		words = append(words, Word{Text: w, Offset: off})
	}
	return words
}

// IsCapitalized reports whether w starts with an upper-case letter.
func IsCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func Capitalize(w string) string {
	r, n := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[n:]
}

// CommandLine is a parsed chat command such as "/language@my_bot 2".
type CommandLine struct {
	Name    string
	BotName string
	Args    []string
}

// ParseCommand splits text that starts with prefix into name, @bot suffix and args.
func ParseCommand(text, prefix string) (CommandLine, bool) {
	if prefix == "" || !strings.HasPrefix(text, prefix) {
		return CommandLine{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(text, prefix))
	if len(fields) == 0 {
		return CommandLine{}, false
	}

	head := fields[0]
	cmd := CommandLine{Args: fields[1:]}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head, cmd.BotName = head[:i], head[i+1:]
	}
	cmd.Name = strings.ToLower(head)
	if cmd.Name == "" {
		return CommandLine{}, false
	}
	return cmd, true
}
