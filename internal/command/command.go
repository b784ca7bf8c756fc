// Package command turns chat commands into configuration changes and replies.
// It has no I/O: platforms feed it text and admin status and apply the Result.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eliseohh/grammarbot/internal/chatconfig"
	"github.com/eliseohh/grammarbot/internal/textutil"
)

const (
	Start           = "start"
	Help            = "help"
	Settings        = "settings"
	SetAlgorithm    = "set_algorithm"
	Language        = "language"
	Stop            = "stop"
	HideDetails     = "hide_details"
	ShowDetails     = "show_details"
	Tolerant        = "tolerant"
	Intolerant      = "intolerant"
	Whitelist       = "whitelist"
	AddWhitelist    = "add_whitelist"
	RemoveWhitelist = "remove_whitelist"
)

const notAdminReply = "Only admins can use this command."

// Request is an incoming chat message as seen by the dispatcher.
type Request struct {
	Text    string
	Prefix  string
	BotName string
	IsAdmin bool
	// Fresh means the chat config was created for this message.
	Fresh bool
}

// Result is what the platform should do. Config is nil when nothing changed;
// otherwise it is a modified clone to persist.
type Result struct {
	Handled bool
	Command string
	Reply   string
	Config  *chatconfig.ChatConfig
	Choices *Choices
	Denied  bool
}

// Mutated reports whether the result carries a config to persist.
func (r Result) Mutated() bool { return r.Config != nil }

// Info describes a command for help texts and platform menus.
type Info struct {
	Name        string
	Description string
}

type handlerFunc func(d *Dispatcher, req Request, args []string, cfg *chatconfig.ChatConfig) Result

type entry struct {
	Info
	// admin commands mutate the config.
	admin bool
	run   handlerFunc
}

type Dispatcher struct {
	name    string
	table   map[string]entry
	ordered []Info
}

// New builds a dispatcher; name is how the bot introduces itself.
func New(name string) *Dispatcher {
	if name == "" {
		name = "GrammarBot"
	}
	d := &Dispatcher{name: name, table: make(map[string]entry)}

	d.add(Start, "start/activate the Bot.", false, (*Dispatcher).start)
	d.add(Help, "get useful commands.", false, (*Dispatcher).help)
	d.add(Settings, "get configured settings.", false, (*Dispatcher).settings)
	d.add(SetAlgorithm, "<algorithm_number> to set an algorithm.", true, (*Dispatcher).setAlgorithm)
	d.add(Language, "<language_number> to set a language.", true, (*Dispatcher).setLanguage)
	d.add(Stop, "stop/disable the Bot.", true, (*Dispatcher).stop)
	d.add(HideDetails, "Hide correction details", true, (*Dispatcher).hideDetails)
	d.add(ShowDetails, "Show correction details", true, (*Dispatcher).showDetails)
	d.add(Tolerant, "Set strictness level to "+chatconfig.Tolerant.String(), true, (*Dispatcher).tolerant)
	d.add(Intolerant, "Set strictness level to "+chatconfig.Intolerant.String(), true, (*Dispatcher).intolerant)
	d.add(Whitelist, "See the list of whitelisted words.", false, (*Dispatcher).whitelist)
	d.add(AddWhitelist, "<word> to add a word to the WhiteList.", true, (*Dispatcher).addWhitelist)
	d.add(RemoveWhitelist, "<word> to remove a word from the WhiteList.", true, (*Dispatcher).removeWhitelist)
	return d
}

func (d *Dispatcher) add(name, desc string, admin bool, run handlerFunc) {
	s := Info{Name: name, Description: desc}
	d.table[name] = entry{Info: s, admin: admin, run: run}
	d.ordered = append(d.ordered, s)
}

// Commands lists the known commands in help order.
func (d *Dispatcher) Commands() []Info {
	out := make([]Info, len(d.ordered))
	copy(out, d.ordered)
	return out
}

func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.ordered))
	for i, s := range d.ordered {
		names[i] = s.Name
	}
	return names
}

// Dispatch handles req against cfg. cfg itself is never modified.
func (d *Dispatcher) Dispatch(req Request, cfg *chatconfig.ChatConfig) Result {
	e, line, ok := d.lookup(req)
	if !ok {
		return Result{}
	}

	if e.admin && !req.IsAdmin {
		return denied(e.Name)
	}

	res := e.run(d, req, line.Args, cfg)
	res.Handled = true
	res.Command = e.Name
	return res
}

// Handles reports whether req names one of our commands addressed to this bot.
// Dispatch returns an unhandled Result for anything else.
func (d *Dispatcher) Handles(req Request) bool {
	_, _, ok := d.lookup(req)
	return ok
}

func (d *Dispatcher) lookup(req Request) (entry, textutil.CommandLine, bool) {
	line, ok := textutil.ParseCommand(strings.TrimSpace(req.Text), req.Prefix)
	if !ok {
		return entry{}, line, false
	}
	if line.BotName != "" && !strings.EqualFold(line.BotName, req.BotName) {
		return entry{}, line, false
	}
	e, ok := d.table[line.Name]
	return e, line, ok
}

// IsCallback reports whether data is inline button data Callback understands.
func IsCallback(data string) bool {
	kind, _, ok := strings.Cut(data, ":")
	return ok && (kind == KindAlgorithm || kind == KindLanguage)
}

// Callback handles inline button data of the form "algorithm:<n>" or "language:<n>".
func (d *Dispatcher) Callback(data string, isAdmin bool, cfg *chatconfig.ChatConfig) Result {
	if !IsCallback(data) {
		return Result{}
	}
	kind, value, _ := strings.Cut(data, ":")

	name := SetAlgorithm
	if kind == KindLanguage {
		name = Language
	}
	if !isAdmin {
		return denied(name)
	}

	req := Request{Prefix: "/", IsAdmin: true}
	var res Result
	if kind == KindAlgorithm {
		res = d.setAlgorithm(req, []string{value}, cfg)
	} else {
		res = d.setLanguage(req, []string{value}, cfg)
	}
	res.Handled = true
	res.Command = name
	return res
}

func denied(name string) Result {
	return Result{Handled: true, Command: name, Reply: notAdminReply, Denied: true}
}

func reply(format string, a ...any) Result {
	return Result{Reply: fmt.Sprintf(format, a...)}
}

func mutate(cfg *chatconfig.ChatConfig, reply string, fn func(*chatconfig.ChatConfig)) Result {
	next := cfg.Clone()
	fn(next)
	return Result{Reply: reply, Config: next}
}

// -- Handlers --

func (d *Dispatcher) start(req Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	if req.Fresh {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Hi, I'm %s.\n", d.name)
		sb.WriteString("I'm currently working and correcting all spelling errors in this chat.\n")
		fmt.Fprintf(&sb, "Type %s%s to get useful commands.", req.Prefix, Help)
		return Result{Reply: sb.String()}
	}
	if !cfg.Stopped {
		return reply("Bot is already started")
	}
	if !req.IsAdmin {
		return Result{Reply: notAdminReply, Denied: true}
	}
	return mutate(cfg, "Bot started", func(c *chatconfig.ChatConfig) { c.Stopped = false })
}

func (d *Dispatcher) help(req Request, _ []string, _ *chatconfig.ChatConfig) Result {
	var sb strings.Builder
	sb.WriteString("Help\n\nUseful commands:\n")
	for _, s := range d.ordered {
		if s.Name == Help {
			continue
		}
		fmt.Fprintf(&sb, "%s%s %s\n", req.Prefix, s.Name, s.Description)
	}
	return Result{Reply: strings.TrimRight(sb.String(), "\n")}
}

func (d *Dispatcher) settings(req Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	var sb strings.Builder
	sb.WriteString(AlgorithmChoices(cfg.Algorithm, "").String())
	sb.WriteString("\n\n")
	sb.WriteString(LanguageChoices(cfg.Language, "").String())
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Show correction details %s\n\n", checkmark(!cfg.HideDetails))
	fmt.Fprintf(&sb, "Strictness level:\n%s ✅", cfg.Strictness)

	if cfg.Stopped {
		fmt.Fprintf(&sb, "\n\nThe bot is currently stopped. Type %s%s to activate the Bot.", req.Prefix, Start)
	}
	return Result{Reply: sb.String()}
}

func (d *Dispatcher) setAlgorithm(req Request, args []string, cfg *chatconfig.ChatConfig) Result {
	hint := fmt.Sprintf("Type %s%s <algorithm_number> to set an algorithm.", req.Prefix, SetAlgorithm)
	if len(args) == 0 {
		return Result{Choices: AlgorithmChoices(cfg.Algorithm, hint)}
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return reply("Invalid parameter. %s", hint)
	}
	alg, ok := chatconfig.ParseAlgorithm(n)
	if !ok {
		return reply("Invalid parameter. %s", hint)
	}
	return mutate(cfg, "Algorithm updated.", func(c *chatconfig.ChatConfig) { c.Algorithm = alg })
}

func (d *Dispatcher) setLanguage(req Request, args []string, cfg *chatconfig.ChatConfig) Result {
	hint := fmt.Sprintf("Type %s%s <language_number> to set a language.", req.Prefix, Language)
	if len(args) == 0 {
		return Result{Choices: LanguageChoices(cfg.Language, hint)}
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return reply("Invalid parameter. %s", hint)
	}
	lang, ok := chatconfig.ParseLanguage(n)
	if !ok {
		return reply("Invalid parameter. %s", hint)
	}
	return mutate(cfg, "Language updated.", func(c *chatconfig.ChatConfig) { c.Language = lang })
}

func (d *Dispatcher) stop(_ Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	if cfg.Stopped {
		return reply("Bot is already stopped")
	}
	return mutate(cfg, "Bot stopped", func(c *chatconfig.ChatConfig) { c.Stopped = true })
}

func (d *Dispatcher) hideDetails(_ Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	return mutate(cfg, "Correction details hidden ✅", func(c *chatconfig.ChatConfig) { c.HideDetails = true })
}

func (d *Dispatcher) showDetails(_ Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	return mutate(cfg, "Show correction details ✅", func(c *chatconfig.ChatConfig) { c.HideDetails = false })
}

func (d *Dispatcher) tolerant(_ Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	return mutate(cfg, "Tolerant ✅", func(c *chatconfig.ChatConfig) { c.Strictness = chatconfig.Tolerant })
}

func (d *Dispatcher) intolerant(_ Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	return mutate(cfg, "Intolerant ✅", func(c *chatconfig.ChatConfig) { c.Strictness = chatconfig.Intolerant })
}

func (d *Dispatcher) whitelist(req Request, _ []string, cfg *chatconfig.ChatConfig) Result {
	if len(cfg.Whitelist) == 0 {
		return reply("You don't have Whitelist words configured. Use %s%s to add words to the WhiteList.", req.Prefix, AddWhitelist)
	}
	var sb strings.Builder
	sb.WriteString("Whitelist Words:\n")
	for _, w := range cfg.Whitelist {
		fmt.Fprintf(&sb, "\n- %s", w)
	}
	return Result{Reply: sb.String()}
}

func (d *Dispatcher) addWhitelist(req Request, args []string, cfg *chatconfig.ChatConfig) Result {
	if len(args) == 0 {
		return reply("Parameter not received. Type %s%s <word> to add a word to the WhiteList.", req.Prefix, AddWhitelist)
	}
	word := args[0]
	if cfg.IsWhitelisted(word) {
		return reply("The word '%s' is already on the WhiteList", word)
	}
	return mutate(cfg, fmt.Sprintf("Word '%s' added to the WhiteList.", word), func(c *chatconfig.ChatConfig) { c.AddWord(word) })
}

func (d *Dispatcher) removeWhitelist(req Request, args []string, cfg *chatconfig.ChatConfig) Result {
	if len(args) == 0 {
		return reply("Parameter not received. Type %s%s <word> to remove a word from the WhiteList.", req.Prefix, RemoveWhitelist)
	}
	word := args[0]
	if !cfg.IsWhitelisted(word) {
		return reply("The word '%s' is not in the WhiteList.", word)
	}
	return mutate(cfg, fmt.Sprintf("Word '%s' removed from the WhiteList.", word), func(c *chatconfig.ChatConfig) { c.RemoveWord(word) })
}

func checkmark(on bool) string {
	if on {
		return "✅"
	}
	return "❌"
}
