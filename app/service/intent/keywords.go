package intent

import (
	"eleven/app/config"
	"eleven/app/locale"
	"regexp"
	"strconv"
	"strings"

	"github.com/elliotchance/pie/v2"
)

const keywordConfidence = 0.8

type rule struct {
	keywords []string
	route    func(rest []string) (CommandName, []string)
}

func fixed(name CommandName) func(rest []string) (CommandName, []string) {
	return func(rest []string) (CommandName, []string) {
		return name, rest
	}
}

var (
	folderWords = []string{"carpeta", "carpetas", "directorio", "folder", "folders", "directory"}
	fileWords   = []string{"archivo", "fichero", "documento", "file", "document"}

	// leading filler dropped from parameters on top of the locale articles
	fillers = []string{"de", "llamada", "llamado", "que", "se", "llama", "called", "named", "of", "por", "favor", "please"}

	volumeDown = []string{"baja", "bajar", "disminuye", "menos", "down", "lower", "quieter"}
	volumeMute = []string{"silencia", "silenciar", "silencio", "mute", "muted"}
)

// rules are checked in order and the first rule with a matching keyword wins.
var rules = []rule{
	{
		keywords: []string{"abre", "abrir", "ábreme", "open", "launch", "inicia", "iniciar"},
		route: func(rest []string) (CommandName, []string) {
			if i := pie.FindFirstUsing(rest, isFolderWord); i >= 0 {
				return OpenFolder, rest[i+1:]
			}
			if i := pie.FindFirstUsing(rest, isFileWord); i >= 0 {
				return OpenFile, rest[i+1:]
			}
			return OpenApp, rest
		},
	},
	{
		keywords: []string{"crea", "crear", "create", "make"},
		route: func(rest []string) (CommandName, []string) {
			if i := pie.FindFirstUsing(rest, isFolderWord); i >= 0 {
				return CreateFolder, rest[i+1:]
			}
			return CreateFolder, rest
		},
	},
	{
		keywords: []string{"cierra", "cerrar", "close", "quit"},
		route:    fixed(CloseApp),
	},
	{
		keywords: []string{"ejecuta", "ejecutar", "corre", "run", "execute"},
		route:    fixed(RunCommand),
	},
	{
		keywords: []string{"busca", "buscar", "búscame", "search", "find", "googlea", "google"},
		route: func(rest []string) (CommandName, []string) {
			if i := pie.FindFirstUsing(rest, isFolderWord); i >= 0 {
				return SearchFolder, rest[i+1:]
			}
			return SearchWeb, rest
		},
	},
	{
		keywords: []string{"volumen", "volume", "silencia", "mute"},
		route:    fixed(Volume),
	},
	{
		keywords: []string{"reproduce", "reproducir", "pon", "ponme", "play"},
		route:    fixed(PlayMedia),
	},
	{
		keywords: []string{"configura", "configurar", "ajusta", "ajustar", "cambia", "configure", "adjust", "set"},
		route:    fixed(Configure),
	},
	{
		keywords: []string{"pantalla", "mira", "screen", "look"},
		route:    fixed(AnalyzeScreen),
	},
	{
		keywords: []string{"sistema", "system", "status", "cpu", "ram", "memoria"},
		route:    fixed(SystemInfo),
	},
}

var traitKeywords = map[string]config.Trait{
	"humor":           config.TraitHumor,
	"sarcasmo":        config.TraitSarcasm,
	"sarcasm":         config.TraitSarcasm,
	"sinceridad":      config.TraitSincerity,
	"sincerity":       config.TraitSincerity,
	"profesionalismo": config.TraitProfessionalism,
	"professionalism": config.TraitProfessionalism,
}

var configureVerbs = []string{"configura", "configurar", "ajusta", "ajustar", "cambia", "pon", "sube", "baja", "configure", "adjust", "set", "change"}

var (
	percentRe = regexp.MustCompile(`(\d+)\s*%`)
	numberRe  = regexp.MustCompile(`\d+`)
)

func matchKeywords(text string) (Command, bool) {
	words := strings.Fields(locale.Normalize(text))

	for _, r := range rules {
		for i, word := range words {
			if !hasWord(r.keywords, word) {
				continue
			}

			name, rest := r.route(words[i+1:])

			params := strings.Join(trimFiller(rest), " ")
			switch name {
			case RunCommand:
				params = rawAfter(text, word)
			case Volume:
				params = volumeDirection(words)
			case AnalyzeScreen, Configure:
				params = text
			}

			return Command{
				Name:       name,
				Parameters: params,
				Keyword:    word,
				Confidence: keywordConfidence,
			}, true
		}
	}

	return Command{}, false
}

// MatchTrait finds a personality trait keyword in text.
func MatchTrait(text string) (config.Trait, bool) {
	for _, word := range strings.Fields(locale.Normalize(text)) {
		if trait, ok := traitKeywords[word]; ok {
			return trait, true
		}
	}

	return "", false
}

func hasConfigureVerb(text string) bool {
	words := strings.Fields(locale.Normalize(text))
	return pie.Any(words, func(w string) bool { return pie.Contains(configureVerbs, w) })
}

// ParsePercentage reads "80%" or, failing that, the first integer in text and clamps it to [0,100].
func ParsePercentage(text string) (int, bool) {
	if m := percentRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return config.Clamp(v), true
		}
	}

	if m := numberRe.FindString(text); m != "" {
		if v, err := strconv.Atoi(m); err == nil {
			return config.Clamp(v), true
		}
	}

	return 0, false
}

func trimFiller(words []string) []string {
	skip := func(w string) bool {
		return pie.Contains(fillers, w) ||
			pie.Contains(locale.Words("es-ES", locale.Articles), w) ||
			pie.Contains(locale.Words("en-US", locale.Articles), w)
	}

	for len(words) > 0 && skip(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && skip(words[len(words)-1]) {
		words = words[:len(words)-1]
	}

	return words
}

// rawAfter returns the original text following keyword, keeping case and punctuation.
func rawAfter(text, keyword string) string {
	re, err := regexp.Compile(`(?i)(^|\s)` + regexp.QuoteMeta(keyword) + `([\s:,.]|$)`)
	if err != nil {
		return strings.TrimSpace(text)
	}

	loc := re.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}

	return strings.TrimLeft(strings.TrimSpace(text[loc[1]:]), ":,. ")
}

func hasWord(list []string, word string) bool {
	return pie.Any(list, func(w string) bool { return locale.SameWord(w, word) })
}

// VolumeDirection maps free-form volume parameters to "up", "down" or "mute".
func VolumeDirection(params string) string {
	return volumeDirection(strings.Fields(strings.ToLower(params)))
}

func volumeDirection(words []string) string {
	switch {
	case pie.Any(words, func(w string) bool { return pie.Contains(volumeMute, w) }):
		return "mute"
	case pie.Any(words, func(w string) bool { return pie.Contains(volumeDown, w) }):
		return "down"
	default:
		return "up"
	}
}

func isFolderWord(w string) bool {
	return pie.Contains(folderWords, w)
}

func isFileWord(w string) bool {
	return pie.Contains(fileWords, w)
}
