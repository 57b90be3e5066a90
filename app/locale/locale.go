// Package locale holds the spoken texts and keyword sets for each supported language.
package locale

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const Fallback = "en-US"

// MaxStopWords is the longest utterance still treated as a bare stop command.
const MaxStopWords = 2

type Key string

const (
	Greeting         Key = "greeting"
	WakeResponse     Key = "wake_response"
	SleepResponse    Key = "sleep_response"
	ShutdownResponse Key = "shutdown_response"
	StoppedResponse  Key = "stopped_response"
	ErrorGeneric     Key = "error_generic"
	LLMApology       Key = "llm_apology"
	MappingStart     Key = "mapping_start"
	MappingEnd       Key = "mapping_end"
	MappingFailed    Key = "mapping_failed"
	OpenGUI          Key = "open_gui"
	GUIError         Key = "gui_error"
	Opening          Key = "opening"
	OpenFailed       Key = "open_failed"
	Closing          Key = "closing"
	Searching        Key = "searching"
	Playing          Key = "playing"
	VolumeUp         Key = "volume_up"
	VolumeDown       Key = "volume_down"
	Mute             Key = "mute"
	VolumeFailed     Key = "volume_failed"
	AnalyzingScreen  Key = "analyzing_screen"
	VisionPrompt     Key = "vision_prompt"
	CaptureFailed    Key = "capture_failed"
	VisionFailed     Key = "vision_failed"
	SystemStatus     Key = "system_status"
	SystemFailed     Key = "system_failed"
	FolderNotFound   Key = "folder_not_found"
	FileNotFound     Key = "file_not_found"
	OpeningFolder    Key = "opening_folder"
	OpeningFile      Key = "opening_file"
	FolderFound      Key = "folder_found"
	FolderCreated    Key = "folder_created"
	FolderExists     Key = "folder_exists"
	CreateFailed     Key = "create_failed"
	OptionPrefix     Key = "option_prefix"
	AskSelection     Key = "ask_selection"
	InvalidSelection Key = "invalid_selection"
	NoSelection      Key = "no_selection"
	CommandBlocked   Key = "command_blocked"
	CommandConfirm   Key = "command_confirm"
	CommandCancelled Key = "command_cancelled"
	CommandDone      Key = "command_done"
	CommandOutput    Key = "command_output"
	CommandFailed    Key = "command_failed"
	PersonalitySet   Key = "personality_set"
	PersonalityWhat  Key = "personality_what"
	MissingTarget    Key = "missing_target"
)

type WordSet string

const (
	StopWords     WordSet = "stop_words"
	SleepWords    WordSet = "sleep_words"
	ShutdownWords WordSet = "shutdown_words"
	MapWords      WordSet = "map_words"
	GUIWords      WordSet = "gui_words"
	YesWords      WordSet = "yes_words"
	NoWords       WordSet = "no_words"
	Articles      WordSet = "articles"
)

type language struct {
	texts   map[Key]string
	words   map[WordSet][]string
	traits  map[string]string
	numbers map[string]int
}

var languages = map[string]*language{
	"es-ES": spanish,
	"en-US": english,
}

// Text returns the formatted text for key in lang, falling back to English and then to the key itself.
func Text(lang string, key Key, args ...any) string {
	format, ok := lookup(lang).texts[key]
	if !ok {
		format, ok = languages[Fallback].texts[key]
	}
	if !ok {
		return string(key)
	}

	if len(args) == 0 {
		return format
	}

	return fmt.Sprintf(format, args...)
}

func Words(lang string, set WordSet) []string {
	if words, ok := lookup(lang).words[set]; ok {
		return words
	}

	return languages[Fallback].words[set]
}

// ContainsAny reports the first word or phrase of set that appears as whole words in text.
// Accents are ignored on both sides, so "callate" matches "cállate".
func ContainsAny(lang string, set WordSet, text string) (string, bool) {
	padded := " " + Fold(Normalize(text)) + " "

	for _, word := range Words(lang, set) {
		if strings.Contains(padded, " "+Fold(word)+" ") {
			return word, true
		}
	}

	return "", false
}

// IsStop reports whether text is a short stop command like "para" or "ok, stop".
// Longer sentences that merely contain a stop word ("busca vuelos para madrid") are not.
func IsStop(lang, text string) (string, bool) {
	if len(strings.Fields(Normalize(text))) > MaxStopWords {
		return "", false
	}

	return ContainsAny(lang, StopWords, text)
}

// Normalize lowercases text and collapses punctuation and whitespace into single spaces.
func Normalize(text string) string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '\'' && r != '-'
	})

	return strings.Join(fields, " ")
}

// Fold strips diacritics, turning "música" into "musica". Used for matching only.
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}

	return folded
}

// SameWord compares two words ignoring case and accents.
func SameWord(a, b string) bool {
	return Fold(strings.ToLower(a)) == Fold(strings.ToLower(b))
}

// TraitName is the spoken name of a personality trait.
func TraitName(lang, trait string) string {
	if name, ok := lookup(lang).traits[trait]; ok {
		return name
	}

	return trait
}

// Number parses a spoken number word such as "tres" or "second".
func Number(lang, word string) (int, bool) {
	word = Fold(strings.ToLower(strings.TrimSpace(word)))

	if n, ok := lookup(lang).numbers[word]; ok {
		return n, true
	}

	n, ok := languages[Fallback].numbers[word]
	return n, ok
}

func Supported(lang string) bool {
	_, ok := languages[lang]
	return ok
}

func lookup(lang string) *language {
	if l, ok := languages[lang]; ok {
		return l
	}

	return languages[Fallback]
}
