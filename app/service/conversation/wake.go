package conversation

import (
	"eleven/app/locale"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/elliotchance/pie/v2"
)

const wakeSimilarity = 0.7

var (
	elevenVariations = []string{"eleven", "ileven", "elevan", "eleben", "ileben", "eleve", "elevn", "once", "onse", "onze", "11"}
	wakePrefixes     = []string{"hey", "oye", "ei", "oi"}
)

// WakeDetector recognizes the assistant's name in a transcribed phrase, tolerating misrecognitions.
type WakeDetector struct {
	names    []string
	prefixed []string
}

func NewWakeDetector(name string) *WakeDetector {
	name = locale.Normalize(name)

	names := []string{name}
	if name == "eleven" {
		names = elevenVariations
	}

	var prefixed []string
	for _, prefix := range wakePrefixes {
		for _, n := range names {
			prefixed = append(prefixed, prefix+" "+n)
		}
	}

	return &WakeDetector{
		names:    names,
		prefixed: prefixed,
	}
}

// Detect reports whether text contains the wake phrase and returns whatever followed it.
func (w *WakeDetector) Detect(text string) (string, bool) {
	words := strings.Fields(locale.Normalize(text))
	if len(words) == 0 {
		return "", false
	}

	rest := func(end int) string {
		return strings.Join(words[end:], " ")
	}

	// exact pass first, prefixed phrases before bare names
	for i := 0; i+1 < len(words); i++ {
		if pie.Contains(w.prefixed, words[i]+" "+words[i+1]) {
			return rest(i + 2), true
		}
	}
	for i, word := range words {
		if pie.Contains(w.names, word) {
			return rest(i + 1), true
		}
	}

	for i := 0; i+1 < len(words); i++ {
		if w.similar(w.prefixed, words[i]+" "+words[i+1]) {
			return rest(i + 2), true
		}
	}
	for i, word := range words {
		if utf8.RuneCountInString(word) > 2 && w.similar(w.names, word) {
			return rest(i + 1), true
		}
	}

	return "", false
}

func (w *WakeDetector) similar(candidates []string, text string) bool {
	for _, c := range candidates {
		if similarity(c, text) >= wakeSimilarity {
			return true
		}
	}

	return false
}

func similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
