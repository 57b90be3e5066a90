package llm

import (
	"eleven/app/config"
	"strings"
)

func languageName(lang string) string {
	if strings.HasPrefix(lang, "es") {
		return "Spanish"
	}

	return "English"
}

func guidelines(p config.Personality) string {
	var lines []string

	if p.Sarcasm > 50 {
		lines = append(lines, "- Be witty and a little sarcastic, like JARVIS talking to Tony Stark.")
	}
	if p.Humor > 50 {
		lines = append(lines, "- Add a touch of humor when it fits.")
	}
	if p.Sincerity > 70 {
		lines = append(lines, "- Be direct and honest, even when the answer is not what the user hopes for.")
	}
	if p.Professionalism > 70 {
		lines = append(lines, "- Keep a professional and precise tone.")
	} else {
		lines = append(lines, "- Keep a relaxed, casual tone.")
	}

	return "Guidelines:\n" + strings.Join(lines, "\n")
}
