package audio

import (
	"eleven/app/client/console"
	"eleven/app/client/speechkit"
	"eleven/app/client/tts"
	"eleven/app/config"
	"eleven/app/service/transcribe"
	"log/slog"
	"os"
	"time"

	"github.com/samber/do"
)

const consoleRuneDuration = 40 * time.Millisecond

// NewTranscriber picks the configured engine and falls back to console input when it cannot start.
func NewTranscriber(di *do.Injector) (Transcriber, error) {
	cfg := do.MustInvoke[*config.Store](di).Get()

	if cfg.Speech.Engine == "speechkit" {
		if _, err := do.Invoke[*speechkit.YandexSpeechKit](di); err != nil {
			slog.Error("Speech recognition unavailable, reading from console", "error", err)
		} else {
			return do.MustInvoke[*transcribe.Service](di), nil
		}
	}

	return console.NewTranscriber(os.Stdin), nil
}

// NewSpeaker picks the configured speaker and falls back to printing replies.
func NewSpeaker(di *do.Injector) (Speaker, error) {
	cfg := do.MustInvoke[*config.Store](di).Get()

	if cfg.Speech.TTS == "command" {
		speaker, err := tts.NewCommandSpeaker(cfg.Speech.TTSCommand)
		if err == nil {
			return speaker, nil
		}

		slog.Error("Speech output unavailable, printing replies", "error", err)
	}

	return console.NewSpeaker(cfg.Assistant.Name, os.Stdout, consoleRuneDuration), nil
}

func New(di *do.Injector) (*Microphone, error) {
	return NewMicrophone(do.MustInvoke[Transcriber](di)), nil
}
