package speechkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/yandex-cloud/go-genproto/yandex/cloud/ai/stt/v3"
)

const SampleRate = 16000

// Options configure one recognition session.
type Options struct {
	Language string
	Model    string
	// Pause that ends an utterance
	EndOfPhrase time.Duration
}

// Result is one recognition event. Partial results only signal that speech has started.
type Result struct {
	Texts []string
	Final bool
}

type Handle struct {
	stream stt.Recognizer_RecognizeStreamingClient
	cancel context.CancelFunc
}

// SendConfig must be the first message: raw 16 kHz mono PCM restricted to one language.
func (h *Handle) SendConfig(opts Options) error {
	var format stt.AudioFormatOptions
	format.SetRawAudio(&stt.RawAudio{
		AudioEncoding:     stt.RawAudio_LINEAR16_PCM,
		SampleRateHertz:   SampleRate,
		AudioChannelCount: 1,
	})

	var eou stt.EouClassifierOptions
	eou.SetDefaultClassifier(&stt.DefaultEouClassifier{
		Type:                       stt.DefaultEouClassifier_HIGH,
		MaxPauseBetweenWordsHintMs: opts.EndOfPhrase.Milliseconds(),
	})

	var req stt.StreamingRequest
	req.SetSessionOptions(&stt.StreamingOptions{
		RecognitionModel: &stt.RecognitionModelOptions{
			Model:       opts.Model,
			AudioFormat: &format,
			LanguageRestriction: &stt.LanguageRestrictionOptions{
				RestrictionType: stt.LanguageRestrictionOptions_WHITELIST,
				LanguageCode:    []string{opts.Language},
			},
		},
		EouClassifier: &eou,
	})

	if err := h.stream.Send(&req); err != nil {
		return fmt.Errorf("failed to send session options: %w", err)
	}

	return nil
}

func (h *Handle) Send(pcm []byte) error {
	var req stt.StreamingRequest
	req.SetChunk(&stt.AudioChunk{Data: pcm})

	return h.stream.Send(&req)
}

func (h *Handle) Recv() (Result, error) {
	res, err := h.stream.Recv()
	if err != nil {
		return Result{}, fmt.Errorf("failed to receive recognition event: %w", err)
	}

	switch {
	case res.GetFinal() != nil:
		return Result{Texts: alternatives(res.GetFinal().Alternatives), Final: true}, nil
	case res.GetPartial() != nil:
		return Result{Texts: alternatives(res.GetPartial().Alternatives)}, nil
	default:
		return Result{}, nil
	}
}

func alternatives(alts []*stt.Alternative) []string {
	texts := pie.Map(alts, func(alt *stt.Alternative) string {
		return strings.TrimSpace(alt.Text)
	})

	return pie.Filter(texts, func(text string) bool { return text != "" })
}

func (h *Handle) Close() error {
	h.cancel()
	return nil
}
