// Package interrupt lets the user talk over a reply that is still playing.
package interrupt

import (
	"context"
	"eleven/app/config"
	"eleven/app/locale"
	"eleven/app/service/audio"
	"log/slog"
	"time"

	"github.com/samber/do"
)

type Listener interface {
	TryListen(ctx context.Context, timeout, phraseLimit time.Duration) (string, bool, error)
}

// Result of one speaking phase. Carry is the new command heard during playback, if any.
type Result struct {
	Interrupted bool
	Carry       string
}

type Monitor struct {
	cfg     *config.Store
	mic     Listener
	speaker audio.Speaker
}

func New(di *do.Injector) (*Monitor, error) {
	return NewMonitor(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*audio.Microphone](di),
		do.MustInvoke[audio.Speaker](di),
	), nil
}

func NewMonitor(cfg *config.Store, mic Listener, speaker audio.Speaker) *Monitor {
	return &Monitor{
		cfg:     cfg,
		mic:     mic,
		speaker: speaker,
	}
}

// Session is one running monitor. It ends on its own once playback stops or an interruption is heard.
type Session struct {
	cancel context.CancelFunc
	done   chan struct{}
	result Result
}

// Start begins polling the microphone. Call it right after the reply started playing.
func (m *Monitor) Start(ctx context.Context) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	cfg := m.cfg.Get()
	if cfg.Interrupt.Disabled {
		close(s.done)
		return s
	}

	go m.run(ctx, s, cfg)

	return s
}

func (m *Monitor) run(ctx context.Context, s *Session, cfg config.Config) {
	defer close(s.done)

	lang := cfg.Assistant.Language
	opts := cfg.Interrupt

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for m.speaker.IsSpeaking() {
		text, ok, err := m.mic.TryListen(ctx, opts.ListenTimeout, opts.PhraseLimit)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			slog.Debug("Interruption listen failed", "error", err)
		}

		if ok && text != "" {
			m.speaker.Stop()

			if word, stop := locale.IsStop(lang, text); stop {
				slog.Info("Reply stopped by user", "word", word)
				s.result = Result{Interrupted: true}
			} else {
				slog.Info("Reply interrupted by a new command", "text", text)
				s.result = Result{Interrupted: true, Carry: text}
			}

			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Done is closed when the session has finished.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait gives the session grace to finish on its own, then cancels it and waits for it to exit.
func (s *Session) Wait(grace time.Duration) Result {
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-s.done:
	case <-timer.C:
		s.cancel()
		<-s.done
	}

	s.cancel()

	return s.result
}
