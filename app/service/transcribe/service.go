package transcribe

import (
	"context"
	"eleven/app/client/speechkit"
	"eleven/app/config"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

const (
	bufferSize = 4096
)

var (
	errPhrase  = errors.New("phrase recognized")
	errSilence = errors.New("no speech before timeout")
)

type session interface {
	SendConfig(opts speechkit.Options) error
	Send(content []byte) error
	Recv() (speechkit.Result, error)
	Close() error
}

type (
	startFunc   func(ctx context.Context) (session, error)
	captureFunc func(ctx context.Context) (io.Reader, func(), error)
)

// Service recognizes one phrase per Listen call by streaming microphone audio to SpeechKit.
type Service struct {
	cfg     *config.Store
	start   startFunc
	capture captureFunc
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Store](di)
	client := do.MustInvoke[*speechkit.YandexSpeechKit](di)

	return NewService(cfg, func(ctx context.Context) (session, error) {
		handle, err := client.Start(ctx)
		if err != nil {
			return nil, err
		}
		return handle, nil
	}, nil), nil
}

// NewService uses ffmpeg microphone capture when capture is nil.
func NewService(cfg *config.Store, start startFunc, capture captureFunc) *Service {
	s := &Service{
		cfg:     cfg,
		start:   start,
		capture: capture,
	}
	if s.capture == nil {
		s.capture = s.captureMicrophone
	}

	return s
}

func (s *Service) captureMicrophone(ctx context.Context) (io.Reader, func(), error) {
	speech := s.cfg.Get().Speech

	capture, err := startCapture(ctx, speech.InputFormat, speech.InputDevice)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to capture microphone: %w", err)
	}

	return capture.audio, capture.stop, nil
}

// Listen returns the first final phrase. It returns "" when nobody speaks within timeout,
// and the last partial text when the phrase runs past phraseLimit.
func (s *Service) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	parent := ctx
	cfg := s.cfg.Get()
	opts := speechkit.Options{
		Language:    cfg.Assistant.Language,
		Model:       cfg.Speech.RecognitionModel,
		EndOfPhrase: cfg.Speech.EndOfPhrase,
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	ctx, cancelDeadline := context.WithTimeout(ctx, timeout+phraseLimit)
	defer cancelDeadline()

	audioSrc, stop, err := s.capture(ctx)
	if err != nil {
		return "", err
	}
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	handle, err := s.start(gctx)
	if err != nil {
		return "", fmt.Errorf("failed to start transcription: %w", err)
	}
	defer handle.Close()

	var (
		heard atomic.Bool
		mu    sync.Mutex
		text  string
	)

	silence := time.AfterFunc(timeout, func() {
		if !heard.Load() {
			cancel(errSilence)
		}
	})
	defer silence.Stop()

	g.Go(func() error {
		return streamAudio(gctx, audioSrc, handle, opts)
	})

	g.Go(func() error {
		for {
			res, err := handle.Recv()
			if err != nil {
				return fmt.Errorf("Recv: %w", err)
			}

			if len(res.Texts) == 0 {
				continue
			}

			heard.Store(true)

			mu.Lock()
			text = res.Texts[0]
			mu.Unlock()

			if res.Final {
				return errPhrase
			}
		}
	})

	err = g.Wait()

	mu.Lock()
	defer mu.Unlock()

	switch {
	case errors.Is(err, errPhrase):
		return text, nil
	case parent.Err() != nil:
		return "", parent.Err()
	case ctx.Err() != nil:
		if errors.Is(context.Cause(ctx), errSilence) {
			return "", nil
		}
		slog.Debug("Phrase limit reached", "text", text)
		return text, nil
	default:
		return "", fmt.Errorf("transcription error: %w", err)
	}
}

func streamAudio(ctx context.Context, audioSrc io.Reader, handle session, opts speechkit.Options) error {
	if err := handle.SendConfig(opts); err != nil {
		return fmt.Errorf("failed to send audio config: %w", err)
	}

	buffer := make([]byte, bufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			n, err := audioSrc.Read(buffer)
			if err != nil {
				return fmt.Errorf("failed to read audio: %w", err)
			}

			if n == 0 {
				continue
			}

			if err = handle.Send(buffer[:n]); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}
		}
	}
}
