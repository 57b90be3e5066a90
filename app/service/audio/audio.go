// Package audio defines the speech collaborators and the shared microphone.
package audio

import (
	"context"
	"sync"
	"time"
)

const waitPollInterval = 50 * time.Millisecond

// Transcriber turns microphone audio into text. An empty result means silence or timeout.
type Transcriber interface {
	Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error)
}

// Speaker renders text as speech in the background.
// Stop is idempotent and safe to call when nothing is playing.
type Speaker interface {
	Speak(text string) error
	Stop()
	IsSpeaking() bool
}

// Microphone serializes access to the audio input so that at most one listen runs at a time.
type Microphone struct {
	mu          sync.Mutex
	transcriber Transcriber
}

func NewMicrophone(transcriber Transcriber) *Microphone {
	return &Microphone{transcriber: transcriber}
}

// Listen waits for the microphone and then listens.
func (m *Microphone) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.transcriber.Listen(ctx, timeout, phraseLimit)
}

// TryListen listens only if the microphone is free. ok is false when it was busy.
func (m *Microphone) TryListen(ctx context.Context, timeout, phraseLimit time.Duration) (text string, ok bool, err error) {
	if !m.mu.TryLock() {
		return "", false, nil
	}
	defer m.mu.Unlock()

	text, err = m.transcriber.Listen(ctx, timeout, phraseLimit)
	return text, true, err
}

// WaitSilent blocks until speaker finishes or ctx is done.
func WaitSilent(ctx context.Context, speaker Speaker) error {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for speaker.IsSpeaking() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

// SpeakAndWait speaks text without the interrupt monitor and blocks until it has been said.
func SpeakAndWait(ctx context.Context, speaker Speaker, text string) error {
	if err := speaker.Speak(text); err != nil {
		return err
	}

	return WaitSilent(ctx, speaker)
}
