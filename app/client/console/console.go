// Package console provides text fallbacks for the microphone and the speaker.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Transcriber reads typed lines in place of recognized speech.
type Transcriber struct {
	lines chan string
}

// NewTranscriber starts reading r line by line until it is exhausted.
func NewTranscriber(r io.Reader) *Transcriber {
	t := &Transcriber{lines: make(chan string)}

	go func() {
		defer close(t.lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			t.lines <- strings.TrimSpace(scanner.Text())
		}
	}()

	return t
}

// Listen returns the next line, or "" when timeout passes first. A zero timeout waits indefinitely.
func (t *Transcriber) Listen(ctx context.Context, timeout, _ time.Duration) (string, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-expired:
		return "", nil
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

// Speaker prints replies and reports itself busy for roughly the time reading them aloud would take.
type Speaker struct {
	name    string
	out     io.Writer
	perRune time.Duration

	mu         sync.Mutex
	generation int
	speaking   bool
	timer      *time.Timer
}

func NewSpeaker(name string, out io.Writer, perRune time.Duration) *Speaker {
	return &Speaker{
		name:    name,
		out:     out,
		perRune: perRune,
	}
}

func (s *Speaker) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.out, "%s: %s\n", s.name, text); err != nil {
		return fmt.Errorf("failed to print reply: %w", err)
	}

	s.stopLocked()

	s.generation++
	generation := s.generation
	s.speaking = true
	s.timer = time.AfterFunc(time.Duration(utf8.RuneCountInString(text))*s.perRune, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.generation == generation {
			s.speaking = false
		}
	})

	return nil
}

func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Speaker) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.speaking = false
}

func (s *Speaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.speaking
}
