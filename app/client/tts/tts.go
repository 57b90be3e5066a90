// Package tts speaks through an external synthesizer such as espeak-ng.
package tts

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"sync"
)

var ErrNoCommand = errors.New("tts command is empty")

// CommandSpeaker runs the configured command with the text as its last argument.
// Only one utterance plays at a time. A new Speak stops the previous one.
type CommandSpeaker struct {
	command []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewCommandSpeaker(command []string) (*CommandSpeaker, error) {
	if len(command) == 0 {
		return nil, ErrNoCommand
	}

	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("tts command not found: %w", err)
	}

	return &CommandSpeaker{command: slices.Clone(command)}, nil
}

func (s *CommandSpeaker) Speak(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	args := append(slices.Clone(s.command[1:]), text)
	cmd := exec.Command(s.command[0], args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start tts: %w", err)
	}
	s.cmd = cmd

	go func() {
		err := cmd.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.cmd == cmd {
			s.cmd = nil
			if err != nil {
				slog.Debug("TTS process exited", "error", err)
			}
		}
	}()

	return nil
}

func (s *CommandSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *CommandSpeaker) stopLocked() {
	if s.cmd == nil {
		return
	}

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.cmd = nil
}

func (s *CommandSpeaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cmd != nil
}
