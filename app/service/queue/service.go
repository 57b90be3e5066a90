package queue

import (
	"eleven/app/service/intent"
	"log/slog"
	"strings"

	"github.com/samber/do"
)

const bufferSize = 16

var _ do.Shutdownable = (*Service)(nil)

// Service carries typed utterances from the settings panel to the conversation loop.
type Service struct {
	queue chan intent.Utterance
}

func New(_ *do.Injector) (*Service, error) {
	return NewService(bufferSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan intent.Utterance, size),
	}
}

// Add enqueues text without blocking. It reports false when the text was dropped.
func (s *Service) Add(text string) (added bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Utterance queue is closed", "text", text)
			added = false
		}
	}()

	select {
	case s.queue <- intent.NewUtterance(text):
		return true
	default:
		slog.Warn("Utterance queue is full", "text", text)
		return false
	}
}

func (s *Service) Channel() <-chan intent.Utterance {
	return s.queue
}

func (s *Service) Len() int {
	return len(s.queue)
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
