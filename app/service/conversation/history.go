package conversation

import (
	"sync"
	"time"
)

const transcriptSize = 20

type Turn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript keeps the last few spoken turns for the settings panel.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
}

func (h *Transcript) add(speaker, text string) {
	turn := Turn{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.turns) >= transcriptSize {
		h.turns = append(h.turns[1:], turn)
	} else {
		h.turns = append(h.turns, turn)
	}
}

// Recent returns a copy of the kept turns, oldest first.
func (h *Transcript) Recent() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	result := make([]Turn, len(h.turns))
	copy(result, h.turns)

	return result
}
