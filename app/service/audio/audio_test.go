package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type blockingTranscriber struct {
	release chan struct{}
	active  atomic.Int32
	peak    atomic.Int32
}

func (b *blockingTranscriber) Listen(ctx context.Context, _, _ time.Duration) (string, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)

	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}

	select {
	case <-b.release:
		return "hola", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestTryListenSkipsWhenBusy(t *testing.T) {
	tr := &blockingTranscriber{release: make(chan struct{})}
	mic := NewMicrophone(tr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		text, err := mic.Listen(context.Background(), time.Second, time.Second)
		assert.NoError(t, err)
		assert.Equal(t, "hola", text)
	}()

	require.Eventually(t, func() bool { return tr.active.Load() == 1 }, time.Second, time.Millisecond)

	text, ok, err := mic.TryListen(context.Background(), time.Second, time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, text)

	close(tr.release)
	wg.Wait()

	text, ok, err = mic.TryListen(context.Background(), time.Second, time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hola", text)
	assert.Equal(t, int32(1), tr.peak.Load())
}

type timedSpeaker struct {
	mu    sync.Mutex
	until time.Time
}

func (s *timedSpeaker) Speak(string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.until = time.Now().Add(120 * time.Millisecond)
	return nil
}

func (s *timedSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.until = time.Time{}
}

func (s *timedSpeaker) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return time.Now().Before(s.until)
}

func TestSpeakAndWait(t *testing.T) {
	speaker := &timedSpeaker{}

	start := time.Now()
	require.NoError(t, SpeakAndWait(context.Background(), speaker, "hola"))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, speaker.IsSpeaking())
}

func TestWaitSilentHonoursContext(t *testing.T) {
	speaker := &timedSpeaker{}
	require.NoError(t, speaker.Speak("hola"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, WaitSilent(ctx, speaker), context.DeadlineExceeded)
}
