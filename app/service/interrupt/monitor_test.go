package interrupt

import (
	"context"
	"eleven/app/config"
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

type fakeSpeaker struct {
	mu       sync.Mutex
	until    time.Time
	stops    int
	speaking bool
}

func speaking(d time.Duration) *fakeSpeaker {
	return &fakeSpeaker{until: time.Now().Add(d), speaking: true}
}

func (f *fakeSpeaker) Speak(string) error { return nil }

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	f.speaking = false
}

func (f *fakeSpeaker) IsSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.speaking && time.Now().Before(f.until)
}

type scriptedListener struct {
	mu    sync.Mutex
	texts []string
	busy  bool
	calls atomic.Int32
	block bool
}

func (l *scriptedListener) TryListen(ctx context.Context, _, _ time.Duration) (string, bool, error) {
	l.calls.Add(1)

	if l.block {
		<-ctx.Done()
		return "", true, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.busy {
		return "", false, nil
	}

	if len(l.texts) == 0 {
		return "", true, nil
	}

	text := l.texts[0]
	l.texts = l.texts[1:]
	return text, true, nil
}

func newTestMonitor(listener Listener, speaker *fakeSpeaker, mutate func(cfg *config.Config)) *Monitor {
	cfg := config.Default()
	cfg.Interrupt.PollInterval = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	return NewMonitor(config.NewStore("", &cfg), listener, speaker)
}

func TestStopWordInterruptsWithoutCarry(t *testing.T) {
	speaker := speaking(5 * time.Second)
	m := newTestMonitor(&scriptedListener{texts: []string{"", "para"}}, speaker, nil)

	s := m.Start(context.Background())
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not finish")
	}

	assert.Equal(t, Result{Interrupted: true}, s.Wait(time.Second))
	assert.False(t, speaker.IsSpeaking())
	assert.Equal(t, 1, speaker.stops)
}

func TestNewCommandIsCarried(t *testing.T) {
	speaker := speaking(5 * time.Second)
	m := newTestMonitor(&scriptedListener{texts: []string{"abre spotify"}}, speaker, nil)

	s := m.Start(context.Background())
	<-s.Done()

	assert.Equal(t, Result{Interrupted: true, Carry: "abre spotify"}, s.Wait(time.Second))
	assert.False(t, speaker.IsSpeaking())
}

func TestEndsWhenSpeechFinishes(t *testing.T) {
	speaker := speaking(30 * time.Millisecond)
	listener := &scriptedListener{}
	m := newTestMonitor(listener, speaker, nil)

	s := m.Start(context.Background())
	res := s.Wait(time.Second)

	assert.Equal(t, Result{}, res)
	assert.Zero(t, speaker.stops)
	assert.Positive(t, listener.calls.Load())
}

func TestBusyMicrophoneSkipsPoll(t *testing.T) {
	speaker := speaking(40 * time.Millisecond)
	m := newTestMonitor(&scriptedListener{busy: true, texts: []string{"para"}}, speaker, nil)

	s := m.Start(context.Background())
	assert.Equal(t, Result{}, s.Wait(time.Second))
	assert.Zero(t, speaker.stops)
}

func TestWaitCancelsAfterGrace(t *testing.T) {
	speaker := speaking(10 * time.Millisecond)
	listener := &scriptedListener{block: true}
	m := newTestMonitor(listener, speaker, nil)

	s := m.Start(context.Background())
	require.Eventually(t, func() bool { return listener.calls.Load() > 0 }, time.Second, time.Millisecond)

	start := time.Now()
	res := s.Wait(20 * time.Millisecond)

	assert.Equal(t, Result{}, res)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-s.Done():
	default:
		t.Fatal("session outlived Wait")
	}
}

func TestDisabledMonitor(t *testing.T) {
	listener := &scriptedListener{texts: []string{"para"}}
	m := newTestMonitor(listener, speaking(time.Second), func(cfg *config.Config) {
		cfg.Interrupt.Disabled = true
	})

	s := m.Start(context.Background())
	assert.Equal(t, Result{}, s.Wait(time.Millisecond))
	assert.Zero(t, listener.calls.Load())
}

func TestEnglishStopWords(t *testing.T) {
	speaker := speaking(5 * time.Second)
	m := newTestMonitor(&scriptedListener{texts: []string{"OK, stop!"}}, speaker, func(cfg *config.Config) {
		cfg.Assistant.Language = "en-US"
	})

	s := m.Start(context.Background())
	<-s.Done()
	assert.Equal(t, Result{Interrupted: true}, s.Wait(time.Second))
}

func TestSentenceWithStopWordIsCarried(t *testing.T) {
	for _, text := range []string{"busca vuelos para madrid", "pon música para dormir"} {
		t.Run(text, func(t *testing.T) {
			speaker := speaking(5 * time.Second)
			m := newTestMonitor(&scriptedListener{texts: []string{text}}, speaker, nil)

			s := m.Start(context.Background())
			<-s.Done()

			assert.Equal(t, Result{Interrupted: true, Carry: text}, s.Wait(time.Second))
			assert.Equal(t, 1, speaker.stops)
		})
	}
}
