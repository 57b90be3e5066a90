package conversation

import (
	"context"
	"eleven/app/config"
	"eleven/app/service/audio"
	"eleven/app/service/dispatch"
	"eleven/app/service/intent"
	"eleven/app/service/interrupt"
	"eleven/app/service/safety"
	"errors"
	"io"
	"strings"
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

// scriptedTranscriber hears the scripted phrases in order, then silence.
type scriptedTranscriber struct {
	mu     sync.Mutex
	texts  []string
	closed bool
}

func (f *scriptedTranscriber) Listen(ctx context.Context, _, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	if len(f.texts) > 0 {
		text := f.texts[0]
		f.texts = f.texts[1:]
		f.mu.Unlock()
		return text, nil
	}
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return "", io.EOF
	}

	time.Sleep(2 * time.Millisecond)
	return "", nil
}

func (f *scriptedTranscriber) push(texts ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.texts = append(f.texts, texts...)
}

// fakeSpeaker plays each text for duration(text).
type fakeSpeaker struct {
	duration func(text string) time.Duration

	mu    sync.Mutex
	said  []string
	until time.Time
	stops int
}

func (f *fakeSpeaker) Speak(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.said = append(f.said, text)
	if f.duration != nil {
		f.until = time.Now().Add(f.duration(text))
	}
	return nil
}

func (f *fakeSpeaker) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stops++
	f.until = time.Time{}
}

func (f *fakeSpeaker) IsSpeaking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return time.Now().Before(f.until)
}

func (f *fakeSpeaker) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.said...)
}

func (f *fakeSpeaker) hasSaid(text string) bool {
	for _, s := range f.spoken() {
		if strings.Contains(s, text) {
			return true
		}
	}
	return false
}

type fakeResolver struct {
	panics atomic.Int32
}

func (f *fakeResolver) Resolve(context.Context, intent.Utterance) intent.Intent {
	if f.panics.Add(-1) >= 0 {
		panic("resolver exploded")
	}
	return intent.Chat{Confidence: 0.9}
}

type fakeDispatcher struct {
	results map[string]dispatch.Result
}

func (f *fakeDispatcher) Dispatch(_ context.Context, text string, _ intent.Intent) dispatch.Result {
	if res, ok := f.results[text]; ok {
		return res
	}
	return dispatch.Result{Speech: "ok: " + text}
}

type fakeIndexer struct{}

func (fakeIndexer) Rescan(context.Context) (int, error) { return 42, nil }

type fakeBrowser struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeBrowser) OpenURL(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.urls = append(f.urls, url)
	return nil
}

// fakeOS opens nothing and records app launches.
type fakeOS struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeOS) OpenApp(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.opened = append(f.opened, name)
	return nil
}

func (f *fakeOS) OpenURL(context.Context, string) error            { return nil }
func (f *fakeOS) OpenPath(context.Context, string) error           { return nil }
func (f *fakeOS) CloseApp(context.Context, string) error           { return nil }
func (f *fakeOS) RunShell(context.Context, string) (string, error) { return "", nil }
func (f *fakeOS) VolumeUp(context.Context) error                   { return nil }
func (f *fakeOS) VolumeDown(context.Context) error                 { return nil }
func (f *fakeOS) Mute(context.Context) error                       { return nil }

type failingAnalyzer struct{}

func (failingAnalyzer) AnalyzeIntent(context.Context, string) (string, error) {
	return "", errors.New("quota exceeded")
}

type harness struct {
	svc         *Service
	store       *config.Store
	transcriber *scriptedTranscriber
	speaker     *fakeSpeaker
	resolver    *fakeResolver
	dispatcher  *fakeDispatcher
	browser     *fakeBrowser
	queue       chan intent.Utterance
	exitCode    atomic.Int32
}

func newHarness(t *testing.T, mutate func(cfg *config.Config), script ...string) *harness {
	t.Helper()

	cfg := config.Default()
	cfg.Interrupt.PollInterval = 5 * time.Millisecond
	cfg.Interrupt.Grace = 50 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}
	store := config.NewStore("", &cfg)

	h := &harness{
		store:       store,
		transcriber: &scriptedTranscriber{texts: script},
		speaker:     &fakeSpeaker{},
		resolver:    &fakeResolver{},
		dispatcher:  &fakeDispatcher{results: map[string]dispatch.Result{}},
		browser:     &fakeBrowser{},
		queue:       make(chan intent.Utterance, 4),
	}
	h.exitCode.Store(-1)

	mic := audio.NewMicrophone(h.transcriber)
	monitor := interrupt.NewMonitor(store, mic, h.speaker)

	h.svc = NewService(store, mic, h.speaker, monitor, h.resolver, h.dispatcher, fakeIndexer{}, h.browser, h.queue,
		func(code int) { h.exitCode.Store(int32(code)) })

	return h
}

// start runs the loop in the background. The returned func stops it and waits for it to exit.
func (h *harness) start(t *testing.T) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- h.svc.Run(ctx)
	}()

	return func() {
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("conversation loop did not stop")
		}
	}
}

func (h *harness) waitSaid(t *testing.T, text string) {
	t.Helper()

	require.Eventually(t, func() bool { return h.speaker.hasSaid(text) }, 2*time.Second, 2*time.Millisecond,
		"never said %q, said %q", text, h.speaker.spoken())
}

func TestStopWordWhileSpeakingLeavesNoCarry(t *testing.T) {
	h := newHarness(t, nil, "para")
	h.speaker.duration = func(string) time.Duration { return 5 * time.Second }
	h.svc.setState(Active)

	interrupted := h.svc.say(context.Background(), "una respuesta muy larga")

	assert.True(t, interrupted)
	assert.Empty(t, h.svc.carry)
	assert.Equal(t, Active, h.svc.State())
	assert.False(t, h.speaker.IsSpeaking())
}

func TestInterruptionCarriesNewCommand(t *testing.T) {
	h := newHarness(t, nil, "abre spotify")
	h.speaker.duration = func(string) time.Duration { return 5 * time.Second }
	h.svc.setState(Active)

	interrupted := h.svc.say(context.Background(), "una respuesta muy larga")

	require.True(t, interrupted)
	assert.Equal(t, "abre spotify", h.svc.carry)
	assert.Equal(t, Active, h.svc.State())

	u, err := h.svc.next(context.Background(), time.Second, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "abre spotify", u.Text)
	assert.Empty(t, h.svc.carry)
}

func TestSpeechFinishingNaturallyIsNotInterrupted(t *testing.T) {
	h := newHarness(t, nil)
	h.speaker.duration = func(string) time.Duration { return 30 * time.Millisecond }
	h.svc.setState(Active)

	assert.False(t, h.svc.say(context.Background(), "respuesta corta"))
	assert.Equal(t, Active, h.svc.State())
	assert.Zero(t, h.speaker.stops)
}

func TestNextPrefersCarryThenQueueThenMicrophone(t *testing.T) {
	h := newHarness(t, nil, "micrófono")
	h.svc.carry = "interrupción"
	h.queue <- intent.NewUtterance("desde el panel")

	var got []string
	for range 3 {
		u, err := h.svc.next(context.Background(), time.Second, time.Second)
		require.NoError(t, err)
		got = append(got, u.Text)
	}

	assert.Equal(t, []string{"interrupción", "desde el panel", "micrófono"}, got)
}

func TestOpenCalculatorWithModelUnavailable(t *testing.T) {
	h := newHarness(t, nil, "oye eleven", "abre la calculadora")

	osc := &fakeOS{}
	dispatcher := dispatch.NewService(h.store, osc, nil, safety.NewService(h.store), nil, nil, nil, h.speaker, t.TempDir())
	h.svc.resolver = intent.NewResolver(failingAnalyzer{})
	h.svc.dispatcher = dispatcher

	stop := h.start(t)
	h.waitSaid(t, "Abriendo calculadora")
	stop()

	assert.Equal(t, []string{
		"Hola, soy ELEVEN. Di mi nombre cuando me necesites.",
		"¿Sí? ¿En qué puedo ayudarte?",
		"Abriendo calculadora",
	}, h.speaker.spoken())
	assert.Equal(t, []string{"calculadora"}, osc.opened)
}

func TestWakePhraseFollowedByCommand(t *testing.T) {
	h := newHarness(t, nil, "hola", "Oye Eleven, qué hora es")

	stop := h.start(t)
	h.waitSaid(t, "ok: qué hora es")
	stop()

	assert.NotContains(t, h.speaker.spoken(), "¿Sí? ¿En qué puedo ayudarte?")
}

func TestSleepReturnsToDormant(t *testing.T) {
	h := newHarness(t, nil, "eleven", "descansa")

	stop := h.start(t)
	defer stop()

	h.waitSaid(t, "Hasta luego")
	require.Eventually(t, func() bool { return h.svc.State() == Dormant }, time.Second, time.Millisecond)

	h.transcriber.push("cuéntame algo")
	time.Sleep(50 * time.Millisecond)
	assert.False(t, h.speaker.hasSaid("ok: cuéntame algo"))
}

func TestShutdownExits(t *testing.T) {
	h := newHarness(t, nil, "eleven", "apágate")

	done := make(chan error, 1)
	go func() {
		done <- h.svc.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not end the loop")
	}

	assert.Equal(t, int32(0), h.exitCode.Load())
	assert.True(t, h.speaker.hasSaid("Apagando sistemas"))
}

func TestMapWordsRescan(t *testing.T) {
	h := newHarness(t, nil, "eleven", "mapea")

	stop := h.start(t)
	h.waitSaid(t, "Mapeo completado. 42 carpetas indexadas.")
	stop()

	assert.True(t, h.speaker.hasSaid("Iniciando mapeo"))
}

func TestPanelWords(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre el panel")

	stop := h.start(t)
	h.waitSaid(t, "El panel de configuración no está activo.")

	h.svc.SetPanelURL("http://127.0.0.1:8765")
	h.transcriber.push("panel")
	h.waitSaid(t, "El panel de configuración está en http://127.0.0.1:8765.")
	stop()

	assert.Equal(t, []string{"http://127.0.0.1:8765"}, h.browser.urls)
}

func TestLongUtteranceIsNotAControlPhrase(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre spotify para escuchar música")

	stop := h.start(t)
	h.waitSaid(t, "ok: abre spotify para escuchar música")
	stop()
}

func TestPanicIsRecovered(t *testing.T) {
	h := newHarness(t, nil, "eleven", "hola")
	h.resolver.panics.Store(1)

	stop := h.start(t)
	h.waitSaid(t, "Lo siento, ocurrió un error.")

	h.transcriber.push("otra vez")
	h.waitSaid(t, "ok: otra vez")
	stop()

	assert.NotEqual(t, Speaking, h.svc.State())
}

func TestFollowupAsksAndResolves(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre fotos", "la segunda")

	var reply atomic.Value
	h.dispatcher.results["abre fotos"] = dispatch.Result{
		Speech: "Encontré 2 carpetas llamadas fotos.",
		Followup: &dispatch.Followup{
			Prompt: "¿Cuál quieres? Di el número.",
			Resolve: func(_ context.Context, text string) dispatch.Result {
				reply.Store(text)
				return dispatch.Result{Speech: "Abriendo carpeta fotos"}
			},
		},
	}

	stop := h.start(t)
	h.waitSaid(t, "Abriendo carpeta fotos")
	stop()

	assert.Equal(t, "la segunda", reply.Load())
	assert.True(t, h.speaker.hasSaid("¿Cuál quieres?"))
}

// selection answers the folder question and records what it was given.
func selection(reply *atomic.Value) dispatch.Result {
	return dispatch.Result{
		Speech: "Encontré 2 carpetas llamadas fotos.",
		Followup: &dispatch.Followup{
			Prompt: "¿Cuál quieres? Di el número.",
			Resolve: func(_ context.Context, text string) dispatch.Result {
				reply.Store(text)
				return dispatch.Result{Speech: "Abriendo carpeta fotos"}
			},
		},
	}
}

func TestAnswerSpokenOverPromptResolvesFollowup(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre fotos", "dos")
	h.speaker.duration = func(text string) time.Duration {
		if strings.HasPrefix(text, "¿Cuál quieres?") {
			return 2 * time.Second
		}
		return 0
	}

	var reply atomic.Value
	h.dispatcher.results["abre fotos"] = selection(&reply)

	stop := h.start(t)
	h.waitSaid(t, "Abriendo carpeta fotos")
	stop()

	assert.Equal(t, "dos", reply.Load())
	assert.False(t, h.speaker.hasSaid("ok: dos"))
	assert.Positive(t, h.speaker.stops)
}

func TestAnswerSpokenOverResultResolvesFollowup(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre fotos", "la primera")
	h.speaker.duration = func(text string) time.Duration {
		if strings.HasPrefix(text, "Encontré") {
			return 2 * time.Second
		}
		return 0
	}

	var reply atomic.Value
	h.dispatcher.results["abre fotos"] = selection(&reply)

	stop := h.start(t)
	h.waitSaid(t, "Abriendo carpeta fotos")
	stop()

	assert.Equal(t, "la primera", reply.Load())
	assert.False(t, h.speaker.hasSaid("¿Cuál quieres?"))
	assert.False(t, h.speaker.hasSaid("ok: la primera"))
}

func TestStopOverPromptAbandonsFollowup(t *testing.T) {
	h := newHarness(t, nil, "eleven", "abre fotos", "para")
	h.speaker.duration = func(text string) time.Duration {
		if strings.HasPrefix(text, "¿Cuál quieres?") {
			return 2 * time.Second
		}
		return 0
	}

	var reply atomic.Value
	h.dispatcher.results["abre fotos"] = selection(&reply)

	stop := h.start(t)
	require.Eventually(t, func() bool {
		h.speaker.mu.Lock()
		defer h.speaker.mu.Unlock()
		return h.speaker.stops > 0
	}, 2*time.Second, 2*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	stop()

	assert.Nil(t, reply.Load())
	assert.False(t, h.speaker.hasSaid("ok: para"))
}

func TestTypedInputSkipsWakePhrase(t *testing.T) {
	h := newHarness(t, nil)
	h.queue <- intent.NewUtterance("hola desde el panel")

	stop := h.start(t)
	h.waitSaid(t, "ok: hola desde el panel")
	stop()

	turns := h.svc.Transcript()
	require.NotEmpty(t, turns)
	assert.Equal(t, userSpeaker, turns[1].Speaker)
	assert.Equal(t, "hola desde el panel", turns[1].Text)
}

func TestIdleTimeoutReturnsToDormant(t *testing.T) {
	h := newHarness(t, func(cfg *config.Config) {
		cfg.Conversation.IdleTimeout = 30 * time.Millisecond
	}, "eleven")

	stop := h.start(t)
	defer stop()

	h.waitSaid(t, "¿En qué puedo ayudarte?")
	require.Eventually(t, func() bool { return h.svc.State() == Dormant }, time.Second, time.Millisecond)
}

func TestIdleTimeoutDisabledByDefault(t *testing.T) {
	h := newHarness(t, nil, "eleven")

	stop := h.start(t)
	defer stop()

	h.waitSaid(t, "¿En qué puedo ayudarte?")
	require.Eventually(t, func() bool { return h.svc.State() == Active }, time.Second, time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, Active, h.svc.State())
}

func TestClosedInputEndsLoop(t *testing.T) {
	h := newHarness(t, nil)
	h.transcriber.closed = true

	done := make(chan error, 1)
	go func() {
		done <- h.svc.Run(context.Background())
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop kept running after input closed")
	}
}
