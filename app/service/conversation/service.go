// Package conversation runs the assistant's listen, resolve, dispatch and speak loop.
package conversation

import (
	"context"
	"eleven/app/client/osctl"
	"eleven/app/config"
	"eleven/app/locale"
	"eleven/app/service/audio"
	"eleven/app/service/dispatch"
	"eleven/app/service/folderindex"
	"eleven/app/service/intent"
	"eleven/app/service/interrupt"
	"eleven/app/service/queue"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/do"
)

const (
	listenErrorBackoff = time.Second
	userSpeaker        = "user"
)

var errShutdown = errors.New("shutdown requested")

// control is a short phrase handled before intent resolution.
type control struct {
	set      locale.WordSet
	maxWords int
	handle   func(s *Service, ctx context.Context) error
}

var controls = []control{
	{set: locale.StopWords, maxWords: locale.MaxStopWords, handle: (*Service).stop},
	{set: locale.ShutdownWords, maxWords: 4, handle: (*Service).shutdown},
	{set: locale.SleepWords, maxWords: 4, handle: (*Service).sleep},
	{set: locale.MapWords, maxWords: 4, handle: (*Service).mapFolders},
	{set: locale.GUIWords, maxWords: 4, handle: (*Service).openPanel},
}

type Service struct {
	cfg        *config.Store
	mic        Listener
	speaker    audio.Speaker
	monitor    *interrupt.Monitor
	resolver   Resolver
	dispatcher Dispatcher
	indexer    Indexer
	browser    Browser
	queue      <-chan intent.Utterance
	exit       func(code int)

	state      atomic.Int32
	transcript Transcript

	panelMu  sync.RWMutex
	panelURL string

	// owned by the loop goroutine
	carry           string
	lastInteraction time.Time
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*audio.Microphone](di),
		do.MustInvoke[audio.Speaker](di),
		do.MustInvoke[*interrupt.Monitor](di),
		do.MustInvoke[*intent.Resolver](di),
		do.MustInvoke[*dispatch.Service](di),
		do.MustInvoke[*folderindex.Service](di),
		do.MustInvoke[*osctl.Client](di),
		do.MustInvoke[*queue.Service](di).Channel(),
		os.Exit,
	), nil
}

func NewService(
	cfg *config.Store,
	mic Listener,
	speaker audio.Speaker,
	monitor *interrupt.Monitor,
	resolver Resolver,
	dispatcher Dispatcher,
	indexer Indexer,
	browser Browser,
	queue <-chan intent.Utterance,
	exit func(code int),
) *Service {
	return &Service{
		cfg:        cfg,
		mic:        mic,
		speaker:    speaker,
		monitor:    monitor,
		resolver:   resolver,
		dispatcher: dispatcher,
		indexer:    indexer,
		browser:    browser,
		queue:      queue,
		exit:       exit,
	}
}

func (s *Service) State() State {
	return State(s.state.Load())
}

func (s *Service) setState(state State) {
	if prev := State(s.state.Swap(int32(state))); prev != state {
		slog.Debug("Conversation state changed", "from", prev, "to", state)
	}
}

func (s *Service) Transcript() []Turn {
	return s.transcript.Recent()
}

// SetPanelURL tells the loop where the settings panel listens. An empty url means it is not running.
func (s *Service) SetPanelURL(url string) {
	s.panelMu.Lock()
	defer s.panelMu.Unlock()

	s.panelURL = url
}

func (s *Service) panel() string {
	s.panelMu.RLock()
	defer s.panelMu.RUnlock()

	return s.panelURL
}

func (s *Service) lang() string {
	return s.cfg.Get().Assistant.Language
}

func (s *Service) text(key locale.Key, args ...any) string {
	return locale.Text(s.lang(), key, args...)
}

// Run greets the user and loops until ctx is cancelled, input is closed or shutdown is requested.
func (s *Service) Run(ctx context.Context) error {
	s.setState(Dormant)
	s.say(ctx, s.text(locale.Greeting, s.cfg.Get().Assistant.Name))

	for ctx.Err() == nil {
		err := s.iterate(ctx)

		switch {
		case err == nil:
		case errors.Is(err, errShutdown):
			return nil
		case errors.Is(err, io.EOF):
			slog.Info("Input closed, stopping conversation")
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			slog.Error("Conversation iteration failed", "state", s.State(), "error", err)
			s.apologize(ctx)
			sleep(ctx, listenErrorBackoff)
		}
	}

	return nil
}

func (s *Service) iterate(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Conversation iteration panicked", "state", s.State(), "panic", r)
			s.apologize(ctx)
			err = nil
		}
	}()

	if s.State() == Dormant {
		return s.waitForWake(ctx)
	}

	return s.listenActive(ctx)
}

// apologize puts the loop back where it can take the next utterance and tells the user something failed.
func (s *Service) apologize(ctx context.Context) {
	if s.State() == Speaking {
		s.speaker.Stop()
		s.setState(Active)
	}

	s.say(ctx, s.text(locale.ErrorGeneric))
}

func (s *Service) waitForWake(ctx context.Context) error {
	cfg := s.cfg.Get()

	// typed input from the panel needs no wake phrase
	select {
	case u, ok := <-s.queue:
		if ok {
			s.setState(Active)
			return s.handle(ctx, u)
		}
	default:
	}

	u, err := s.next(ctx, cfg.Speech.WakeTimeout, cfg.Speech.WakePhraseLimit)
	if err != nil {
		return fmt.Errorf("failed to listen for wake phrase: %w", err)
	}
	if u.Text == "" {
		return nil
	}

	rest, ok := NewWakeDetector(cfg.Assistant.Name).Detect(u.Text)
	if !ok {
		slog.Debug("No wake phrase", "text", u.Text)
		return nil
	}

	slog.Info("Wake phrase detected", "text", u.Text)
	s.setState(Active)
	s.lastInteraction = time.Now()

	if rest != "" {
		return s.handle(ctx, intent.Utterance{Text: rest, Timestamp: u.Timestamp})
	}

	s.say(ctx, s.text(locale.WakeResponse))

	return nil
}

func (s *Service) listenActive(ctx context.Context) error {
	cfg := s.cfg.Get()

	if idle := cfg.Conversation.IdleTimeout; idle > 0 && s.carry == "" && time.Since(s.lastInteraction) > idle {
		slog.Info("Conversation idle, going dormant", "idle", time.Since(s.lastInteraction))
		s.setState(Dormant)
		return nil
	}

	u, err := s.next(ctx, cfg.Speech.ListenTimeout, cfg.Speech.PhraseLimit)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	if u.Text == "" {
		return nil
	}

	return s.handle(ctx, u)
}

// next returns the carried-over interruption first, then typed input, then the microphone.
func (s *Service) next(ctx context.Context, timeout, phraseLimit time.Duration) (intent.Utterance, error) {
	if s.carry != "" {
		text := s.carry
		s.carry = ""
		return intent.NewUtterance(text), nil
	}

	select {
	case u, ok := <-s.queue:
		if ok {
			return u, nil
		}
	default:
	}

	text, err := s.mic.Listen(ctx, timeout, phraseLimit)
	if err != nil {
		return intent.Utterance{}, err
	}

	return intent.NewUtterance(strings.TrimSpace(text)), nil
}

func (s *Service) handle(ctx context.Context, u intent.Utterance) error {
	s.lastInteraction = time.Now()
	s.transcript.add(userSpeaker, u.Text)

	slog.Info("User said", "text", u.Text)

	if c, ok := s.control(u.Text); ok {
		return c.handle(s, ctx)
	}

	start := time.Now()

	in := s.resolver.Resolve(ctx, u)
	res := s.dispatcher.Dispatch(ctx, u.Text, in)

	slog.Info("Processed utterance",
		"text", u.Text,
		"intent", fmt.Sprintf("%T", in),
		"duration", time.Since(start))

	s.respond(ctx, res)
	s.lastInteraction = time.Now()

	return nil
}

func (s *Service) control(text string) (control, bool) {
	lang := s.lang()
	words := len(strings.Fields(locale.Normalize(text)))

	for _, c := range controls {
		if words > c.maxWords {
			continue
		}
		if _, ok := locale.ContainsAny(lang, c.set, text); ok {
			return c, true
		}
	}

	return control{}, false
}

// respond speaks the result and walks any follow-up question. A bare stop abandons the rest;
// words spoken over a pending question are taken as its answer.
func (s *Service) respond(ctx context.Context, res dispatch.Result) {
	for {
		answered := false
		if res.Speech != "" && s.say(ctx, res.Speech) {
			if res.Followup == nil || s.carry == "" {
				return
			}
			answered = true
		}

		if res.Followup == nil {
			return
		}

		if !answered && s.say(ctx, res.Followup.Prompt) && s.carry == "" {
			return
		}

		cfg := s.cfg.Get()

		reply, err := s.next(ctx, cfg.Speech.ListenTimeout, cfg.Speech.PhraseLimit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Failed to listen for reply", "error", err)
		}

		if reply.Text != "" {
			s.transcript.add(userSpeaker, reply.Text)
		}

		res = res.Followup.Resolve(ctx, reply.Text)
	}
}

// say speaks text with the interrupt monitor running. It reports whether the user cut it short;
// a new command heard meanwhile becomes the next utterance.
func (s *Service) say(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}

	cfg := s.cfg.Get()
	s.transcript.add(cfg.Assistant.Name, text)

	prev := s.State()
	s.setState(Speaking)
	defer s.setState(prev)

	if err := s.speaker.Speak(text); err != nil {
		slog.Error("Failed to speak", "text", text, "error", err)
		return false
	}

	session := s.monitor.Start(ctx)

	if err := audio.WaitSilent(ctx, s.speaker); err != nil {
		s.speaker.Stop()
	}

	result := session.Wait(cfg.Interrupt.Grace)
	if !result.Interrupted {
		return false
	}

	s.carry = result.Carry
	if s.carry == "" {
		slog.Debug("Reply stopped")
	}

	return true
}

func (s *Service) stop(ctx context.Context) error {
	s.speaker.Stop()
	slog.Info("Turn stopped by user")

	s.say(ctx, s.text(locale.StoppedResponse))

	return nil
}

func (s *Service) sleep(ctx context.Context) error {
	s.setState(Dormant)
	s.say(ctx, s.text(locale.SleepResponse))

	return nil
}

func (s *Service) shutdown(ctx context.Context) error {
	slog.Info("Shutdown requested by user", "telegram", true)

	if err := audio.SpeakAndWait(ctx, s.speaker, s.text(locale.ShutdownResponse)); err != nil {
		slog.Warn("Goodbye interrupted", "error", err)
	}

	s.exit(0)

	return errShutdown
}

func (s *Service) mapFolders(ctx context.Context) error {
	s.say(ctx, s.text(locale.MappingStart))

	count, err := s.indexer.Rescan(ctx)
	if err != nil {
		slog.Error("Folder mapping failed", "error", err)
		s.say(ctx, s.text(locale.MappingFailed))
		return nil
	}

	s.say(ctx, s.text(locale.MappingEnd, count))

	return nil
}

func (s *Service) openPanel(ctx context.Context) error {
	url := s.panel()
	if url == "" {
		s.say(ctx, s.text(locale.GUIError))
		return nil
	}

	if err := s.browser.OpenURL(ctx, url); err != nil {
		slog.Warn("Failed to open settings panel", "url", url, "error", err)
	}

	s.say(ctx, s.text(locale.OpenGUI, url))

	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
