package llm

import (
	"context"
	llmclient "eleven/app/client/llm"
	"eleven/app/config"
	"eleven/app/locale"
	"eleven/app/service/memory"
	"eleven/app/util/retry"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	_ "embed"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/prompts"
)

//go:embed system_prompt_template.txt
var systemPromptTemplate string

//go:embed intent_prompt_template.txt
var intentPromptTemplate string

const historyLoadTimeout = 5 * time.Second

// Memory is the persistent transcript the chat session is mirrored to.
type Memory interface {
	Append(ctx context.Context, role memory.Role, content string) error
	Recent(ctx context.Context, limit int) ([]memory.Entry, error)
	Clear(ctx context.Context) error
}

// Service talks to the language model on behalf of the assistant.
// It owns the endpoint rotation, the persona prompt and the chat session.
type Service struct {
	cfg    *config.Store
	client llmclient.Client
	memory Memory

	systemTmpl prompts.PromptTemplate
	intentTmpl prompts.PromptTemplate

	mu           sync.Mutex
	endpoints    []string
	index        int
	systemPrompt string
	history      []llmclient.Message
}

func New(di *do.Injector) (*Service, error) {
	svc, err := NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[llmclient.Client](di),
		do.MustInvoke[*memory.Service](di),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(do.MustInvoke[context.Context](di), historyLoadTimeout)
	defer cancel()

	if err = svc.LoadHistory(ctx); err != nil {
		slog.Warn("Failed to restore chat history", "error", err)
	}

	return svc, nil
}

func NewService(cfg *config.Store, client llmclient.Client, mem Memory) (*Service, error) {
	s := &Service{
		cfg:        cfg,
		client:     client,
		memory:     mem,
		systemTmpl: prompts.NewPromptTemplate(systemPromptTemplate, []string{"name", "language", "humor", "sarcasm", "sincerity", "professionalism", "guidelines"}),
		intentTmpl: prompts.NewPromptTemplate(intentPromptTemplate, []string{"text"}),
		endpoints:  slices.Clone(cfg.Get().LLM.Endpoints),
	}

	if err := s.RebuildPrompt(); err != nil {
		return nil, err
	}

	cfg.Subscribe(s.onConfigChange)

	return s, nil
}

// LoadHistory seeds the chat session with the most recent stored turns.
func (s *Service) LoadHistory(ctx context.Context) error {
	limit := s.cfg.Get().LLM.HistorySize * 2

	entries, err := s.memory.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	history := make([]llmclient.Message, 0, len(entries))
	for _, e := range entries {
		history = append(history, llmclient.Message{Role: llmclient.Role(e.Role), Content: e.Content})
	}

	s.mu.Lock()
	s.history = history
	s.mu.Unlock()

	return nil
}

// Generate answers a conversational turn. Failures are logged and turned into a spoken apology.
func (s *Service) Generate(ctx context.Context, prompt, contextText string) string {
	cfg := s.cfg.Get()

	full := prompt
	if contextText != "" {
		full = "Context: " + contextText + "\n\nUser: " + prompt
	}

	s.mu.Lock()
	system := s.systemPrompt
	history := slices.Clone(s.history)
	s.mu.Unlock()

	reply, err := s.call(ctx, func(model string) llmclient.Request {
		return llmclient.Request{
			Model:   model,
			System:  system,
			History: history,
			Prompt:  full,
		}
	}, func(ctx context.Context) {
		if err := s.memory.Append(ctx, memory.RoleUser, prompt); err != nil {
			slog.Warn("Failed to store user message", "error", err)
		}
	})
	if err != nil {
		slog.Error("Response generation failed", "error", err)
		return locale.Text(cfg.Assistant.Language, locale.LLMApology)
	}

	if err = s.memory.Append(ctx, memory.RoleModel, reply); err != nil {
		slog.Warn("Failed to store model reply", "error", err)
	}

	s.mu.Lock()
	s.history = append(s.history,
		llmclient.Message{Role: llmclient.RoleUser, Content: prompt},
		llmclient.Message{Role: llmclient.RoleModel, Content: reply},
	)
	if limit := cfg.LLM.HistorySize * 2; len(s.history) > limit {
		s.history = slices.Clone(s.history[len(s.history)-limit:])
	}
	s.mu.Unlock()

	return reply
}

// AnalyzeIntent asks the model for a JSON classification of text and returns the raw reply.
func (s *Service) AnalyzeIntent(ctx context.Context, text string) (string, error) {
	prompt, err := s.intentTmpl.Format(map[string]any{"text": text})
	if err != nil {
		return "", fmt.Errorf("failed to render intent prompt: %w", err)
	}

	return s.call(ctx, func(model string) llmclient.Request {
		return llmclient.Request{
			Model:  model,
			Prompt: prompt,
			JSON:   true,
		}
	}, nil)
}

// GenerateVision answers prompt about image. Failures become a spoken apology.
func (s *Service) GenerateVision(ctx context.Context, prompt string, image []byte, mime string) string {
	lang := s.cfg.Get().Assistant.Language

	s.mu.Lock()
	system := s.systemPrompt
	s.mu.Unlock()

	reply, err := s.call(ctx, func(model string) llmclient.Request {
		return llmclient.Request{
			Model:     model,
			System:    system,
			Prompt:    prompt,
			Image:     image,
			ImageMIME: mime,
		}
	}, nil)
	if err != nil {
		slog.Error("Vision request failed", "error", err)
		return locale.Text(lang, locale.VisionFailed)
	}

	return reply
}

// call runs one request under the retry policy, moving to the next endpoint after every quota error.
// onFirst runs before the first attempt only.
func (s *Service) call(
	ctx context.Context,
	build func(model string) llmclient.Request,
	onFirst func(ctx context.Context),
) (string, error) {
	cfg := s.cfg.Get().LLM

	policy := retry.Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     retry.ParseBackoff(cfg.Backoff),
		Delay:       cfg.BackoffDelay,
		Retryable:   llmclient.IsQuota,
		OnRetry: func(attempt int, err error) {
			from, to := s.advance()
			slog.Warn("LLM quota exceeded, switching endpoint",
				"attempt", attempt+1,
				"from", from,
				"to", to,
				"error", err)
		},
	}

	var reply string

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if attempt == 0 && onFirst != nil {
			onFirst(ctx)
		}

		model := s.Endpoint()
		if model == "" {
			return llmclient.ErrNoEndpoints
		}

		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		text, err := s.client.Complete(ctx, build(model))
		if err != nil {
			return err
		}

		reply = text
		return nil
	})
	if err != nil {
		return "", err
	}

	return reply, nil
}

func (s *Service) advance() (from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.endpoints) == 0 {
		return "", ""
	}

	from = s.endpoints[s.index]
	s.index = (s.index + 1) % len(s.endpoints)

	return from, s.endpoints[s.index]
}

func (s *Service) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.endpoints) == 0 {
		return ""
	}

	return s.endpoints[s.index]
}

func (s *Service) EndpointIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.index
}

// Reconfigure replaces the endpoint list and restarts rotation from the first entry.
func (s *Service) Reconfigure(endpoints []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endpoints = slices.Clone(endpoints)
	s.index = 0

	slog.Info("LLM endpoints reconfigured", "endpoints", endpoints)
}

// RebuildPrompt renders the system prompt from the current name, language and personality.
func (s *Service) RebuildPrompt() error {
	cfg := s.cfg.Get()
	p := cfg.Personality

	prompt, err := s.systemTmpl.Format(map[string]any{
		"name":            cfg.Assistant.Name,
		"language":        languageName(cfg.Assistant.Language),
		"humor":           p.Humor,
		"sarcasm":         p.Sarcasm,
		"sincerity":       p.Sincerity,
		"professionalism": p.Professionalism,
		"guidelines":      guidelines(p),
	})
	if err != nil {
		return fmt.Errorf("failed to render system prompt: %w", err)
	}

	s.mu.Lock()
	s.systemPrompt = prompt
	s.mu.Unlock()

	return nil
}

func (s *Service) SystemPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.systemPrompt
}

// ResetChat drops the session history and the stored transcript.
func (s *Service) ResetChat(ctx context.Context) error {
	s.mu.Lock()
	s.history = nil
	s.mu.Unlock()

	if err := s.memory.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear memory: %w", err)
	}

	return nil
}

func (s *Service) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.history)
}

func (s *Service) onConfigChange(cfg config.Config) {
	if !slices.Equal(cfg.LLM.Endpoints, s.endpointList()) {
		s.Reconfigure(cfg.LLM.Endpoints)
	}

	if err := s.RebuildPrompt(); err != nil {
		slog.Error("Failed to rebuild system prompt", "error", err)
	}
}

func (s *Service) endpointList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.endpoints)
}
