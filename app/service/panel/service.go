// Package panel serves the local settings panel: live status, personality sliders, safe mode and typed input.
package panel

import (
	"context"
	_ "embed"
	"eleven/app/config"
	"eleven/app/service/conversation"
	"eleven/app/service/folderindex"
	"eleven/app/service/llm"
	"eleven/app/service/queue"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/elliotchance/pie/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
)

const shutdownTimeout = 3 * time.Second

//go:embed panel.html
var panelHTML []byte

type Conversation interface {
	State() conversation.State
	Transcript() []conversation.Turn
}

type Assistant interface {
	Endpoint() string
	RebuildPrompt() error
	ResetChat(ctx context.Context) error
}

type Indexer interface {
	Count(ctx context.Context) (int, error)
	LastRescan() time.Time
	Rescan(ctx context.Context) (int, error)
}

type Queue interface {
	Add(text string) bool
}

type Service struct {
	cfg          *config.Store
	conversation Conversation
	assistant    Assistant
	indexer      Indexer
	queue        Queue
	validate     *validator.Validate
	app          *fiber.App
}

func New(di *do.Injector) (*Service, error) {
	return NewService(
		do.MustInvoke[*config.Store](di),
		do.MustInvoke[*conversation.Service](di),
		do.MustInvoke[*llm.Service](di),
		do.MustInvoke[*folderindex.Service](di),
		do.MustInvoke[*queue.Service](di),
	), nil
}

func NewService(cfg *config.Store, conv Conversation, assistant Assistant, indexer Indexer, q Queue) *Service {
	s := &Service{
		cfg:          cfg,
		conversation: conv,
		assistant:    assistant,
		indexer:      indexer,
		queue:        q,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "eleven",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.routes()

	return s
}

func (s *Service) routes() {
	s.app.Get("/", s.index)

	api := s.app.Group("/api")
	api.Get("/status", s.status)
	api.Get("/settings", s.settings)
	api.Put("/personality", s.setPersonality)
	api.Post("/safe-mode", s.setSafeMode)
	api.Post("/reload", s.reload)
	api.Post("/utterance", s.utterance)
	api.Post("/rescan", s.rescan)
}

// URL is where the panel can be opened in a browser.
func (s *Service) URL() string {
	return "http://" + s.cfg.Get().GUI.Listen
}

// Run listens until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	addr := s.cfg.Get().GUI.Listen

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()

	slog.Info("Settings panel listening", "url", s.URL())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("failed to shut down panel: %w", err)
	}

	return <-errCh
}

func (s *Service) index(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.Send(panelHTML)
}

type statusResponse struct {
	State      string              `json:"state"`
	Name       string              `json:"name"`
	Language   string              `json:"language"`
	Endpoint   string              `json:"endpoint"`
	SafeMode   bool                `json:"safe_mode"`
	Folders    int                 `json:"folders"`
	LastRescan *time.Time          `json:"last_rescan,omitempty"`
	Transcript []conversation.Turn `json:"transcript"`
}

func (s *Service) status(c *fiber.Ctx) error {
	cfg := s.cfg.Get()

	count, err := s.indexer.Count(c.UserContext())
	if err != nil {
		return fmt.Errorf("failed to count folders: %w", err)
	}

	res := statusResponse{
		State:      s.conversation.State().String(),
		Name:       cfg.Assistant.Name,
		Language:   cfg.Assistant.Language,
		Endpoint:   s.assistant.Endpoint(),
		SafeMode:   cfg.Safety.SafeMode,
		Folders:    count,
		Transcript: s.conversation.Transcript(),
	}

	if last := s.indexer.LastRescan(); !last.IsZero() {
		res.LastRescan = &last
	}

	return c.JSON(res)
}

type settingsResponse struct {
	Personality map[config.Trait]int `json:"personality"`
	SafeMode    bool                 `json:"safe_mode"`
	Endpoints   []string             `json:"endpoints"`
	ConfigPath  string               `json:"config_path"`
}

func (s *Service) settings(c *fiber.Ctx) error {
	cfg := s.cfg.Get()

	personality := make(map[config.Trait]int, len(config.Traits))
	for _, t := range config.Traits {
		personality[t] = cfg.Personality.Get(t)
	}

	return c.JSON(settingsResponse{
		Personality: personality,
		SafeMode:    cfg.Safety.SafeMode,
		Endpoints:   cfg.LLM.Endpoints,
		ConfigPath:  s.cfg.Path(),
	})
}

type personalityRequest struct {
	Trait string `json:"trait" validate:"required"`
	Value *int   `json:"value" validate:"required"`
}

func (s *Service) setPersonality(c *fiber.Ctx) error {
	var req personalityRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	trait := config.Trait(req.Trait)
	if !pie.Contains(config.Traits, trait) {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown trait %q", req.Trait))
	}

	stored, err := s.cfg.SetTrait(trait, *req.Value)
	if err != nil {
		return fmt.Errorf("failed to set trait: %w", err)
	}

	if err = s.assistant.RebuildPrompt(); err != nil {
		return fmt.Errorf("failed to rebuild prompt: %w", err)
	}

	if err = s.assistant.ResetChat(c.UserContext()); err != nil {
		slog.Warn("Failed to reset chat after personality change", "error", err)
	}

	slog.Info("Personality changed from panel", "trait", trait, "value", stored)

	return c.JSON(fiber.Map{"trait": trait, "value": stored})
}

type safeModeRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (s *Service) setSafeMode(c *fiber.Ctx) error {
	var req safeModeRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	if err := s.cfg.SetSafeMode(*req.Enabled); err != nil {
		return fmt.Errorf("failed to set safe mode: %w", err)
	}

	slog.Info("Safe mode changed from panel", "enabled", *req.Enabled)

	return c.JSON(fiber.Map{"safe_mode": *req.Enabled})
}

func (s *Service) reload(c *fiber.Ctx) error {
	if err := s.cfg.Reload(); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	slog.Info("Config reloaded from panel", "path", s.cfg.Path())

	return c.JSON(fiber.Map{"reloaded": true})
}

type utteranceRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}

func (s *Service) utterance(c *fiber.Ctx) error {
	var req utteranceRequest
	if err := s.parse(c, &req); err != nil {
		return err
	}

	if !s.queue.Add(req.Text) {
		return fiber.NewError(fiber.StatusServiceUnavailable, "input queue is full")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"queued": true})
}

func (s *Service) rescan(c *fiber.Ctx) error {
	count, err := s.indexer.Rescan(c.UserContext())
	if err != nil {
		return fmt.Errorf("failed to rescan folders: %w", err)
	}

	return c.JSON(fiber.Map{"folders": count})
}

func (s *Service) parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := s.validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return nil
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	} else {
		slog.Error("Panel request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
