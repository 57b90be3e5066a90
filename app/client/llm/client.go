package llm

import (
	"context"
	"eleven/app/config"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/do"
)

var (
	// ErrQuota marks a rate or usage limit reported by the backend.
	ErrQuota        = errors.New("llm quota exceeded")
	ErrEmptyReply   = errors.New("llm returned an empty reply")
	ErrNoEndpoints  = errors.New("no llm endpoints configured")
	ErrUnknownModel = errors.New("unknown llm provider")
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role    Role
	Content string
}

type Request struct {
	Model   string
	System  string
	History []Message
	Prompt  string
	// Image is sent along with Prompt when set
	Image     []byte
	ImageMIME string
	// JSON asks the backend for a JSON object reply
	JSON bool
}

// Client is a single completion backend. Implementations wrap quota errors with ErrQuota.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

func New(di *do.Injector) (Client, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Store](di).Get().LLM

	client, err := NewClient(ctx, cfg)
	if err != nil {
		slog.Error("LLM backend unavailable, replies will fall back", "error", err)
		return unavailable{err: err}, nil
	}

	return client, nil
}

func NewClient(ctx context.Context, cfg config.LLM) (Client, error) {
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "gemini":
		return newGemini(ctx, cfg, httpClient)
	case "openai":
		return newOpenAI(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, cfg.Provider)
	}
}

func IsQuota(err error) bool {
	return errors.Is(err, ErrQuota)
}

// unavailable stands in for a backend that could not be constructed.
type unavailable struct {
	err error
}

func (u unavailable) Complete(context.Context, Request) (string, error) {
	return "", u.err
}

type quotaError struct {
	err error
}

func (e *quotaError) Error() string {
	return "llm quota exceeded: " + e.err.Error()
}

func (e *quotaError) Unwrap() []error {
	return []error{ErrQuota, e.err}
}
