package intent

import (
	"context"
	"eleven/app/config"
	"eleven/app/service/llm"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const chatConfidence = 0.9

var errUnknownCommand = errors.New("unknown command")

type Analyzer interface {
	AnalyzeIntent(ctx context.Context, text string) (string, error)
}

// Resolver classifies utterances: personality fast path, model analysis, keyword fallback, then chat.
type Resolver struct {
	analyzer Analyzer
}

func New(di *do.Injector) (*Resolver, error) {
	return NewResolver(do.MustInvoke[*llm.Service](di)), nil
}

func NewResolver(analyzer Analyzer) *Resolver {
	return &Resolver{analyzer: analyzer}
}

func (r *Resolver) Resolve(ctx context.Context, u Utterance) Intent {
	text := strings.TrimSpace(u.Text)
	if text == "" {
		return Chat{Confidence: chatConfidence}
	}

	if result, ok := resolvePersonality(text); ok {
		slog.Debug("Intent resolved by personality keywords", "text", text, "intent", fmt.Sprintf("%+v", result))
		return result
	}

	result, err := r.analyze(ctx, text)
	if err == nil {
		slog.Debug("Intent resolved by model", "text", text, "intent", fmt.Sprintf("%+v", result))
		return result
	}

	slog.Warn("Intent analysis failed, falling back to keywords",
		"text", text,
		"error", err)

	if cmd, ok := matchKeywords(text); ok {
		slog.Debug("Intent resolved by keyword", "text", text, "keyword", cmd.Keyword, "command", cmd.Name)
		return cmd
	}

	return Chat{Confidence: chatConfidence}
}

// resolvePersonality short-circuits trait adjustments. A trait with a number is a ConfigChange,
// a trait with a configure verb but no number becomes a configure command.
func resolvePersonality(text string) (Intent, bool) {
	trait, ok := MatchTrait(text)
	if !ok {
		return nil, false
	}

	if value, ok := ParsePercentage(text); ok {
		return ConfigChange{Trait: trait, Value: value}, true
	}

	if hasConfigureVerb(text) {
		return Command{
			Name:       Configure,
			Parameters: text,
			Keyword:    string(trait),
			Confidence: keywordConfidence,
		}, true
	}

	return nil, false
}

func (r *Resolver) analyze(ctx context.Context, text string) (Intent, error) {
	raw, err := r.analyzer.AnalyzeIntent(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze intent: %w", err)
	}

	return parseAnalysis(raw)
}

func parseAnalysis(raw string) (Intent, error) {
	result := strings.TrimSpace(raw)
	result = strings.Trim(result, "`")
	result = strings.TrimSpace(result)
	result = strings.TrimPrefix(result, "json")
	result = strings.TrimSpace(result)

	var resp analysis
	if err := json.Unmarshal([]byte(result), &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}

	switch strings.ToLower(resp.Type) {
	case "command":
		name := CommandName(resp.Command)
		if !pie.Contains(CommandNames, name) {
			return nil, fmt.Errorf("%w: %q", errUnknownCommand, resp.Command)
		}

		return Command{
			Name:       name,
			Parameters: resp.Parameters,
			Confidence: resp.Confidence,
		}, nil

	case "chat":
		return Chat{Confidence: resp.Confidence}, nil

	case "config":
		trait, ok := MatchTrait(resp.Trait)
		if !ok {
			return nil, fmt.Errorf("unknown trait %q", resp.Trait)
		}

		if resp.Value == nil {
			return Command{
				Name:       Configure,
				Parameters: resp.Parameters,
				Confidence: resp.Confidence,
			}, nil
		}

		return ConfigChange{Trait: trait, Value: config.Clamp(*resp.Value)}, nil
	}

	return nil, fmt.Errorf("unknown analysis type %q", resp.Type)
}
